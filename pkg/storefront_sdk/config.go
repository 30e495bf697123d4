package storefront_sdk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vitrine/storefront_sdk_go/internal/logging"
)

// Runtime modes.
const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// EnvPrefix prefixes every environment override (STOREFRONT_API_URL, ...).
const EnvPrefix = "STOREFRONT"

// Config keys. Nested keys map to env names with "." replaced by "_".
const (
	keyMode         = "mode"
	keyAPIURL       = "api_url"
	keyTimeout      = "timeout"
	keySessionFile  = "session_file"
	keyRateRPS      = "rate_limit.rps"
	keyRateBurst    = "rate_limit.burst"
	keyStaleTime    = "query.stale_time"
	keyRetry        = "query.retry"
	keyLogLevel     = "log.level"
	keyLogFormat    = "log.format"
	keyLogOutput    = "log.output"
	keyMockSeed     = "mock.seed"
	keyMockProducts = "mock.fake_products"
	keyMockFakeSeed = "mock.fake_seed"
)

const configName = "storefront"

// Config is everything New needs.
type Config struct {
	Mode        string
	APIURL      string
	Timeout     time.Duration
	SessionFile string

	RateLimit float64
	RateBurst int

	StaleTime time.Duration
	Retry     int

	Log  logging.Config
	Mock MockConfig
}

// MockConfig fills the in-memory API used in mock mode.
type MockConfig struct {
	SeedFile     string
	FakeProducts int
	FakeSeed     uint64
}

// DefaultConfig is auto mode with a 15s timeout and a memory session.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeAuto,
		Timeout:   15 * time.Second,
		RateBurst: 1,
		Retry:     0,
		Log:       logging.DefaultConfig(),
		Mock:      MockConfig{FakeProducts: 12, FakeSeed: 1},
	}
}

// LoadConfig reads storefront.yaml from the working directory or
// $HOME/.storefront, then applies STOREFRONT_* environment overrides. An
// explicit file path replaces the search. A missing file is not an error
// unless it was named explicitly.
func LoadConfig(file string) (Config, error) {
	def := DefaultConfig()
	v := viper.New()
	v.SetDefault(keyMode, def.Mode)
	v.SetDefault(keyTimeout, def.Timeout)
	v.SetDefault(keyRateRPS, def.RateLimit)
	v.SetDefault(keyRateBurst, def.RateBurst)
	v.SetDefault(keyStaleTime, def.StaleTime)
	v.SetDefault(keyRetry, def.Retry)
	v.SetDefault(keyLogLevel, def.Log.Level)
	v.SetDefault(keyLogFormat, def.Log.Format)
	v.SetDefault(keyLogOutput, def.Log.Output)
	v.SetDefault(keyMockProducts, def.Mock.FakeProducts)
	v.SetDefault(keyMockFakeSeed, def.Mock.FakeSeed)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".storefront"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("storefront_sdk: read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Mode:        strings.ToLower(strings.TrimSpace(v.GetString(keyMode))),
		APIURL:      strings.TrimSpace(v.GetString(keyAPIURL)),
		Timeout:     v.GetDuration(keyTimeout),
		SessionFile: strings.TrimSpace(v.GetString(keySessionFile)),
		RateLimit:   v.GetFloat64(keyRateRPS),
		RateBurst:   v.GetInt(keyRateBurst),
		StaleTime:   v.GetDuration(keyStaleTime),
		Retry:       v.GetInt(keyRetry),
		Log: logging.Config{
			Level:  v.GetString(keyLogLevel),
			Format: v.GetString(keyLogFormat),
			Output: v.GetString(keyLogOutput),
		},
		Mock: MockConfig{
			SeedFile:     strings.TrimSpace(v.GetString(keyMockSeed)),
			FakeProducts: v.GetInt(keyMockProducts),
			FakeSeed:     v.GetUint64(keyMockFakeSeed),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the mode and the fields it requires.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeMock, "":
	case ModeHTTP:
		if c.APIURL == "" {
			return fmt.Errorf("storefront_sdk: HTTP mode requires %s_API_URL", EnvPrefix)
		}
	default:
		return fmt.Errorf("storefront_sdk: unsupported %s_MODE value %q", EnvPrefix, c.Mode)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("storefront_sdk: timeout must not be negative")
	}
	if c.Mock.FakeProducts < 0 {
		return fmt.Errorf("storefront_sdk: mock.fake_products must not be negative")
	}
	return nil
}

// ResolvedMode is the mode New will run in.
func (c Config) ResolvedMode() string {
	switch c.Mode {
	case ModeHTTP, ModeMock:
		return c.Mode
	default:
		if c.APIURL != "" {
			return ModeHTTP
		}
		return ModeMock
	}
}

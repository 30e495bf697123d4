package storefront_sdk

import (
	"fmt"
	"net/http/httptest"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/logging"
	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
	"github.com/vitrine/storefront_sdk_go/pkg/query"
	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/mock"
)

// SDK is a ready client plus what it was built from. Close releases the
// mock listener in mock mode.
type SDK struct {
	*storefront.Client

	Mode    string
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	// Mock is the in-memory API in mock mode, nil otherwise.
	Mock *mock.Mock

	server *httptest.Server
}

// Option adjusts New.
type Option func(*settings)

type settings struct {
	logger    *zap.Logger
	navigator gateway.Navigator
	notifiers []gateway.Notifier
}

// WithLogger replaces the logger built from Config.Log.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithNavigator receives the routes requested by API actions.
func WithNavigator(n gateway.Navigator) Option {
	return func(s *settings) { s.navigator = n }
}

// WithNotifier subscribes n to gateway notifications.
func WithNotifier(n gateway.Notifier) Option {
	return func(s *settings) { s.notifiers = append(s.notifiers, n) }
}

// NewFromEnv loads the configuration with LoadConfig("") and calls New.
func NewFromEnv(opts ...Option) (*SDK, error) {
	cfg, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New builds the client for cfg.
func New(cfg Config, opts ...Option) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	logger := s.logger
	if logger == nil {
		l, err := logging.New(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("storefront_sdk: init logger: %w", err)
		}
		logger = l
	}

	sdk := &SDK{
		Mode:    cfg.ResolvedMode(),
		Logger:  logger,
		Metrics: metrics.New(),
	}

	baseURL := cfg.APIURL
	if sdk.Mode == ModeMock {
		m, err := newMock(cfg.Mock, logger.Named("mock"), sdk.Metrics)
		if err != nil {
			return nil, err
		}
		sdk.Mock = m
		sdk.server = httptest.NewServer(m.Handler())
		baseURL = sdk.server.URL
	}

	sess, err := newSession(cfg.SessionFile, logger)
	if err != nil {
		sdk.Close()
		return nil, err
	}

	gwOpts := []gateway.Option{
		gateway.WithSession(sess),
		gateway.WithLogger(logger.Named("gateway")),
		gateway.WithMetrics(sdk.Metrics),
		gateway.WithTimeout(cfg.Timeout),
		gateway.WithNavigator(s.navigator),
	}
	if cfg.RateLimit > 0 {
		gwOpts = append(gwOpts, gateway.WithRateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	for _, n := range s.notifiers {
		gwOpts = append(gwOpts, gateway.WithNotifier(n))
	}
	gw, err := gateway.New(baseURL, gwOpts...)
	if err != nil {
		sdk.Close()
		return nil, fmt.Errorf("storefront_sdk: init gateway: %w", err)
	}

	queries := query.NewClient(gw,
		query.WithLogger(logger.Named("query")),
		query.WithMetrics(sdk.Metrics),
		query.WithDefaultStaleTime(cfg.StaleTime))
	sdk.Client = storefront.New(gw,
		storefront.WithLogger(logger),
		storefront.WithQueryClient(queries),
		storefront.WithStaleTime(cfg.StaleTime),
		storefront.WithRetry(cfg.Retry))

	logger.Debug("storefront sdk ready",
		zap.String("mode", sdk.Mode),
		zap.String("api_url", baseURL))
	return sdk, nil
}

// Close shuts the mock listener down. It is safe to call more than once.
func (s *SDK) Close() {
	if s == nil || s.server == nil {
		return
	}
	s.server.Close()
	s.server = nil
}

func newSession(path string, logger *zap.Logger) (*session.Session, error) {
	if path == "" {
		return session.New(session.NewMemoryStore(), session.WithLogger(logger)), nil
	}
	store, err := session.NewFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("storefront_sdk: open session file: %w", err)
	}
	return session.New(store, session.WithLogger(logger)), nil
}

func newMock(cfg MockConfig, logger *zap.Logger, rec *metrics.Recorder) (*mock.Mock, error) {
	m := mock.New(mock.WithLogger(logger), mock.WithMetrics(rec))
	if cfg.SeedFile != "" {
		data, err := mock.LoadSeed(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("storefront_sdk: load mock seed: %w", err)
		}
		if err := m.Seed(data); err != nil {
			return nil, fmt.Errorf("storefront_sdk: apply mock seed: %w", err)
		}
	}
	if err := m.Fake(cfg.FakeProducts, cfg.FakeSeed); err != nil {
		return nil, fmt.Errorf("storefront_sdk: fake mock catalogue: %w", err)
	}
	return m, nil
}

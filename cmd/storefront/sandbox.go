package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/internal/logging"
	"github.com/vitrine/storefront_sdk_go/internal/metrics"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront/mock"
)

type sandboxOptions struct {
	addr         string
	seed         string
	fakeProducts int
	fakeSeed     uint64
	latency      time.Duration
	fail         string
	logLevel     string
}

func newSandboxCmd() *cobra.Command {
	var o sandboxOptions
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory storefront API for local development",
		Long: `Serve the in-memory storefront API with optional latency and failure
injection. Prometheus metrics are exposed on /metrics.

Example:
  storefront sandbox --addr :8787 --fake-products 20 --latency 50ms --fail rate=0.1,code=500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSandbox(ctx, o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":8787", "listen address")
	f.StringVar(&o.seed, "seed", "", "YAML seed file with users and products")
	f.IntVar(&o.fakeProducts, "fake-products", 12, "generated products added to the seller account")
	f.Uint64Var(&o.fakeSeed, "fake-seed", 0, "seed for generated data (0 is random)")
	f.DurationVar(&o.latency, "latency", 0, "artificial latency to inject per request")
	f.StringVar(&o.fail, "fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	f.StringVar(&o.logLevel, "log-level", "info", "debug logs every request")
	return cmd
}

// newSandbox builds the mock API and the handler serving it next to /metrics.
func newSandbox(o sandboxOptions, logger *zap.Logger) (*mock.Mock, http.Handler, error) {
	rate, code, err := mock.ParseFailure(o.fail)
	if err != nil {
		return nil, nil, fmt.Errorf("parse --fail: %w", err)
	}
	rec := metrics.New()
	m := mock.New(
		mock.WithLogger(logger),
		mock.WithMetrics(rec),
		mock.WithChaos(mock.Chaos{Latency: o.latency, FailRate: rate, FailCode: code}))
	if o.seed != "" {
		data, err := mock.LoadSeed(o.seed)
		if err != nil {
			return nil, nil, err
		}
		if err := m.Seed(data); err != nil {
			return nil, nil, err
		}
	}
	if err := m.Fake(o.fakeProducts, o.fakeSeed); err != nil {
		return nil, nil, err
	}

	r := chi.NewRouter()
	r.Handle("/metrics", rec.Handler())
	r.Mount("/", m.Handler())
	return m, r, nil
}

func runSandbox(ctx context.Context, o sandboxOptions, out io.Writer) error {
	cfg := logging.DefaultConfig()
	cfg.Level = o.logLevel
	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m, handler, err := newSandbox(o, logger)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              o.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	host := o.addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	logger.Info("storefront sandbox listening",
		zap.String("addr", o.addr),
		zap.Int("products", len(m.Products())),
		zap.Int("users", len(m.Users())))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "export STOREFRONT_MODE=http")
	fmt.Fprintf(out, "export STOREFRONT_API_URL=http://%s\n", host)
	fmt.Fprintf(out, "# seller:   %s / %s\n", mock.FakeSellerEmail, mock.FakePassword)
	fmt.Fprintf(out, "# customer: %s / %s\n", mock.FakeCustomerEmail, mock.FakePassword)
	fmt.Fprintln(out)

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdown)
}

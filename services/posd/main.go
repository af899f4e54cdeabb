package posd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"nexuscash/config"
	"nexuscash/core/events"
	"nexuscash/core/random"
	"nexuscash/gateway/middleware"
	"nexuscash/integrations/webhooks"
	"nexuscash/observability"
	"nexuscash/observability/logging"
	telemetry "nexuscash/observability/otel"
	"nexuscash/services/posd/sessionstore"
)

const serviceName = "nexuscashd"

// Main runs the register daemon using the provided command line flags.
func Main() error {
	var cfgPath, writePath string
	flag.StringVar(&cfgPath, "config", "", "path to a YAML or TOML config file")
	flag.StringVar(&writePath, "write-config", "", "write the effective config as TOML to this path and exit")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if writePath != "" {
		if err := config.Save(writePath, cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		return nil
	}

	logger := logging.Setup(serviceName, cfg.Env,
		logging.WithLevel(logging.ParseLevel(cfg.LogLevel)),
		logging.WithFile(cfg.LogFile))

	endpoint := cfg.Telemetry.Endpoint
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); value != "" {
		endpoint = value
	}
	insecure := cfg.Telemetry.Insecure
	if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Endpoint:    endpoint,
		Insecure:    insecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	sessions, err := sessionstore.Open(cfg.SessionDB)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sessions.Close()

	auth, err := NewAuth(context.Background(), sessions, logger)
	if err != nil {
		return fmt.Errorf("restore auth session: %w", err)
	}

	emitter := events.Multi{
		observability.Events(),
		logging.EventLogger{Logger: logger, Level: slog.LevelDebug},
	}
	if cfg.Webhook.Enabled() {
		dispatcher, err := webhooks.NewDispatcher(cfg.Webhook.URL, []byte(cfg.Webhook.Secret),
			webhooks.WithRetryPolicy(cfg.Webhook.MaxAttempts, 0, 0),
			webhooks.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("init webhooks: %w", err)
		}
		defer dispatcher.Close()
		emitter = append(emitter, dispatcher)
	}

	store := NewStore(
		WithSettings(SettingsFromConfig(cfg)),
		WithRandom(random.NewSource(cfg.Seed)),
		WithLogger(logger),
		WithEmitter(emitter),
	)

	httpRegistry := prometheus.NewRegistry()
	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName: serviceName,
		LogRequests: true,
		Enabled:     true,
		Registry:    httpRegistry,
	}, logger)
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"api": {
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
	}, logger)
	metrics := promhttp.HandlerFor(prometheus.Gatherers{prometheus.DefaultGatherer, httpRegistry}, promhttp.HandlerOpts{})

	api := NewServer(store, auth,
		WithObservability(obs),
		WithRateLimiter(limiter),
		WithMetricsHandler(metrics),
		WithServerLogger(logger))

	// WriteTimeout stays unset so checkout streams are not cut off.
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           otelhttp.NewHandler(api.Handler(), serviceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("register listening", "addr", cfg.Listen, "merchant", cfg.MerchantAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-stopCtx.Done():
	case err, ok := <-errs:
		if ok && err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	logger.Info("shutting down")
	store.ClearCheckoutSession()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

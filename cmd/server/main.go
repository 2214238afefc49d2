package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "torrenthive/metasearch/internal/api/http"
	"torrenthive/metasearch/internal/app"
	"torrenthive/metasearch/internal/metrics"
	"torrenthive/metasearch/internal/providers/bitsearch"
	"torrenthive/metasearch/internal/providers/leetx"
	"torrenthive/metasearch/internal/providers/mirrors"
	"torrenthive/metasearch/internal/providers/piratebay"
	"torrenthive/metasearch/internal/providers/ytsmx"
	"torrenthive/metasearch/internal/search"
	"torrenthive/metasearch/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "metasearch")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "metasearch"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Int("resolveWorkers", cfg.ResolveWorkers),
		slog.Int("safetyNet", cfg.SafetyNet),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
	)

	newClient := func() *http.Client {
		return &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	leetxAdapter := leetx.New(leetx.Config{
		Endpoint:  cfg.LeetxEndpoint,
		UserAgent: cfg.UserAgent,
		Client:    newClient(),
	})
	adapters := []search.Adapter{
		leetxAdapter,
		piratebay.New(piratebay.Config{
			Endpoint:  cfg.PirateBayEndpoint,
			SiteURL:   cfg.PirateBaySiteURL,
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
		ytsmx.New(ytsmx.Config{
			Endpoint:  cfg.YTSEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
		bitsearch.New(bitsearch.Config{
			Endpoint:  cfg.BitSearchEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
	}

	mirrorStore := buildMirrorStore(cfg, logger)
	applyMirrorOverrides(mirrorStore, adapters, logger)

	engine := search.NewEngine(adapters,
		search.WithTimeout(cfg.RequestTimeout),
		search.WithResolveWorkers(cfg.ResolveWorkers),
		search.WithSafetyNet(cfg.SafetyNet),
		search.WithLogger(logger),
	)

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(float64(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
	}
	if mirrorStore != nil {
		serverOpts = append(serverOpts, apihttp.WithMirrorStore(mirrorStore))
	}

	handler := apihttp.NewServer(engine, serverOpts...).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// /search streams records for the whole search window; a server-level
		// write timeout would cut long searches off mid-stream.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("metasearch service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
		slog.Int("adapters", len(adapters)),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("metasearch service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildMirrorStore(cfg app.Config, logger *slog.Logger) mirrors.Store {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("mirror store disabled: invalid redis url", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("mirror store disabled: redis unavailable", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return mirrors.NewRedisStore(client, "")
}

// applyMirrorOverrides repoints configurable adapters at their persisted
// mirror endpoints from the last run.
func applyMirrorOverrides(store mirrors.Store, adapters []search.Adapter, logger *slog.Logger) {
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	overrides, err := store.Load(ctx)
	if err != nil {
		logger.Warn("mirror overrides not loaded", slog.String("error", err.Error()))
		return
	}
	for _, adapter := range adapters {
		state, ok := overrides[strings.ToLower(adapter.Name())]
		if !ok || strings.TrimSpace(state.Endpoint) == "" {
			continue
		}
		setter, ok := adapter.(search.EndpointSetter)
		if !ok {
			continue
		}
		setter.SetEndpoint(state.Endpoint)
		logger.Info("mirror override applied",
			slog.String("adapter", adapter.Name()),
			slog.String("endpoint", state.Endpoint),
		)
	}
}

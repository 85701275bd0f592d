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

	apihttp "vodstream/searchgateway/internal/api/http"
	"vodstream/searchgateway/internal/app"
	"vodstream/searchgateway/internal/auth"
	"vodstream/searchgateway/internal/filter"
	"vodstream/searchgateway/internal/metrics"
	"vodstream/searchgateway/internal/providers/vodapi"
	"vodstream/searchgateway/internal/registry"
	"vodstream/searchgateway/internal/search"
	"vodstream/searchgateway/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "search-gateway")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "search-gateway"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("providerTimeout", cfg.ProviderTimeout),
		slog.String("sitesFile", cfg.SitesFile),
		slog.Bool("hasPolicyFile", strings.TrimSpace(cfg.PolicyFile) != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasAuthToken", cfg.AuthToken != ""),
		slog.Duration("cacheTTL", cfg.CacheTTL),
	)

	policyCfg, err := filter.LoadConfig(cfg.PolicyFile)
	if err != nil {
		logger.Error("load content policy", slog.String("error", err.Error()))
		os.Exit(1)
	}
	policy := filter.Compile(policyCfg)

	sites, err := registry.LoadSites(cfg.SitesFile)
	if err != nil {
		logger.Error("load sites", slog.String("error", err.Error()))
		os.Exit(1)
	}

	providerClient := &http.Client{
		Timeout:   cfg.ProviderTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	reg, err := registry.New(sites, func(site registry.Site) search.Provider {
		return vodapi.NewProvider(vodapi.Config{
			Key:       site.Key,
			Name:      site.Name,
			Endpoint:  site.Endpoint,
			Adult:     site.Adult,
			UserAgent: cfg.UserAgent,
			Client:    providerClient,
		})
	})
	if err != nil {
		logger.Error("build provider registry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	serviceOpts := []search.ServiceOption{search.WithLogger(logger)}
	if cache := buildCache(cfg, logger); cache != nil {
		serviceOpts = append(serviceOpts, search.WithCache(cache))
	}
	service := search.NewService(policy, cfg.ProviderTimeout, serviceOpts...)

	gate := auth.NewTokenGate(cfg.AuthToken)
	handler := apihttp.NewServer(service, reg, gate, logger,
		apihttp.WithCacheTTL(cfg.CacheTTL),
	).Handler()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// SSE streaming (/api/search/ws) can legitimately exceed short write
		// timeouts. Keep it disabled at the server level; rely on per-provider
		// timeouts and upstream limits.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("search gateway started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Int("sites", len(sites)),
		slog.Duration("timeout", cfg.ProviderTimeout),
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
	logger.Info("search gateway stopped")
}

func buildCache(cfg app.Config, logger *slog.Logger) *search.ResultCache {
	if cfg.CacheDisabled {
		logger.Info("result cache disabled")
		return nil
	}
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		logger.Info("result cache using in-memory store", slog.Duration("ttl", cfg.CacheTTL))
		return search.NewResultCache(search.NewMemoryStore(), cfg.CacheTTL, logger)
	}
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url; falling back to in-memory cache", slog.String("error", err.Error()))
		return search.NewResultCache(search.NewMemoryStore(), cfg.CacheTTL, logger)
	}
	store := search.NewRedisStore(redis.NewClient(options))
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		// Keep the redis store anyway: lookups degrade to forced misses and
		// recover once redis comes back.
		logger.Warn("redis unreachable at startup", slog.String("error", err.Error()))
	}
	logger.Info("result cache using redis", slog.Duration("ttl", cfg.CacheTTL))
	return search.NewResultCache(store, cfg.CacheTTL, logger)
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
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

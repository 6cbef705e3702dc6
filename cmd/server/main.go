package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/3xpluto/second-service/internal/api"
	"github.com/3xpluto/second-service/internal/category"
	"github.com/3xpluto/second-service/internal/config"
	"github.com/3xpluto/second-service/internal/logging"
	"github.com/3xpluto/second-service/internal/mw"
	"github.com/3xpluto/second-service/internal/netx"
	"github.com/3xpluto/second-service/internal/ratelimit"
	"github.com/3xpluto/second-service/internal/timing"
	"github.com/3xpluto/second-service/internal/upstream"
)

func main() {
	var configPath string
	var validateOnly bool
	flag.StringVar(&configPath, "config", "", "path to yaml config (defaults + env when empty)")
	flag.BoolVar(&validateOnly, "validate-config", false, "validate config and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", slog.String("error", err.Error()))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level)
	slog.SetDefault(log)
	if validateOnly {
		log.Info("config ok")
		return
	}

	prop := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTextMapPropagator(prop)

	// ---- Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := mw.NewMetrics(reg)
	sink := timing.NewPrometheusSink(reg)

	// ---- Timing store
	var store timing.Store
	switch strings.ToLower(cfg.Timing.Store) {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Timing.Redis.Addr,
			Password: cfg.Timing.Redis.Password,
			DB:       cfg.Timing.Redis.DB,
		})
		if err := ping(rdb); err != nil {
			log.Warn("redis unreachable; falling back to memory timing store", slog.String("error", err.Error()))
			_ = rdb.Close()
			store = timing.NewMemoryStore(cfg.Timing.MaxEntries)
		} else {
			rs := timing.NewRedisStore(rdb, cfg.Timing.Redis.KeyPrefix, time.Duration(cfg.Timing.Redis.TTLSeconds)*time.Second)
			defer rs.Close()
			store = rs
		}
	default:
		store = timing.NewMemoryStore(cfg.Timing.MaxEntries)
	}

	// ---- Upstream client: pooled transport wrapped by the timing collector
	transport := upstream.NewTransport(upstream.TransportConfig{
		DialTimeout:           time.Duration(cfg.Upstream.DialTimeoutSeconds) * time.Second,
		TLSHandshakeTimeout:   time.Duration(cfg.Upstream.TLSHandshakeTimeoutSeconds) * time.Second,
		ResponseHeaderTimeout: time.Duration(cfg.Upstream.ResponseHeaderTimeoutSeconds) * time.Second,
		IdleConnTimeout:       time.Duration(cfg.Upstream.IdleConnTimeoutSeconds) * time.Second,
		MaxIdleConns:          cfg.Upstream.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.Upstream.MaxIdleConnsPerHost,
	})
	collector := timing.NewCollector(transport, store, sink, log)
	client, err := upstream.New(cfg.Upstream.BaseURL, &http.Client{Transport: collector}, upstream.WithPropagator(prop))
	if err != nil {
		log.Error("invalid upstream", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ---- Inbound throttling
	trusted, err := netx.ParsePrefixSet(cfg.Server.TrustedProxies)
	if err != nil {
		log.Error("invalid server.trusted_proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = newLimiter(cfg.RateLimit, log)
		defer limiter.Close()
	}

	handler := api.NewRouter(api.Options{
		Log:         log,
		Finder:      category.NewService(client),
		Metrics:     metrics,
		Gatherer:    reg,
		Limiter:     limiter,
		IPResolver:  mw.IPResolver{Trusted: trusted},
		Semaphore:   mw.NewSemaphore(cfg.Server.MaxInFlight),
		MaxBodySize: cfg.Server.MaxBodyBytes,
		AdminKey:    os.Getenv("SECOND_ADMIN_KEY"),
		Timings:     store,
		Info: api.StatusInfo{
			StartedAt:   time.Now(),
			ListenAddr:  cfg.Server.Addr,
			UpstreamURL: cfg.Upstream.BaseURL,
			TimingStore: cfg.Timing.Store,
		},
		Propagator: prop,
	})

	// ---- Server
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info("second-service listening",
			slog.String("addr", cfg.Server.Addr),
			slog.String("upstream", cfg.Upstream.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	transport.CloseIdleConnections()
	log.Info("shutdown complete")
}

func ping(rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

func newLimiter(cfg config.RateLimitConfig, log *slog.Logger) ratelimit.Limiter {
	memory := func() ratelimit.Limiter {
		return ratelimit.NewMemoryLimiter(cfg.RPS, cfg.Burst,
			time.Duration(cfg.TTLSeconds)*time.Second,
			time.Duration(cfg.CleanupSeconds)*time.Second,
		)
	}
	if strings.ToLower(cfg.Backend) != "redis" {
		return memory()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := ping(rdb); err != nil {
		log.Warn("redis unreachable; falling back to memory limiter", slog.String("error", err.Error()))
		_ = rdb.Close()
		return memory()
	}
	return ratelimit.NewRedisLimiter(rdb, cfg.Burst)
}

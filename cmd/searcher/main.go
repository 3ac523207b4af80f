package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/remote"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/click"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/instrumented"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/service"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/strmatch"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"shards", cfg.Index.Shards,
		"strmatch", strmatch.Active(),
		"store", cfg.Store.Backend,
	)

	m := metrics.New(nil)
	breakerState := func(name string, _, to resilience.State) {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}

	sharded, err := indexer.NewIndex(cfg)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	var engineOpts []indexer.Option
	engineOpts = append(engineOpts, indexer.WithSaveObserver(func(err error, _ time.Duration) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.SnapshotSavesTotal.WithLabelValues(status).Inc()
	}))
	if cfg.Snapshot.Remote.Enabled {
		sink, err := remote.NewMinioSink(cfg.Snapshot.Remote)
		if err != nil {
			return fmt.Errorf("creating remote snapshot sink: %w", err)
		}
		if err := sink.EnsureBucket(ctx); err != nil {
			return err
		}
		engineOpts = append(engineOpts, indexer.WithRemote(sink, resilience.RetryConfig{}))
		slog.Info("remote snapshots enabled", "endpoint", cfg.Snapshot.Remote.Endpoint, "bucket", cfg.Snapshot.Remote.Bucket)
	}
	engine, err := indexer.NewEngine(cfg.Snapshot, sharded, engineOpts...)
	if err != nil {
		return fmt.Errorf("creating snapshot engine: %w", err)
	}
	if err := engine.Load(ctx); err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	docs, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	defer docs.Close()

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisClient.Close()
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
	}
	collector := analytics.NewCollector(publisher, aggregator, 10000, 100)
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	collector.Start(collectorCtx)

	// Decorators, innermost first: clicks, query cache, metrics.
	clickOpts := []click.Option{click.WithRecorder(collector)}
	if cfg.Redis.ClickStore {
		clickOpts = append(clickOpts, click.WithStore(click.NewRedisStore(redisClient)))
	}
	var ix index.Index = click.Wrap(sharded, clickOpts...)

	var queryCache *cache.Index
	if cfg.Cache.Enabled {
		backend, err := newCacheBackend(cfg, redisClient, breakerState)
		if err != nil {
			return err
		}
		queryCache = cache.Wrap(ix, backend, cache.WithCounters(m.CacheHitsTotal, m.CacheMissesTotal))
		ix = queryCache
	}
	inst := instrumented.Wrap(ix, m)
	inst.ObserveSize()

	svc := service.New(inst, docs,
		service.WithSnapshotter(engine),
		service.WithSearchTracker(collector),
	)

	flushDone := engine.StartFlushLoop(ctx)

	if cfg.Kafka.Enabled {
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentWrite, consumer.HandleMessage(svc))
		ic := consumer.New(kc)
		defer ic.Close()
		go func() {
			if err := ic.Start(ctx); err != nil {
				slog.Error("index consumer error", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d terms in %d shards", sharded.TermCount(), sharded.NumShards()),
		}
	})
	checker.Register("store", health.PingCheck(svc.Ping, false))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, true))
	} else {
		checker.Register("redis", health.Static(health.StatusDegraded, "not configured"))
	}

	mux := http.NewServeMux()
	var qc handler.QueryCache
	if queryCache != nil {
		qc = queryCache
	}
	handler.New(svc, qc).Register(mux)
	analytics.NewHandler(aggregator, collector).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Trace(cfg.Server.RequestTimeout / 2),
		middleware.Metrics(m),
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		trusted, err := rl.TrustedPrefixes()
		if err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		limiter := ratelimit.New(rl.Requests, rl.Window)
		limiter.StartCleanup(ctx, 5*time.Minute)
		chain = append(chain, middleware.RateLimit(limiter, m, trusted))
		slog.Info("rate limiting enabled", "requests", rl.Requests, "window", rl.Window, "trusted_proxies", len(trusted))
	}
	timeouts := middleware.NewTimeouts(cfg.Server.RequestTimeout)
	chain = append(chain, timeouts.Middleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		metricsServer, err := m.Serve(fmt.Sprintf(":%d", cfg.Metrics.Port))
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-serveErr:
		stop()
		<-flushDone
		return fmt.Errorf("http server: %w", err)
	}

	checker.Drain()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if err := timeouts.Wait(shutdownCtx); err != nil {
		slog.Warn("timed-out handlers still running at shutdown", "error", err)
	}
	<-flushDone
	collector.Close()
	return nil
}

func newCacheBackend(cfg *config.Config, client *pkgredis.Client, onState func(string, resilience.State, resilience.State)) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case "redis":
		breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			OnStateChange: onState,
		})
		slog.Info("query cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		return cache.NewRedis(client, cfg.Redis.CacheTTL, breaker), nil
	default:
		slog.Info("query cache enabled", "backend", "lru", "size", cfg.Cache.Size)
		return cache.NewLRU(cfg.Cache.Size)
	}
}

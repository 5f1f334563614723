package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/lineproto"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusDir := flag.String("corpus", "", "corpus directory (overrides indexer.corpusDir)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitInvalidArgs)
	}
	if *corpusDir != "" {
		cfg.Indexer.CorpusDir = *corpusDir
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(apperrors.ExitInvalidArgs)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting pagesearch",
		"corpus", cfg.Indexer.CorpusDir,
		"addr", cfg.Server.Addr,
		"workers", cfg.Indexer.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	engine := searcher.New()
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats, ok := engine.Stats()
		if !ok {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index not built"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d terms across %d documents", stats.Terms, stats.Documents),
		}
	})
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	idx, err := indexer.NewEngine(cfg.Indexer, extract.NewRegistry(), m).Build(ctx, cfg.Indexer.CorpusDir)
	if err != nil {
		slog.Error("index build failed", "corpus", cfg.Indexer.CorpusDir, "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
	if err := engine.Load(idx); err != nil {
		slog.Error("loading index failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
	slog.Info("index ready", "fingerprint", idx.Fingerprint())

	var queryCache handler.ResponseCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, response caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			qc := cache.New(redisClient, cfg.Redis, m)
			queryCache = qc
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp, Message: "breaker " + qc.BreakerState().String()}
			})
			slog.Info("response cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if queryCache == nil && cfg.Cache.LocalEntries > 0 {
		queryCache = cache.NewLocal(cfg.Cache.LocalEntries, m)
		slog.Info("in-process response cache enabled", "entries", cfg.Cache.LocalEntries)
	}

	var tracker handler.Tracker
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorOptions{BufferSize: cfg.Kafka.BufferSize}, m)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("query analytics enabled", "topic", cfg.Kafka.AnalyticsTopic)
	}

	opts := lineproto.Options{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxLineBytes:   cfg.Server.MaxLineBytes,
		MaxConnections: cfg.Server.MaxConnections,
	}
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
		defer limiter.Close()
		opts.Limiter = limiter
		slog.Info("per-host rate limit enabled", "limit", cfg.Server.RateLimit, "window", cfg.Server.RateWindow)
	}
	server := lineproto.NewServer(handler.New(engine, queryCache, tracker, m), opts, m)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.ListenAndServe(cfg.Server.Addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(apperrors.ExitInternal)
	}
	<-stopped
	slog.Info("pagesearch stopped")
}

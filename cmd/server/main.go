package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/httpserver"
	"github.com/johnbyeon/feelscore-sub000/internal/adapter/memory"
	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/adapter/postgres"
	"github.com/johnbyeon/feelscore-sub000/internal/adapter/redis"
	"github.com/johnbyeon/feelscore-sub000/internal/app"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/config"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/logging"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/retry"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/version"
)

const startupTimeout = time.Minute

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func startupPolicy(dependency string) retry.Policy {
	p := retry.StartupPolicy
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not ready, retrying", "dependency", dependency, "attempt", attempt, "backoff", backoff, "error", err)
	}
	return p
}

func setupDB(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *pgxpool.Pool {
	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))

	pool, err := retry.Do(ctx, startupPolicy("postgres"), retry.Transient, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	redisMetrics := metrics.NewRedisMetrics(reg)
	hooks := []goredis.Hook{
		redis.NewMetricsHook(redisMetrics),
		redis.NewCircuitBreakerHook(redisMetrics),
	}

	client, err := retry.Do(ctx, startupPolicy("redis"), retry.Transient, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, hooks...)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

type stores struct {
	accumulator domain.StatsAccumulator
	reactions   domain.ReactionStore
	slotLocker  domain.SlotLocker
}

func setupStores(rdb *goredis.Client, cfg *config.Config) stores {
	if rdb == nil {
		slog.Warn("Using in-memory accumulator; stats are lost on restart and not shared between instances")
		return stores{
			accumulator: memory.NewAccumulator(),
			reactions:   memory.NewReactionStore(),
		}
	}
	return stores{
		accumulator: redis.NewAccumulator(rdb),
		reactions:   redis.NewReactionStore(rdb),
		slotLocker:  redis.NewSlotLock(rdb, cfg.InstanceID),
	}
}

func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client, categories httpserver.CategoryTreeSource) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	// Depends on postgres, so it runs after the ping.
	return append(checks, httpserver.CategoryTreeCheck(categories))
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, stopBackground context.CancelFunc, background *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()
		background.Wait()

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting feelscore", "version", version.Get().String(), "instance_id", cfg.InstanceID, "backend", cfg.AccumulatorBackend)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	reg := metrics.NewRegistry()
	statsMetrics := metrics.NewStatsMetrics(reg)
	cacheMetrics := metrics.NewCacheMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	pool := setupDB(startupCtx, cfg, reg)
	defer pool.Close()

	var rdb *goredis.Client
	if cfg.AccumulatorBackend == config.BackendRedis {
		rdb = setupRedis(startupCtx, cfg, reg)
		defer func() { _ = rdb.Close() }()
	}
	st := setupStores(rdb, cfg)

	clock := clockwork.NewRealClock()
	categories := app.NewCategoryCache(postgres.NewCategoryRepo(pool), cfg.CategoryCacheTTL, clock, cacheMetrics)
	snapshots := postgres.NewSnapshotRepo(pool)

	stats := app.NewStatsService(st.accumulator, categories, statsMetrics)
	dashboard := app.NewDashboard(categories, postgres.NewScoreSource(pool), snapshots, clock, statsMetrics)
	analyses := app.NewAnalysisRecorder(stats, postgres.NewAnalysisRepo(pool))
	reactions := app.NewReactionToggler(stats, st.reactions)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	var background sync.WaitGroup
	if cfg.SnapshotSchedulerEnabled {
		scheduler := app.NewSnapshotScheduler(dashboard, snapshots, st.slotLocker, clock, statsMetrics)
		background.Add(1)
		go func() {
			defer background.Done()
			scheduler.Run(bgCtx)
		}()
	}

	srv := httpserver.NewServer(cfg, httpserver.Services{
		Stats:     stats,
		Dashboard: dashboard,
		Analyses:  analyses,
		Reactions: reactions,
	}, httpMetrics, metrics.Handler(reg), healthChecks(pool, rdb, categories))

	done := runGracefulShutdown(cfg, srv, stopBackground, &background)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}

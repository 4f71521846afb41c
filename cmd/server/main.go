package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/ecobalance/internal/advisory"
	"github.com/neexbeast/ecobalance/internal/api"
	"github.com/neexbeast/ecobalance/internal/booking"
	"github.com/neexbeast/ecobalance/internal/cache"
	"github.com/neexbeast/ecobalance/internal/config"
	"github.com/neexbeast/ecobalance/internal/destination"
	"github.com/neexbeast/ecobalance/internal/pricing"
	"github.com/neexbeast/ecobalance/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading config", "err", err)
		os.Exit(1)
	}
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "dir", cfg.MigrationsDir)

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Destinations and the live feed.
	var feed *destination.FeedClient
	if cfg.FeedURL != "" {
		feed = destination.NewFeedClient(cfg.FeedURL, cfg.FeedTimeout, log)
	} else {
		log.Warn("FEED_URL not set, live destination will serve seed values")
	}
	repo := newDestinationRepository(feed, storage.NewLiveSnapshotRepository(pool), log)
	if err := repo.Restore(ctx); err != nil {
		log.Warn("live snapshot not restored", "err", err)
	}

	// Pricing and bookings.
	engine := pricing.NewEngine(cfg.Pricing())
	bookings := booking.NewService(storage.NewBookingRepository(pool), repo, engine, cfg.Location(), log)

	// AI advisories.
	var gen advisory.Generator
	if cfg.GeminiAPIKey != "" {
		gc, err := advisory.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("creating gemini client: %w", err)
		}
		defer func() { _ = gc.Close() }()
		gen = gc
	} else {
		log.Warn("GEMINI_API_KEY not set, advisories will use the fallback text")
	}
	advisor := advisory.NewAdvisor(gen, cache.NewAdvisoryCache(redisClient), log)

	handlers := api.NewHandlers(repo, advisor, bookings, cache.NewPreferenceStore(redisClient), log)

	// Build router with pingers adapted for health check.
	dbPinger := &pgxPoolPinger{pool: pool}
	redisPinger := &redisPingerAdapter{client: redisClient}

	router := api.NewRouter(handlers, cfg.BearerToken, cfg.RateLimit, dbPinger, redisPinger, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	poller := destination.NewPoller(repo, cfg.PollInterval, log)
	if feed != nil {
		poller.Start(ctx)
		log.Info("live feed poller started", "interval", cfg.PollInterval)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				err = fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
		return nil
	})

	// Graceful shutdown on SIGINT / SIGTERM or when the server fails.
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		poller.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server shut down cleanly")
	return nil
}

// newDestinationRepository avoids handing the repository a typed-nil feed.
func newDestinationRepository(feed *destination.FeedClient, store destination.SnapshotStore, log *slog.Logger) *destination.Repository {
	if feed == nil {
		return destination.NewRepository(destination.Seed(), nil, store, log)
	}
	return destination.NewRepository(destination.Seed(), feed, store, log)
}

// pgxPoolPinger adapts pgxpool.Pool to the api.dbPinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

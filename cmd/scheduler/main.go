package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutricoach_backend/internal/config"
	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/internal/events"
	"nutricoach_backend/internal/lifecycle"
	"nutricoach_backend/internal/messaging"
	"nutricoach_backend/internal/scheduler"
	"nutricoach_backend/platform/db"
	"nutricoach_backend/platform/logger"
	"nutricoach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(opt)
	defer func() { _ = rdb.Close() }()

	lifecycleModule, err := lifecycle.NewModule(ctx, pool, rdb, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize lifecycle module", "error", err)
		panic("failed to initialize lifecycle module: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	lifecycleModule.SetContentQueue(client)

	dailyRunner := scheduler.NewDailyRunner(client, log, cfg.GetBatchInterval())
	go dailyRunner.Run(ctx)

	producer, err := contentgen.NewGenAIProducer(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize content producer", "error", err)
		panic("failed to initialize content producer: " + err.Error())
	}

	worker, err := scheduler.NewWorker(cfg, lifecycleModule.Evaluator(), producer, messaging.New(pool), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

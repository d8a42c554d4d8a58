package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/booking"
	"github.com/iliyamo/hotel-booking-engine/internal/config"
	"github.com/iliyamo/hotel-booking-engine/internal/database"
	"github.com/iliyamo/hotel-booking-engine/internal/handler"
	"github.com/iliyamo/hotel-booking-engine/internal/observability"
	"github.com/iliyamo/hotel-booking-engine/internal/payment"
	"github.com/iliyamo/hotel-booking-engine/internal/queue"
	"github.com/iliyamo/hotel-booking-engine/internal/repository"
	"github.com/iliyamo/hotel-booking-engine/internal/router"
	"github.com/iliyamo/hotel-booking-engine/internal/store/memory"
	"github.com/iliyamo/hotel-booking-engine/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	_, shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingOptions{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.Env != "prod",
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("flushing traces failed")
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	gateway := payment.NewLocalGateway(log)
	deps := booking.Deps{
		Store:    store,
		Payments: gateway,
		Policy:   policy.Booking(),
		Log:      log,
	}
	if cfg.RabbitMQURL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, booking events disabled")
		} else {
			defer pub.Close()
			deps.Notifier = pub
			go func() {
				if err := queue.StartNotificationConsumer(ctx, cfg.RabbitMQURL, log); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("notification consumer stopped")
				}
			}()
		}
	}
	engine := booking.New(deps)

	sweeper := worker.NewExpiryWorker(engine.Lifecycle, policy.Sweep.Interval, policy.Sweep.BatchSize, log)
	go sweeper.Start(ctx)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("Redis unavailable, rate limiting, caching and idempotency disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, handler.New(engine, gateway, cfg.WebhookSecret, log), router.Deps{
		JWTSecret:   cfg.JWTSecret,
		Redis:       rdb,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		Idempotency: config.LoadIdempotencyConfig(),
		Log:         log,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

// openStore returns the configured persistence backend and its cleanup.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (booking.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using the in-memory store, data is lost on restart")
		return memory.New(log), func() {}, nil
	}
	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Password:        cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		LockWaitTimeout: cfg.DBLockWaitTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { closeQuietly(db, log) }
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	return repository.NewStore(db), closeDB, nil
}

func closeQuietly(db *sql.DB, log logrus.FieldLogger) {
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("closing database failed")
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arpitshukla/eventmaster/config"
	"github.com/arpitshukla/eventmaster/internal/bootstrap"
	"github.com/arpitshukla/eventmaster/internal/cache"
	"github.com/arpitshukla/eventmaster/internal/kafka"
	"github.com/arpitshukla/eventmaster/internal/repository"
	"github.com/arpitshukla/eventmaster/internal/service/auth"
	"github.com/arpitshukla/eventmaster/internal/service/events"
	"github.com/arpitshukla/eventmaster/internal/service/ledger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Ledger.EventsCacheTTL())
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	eventRepo := repository.NewEventRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	authSvc := auth.NewAuthService(userRepo, logger, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	eventSvc := events.NewEventService(eventRepo, redisCache, logger)
	ledgerSvc := ledger.NewLedgerService(
		bookingRepo,
		eventRepo,
		redisCache,
		producer,
		logger,
		cfg.Kafka.BookingsTopic,
		cfg.Ledger.LockTTL(),
		cfg.Ledger.LockAttempts,
		cfg.Ledger.LockRetryInterval(),
		ledger.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, logger, authSvc, eventSvc, ledgerSvc); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

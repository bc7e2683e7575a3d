package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AsukuOnukaba/tingle-sub000/internal/config"
	"github.com/AsukuOnukaba/tingle-sub000/internal/db"
	"github.com/AsukuOnukaba/tingle-sub000/internal/email"
	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/paystack"
	"github.com/AsukuOnukaba/tingle-sub000/internal/realtime"
	"github.com/AsukuOnukaba/tingle-sub000/internal/server"
	"github.com/AsukuOnukaba/tingle-sub000/internal/subscription"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
	"github.com/AsukuOnukaba/tingle-sub000/internal/user"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
	"github.com/AsukuOnukaba/tingle-sub000/internal/withdrawal"
)

func main() {
	logger.Init()
	logger.Info("starting tingle")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatal("failed to run migrations", "error", err)
	}
	logger.Info("migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	publisher := realtime.NewPublisherWithClient(rdb)
	gateway := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey)

	walletRepo := wallet.NewRepository(database)
	userRepo := user.NewRepository(database)

	fees, err := transfer.NewFeeSchedule(cfg.TipFeeRate, cfg.SubscriptionFeeRate, cfg.PurchaseFeeRate)
	if err != nil {
		logger.Fatal("invalid fee schedule", "error", err)
	}
	transfers := transfer.NewService(walletRepo, fees, publisher, cfg.PlatformUserID)

	emailService := email.New(
		rdb,
		userRepo,
		cfg.EmailFrom,
		cfg.EmailFromName,
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUser,
		cfg.SMTPPass,
	)

	pendingAge, err := time.ParseDuration(cfg.SweepPendingAge)
	if err != nil {
		logger.Fatal("invalid sweep pending age", "value", cfg.SweepPendingAge, "error", err)
	}
	withdrawals := withdrawal.NewService(
		withdrawal.NewRepository(database),
		walletRepo,
		gateway,
		emailService,
		cfg.WithdrawalCommission,
		cfg.PlatformUserID,
		pendingAge,
	)

	sweeper := withdrawal.NewSweeper(withdrawals)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		logger.Fatal("invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
	}
	defer sweeper.Stop()

	subSweeper := subscription.NewSweeper(subscription.NewRepository(database))
	if err := subSweeper.Start(cfg.SweepSchedule); err != nil {
		logger.Fatal("invalid sweep schedule", "schedule", cfg.SweepSchedule, "error", err)
	}
	defer subSweeper.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailService.Start(ctx)

	srv := server.New(cfg, server.Deps{
		DB:          database,
		Gateway:     gateway,
		Publisher:   publisher,
		Email:       emailService,
		Wallets:     walletRepo,
		Transfers:   transfers,
		Withdrawals: withdrawals,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}

	logger.Info("server stopped")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/velocevoce/topup/internal/config"
	"github.com/velocevoce/topup/internal/dispatcher"
	"github.com/velocevoce/topup/internal/fulfiller"
	"github.com/velocevoce/topup/internal/notifier"
	"github.com/velocevoce/topup/internal/recharge"
	"github.com/velocevoce/topup/internal/reminder"
	"github.com/velocevoce/topup/internal/server"
	"github.com/velocevoce/topup/internal/storage"
)

func main() {
	os.Exit(start())
}

func start() int {
	logger, err := zap.NewProduction()
	if err != nil {
		return 1
	}

	zap.ReplaceGlobals(logger)

	defer zap.L().Sync()

	config, err := config.NewConfig()
	if err != nil {
		zap.L().Info("error create config", zap.Error(err))
		return 1
	}

	db, err := sqlx.Connect("postgres", config.DatabaseURI)
	if err != nil {
		zap.L().Info("error failed to connect to db: %w", zap.Error(err))
		return 1
	}

	defer db.Close()

	postgresStorage, err := storage.NewPostgresStorage(db)
	if err != nil {
		zap.L().Info("error failed to create postgres storage: %w", zap.Error(err))
		return 1
	}

	accounts, err := config.AccountPool()
	if err != nil {
		zap.L().Info("error parse fulfillment accounts", zap.Error(err))
		return 1
	}

	var (
		alerts = notifier.Multi{
			notifier.NewTelegram(config.TelegramBotToken, config.TelegramChatID),
			notifier.NewPushPlus(config.PushPlusToken),
		}
		sms = notifier.NewSMS(config.SMSSecretID, config.SMSSecretKey)

		orderDispatcher = dispatcher.NewDispatcher(
			postgresStorage,
			alerts,
			time.Duration(config.DispatchInterval)*time.Second,
			time.Duration(config.ProcessingTimeoutMinutes)*time.Minute,
			time.Duration(config.PayingTimeoutMinutes)*time.Minute,
		)

		orderFulfiller = fulfiller.NewFulfiller(
			postgresStorage,
			recharge.NewAgentClient(config.AgentAddress),
			alerts,
			accounts,
			config.ManualOperators,
			time.Duration(config.FulfillInterval)*time.Second,
		)

		paymentReminder = reminder.NewReminder(
			postgresStorage,
			alerts,
			sms,
			config.ReminderLadderHours,
			config.ReportHour,
			time.Duration(config.ReminderInterval)*time.Second,
		)
	)

	server := server.NewServer(config, postgresStorage, alerts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := server.Start(); err != nil {
			zap.L().Info("error starting server", zap.Error(err))
			return err
		}

		return nil
	})

	eg.Go(func() error {
		if err := orderDispatcher.Start(ctx); err != nil {
			zap.L().Info("error starting dispatcher", zap.Error(err))
			return err
		}

		return nil
	})

	eg.Go(func() error {
		if err := orderFulfiller.Start(ctx); err != nil {
			zap.L().Info("error starting fulfiller", zap.Error(err))
			return err
		}

		return nil
	})

	eg.Go(func() error {
		if err := paymentReminder.Start(ctx); err != nil {
			zap.L().Info("error starting reminder worker", zap.Error(err))
			return err
		}

		return nil
	})

	<-ctx.Done()

	eg.Go(func() error {
		if err := server.Stop(); err != nil {
			zap.L().Info("error stopping server", zap.Error(err))
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return 1
	}

	return 0
}

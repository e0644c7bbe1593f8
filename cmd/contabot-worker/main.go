package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"contabot/internal/amqp"
	"contabot/internal/config"
	"contabot/internal/gateway"
	applog "contabot/internal/log"
	"contabot/internal/outbox"
	"contabot/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting contabot-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	repo, err := outbox.NewRepository(cfg.OutboxDBPath)
	if err != nil {
		logger.Error("Failed to initialize outbox", applog.FieldError, err.Error(), "path", cfg.OutboxDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sender := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayToken)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewDeliveryWorker(repo, sender, logger, cfg.RetryBatch, cfg.MaxAttempts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Deliver anything left over from a previous run before consuming.
	if err := w.ProcessPendingDeliveries(ctx); err != nil {
		logger.Error("Startup delivery check failed", applog.FieldError, err.Error())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeReplies(ctx, func(msg *amqp.ReplyMessage) error {
			return w.HandleReplyMessage(ctx, msg)
		})
	})
	g.Go(func() error {
		return w.RunRetryLoop(ctx, cfg.RetryInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

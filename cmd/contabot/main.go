package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contabot/internal/amqp"
	"contabot/internal/atlas"
	"contabot/internal/bot"
	"contabot/internal/cache"
	"contabot/internal/config"
	apphttp "contabot/internal/http"
	applog "contabot/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}

	store := atlas.NewClient(cfg.AtlasBaseURL, cfg.AtlasAdminPhone, cfg.AtlasAdminPassword)
	users := cache.NewUserCache(cfg.UserCacheSize, cfg.UserCacheTTL)

	opts := []bot.Option{bot.WithUserCache(users)}

	// The reply queue is only needed for proactive messages. Without it the
	// webhook still works; reminders are disabled.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, bot.WithPublisher(amqpClient))
	} else {
		logger.Info("AMQP disabled, reminders unavailable")
	}

	b := bot.New(store, logger, opts...)

	var reminders apphttp.ReminderRunner
	if amqpClient != nil {
		reminders = b
	}
	srv := apphttp.NewServer(":"+cfg.Port, b, reminders, cfg.CronSecret, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Periodic cache janitor.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				if removed := users.CleanExpired(); removed > 0 {
					logger.Debug("Cache cleanup completed", "entries_removed", removed)
				}
			}
		}
	}()

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Starting contabot server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

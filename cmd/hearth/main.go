package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"hearth/internal/amqp"
	"hearth/internal/cache"
	"hearth/internal/cli"
	"hearth/internal/core"
	apphttp "hearth/internal/http"
	applog "hearth/internal/log"
	"hearth/internal/reports"
	"hearth/internal/tasks"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)
	defer store.Close()

	rates, err := cfg.Rates()
	if err != nil {
		logger.Error("Failed to load currency rates", "error", err)
		os.Exit(1)
	}
	converter := core.NewConverter(rates, logger.Logger)

	taskSvc := tasks.NewService(store.DB(), cfg.DBDriver)
	summaryCache := cache.NewLRU[reports.Summary](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	reportSvc := reports.NewService(store, taskSvc, converter, summaryCache, logger.Logger)

	// Event publishing is optional; without a broker records are still durable.
	var publisher apphttp.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Record events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("No AMQP URL configured, record events disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, store, reportSvc, taskSvc, converter, publisher)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting hearth server", "port", cfg.Port, "driver", cfg.DBDriver)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

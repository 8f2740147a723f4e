package main

import (
	"context"
	"os"
	"time"

	"hearth/internal/amqp"
	"hearth/internal/cli"
	"hearth/internal/export"
	gsheet "hearth/internal/export/google"
	"hearth/internal/export/memory"
	applog "hearth/internal/log"
	"hearth/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting hearth-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	store := cli.InitStore(logger, cfg)
	defer store.Close()

	// The spreadsheet exporter is optional; without it records land in the
	// in-process appender so consumed events are still acknowledged.
	var appender export.RecordAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = memory.New()
		logger.Info("Spreadsheet export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(store, appender)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
	})

	go func() {
		handler := func(msg amqp.RecordEventMessage) error {
			return exportWorker.HandleRecordEvent(ctx, msg)
		}
		if err := amqpClient.ConsumeRecordEvents(ctx, handler); err != nil && err != context.Canceled {
			logger.Error("Record event consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

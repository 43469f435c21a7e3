package main

import (
	"context"
	"errors"
	"os"
	"time"

	"hisaab/internal/amqp"
	"hisaab/internal/cli"
	"hisaab/internal/config"
	"hisaab/internal/log"
	gsheet "hisaab/internal/sheets/google"
	"hisaab/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.LoadWorker()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cli.LoadAndValidateConfig(logger, cfg)

	logger.Info("Starting hisaab-worker")

	sheetsClient, err := gsheet.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(sheetsClient)

	consumeDone := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		<-consumeDone
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close failed", log.FieldError, err)
		}
	})

	go func() {
		defer close(consumeDone)
		err := amqpClient.ConsumeExpenseEvents(ctx, syncWorker.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"consultcrm/internal/cli"
	applog "consultcrm/internal/log"
	"consultcrm/internal/services"
	gsheet "consultcrm/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting finance-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	store := cli.OpenStore(ctx, cfg, logger)
	defer store.Close()

	amqpClient := cli.ConnectAMQP(cfg, logger, true)
	defer amqpClient.Close()

	var exporter services.SnapshotExporter
	if cfg.SheetsEnabled() {
		sheets, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = sheets
	} else {
		logger.Info("Snapshot export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	monitor := services.NewHealthMonitor(services.NewFinanceService(store), amqpClient, exporter, cfg.ForecastHorizonDays)
	scheduler := services.NewHealthScheduler(monitor, cfg.HealthCheckSchedule)

	// Baseline check so a fresh deploy reports before the first tick.
	if _, err := monitor.Check(ctx); err != nil {
		logger.Error("Startup health check failed", applog.FieldError, err)
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start health scheduler", applog.FieldError, err)
		os.Exit(1)
	}

	err := amqpClient.ConsumeLedgerEvents(ctx, scheduler.HandleLedgerEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
	}

	shutdownCtx, cancel := cli.ShutdownContext(30 * time.Second)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Health scheduler did not stop cleanly", applog.FieldError, err)
	}
	logger.Info("Worker shutdown complete")
}

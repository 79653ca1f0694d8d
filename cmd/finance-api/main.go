package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"consultcrm/internal/cli"
	apphttp "consultcrm/internal/http"
	applog "consultcrm/internal/log"
	"consultcrm/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	store := cli.OpenStore(ctx, cfg, logger)

	var publisher services.EventPublisher
	if client := cli.ConnectAMQP(cfg, logger, false); client != nil {
		defer client.Close()
		publisher = client
	}
	ledgerSvc := services.NewLedgerService(store, publisher)
	defer ledgerSvc.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		ReadTimeout:     cfg.HTTPReadTimeout,
		WriteTimeout:    cfg.HTTPWriteTimeout,
		Reports:         services.NewFinanceService(store),
		Ledger:          ledgerSvc,
		Logger:          logger,
		HorizonDays:     cfg.ForecastHorizonDays,
		RateLimitPerMin: cfg.RateLimitPerMin,
		JWTSecret:       cfg.JWTSecret,
		CacheTTL:        cfg.ReportCacheTTL,
	})
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting finance API", "port", cfg.Port, "backend", cfg.DataBackend, "auth", cfg.JWTSecret != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := cli.ShutdownContext(30 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}

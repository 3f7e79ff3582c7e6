package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/app"
	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/config"
	"github.com/hackgods/clinic-appointment-triage/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "sweeper")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("sweeper starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Int("cutoff_hour", cfg.SweepCutoffHour),
		zap.String("clinic_timezone", cfg.ClinicTimezone),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a.Sweeper, cfg, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping sweeper")
			return
		case <-ticker.C:
			runOnce(rootCtx, a.Sweeper, cfg, log)
		}
	}
}

func runOnce(ctx context.Context, sw *appointment.Sweeper, cfg config.Config, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	res, err := sw.Run(runCtx, cfg.ClinicNow())
	switch {
	case errors.Is(err, appointment.ErrSweepInProgress):
		log.Info("another sweeper holds today's run, skipping")
	case err != nil:
		log.Error("sweep run failed", zap.Error(err))
	default:
		log.Debug("sweep run complete", zap.Int("cancelled", res.Cancelled), zap.Duration("took", time.Since(start)))
	}
}

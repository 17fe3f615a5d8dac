// Package main is the entry point for the futures rebalancer.
// By default it serves the HTTP API and runs the scheduled rebalance and daily report jobs.
// With -run it executes a single job and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/sentinel-futures/internal/config"
	"github.com/aristath/sentinel-futures/internal/di"
	journalhandlers "github.com/aristath/sentinel-futures/internal/modules/journal/handlers"
	rebalancinghandlers "github.com/aristath/sentinel-futures/internal/modules/rebalancing/handlers"
	reportinghandlers "github.com/aristath/sentinel-futures/internal/modules/reporting/handlers"
	scoringhandlers "github.com/aristath/sentinel-futures/internal/modules/scoring/handlers"
	"github.com/aristath/sentinel-futures/internal/server"
	"github.com/aristath/sentinel-futures/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	runOnce := flag.String("run", "", "run a single job and exit: rebalance, daily-report, close-all or backup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting sentinel-futures")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if err := container.Exchange.SyncTime(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to synchronize exchange clock, using local time")
	}

	if *runOnce != "" {
		if err := runJob(ctx, container, *runOnce, log); err != nil {
			log.Error().Err(err).Str("job", *runOnce).Msg("Job failed")
			container.Close()
			os.Exit(1)
		}
		return
	}

	systemHandlers := server.NewSystemHandlers(
		log,
		container.JournalDB,
		container.RebalancingService,
		container.Scheduler,
		jobs.Names(),
	)
	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Version: cfg.Version,
		System:  systemHandlers,
		Modules: []server.RouteRegistrar{
			rebalancinghandlers.NewHandler(container.RebalancingService, log),
			reportinghandlers.NewHandler(container.ReportingService, log),
			journalhandlers.NewHandler(container.JournalRepo, log),
			scoringhandlers.NewHandler(container.ModelScorer, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Scheduler first so no new run starts while the server drains
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// runJob executes one job outside the scheduler
func runJob(ctx context.Context, container *di.Container, name string, log zerolog.Logger) error {
	switch name {
	case "rebalance":
		report, err := container.RebalancingService.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().Str("run_id", report.ID).Int("failed", report.Failed()).Msg("Rebalance finished")
	case "daily-report":
		report, err := container.ReportingService.DailyReport(ctx, container.ReportingService.Today())
		if err != nil {
			return err
		}
		log.Info().Str("date", report.Date).Float64("pnl", report.TotalPnL).Msg("Daily report sent")
	case "close-all":
		report, err := container.RebalancingService.CloseAll(ctx)
		if err != nil {
			return err
		}
		log.Info().Str("run_id", report.ID).Int("failed", report.Failed()).Msg("Positions closed")
	case "backup":
		if container.BackupService == nil {
			return errors.New("backups are disabled, set BACKUP_BUCKET")
		}
		archive, err := container.BackupService.CreateAndUploadBackup(ctx)
		if err != nil {
			return err
		}
		log.Info().Str("archive", archive).Msg("Journal backup uploaded")
	default:
		return errors.New("unknown job " + name)
	}
	return nil
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/adapter/ratefeed"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/adapter/repository/postgres"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/platform/config"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/platform/logging"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/rates"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/status"
)

const defaultConfigPath = "configs/base.yaml"

func main() {
	configPath := os.Getenv("APP_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	db, err := postgres.NewDB(cfg.DB.ConnString(), cfg.Money.Tolerance())
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories.
	rateRepo := postgres.NewExchangeRateRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	stageRepo := postgres.NewStageRepository(db)

	// Services owned by this process: the daily rate fetch and the nightly
	// status sweep. The request-handling layer composes the rest.
	feed := ratefeed.New(&cfg.Feed, logger)
	rateService := rates.NewService(rateRepo, feed, logger)
	recompute := status.NewRecomputeService(taskRepo, stageRepo, logger)

	scheduler := cron.New()

	_, err = scheduler.AddFunc(cfg.Schedule.DailyRateFetch, func() {
		defer recoverJob(logger, "daily_rate_fetch")
		rateService.RunDaily(context.Background(), domain.CurrencyUSD)
	})
	if err != nil {
		logger.Error("failed to schedule daily rate fetch", slog.Any("error", err))
		os.Exit(1)
	}

	_, err = scheduler.AddFunc(cfg.Schedule.NightlyRecompute, func() {
		defer recoverJob(logger, "nightly_recompute")
		failures, err := recompute.RecomputeAll(context.Background())
		if err != nil {
			logger.Error("nightly recompute failed", slog.Any("error", err))
			return
		}
		logger.Info("nightly recompute finished", slog.Int("failed_items", len(failures)))
	})
	if err != nil {
		logger.Error("failed to schedule nightly recompute", slog.Any("error", err))
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("scheduler started",
		slog.String("daily_rate_fetch", cfg.Schedule.DailyRateFetch),
		slog.String("nightly_recompute", cfg.Schedule.NightlyRecompute),
	)

	waitForShutdown(scheduler, logger)
}

// recoverJob keeps a panicking job from crashing the process; the next
// scheduled run retries naturally
func recoverJob(logger *slog.Logger, job string) {
	if r := recover(); r != nil {
		logger.Error("scheduled job panicked",
			slog.String("job", job),
			slog.Any("panic", r),
		)
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and stops the scheduler,
// letting running jobs finish
func waitForShutdown(scheduler *cron.Cron, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down", slog.String("signal", sig.String()))

	<-scheduler.Stop().Done()
	logger.Info("scheduler stopped")
}

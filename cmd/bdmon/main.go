package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/t77yq/bdmon/internal/config"
	"github.com/t77yq/bdmon/internal/fetcher"
	"github.com/t77yq/bdmon/internal/harvest"
	"github.com/t77yq/bdmon/internal/monitor"
	"github.com/t77yq/bdmon/internal/scheduler"
	"github.com/t77yq/bdmon/internal/statusclient"
	"github.com/t77yq/bdmon/internal/storage"
)

const hostSampleInterval = 500 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.String("config", config.DefaultConfigPath, "Path to the configuration file")
	once := pflag.Bool("once", false, "Run a single harvest pass even when a schedule is configured")
	schedule := pflag.String("schedule", "", "Cron expression overriding the configured schedule")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if *schedule != "" {
		cfg.Schedule = *schedule
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DB, logger)
	if err != nil {
		logger.Error("Failed to connect to database after retries", zap.Error(err))
		return 1
	}
	defer store.Close()

	if cfg.DB.Bootstrap {
		if err := store.Bootstrap(ctx); err != nil {
			logger.Error("Failed to bootstrap schema", zap.Error(err))
			return 1
		}
	}
	if cfg.DB.SeedCatalog {
		if err := store.SeedCatalog(ctx); err != nil {
			logger.Error("Failed to seed catalog", zap.Error(err))
			return 1
		}
	}

	orch := harvest.New(cfg, harvest.Deps{
		Fetcher: fetcher.NewClient(fetcher.Options{
			Timeout:   fetcher.DefaultTimeout,
			TLSVerify: cfg.Security.TLSVerify,
		}, logger),
		Status:  statusclient.New(cfg.ZooKeeper.Timeout, logger),
		Store:   store,
		Sampler: monitor.NewHostSampler(hostSampleInterval, logger),
	}, logger)

	if *once || cfg.Schedule == "" {
		if _, err := orch.Run(ctx); err != nil {
			logger.Error("Harvest pass failed", zap.Error(err))
			return 1
		}
		return 0
	}

	return runScheduled(ctx, cfg, orch, logger)
}

func runScheduled(ctx context.Context, cfg *config.Config, orch *harvest.Orchestrator, logger *zap.Logger) int {
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsHandler(orch.Metrics()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Serving metrics", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to stop metrics server", zap.Error(err))
			}
		}()
	}

	sched := scheduler.NewCronScheduler(logger)
	err := sched.Schedule(cfg.Schedule, func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	})
	if err != nil {
		logger.Error("Failed to schedule harvest", zap.Error(err))
		return 1
	}
	sched.Start(ctx)

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Received shutdown signal, waiting for the running pass")
	sched.Stop()

	logger.Info("Harvester shutting down gracefully")
	return 0
}

func metricsHandler(m *monitor.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// newLogger builds the zap logger described by the log settings
func newLogger(cfg config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	if len(cfg.Outputs) > 0 {
		zapCfg.OutputPaths = cfg.Outputs
	}
	return zapCfg.Build()
}

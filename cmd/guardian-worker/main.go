// Package main is the entrypoint for the trip guardian worker.
//
// The worker is a long-running daemon. It wakes on a fixed interval, selects
// trips due for re-validation, and runs each through the monitoring pipeline
// (weather and civil-alert checks, delta-plan generation, notification
// dispatch). Alongside the loop it serves a small health surface for the
// container orchestrator.
//
// This file handles dependency wiring only; all business logic lives in the
// internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"tripguardian/internal/config"
	"tripguardian/internal/db"
	"tripguardian/internal/engine"
	"tripguardian/internal/monitor"
	"tripguardian/internal/notify"
	"tripguardian/internal/ops"
	"tripguardian/internal/scheduler"
	"tripguardian/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("guardian worker initializing",
		"environment", cfg.Environment,
		"wake_interval", cfg.Guardian.WakeInterval,
		"batch_size", cfg.Guardian.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database pool.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		logger.Error("invalid database URL", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// AWS SDK configuration. The endpoint override supports LocalStack.
	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.EndpointURL != "" {
		awsOpts = append(awsOpts, awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	// Reasoning Engine client.
	httpClient := &http.Client{Timeout: cfg.Engine.Timeout + 5*time.Second}
	reasoning := engine.NewReasoningClient(httpClient, engine.Config{
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
		Timeout: cfg.Engine.Timeout,
		Logger:  logger,
	})

	// Notification dispatcher: SQS fan-out when a queue is configured,
	// log-only otherwise.
	var dispatcher monitor.Dispatcher
	if cfg.AWS.NotificationQueue != "" {
		dispatcher = notify.NewSQSDispatcher(sqs.NewFromConfig(awsCfg), cfg.AWS.NotificationQueue, logger)
	} else {
		logger.Warn("no notification queue configured, using log dispatcher")
		dispatcher = notify.NewLogDispatcher(logger)
	}

	// Repositories and the monitoring core.
	tripRepo := db.NewTripMonitorRepository(pool)
	archiveRepo := db.NewHistoryArchiveRepository(pool)

	service := monitor.NewService(monitor.ServiceConfig{
		Repo:                 tripRepo,
		Engine:               reasoning,
		Dispatcher:           dispatcher,
		Logger:               logger,
		WeatherCheckEnabled:  cfg.Guardian.WeatherCheckEnabled,
		AlertCheckEnabled:    cfg.Guardian.AlertCheckEnabled,
		DeltaPlansEnabled:    cfg.Guardian.DeltaPlansEnabled,
		NotificationsEnabled: cfg.Guardian.NotificationsEnabled,
		AlertLookbackDays:    cfg.Guardian.AlertLookbackDays,
	})

	var metrics scheduler.Metrics
	if cfg.AWS.MetricsNamespace != "" {
		metrics = telemetry.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.AWS.MetricsNamespace, logger)
	}

	worker := scheduler.NewWorker(scheduler.WorkerConfig{
		Source:       tripRepo,
		Monitor:      service,
		Retention:    scheduler.NewRetentionService(archiveRepo, cfg.Guardian.HistoryMaxChecks, logger),
		Metrics:      metrics,
		Logger:       logger,
		WakeInterval: cfg.Guardian.WakeInterval,
		BatchSize:    cfg.Guardian.BatchSize,
	})

	// Health surface.
	health := ops.NewHandler([]ops.HealthProbe{
		ops.DatabaseProbe{Pinger: pool},
	}, logger)
	healthServer := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.Ops.HealthPort, ":"),
		Handler:           health.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("health server listening", "addr", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if cfg.Guardian.WorkerEnabled {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.Warn("scheduled worker disabled by configuration")
	}

	if err := g.Wait(); err != nil {
		logger.Error("guardian worker exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("guardian worker stopped")
}

// parseLogLevel maps the configured level string onto slog levels,
// defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

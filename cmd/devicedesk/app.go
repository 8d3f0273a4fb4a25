package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/devicedesk/internal/activity"
	"github.com/HerbHall/devicedesk/internal/config"
	"github.com/HerbHall/devicedesk/internal/metrics"
	"github.com/HerbHall/devicedesk/internal/services"
	"github.com/HerbHall/devicedesk/internal/store"
	"github.com/HerbHall/devicedesk/internal/tools"
)

// app holds the components shared by the serving subcommands.
type app struct {
	settings *config.Settings
	logger   *zap.Logger
	store    *store.SQLiteStore
	repos    *services.Repositories
	metrics  *metrics.Metrics
	recorder *activity.Recorder
	engine   *tools.Engine
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("logger: " + err.Error())
	}
	return logger
}

// bootstrap opens the database, applies the schema and wires the engine.
func bootstrap(ctx context.Context, configPath string, logger *zap.Logger) (*app, error) {
	cfg, settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Info("configuration loaded",
		zap.String("file", cfg.ConfigFile()),
		zap.String("database", settings.Database.Path),
	)

	db, err := store.New(settings.Database.Path, settings.Database.BusyTimeoutMS)
	if err != nil {
		return nil, err
	}
	if err := services.Migrate(ctx, db, settings.Database.Tables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{
		settings: settings,
		logger:   logger,
		store:    db,
		repos:    services.NewSQLiteRepositories(db.DB(), settings.Database.Tables),
		metrics:  metrics.New(),
	}

	recOpts := activity.Options{
		QueueSize:    settings.Activity.QueueSize,
		WriteTimeout: settings.Activity.WriteTimeout,
		Logger:       logger.Named("activity"),
		Metrics:      a.metrics,
	}
	if settings.Activity.MQTT.BrokerURL != "" {
		mirror, err := activity.DialMQTT(settings.Activity.MQTT, logger.Named("mqtt"))
		if err != nil {
			// The mirror is optional; activity is still stored locally.
			logger.Warn("mqtt activity mirror disabled", zap.Error(err))
		} else {
			recOpts.Mirror = mirror
		}
	}
	a.recorder = activity.NewRecorder(a.repos.Activities, recOpts)

	a.engine, err = tools.New(a.repos,
		tools.WithLogger(logger.Named("tools")),
		tools.WithMetrics(a.metrics),
		tools.WithRecorder(a.recorder),
		tools.WithRetry(tools.RetryPolicy{
			Attempts: settings.Engine.RetryAttempts,
			Backoff:  settings.Engine.RetryBackoff,
		}),
		tools.WithDefaultActor(settings.Engine.DefaultActor),
	)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Close drains the activity queue and closes the database.
func (a *app) Close(ctx context.Context) {
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			a.logger.Warn("activity queue not drained", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
}

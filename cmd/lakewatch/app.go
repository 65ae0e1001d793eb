package main

import (
	"fmt"

	"github.com/lakewatch/lakewatch/pkg/chargeback"
	"github.com/lakewatch/lakewatch/pkg/config"
	"github.com/lakewatch/lakewatch/pkg/observe"
	"github.com/lakewatch/lakewatch/pkg/platform"
	"github.com/lakewatch/lakewatch/pkg/statement"
	"github.com/lakewatch/lakewatch/pkg/telemetry/logging"
	"github.com/lakewatch/lakewatch/pkg/telemetry/metrics"
)

// app bundles the wired services every command runs against.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Collector

	jobs      *observe.Jobs
	clusters  *observe.Clusters
	queries   *observe.Queries
	pipelines *observe.Pipelines
	security  *observe.Security
	audit     *observe.Audit

	chargeback *chargeback.Service
	store      *chargeback.Store
}

// buildApp loads the configuration and wires every service. Close
// releases the local store.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(metrics.Config{
			Namespace: cfg.Telemetry.Metrics.Namespace,
			Subsystem: cfg.Telemetry.Metrics.Subsystem,
		})
	}

	client, err := platform.NewHTTPClient(platform.HTTPClientConfig{
		Host:     cfg.Platform.Host,
		Token:    cfg.Platform.Token,
		Timeout:  cfg.Platform.Timeout,
		PageSize: cfg.Platform.PageSize,
		Logger:   logger.Slog(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build platform client: %w", err)
	}

	var executor statement.Executor
	if cfg.Warehouse.ID != "" {
		httpExecutor, err := statement.NewHTTPExecutor(statement.HTTPExecutorConfig{
			Host:        cfg.Platform.Host,
			Token:       cfg.Platform.Token,
			WarehouseID: cfg.Warehouse.ID,
			WaitTimeout: cfg.Warehouse.WaitTimeout,
			Logger:      logger.Slog(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build statement executor: %w", err)
		}
		executor = httpExecutor
	}

	deps := observe.Deps{
		Platform:    client,
		Executor:    executor,
		WarehouseID: cfg.Warehouse.ID,
		Tables: observe.TableNames{
			JobRuns:      cfg.Tables.JobRuns,
			QueryHistory: cfg.Tables.QueryHistory,
			Audit:        cfg.Tables.Audit,
		},
		Logger:               logger,
		Metrics:              collector,
		MaxConcurrentFetches: cfg.Limits.MaxConcurrentFetches,
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   collector,
		jobs:      observe.NewJobs(deps),
		clusters:  observe.NewClusters(deps),
		queries:   observe.NewQueries(deps),
		pipelines: observe.NewPipelines(deps),
		security:  observe.NewSecurity(deps),
		audit:     observe.NewAudit(deps),
	}

	if cfg.Store.Path != "" {
		store, err := chargeback.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open budget store: %w", err)
		}
		a.store = store
	}

	a.chargeback = chargeback.NewService(chargeback.ServiceConfig{
		Platform:             client,
		Executor:             executor,
		WarehouseID:          cfg.Warehouse.ID,
		UsageTable:           cfg.Tables.Usage,
		BudgetTable:          cfg.Tables.Budgets,
		Store:                a.store,
		Logger:               logger,
		Metrics:              collector,
		MaxConcurrentFetches: cfg.Limits.MaxConcurrentFetches,
	})

	return a, nil
}

// Close releases resources held by the app.
func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

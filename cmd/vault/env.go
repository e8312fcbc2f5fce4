package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shareVault/internal/config"
	"shareVault/internal/journal"
	"shareVault/internal/model"
	"shareVault/internal/service"
	"shareVault/internal/storage"
	"shareVault/internal/storage/file"
	"shareVault/internal/storage/postgres"
	"shareVault/internal/vault"
)

// env is the set of components one command invocation works with.
type env struct {
	cfg      config.Config
	logger   *zap.Logger
	store    storage.Store
	vault    *vault.Vault
	service  *service.Service
	registry *prometheus.Registry
	closers  []func()
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func openEnv(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	e.closers = append(e.closers, func() { _ = logger.Sync() })

	store, err := e.openStore(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.store = store

	v, err := vault.New(store, vault.Options{
		FeeRate:          cfg.FeeRate,
		RejectZeroShares: cfg.RejectZeroShares,
	}, logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.vault = v

	e.service = service.NewService(
		cfg.VaultID,
		v,
		journal.NewTransferLog(cfg.Transfers),
		journal.NewWriter[model.Event](cfg.Journal),
		service.NewMetrics(e.registry),
		logger,
	)

	logger.Debug("vault opened",
		zap.String("vault_id", cfg.VaultID),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint32("fee_rate", cfg.FeeRate),
	)
	return e, nil
}

func (e *env) openStore(ctx context.Context) (storage.Store, error) {
	switch e.cfg.Store {
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	case config.StoreFile:
		return file.NewStore(e.cfg.StateDir, e.cfg.VaultID)
	case config.StorePostgres:
		if e.cfg.PGDSN == "" {
			return nil, fmt.Errorf("pg-dsn is required for the postgres store")
		}
		pg, err := postgres.NewStore(ctx, e.cfg.PGDSN, e.cfg.VaultID)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.closers = append(e.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store %q", e.cfg.Store)
	}
}

// Close writes the metrics textfile, if configured, and releases resources.
func (e *env) Close() {
	if e.cfg.MetricsFile != "" && e.registry != nil {
		if err := prometheus.WriteToTextfile(e.cfg.MetricsFile, e.registry); err != nil {
			e.logger.Warn("write metrics file failed", zap.String("path", e.cfg.MetricsFile), zap.Error(err))
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

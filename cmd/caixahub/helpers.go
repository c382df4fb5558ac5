package main

import (
	"context"
	"fmt"

	"github.com/caixahub/caixahub/internal/config"
	"github.com/caixahub/caixahub/internal/pluggy"
	"github.com/caixahub/caixahub/internal/service"
	"github.com/caixahub/caixahub/internal/storage"
	syncsvc "github.com/caixahub/caixahub/internal/sync"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/caixahub/caixahub.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initSyncService wires storage and the aggregator client into a sync service.
func initSyncService(ctx context.Context) (*syncsvc.Service, service.Storage, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	pluggyCfg, err := config.LoadPluggyConfig()
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to load aggregator config: %w", err)
	}

	bank, err := pluggy.NewClient(*pluggyCfg)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to create aggregator client: %w", err)
	}

	var opts []syncsvc.Option
	if days := viper.GetInt("sync.backfill_days"); days > 0 {
		opts = append(opts, syncsvc.WithBackfillDays(days))
	}

	return syncsvc.NewService(store, bank, opts...), store, nil
}

package main

import (
	"fmt"

	"github.com/photokey/floorplan/internal/config"
	"github.com/photokey/floorplan/internal/database"
	"github.com/photokey/floorplan/internal/storage"
	gormstorage "github.com/photokey/floorplan/internal/storage/gorm"
	"github.com/photokey/floorplan/internal/storage/memory"
)

// openStore creates and initializes the configured frame store. The manager
// is nil for the memory store.
func openStore(storageCfg config.StorageConfig) (storage.FrameStore, *database.Manager, error) {
	store, mgr, err := createStore(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, nil, err
	}
	if err := store.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		closeStore(store, mgr)
		return nil, nil, err
	}
	return store, mgr, nil
}

func createStore(storageCfg config.StorageConfig) (storage.FrameStore, *database.Manager, error) {
	switch storageCfg.Type {
	case "memory":
		Logger.Info("Memory storage backend initialized")
		return memory.New(), nil, nil

	case "sqlite", "postgres":
		mgr := database.NewManager(storageCfg, DBLogger)
		if err := mgr.Connect(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect frame store: %w", err)
		}
		dialect := "sqlite"
		if !mgr.UseSQLite {
			dialect = "postgres"
		}
		Logger.Info("Database storage backend initialized", "dialect", dialect)
		return gormstorage.New(mgr.DB, DBLogger), mgr, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

func closeStore(store storage.FrameStore, mgr *database.Manager) {
	if err := store.Close(); err != nil {
		Logger.Warn("Failed to close frame store", "error", err)
	}
	if mgr == nil {
		return
	}
	if err := mgr.Close(); err != nil {
		Logger.Warn("Failed to close database", "error", err)
	}
}

package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"clearance-server-go/config"
	"clearance-server-go/db"
	"clearance-server-go/logger"
)

// bootstrap loads config, builds the logger and opens the configured store.
// The returned cleanup closes the backend and flushes the logger.
func bootstrap() (*config.Config, *zap.Logger, db.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage, data is lost on exit")
		return cfg, log, db.NewMemoryStore(cfg.Storage.Keys(), log), func() { _ = log.Sync() }, nil
	default:
		client, err := db.InitializeRedisClient(cfg.Redis.Options(), log)
		if err != nil {
			_ = log.Sync()
			return nil, nil, nil, nil, fmt.Errorf("failed to open storage: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Warn("error closing Redis client", zap.Error(err))
			}
			_ = log.Sync()
		}
		return cfg, log, db.NewRedisService(client, cfg.Storage.Keys(), log), cleanup, nil
	}
}

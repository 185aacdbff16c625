package storage

import (
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/defectset/internal/config"
	"github.com/rohankatakam/defectset/internal/errors"
)

// Open returns the store selected by cfg.Type. A "none" store is nil.
func Open(cfg config.StorageConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.LocalPath, logger)
		if err != nil {
			return nil, errors.StorageError(err, "open sqlite store")
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStore(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, errors.StorageError(err, "open postgres store")
		}
		return store, nil
	default:
		return nil, errors.ConfigErrorf("unknown storage type %q", cfg.Type)
	}
}

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kie/assets/internal/config"
	"github.com/kie/assets/internal/db"
	"github.com/kie/assets/internal/journal"
	"github.com/kie/assets/internal/storage"
)

// OpenStore builds the storage backend selected by cfg.StorageDriver.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMinio:
		return storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
		}, log)
	case config.StorageDriverFilesystem:
		return storage.NewFilesystemStorage(cfg.StorageDir, cfg.StoragePublicBase)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// OpenJournal migrates and connects the upload journal. It returns a nil
// journal and a no-op close when DATABASE_URL is unset.
func OpenJournal(ctx context.Context, cfg *config.Config) (Journal, func(), error) {
	if !cfg.JournalEnabled() {
		return nil, func() {}, nil
	}
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("migrate journal: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect journal: %w", err)
	}
	return journal.NewRepository(pool), pool.Close, nil
}

package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/whatodo/internal/config"
	"github.com/benvon/whatodo/internal/storage"
)

// Opener connects to the persisted state the commands operate on
type Opener func(ctx context.Context) (*storage.Repository, func(), error)

// OpenConfigured opens the backend selected by the environment
func OpenConfigured(ctx context.Context) (*storage.Repository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StorageBackend == storage.BackendMemory {
		fmt.Fprintln(os.Stderr, "Warning: STORAGE_BACKEND=memory, nothing is shared with a running server")
	}
	kv, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.StorageBackend,
		RedisURL:    cfg.RedisURL,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
		}
	}
	return storage.NewRepository(kv, nil), closeFn, nil
}

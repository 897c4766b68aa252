package storage

import (
	"context"
	"fmt"
)

// Backends accepted by Open
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend
type Options struct {
	Backend     string
	RedisURL    string
	RedisPrefix string
	DatabaseURL string
	Table       string
}

// Open connects the configured backend
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryKV(), nil
	case BackendRedis:
		return NewRedisKV(ctx, opts.RedisURL, opts.RedisPrefix)
	case BackendPostgres:
		return NewPostgresKV(ctx, opts.DatabaseURL, opts.Table)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

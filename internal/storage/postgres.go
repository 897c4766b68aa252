package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DefaultTable is the table PostgresKV creates when no name is given
const DefaultTable = "whatodo_kv"

// PostgresKV stores documents as JSONB rows in a single key/value table
type PostgresKV struct {
	db    *sql.DB
	table string
}

// NewPostgresKV opens databaseURL, verifies the connection and ensures the table exists
func NewPostgresKV(ctx context.Context, databaseURL, table string) (*PostgresKV, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	kv := NewPostgresKVFromDB(db, table)
	if err := kv.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return kv, nil
}

// NewPostgresKVFromDB wraps an open handle without touching the schema
func NewPostgresKVFromDB(db *sql.DB, table string) *PostgresKV {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresKV{db: db, table: pq.QuoteIdentifier(table)}
}

// Migrate creates the key/value table if needed
func (p *PostgresKV) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + p.table + ` (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate %s: %w", p.table, err)
	}
	return nil
}

// Get reads a document
func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM ` + p.table + ` WHERE key = $1`

	var value []byte
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Put upserts a document
func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO ` + p.table + ` (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes a document
func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM ` + p.table + ` WHERE key = $1`
	if _, err := p.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection
func (p *PostgresKV) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database handle
func (p *PostgresKV) Close() error {
	return p.db.Close()
}

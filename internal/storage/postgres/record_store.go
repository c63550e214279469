// Package postgres provides the Postgres-backed download record store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

// DefaultTable is the records table used when none is configured.
const DefaultTable = "cf1400_files"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecordStoreConfig controls the Postgres connection pool used for records.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// RecordStore reads and appends download records in Postgres.
type RecordStore struct {
	pool  pool
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: p, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool, table string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks the database is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the records table when it does not exist yet.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	year INTEGER NOT NULL,
	month INTEGER NOT NULL,
	quarter INTEGER NOT NULL,
	pdf_filename TEXT NOT NULL,
	file_url TEXT NOT NULL,
	downloaded_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Insert appends a download record.
func (s *RecordStore) Insert(ctx context.Context, record downloader.DownloadRecord) error {
	query := fmt.Sprintf(`
INSERT INTO %s (year, month, quarter, pdf_filename, file_url, downloaded_at)
VALUES ($1, $2, $3, $4, $5, $6)`, s.table)

	if _, err := s.pool.Exec(ctx, query,
		record.Year,
		record.Month,
		record.Quarter,
		record.Filename,
		record.URL,
		record.DownloadedAt,
	); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Latest returns the most recent record by (year, month, quarter).
func (s *RecordStore) Latest(ctx context.Context) (downloader.DownloadRecord, bool, error) {
	query := fmt.Sprintf(`
SELECT year, month, quarter, pdf_filename, file_url, downloaded_at
FROM %s
ORDER BY year DESC, month DESC, quarter DESC
LIMIT 1`, s.table)

	var rec downloader.DownloadRecord
	err := s.pool.QueryRow(ctx, query).Scan(
		&rec.Year,
		&rec.Month,
		&rec.Quarter,
		&rec.Filename,
		&rec.URL,
		&rec.DownloadedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return downloader.DownloadRecord{}, false, nil
	}
	if err != nil {
		return downloader.DownloadRecord{}, false, fmt.Errorf("query latest record: %w", err)
	}
	return rec, true, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/coerce"
)

// copier is the part of *pgxpool.Pool the sink uses.
type copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
}

// PostgresSink bulk-loads records with COPY.
type PostgresSink struct {
	db    copier
	pool  *pgxpool.Pool
	table string

	// mu guards the prepared state; runs share one sink.
	mu      sync.RWMutex
	cat     *catalog.Catalog
	columns []string
}

// OpenPostgres connects a pgx pool sized from cfg.
func OpenPostgres(ctx context.Context, cfg Config) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	return &PostgresSink{db: pool, pool: pool, table: table}, nil
}

// NewPostgresSink wraps an existing pool.
func NewPostgresSink(pool *pgxpool.Pool, table string) *PostgresSink {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresSink{db: pool, pool: pool, table: table}
}

// Prepare creates the target table if needed. Preparing again with the same
// catalog is a no-op.
func (s *PostgresSink) Prepare(ctx context.Context, cat *catalog.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cat == cat {
		return nil
	}

	cols, err := recordColumns(cat)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, dialects[DriverPostgres].createTable(s.table, cat)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	s.cat = cat
	s.columns = cols
	return nil
}

// Write copies one batch into the table.
func (s *PostgresSink) Write(ctx context.Context, runID string, records []coerce.Record) error {
	s.mu.RLock()
	cat, columns := s.cat, s.columns
	s.mu.RUnlock()

	if cat == nil {
		return errNotPrepared
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = recordArgs(cat, runID, rec)
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{s.table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy %d records: %w", len(records), err)
	}
	if n != int64(len(records)) {
		return fmt.Errorf("copied %d of %d records", n, len(records))
	}
	return nil
}

// Ping checks the connection.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresSink) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var errNotPrepared = errors.New("sink not prepared")

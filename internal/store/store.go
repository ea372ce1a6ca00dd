// Package store persists canonical sales records.
//
// Every sink writes to one table (default "sales_cleaned") holding the run
// id, the source row index and one column per catalog field, in catalog
// order. The table is created on Prepare when missing.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/coerce"
)

// DefaultTable is the target table when none is configured.
const DefaultTable = "sales_cleaned"

// Driver names a storage backend.
type Driver string

const (
	DriverPostgres  Driver = "postgres"
	DriverSQLServer Driver = "sqlserver"
	DriverSQLite    Driver = "sqlite"
	DriverNone      Driver = "none"
)

// ParseDriver validates a driver name. "postgresql", "mssql" and "sqlite3"
// are accepted as aliases.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	case "sqlserver", "mssql":
		return DriverSQLServer, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "none", "":
		return DriverNone, nil
	}
	return "", fmt.Errorf("unknown database driver %q (want postgres, sqlserver, sqlite or none)", s)
}

// Sink receives batches of canonical records.
type Sink interface {
	Prepare(ctx context.Context, cat *catalog.Catalog) error
	Write(ctx context.Context, runID string, records []coerce.Record) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and tunes a sink.
type Config struct {
	Driver          Driver
	URL             string
	Table           string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects the configured sink. The caller closes it.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !validIdentifier(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	switch cfg.Driver {
	case DriverPostgres:
		s, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLServer, DriverSQLite:
		s, err := OpenSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverNone, "":
		return &NoneSink{}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}

// recordColumns lists the target columns: run_id, row_index, then the
// catalog fields.
func recordColumns(cat *catalog.Catalog) ([]string, error) {
	cols := append([]string{"run_id", "row_index"}, cat.Names()...)
	for _, c := range cols {
		if !validIdentifier(c) {
			return nil, fmt.Errorf("field %q is not a valid column name", c)
		}
	}
	return cols, nil
}

// recordArgs flattens one record in recordColumns order.
func recordArgs(cat *catalog.Catalog, runID string, rec coerce.Record) []any {
	args := make([]any, 0, cat.Len()+2)
	args = append(args, runID, rec.Row)
	for _, f := range cat.Fields() {
		v, ok := rec.Values[f.Name]
		if !ok {
			v = f.Fallback()
		}
		args = append(args, v.Any())
	}
	return args
}

// NoneSink persists nothing and counts what it was given. It is safe for
// concurrent runs.
type NoneSink struct {
	records atomic.Int64
}

// Records returns how many records have been written.
func (s *NoneSink) Records() int { return int(s.records.Load()) }

func (s *NoneSink) Prepare(ctx context.Context, cat *catalog.Catalog) error { return nil }

func (s *NoneSink) Write(ctx context.Context, runID string, records []coerce.Record) error {
	s.records.Add(int64(len(records)))
	return nil
}

func (s *NoneSink) Ping(ctx context.Context) error { return nil }

func (s *NoneSink) Close() error { return nil }

package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/coerce"
	"github.com/adelakul/retail-pulse/internal/logging"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

// ContextCheckInterval is how many rows are coerced between cancellation
// checks.
var ContextCheckInterval = 100

// RunTimeout is the default bound on one ingest started through Ingest.
var RunTimeout = 10 * time.Minute

// DefaultBatchSize is the number of records handed to the sink per Write.
const DefaultBatchSize = 500

// MaxRunHistory is how many run summaries the service remembers.
const MaxRunHistory = 100

// Options configure a Service. The zero value aborts on unresolved required
// fields, writes in batches of DefaultBatchSize and writes no failed-rows
// file.
type Options struct {
	Policy        Policy
	BatchSize     int
	DateLayouts   []string
	LowConfidence float64
	MinScore      float64
	// FailedRowsDir receives "<name> - failed.csv" files. Empty disables them.
	FailedRowsDir string
	Read          ReadOptions
	// MaxConcurrent and MaxWait size the ingest limiter.
	MaxConcurrent int
	MaxWait       time.Duration
	// Timeout bounds one Ingest. Zero selects RunTimeout.
	Timeout       time.Duration
	Now           func() time.Time
}

// Service runs tables through resolution, coercion and the sink.
type Service struct {
	cat     *catalog.Catalog
	sink    Sink
	opts    Options
	limiter *IngestLimiter

	mu      sync.RWMutex
	runs    map[string]*RunSummary
	runList []string
}

// NewService creates a Service. A nil sink makes every run a dry run.
func NewService(cat *catalog.Catalog, sink Sink, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = PolicyAbort
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.LowConfidence <= 0 {
		opts.LowConfidence = resolve.DefaultLowConfidence
	}
	if opts.Timeout <= 0 {
		opts.Timeout = RunTimeout
	}

	return &Service{
		cat:     cat,
		sink:    sink,
		opts:    opts,
		limiter: NewIngestLimiter(opts.MaxConcurrent, opts.MaxWait),
		runs:    make(map[string]*RunSummary),
	}
}

// Catalog returns the catalog the service resolves against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.cat
}

// Limiter returns the limiter guarding Ingest.
func (s *Service) Limiter() *IngestLimiter {
	return s.limiter
}

// Resolve maps a header to catalog fields, applying overrides first.
func (s *Service) Resolve(columns []string, overrides map[string]string) (*resolve.Mapping, error) {
	return resolve.ResolveWithOptions(columns, s.cat, resolve.Options{
		Overrides: overrides,
		MinScore:  s.opts.MinScore,
	})
}

// Review lists low-confidence or missing assignments of a mapping.
func (s *Service) Review(m *resolve.Mapping) []string {
	return m.Review(s.opts.LowConfidence)
}

// RunFile reads a CSV file and runs it.
func (s *Service) RunFile(ctx context.Context, path string, overrides map[string]string) (*RunSummary, error) {
	t, err := ReadTableFile(path, s.opts.Read)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, t, overrides)
}

// Ingest reads CSV from r and runs it under the ingest limiter.
//
// Returns ErrTooManyIngests if no slot frees up within the limiter's wait
// time.
func (s *Service) Ingest(ctx context.Context, r io.Reader, name string, overrides map[string]string) (*RunSummary, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	t, err := ReadTable(r, name, s.opts.Read)
	if err != nil {
		return nil, err
	}
	return s.Run(runCtx, t, overrides)
}

// Run resolves the table header, coerces every row and writes accepted
// records to the sink in batches.
//
// Row errors never fail the run; they are reported in the summary. The
// returned error is non-nil when the run aborted on unresolved required
// fields, an override was invalid, the sink failed or ctx was cancelled.
// The summary is returned in every case.
func (s *Service) Run(ctx context.Context, t *Table, overrides map[string]string) (*RunSummary, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := logging.ForRun(ctx, runID, t.Name)

	summary := &RunSummary{
		RunID:              runID,
		File:               t.Name,
		Policy:             s.opts.Policy,
		UnresolvedRequired: []string{},
		Rejections:         []RowIssue{},
	}
	defer func() {
		summary.Duration = time.Since(start)
		s.remember(summary)
	}()

	fail := func(err error) (*RunSummary, error) {
		summary.Error = err.Error()
		summary.Rejected = len(summary.Rejections)
		logger.Error("run failed", "error", err, "accepted", summary.Accepted, "written", summary.Written)
		return summary, err
	}

	mapping, err := s.Resolve(t.Columns, overrides)
	if err != nil {
		summary.Aborted = true
		return fail(err)
	}
	summary.Mapping = mapping
	summary.UnresolvedRequired = mapping.UnresolvedRequired
	summary.Review = s.Review(mapping)

	for _, a := range mapping.Assignments {
		logger.Debug("field resolved",
			"field", a.Field,
			"column", a.Column,
			"tier", a.Tier,
			"score", a.Score,
		)
	}

	if len(mapping.UnresolvedRequired) > 0 {
		logger.Warn("required fields unresolved",
			"fields", mapping.UnresolvedRequired,
			"policy", s.opts.Policy,
		)
		if s.opts.Policy == PolicyAbort {
			summary.Aborted = true
			return fail(&UnresolvedRequiredError{Fields: mapping.UnresolvedRequired})
		}
	}

	if s.sink != nil {
		if err := s.sink.Prepare(ctx, s.cat); err != nil {
			return fail(fmt.Errorf("prepare sink: %w", err))
		}
	}

	v := coerce.New(s.cat, mapping, coerce.Options{
		DateLayouts: s.opts.DateLayouts,
		Now:         s.opts.Now,
	})

	batch := make([]coerce.Record, 0, s.opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.sink != nil {
			if err := s.sink.Write(ctx, runID, batch); err != nil {
				return fmt.Errorf("write batch: %w", err)
			}
			summary.Written += len(batch)
		}
		batch = make([]coerce.Record, 0, s.opts.BatchSize)
		return nil
	}

	var failedRows []FailedRow
	for i, row := range t.Rows {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
		}

		if coerce.IsEmptyRow(row) {
			continue
		}
		summary.TotalRows++

		rec, err := v.CoerceRow(row, i)
		if err != nil {
			summary.Rejections = append(summary.Rejections, rowIssue(t, i, err))
			failedRows = append(failedRows, FailedRow{
				FileName:   t.Name,
				LineNumber: t.Line(i),
				Reason:     err.Error(),
				Data:       row,
			})
			continue
		}

		summary.Accepted++
		batch = append(batch, rec)
		if len(batch) >= s.opts.BatchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}
	if err := flush(); err != nil {
		return fail(err)
	}
	summary.Rejected = len(summary.Rejections)

	if s.opts.FailedRowsDir != "" && len(failedRows) > 0 {
		path, err := WriteFailedRows(s.opts.FailedRowsDir, t.Name, t.Columns, failedRows)
		if err != nil {
			logger.Warn("could not write failed rows", "error", err)
		}
		summary.FailedFile = path
	}

	logger.Info("run complete",
		"rows", summary.TotalRows,
		"accepted", summary.Accepted,
		"rejected", summary.Rejected,
		"written", summary.Written,
		"duration", time.Since(start),
	)
	return summary, nil
}

func rowIssue(t *Table, i int, err error) RowIssue {
	issue := RowIssue{Row: i, Line: t.Line(i), Message: err.Error()}
	var rowErr coerce.RowError
	if errors.As(err, &rowErr) {
		issue.Kind = rowErr.Kind()
		issue.Field = rowErr.FieldName()
		issue.Value = rowErr.RawValue()
	}
	return issue
}

// remember stores a summary, evicting the oldest beyond MaxRunHistory.
func (s *Service) remember(summary *RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[summary.RunID] = summary
	s.runList = append(s.runList, summary.RunID)
	if len(s.runList) > MaxRunHistory {
		delete(s.runs, s.runList[0])
		s.runList = s.runList[1:]
	}
}

// GetRun returns a remembered run summary.
func (s *Service) GetRun(runID string) (*RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.runs[runID]
	return summary, ok
}

// Runs returns the remembered run summaries, newest first.
func (s *Service) Runs() []*RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RunSummary, 0, len(s.runList))
	for i := len(s.runList) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.runList[i]])
	}
	return out
}

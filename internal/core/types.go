package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/coerce"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

// Sink persists canonical records. Implementations live in package store.
type Sink interface {
	// Prepare makes sure the target exists for the catalog's fields.
	Prepare(ctx context.Context, cat *catalog.Catalog) error
	// Write stores one batch of records tagged with the run id.
	Write(ctx context.Context, runID string, records []coerce.Record) error
}

// Policy decides what a run does when required fields are unresolved.
type Policy string

const (
	// PolicyAbort stops the run before any row is processed.
	PolicyAbort Policy = "abort"
	// PolicyProceed processes every row; each one fails on the missing field.
	PolicyProceed Policy = "proceed"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbort, PolicyProceed:
		return p, nil
	case "":
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown unresolved-field policy %q (want abort or proceed)", s)
}

// ErrUnresolvedRequired matches any *UnresolvedRequiredError via errors.Is.
var ErrUnresolvedRequired = errors.New("unresolved required fields")

// UnresolvedRequiredError aborts a run whose header lacks required fields.
type UnresolvedRequiredError struct {
	Fields []string
}

func (e *UnresolvedRequiredError) Error() string {
	return "unresolved required fields: " + strings.Join(e.Fields, ", ")
}

func (e *UnresolvedRequiredError) Is(target error) bool {
	return target == ErrUnresolvedRequired
}

// Table is a header plus string rows, as handed over by a reader.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	// Lines holds the 1-based source line of each row, when known.
	Lines []int
}

// Line returns the source line of row i, or i+2 (header on line 1) when
// the reader did not record lines.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// RowIssue describes one rejected row in a run summary.
type RowIssue struct {
	Row     int    `json:"row"`
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// FailedRow is a rejected row as written to the failed-rows file.
type FailedRow struct {
	FileName   string
	LineNumber int
	Reason     string
	Data       []string
}

// RunSummary is the outcome of one run.
type RunSummary struct {
	RunID              string           `json:"run_id"`
	File               string           `json:"file"`
	Policy             Policy           `json:"policy"`
	TotalRows          int              `json:"total_rows"`
	Accepted           int              `json:"accepted"`
	Rejected           int              `json:"rejected"`
	Written            int              `json:"written"`
	UnresolvedRequired []string         `json:"unresolved_required"`
	Mapping            *resolve.Mapping `json:"mapping"`
	Review             []string         `json:"review,omitempty"`
	Rejections         []RowIssue       `json:"rejections"`
	FailedFile         string           `json:"failed_file,omitempty"`
	Duration           time.Duration    `json:"duration_ns"`
	Aborted            bool             `json:"aborted"`
	Error              string           `json:"error,omitempty"`
}

// OK reports whether the run completed without aborting.
func (s *RunSummary) OK() bool {
	return !s.Aborted && s.Error == ""
}

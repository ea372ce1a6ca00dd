// Package logging configures the process-wide slog logger.
//
// Every entry logged while serving an HTTP request carries chi's request id,
// and every entry logged during a run carries the run id and source file, so
// a single ingest can be followed from the request line to the sink writes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Attribute keys shared by the HTTP layer and the run driver.
const (
	KeyRequestID = "request_id"
	KeyRunID     = "run_id"
	KeyFile      = "file"
)

// Setup installs a logger on stderr as the slog default. Command output
// (mappings, summaries, --json) owns stdout.
func Setup(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a text or JSON logger writing to w. Unknown levels fall back to
// info; config validation rejects them before this point.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// FromContext returns the default logger, tagged with the request id when
// ctx belongs to an HTTP request.
//
//	logging.FromContext(r.Context()).Info("resolve", "columns", len(req.Columns))
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With(KeyRequestID, reqID)
	}
	return logger
}

// ForRun returns the logger for one pass of a table through resolution,
// coercion and the sink.
//
//	logger := logging.ForRun(ctx, runID, t.Name)
//	logger.Debug("field resolved", "field", a.Field, "column", a.Column)
//	logger.Info("run complete", "accepted", summary.Accepted)
func ForRun(ctx context.Context, runID, file string) *slog.Logger {
	return FromContext(ctx).With(KeyRunID, runID, KeyFile, file)
}

package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

// maxMemory is the multipart memory budget; larger parts spill to disk.
const maxMemory = 32 << 20

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and fields.
const multipartOverhead = 1 << 20

// defaultUploadName names CSV bodies posted without a name.
const defaultUploadName = "upload.csv"

// ============================================================================
// Health
// ============================================================================

type healthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	Ingest   core.LimiterStatus `json:"ingest"`
	Runs     int                `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: "disabled",
		Ingest:   s.service.Limiter().Status(),
		Runs:     len(s.service.Runs()),
	}
	status := http.StatusOK

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	writeJSON(w, status, resp)
}

// ============================================================================
// Catalog
// ============================================================================

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fields": s.service.Catalog().Describe()})
}

// ============================================================================
// Resolve
// ============================================================================

type resolveRequest struct {
	Columns   []string          `json:"columns"`
	Overrides map[string]string `json:"overrides"`
}

type resolveResponse struct {
	Mapping *resolve.Mapping `json:"mapping"`
	Review  []string         `json:"review"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead)).Decode(&req); err != nil {
		s.respondErrorStatus(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest, nil)
		return
	}
	if len(req.Columns) == 0 {
		s.respondErrorStatus(w, r, errors.New("invalid request body: columns is empty"), http.StatusBadRequest, nil)
		return
	}

	mapping, err := s.service.Resolve(req.Columns, req.Overrides)
	if err != nil {
		s.respondError(w, r, err, nil)
		return
	}

	review := s.service.Review(mapping)
	if review == nil {
		review = []string{}
	}
	writeJSON(w, http.StatusOK, resolveResponse{Mapping: mapping, Review: review})
}

// ============================================================================
// Ingest
// ============================================================================

// handleIngest accepts either a multipart form with a "file" part or a raw
// CSV body. Overrides are a JSON object in the "overrides" form or query
// value.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if limit := s.cfg.Pipeline.MaxFileSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	body, name, overrides, cleanup, err := s.ingestInput(r)
	if err != nil {
		s.respondError(w, r, bodyError(err), nil)
		return
	}
	defer cleanup()

	summary, err := s.service.Ingest(r.Context(), body, name, overrides)
	if err != nil {
		s.respondError(w, r, bodyError(err), summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ingestInput extracts the CSV stream, its name and the overrides.
func (s *Server) ingestInput(r *http.Request) (io.Reader, string, map[string]string, func(), error) {
	nop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, "", nil, nop, fmt.Errorf("invalid csv: parse form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", nil, nop, errNoFile
		}
		overrides, err := parseOverrides(r.FormValue("overrides"))
		if err != nil {
			file.Close()
			return nil, "", nil, nop, err
		}
		return file, header.Filename, overrides, func() { file.Close() }, nil
	}

	if r.ContentLength == 0 {
		return nil, "", nil, nop, errNoFile
	}
	q := r.URL.Query()
	overrides, err := parseOverrides(q.Get("overrides"))
	if err != nil {
		return nil, "", nil, nop, err
	}
	name := q.Get("name")
	if name == "" {
		name = defaultUploadName
	}
	return r.Body, name, overrides, nop, nil
}

// parseOverrides decodes a JSON object of field -> column.
func parseOverrides(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &resolve.OverrideError{Field: "*", Column: raw, Reason: "not a JSON object of field to column"}
	}
	return out, nil
}

// bodyError reports an exceeded request size as core.ErrFileTooLarge.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, maxErr.Limit)
	}
	return err
}

// ============================================================================
// Runs
// ============================================================================

type runListItem struct {
	RunID     string        `json:"run_id"`
	File      string        `json:"file"`
	TotalRows int           `json:"total_rows"`
	Accepted  int           `json:"accepted"`
	Rejected  int           `json:"rejected"`
	Written   int           `json:"written"`
	Aborted   bool          `json:"aborted"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.service.Runs()
	out := make([]runListItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, runListItem{
			RunID:     run.RunID,
			File:      run.File,
			TotalRows: run.TotalRows,
			Accepted:  run.Accepted,
			Rejected:  run.Rejected,
			Written:   run.Written,
			Aborted:   run.Aborted,
			Error:     run.Error,
			Duration:  run.Duration,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	summary, ok := s.service.GetRun(runID)
	if !ok {
		respondErrorJSON(w, core.UserMessage{
			Message: "Run not found",
			Action:  "Check the run ID; only recent runs are kept",
			Code:    "RUN404",
		}, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

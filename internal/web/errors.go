package web

// errors.go maps errors to HTTP responses.
//
// Every error is logged server-side with its technical detail and the
// request ID, and returned to the client as a JSON ErrorResponse carrying
// the user-facing message and code from core.MapError.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/adelakul/retail-pulse/internal/core"
	"github.com/adelakul/retail-pulse/internal/resolve"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	// Summary is set when a run started before it failed.
	Summary *core.RunSummary `json:"summary,omitempty"`
}

// errNoFile is returned when an ingest request carries no CSV.
var errNoFile = errors.New("no file provided")

// errorStatus picks the HTTP status for an error.
func errorStatus(err error) int {
	var overrideErr *resolve.OverrideError
	switch {
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnresolvedRequired), errors.As(err, &overrideErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	if strings.HasPrefix(core.MapError(err).Code, "FILE") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes it as JSON with the status errorStatus
// picks. summary may be nil.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, summary *core.RunSummary) {
	s.respondErrorStatus(w, r, err, errorStatus(err), summary)
}

// respondErrorStatus is respondError with an explicit status code.
func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, statusCode int, summary *core.RunSummary) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, statusCode, ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		Summary: summary,
	})
}

// respondErrorJSON writes a JSON error response for a fixed message.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

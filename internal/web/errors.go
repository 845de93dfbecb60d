package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to get a user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON for /api routes, plain text otherwise

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/logging"
	"github.com/JonMunkholm/gendb/internal/pid"
	"github.com/JonMunkholm/gendb/internal/refdata"
	"github.com/JonMunkholm/gendb/internal/sampling"
	"github.com/JonMunkholm/gendb/internal/synth"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusCode picks the HTTP status for err.
func statusCode(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidRequest),
		errors.Is(err, synth.ErrInvalidConfig),
		errors.Is(err, core.ErrSampleTooLarge),
		errors.Is(err, core.ErrDestinationOutsideOutput),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, pid.ErrInvalidGender),
		errors.Is(err, pid.ErrUnsupportedEra),
		errors.Is(err, pid.ErrMalformed),
		errors.Is(err, pid.ErrChecksum),
		errors.Is(err, pid.ErrInvalidDate),
		errors.Is(err, refdata.ErrInvalidGender):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRunNotFound),
		errors.Is(err, core.ErrNoMatchingName):
		return http.StatusNotFound
	case errors.Is(err, pid.ErrSpaceExhausted),
		errors.Is(err, sampling.ErrZeroPopulation),
		errors.Is(err, sampling.ErrNoLocalities),
		errors.Is(err, synth.ErrNoSurnames):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes the mapped
// user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusCode(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, status)
	} else {
		respondErrorText(w, userMsg, status)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSONStatus(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorText writes a plain text error response.
func respondErrorText(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	http.Error(w, msg.Message+" ("+msg.Code+"). "+msg.Action, statusCode)
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

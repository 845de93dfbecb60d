package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/export"
	"github.com/JonMunkholm/gendb/internal/logging"
	"github.com/JonMunkholm/gendb/internal/synth"
)

// generateRequest is the body of POST /api/generate. Config fields that
// are omitted keep the server defaults.
type generateRequest struct {
	Config  synth.Config      `json:"config"`
	Targets map[string]string `json:"targets"`
}

// previewRequest is the body of POST /api/preview.
type previewRequest struct {
	Config synth.Config `json:"config"`
	Rows   int          `json:"rows"`
}

// previewResponse carries preview rows with the column order.
type previewResponse struct {
	Columns []string       `json:"columns"`
	Rows    []synth.Record `json:"rows"`
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleDefaults returns the default generation settings.
func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Defaults())
}

// handleReference returns counts for the loaded reference data.
func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Reference())
}

// handleStatus returns the run limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Limiter().Status())
}

// handleGenerate runs a generation and writes the requested targets.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{Config: s.service.Defaults()}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	run, err := s.service.Run(r.Context(), req.Config, req.Targets)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if run.Failed() {
		status = http.StatusMultiStatus
	}
	writeJSONStatus(w, status, run)
}

// handlePreview returns a few rows without consuming identifiers.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req := previewRequest{Config: s.service.Defaults()}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	table, err := s.service.Preview(r.Context(), req.Config, req.Rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, previewResponse{Columns: synth.ColumnNames(), Rows: table.Records()})
}

// handleDownload generates a table and streams it in the requested format.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !format.Streamable() {
		s.respondError(w, r, fmt.Errorf("%w: %s cannot be downloaded", export.ErrUnknownFormat, format))
		return
	}

	cfg, err := configFromQuery(r.URL.Query(), s.service.Defaults())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	table, err := s.service.Generate(r.Context(), cfg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("people_%s%s", timestamp, format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	// Headers are sent once encoding starts; failures can only be logged.
	if err := export.Encode(r.Context(), w, format, table); err != nil {
		logging.FromContext(r.Context()).Error("download failed",
			"format", format,
			"rows", table.Len(),
			"error", err,
		)
	}
}

// handleIssuePID issues one identifier from the shared registry.
func (s *Server) handleIssuePID(w http.ResponseWriter, r *http.Request) {
	birth, err := parseBirthDate(r.URL.Query().Get("birth"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	gender, err := parseGender(r.URL.Query().Get("gender"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	id, err := s.service.IssuePID(birth, gender)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]string{"pid": id})
}

// handleValidatePID checks an identifier and returns what it encodes.
func (s *Server) handleValidatePID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pid")
	dec, err := s.service.ValidatePID(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{
		"pid":        id,
		"birth_date": dec.BirthDate.Format(synth.DateLayout),
		"gender":     string(dec.Gender),
	})
}

// handleSampleName draws one first name.
func (s *Server) handleSampleName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: year must be an integer, got %q", core.ErrInvalidRequest, q.Get("year")))
		return
	}
	gender, err := parseGender(q.Get("gender"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	weighted := true
	if v := q.Get("weighted"); v != "" {
		if weighted, err = strconv.ParseBool(v); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: weighted must be true or false", core.ErrInvalidRequest))
			return
		}
	}

	name, err := s.service.SampleName(year, gender, weighted)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"name": name})
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.service.Runs()
	if limit := parseIntParam(r, "limit", len(runs)); limit < len(runs) {
		runs = runs[:limit]
	}
	writeJSON(w, runs)
}

// handleGetRun returns one run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, run)
}

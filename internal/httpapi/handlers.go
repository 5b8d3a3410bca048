package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"rollcall/internal/daemon"
	"rollcall/internal/ledger"
)

// RecordsResponse wraps the records listing.
type RecordsResponse struct {
	Records []ledger.Record `json:"records"`
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	OK      bool `json:"ok"`
	Running bool `json:"running"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	writeJSON(w, http.StatusOK, HealthResponse{OK: true, Running: status.Running})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	result, err := daemon.DescribeMark(s.daemon.Mark(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	code := http.StatusOK
	switch result.Outcome {
	case daemon.MarkNotRunning:
		code = http.StatusServiceUnavailable
	case daemon.MarkNoCandidate:
		code = http.StatusConflict
	case daemon.MarkStorageFailed:
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ledger.Filter{
		Identity: strings.TrimSpace(query.Get("identity")),
		Date:     strings.TrimSpace(query.Get("date")),
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	records, err := s.daemon.Records(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Records: records})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.daemon.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

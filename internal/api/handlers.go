package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/dealbook/internal/projection"
)

// envelope is the error body for failures outside the engine.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeResult sends an engine result. Engine failures map to 500; the body
// is the same envelope either way.
func writeResult[T any](w http.ResponseWriter, res projection.Result[T]) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func (s *Server) decodeIDs(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var req idsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid request body"})
		return nil, false
	}
	if len(req.IDs) > s.maxIDs {
		writeJSON(w, http.StatusBadRequest, envelope{Error: fmt.Sprintf("at most %d ids per request", s.maxIDs)})
		return nil, false
	}
	return req.IDs, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.decodeIDs(w, r)
	if !ok {
		return
	}
	writeResult(w, s.svc.RequestProjections(r.Context(), ids))
}

func (s *Server) handleBusinesses(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.decodeIDs(w, r)
	if !ok {
		return
	}
	writeResult(w, s.svc.BusinessSummaries(r.Context(), ids))
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	ids, ok := s.decodeIDs(w, r)
	if !ok {
		return
	}
	writeResult(w, s.svc.OpportunitySummaries(r.Context(), ids))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.svc.Dashboard(r.Context()))
}

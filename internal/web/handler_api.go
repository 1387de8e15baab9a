package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vbonduro/recipelens/internal/domain"
	"github.com/vbonduro/recipelens/internal/vision"
)

type apiError struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type analyzeResponse struct {
	*domain.Result
	IsFood                 bool           `json:"isFood"`
	ServingsMismatch       bool           `json:"servingsMismatch"`
	RequestedServings      int            `json:"requestedServings"`
	EstimatedTotalCalories domain.Numeric `json:"estimatedTotalCalories,omitempty"`
}

func newAnalyzeResponse(r *domain.Result) analyzeResponse {
	return analyzeResponse{
		Result:                 r,
		IsFood:                 r.IsFood(),
		ServingsMismatch:       r.ServingsMismatch(),
		RequestedServings:      r.RequestedServings,
		EstimatedTotalCalories: r.EstimatedTotalCalories(),
	}
}

// statusFor maps an analysis failure onto an HTTP status.
func statusFor(k vision.Kind) int {
	switch k {
	case vision.KindValidation:
		return http.StatusBadRequest
	case vision.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// handleAPIAnalyze runs one analysis in a throwaway session.
func (s *Server) handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		s.writeError(w, vision.Validation("failed to parse form"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, vision.Validation("image file required"))
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	sess := s.sessions.NewEphemeral()
	sess.SetServingCountInput(r.FormValue("servings"))
	if err := sess.UploadImage(r.Context(), file, header.Filename); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := sess.Submit(context.WithoutCancel(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newAnalyzeResponse(result))
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, vision.Validation("limit must be an integer"))
			return
		}
		limit = n
	}

	analyses, err := s.journal.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list analyses failed", "error", err)
		http.Error(w, "failed to list analyses", http.StatusInternalServerError)
		return
	}
	counts, err := s.journal.CountByOutcome(r.Context())
	if err != nil {
		s.logger.Error("count analyses failed", "error", err)
		http.Error(w, "failed to list analyses", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"outcomes": counts,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"backend":         s.sessions.BackendName(),
		"active_sessions": s.sessions.Len(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	verr := vision.Classify(err)
	s.writeJSON(w, statusFor(verr.Kind), apiError{Kind: verr.Kind.String(), Error: verr.Message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

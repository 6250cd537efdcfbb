// Package chi exposes the matching engine over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/domain"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/match"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/record"
	healthuc "github.com/Zaxis018/cbs-match-bot/internal/usecase/health"
)

// Matcher runs the engine for one raw record.
type Matcher interface {
	Match(ctx context.Context, raw record.Raw, threshold float64) match.Result
}

// Server holds the HTTP handlers.
type Server struct {
	matcher Matcher
	health  *healthuc.Service
	logger  *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(matcher Matcher, health *healthuc.Service, logger *zap.Logger) *Server {
	return &Server{matcher: matcher, health: health, logger: logger}
}

// Routes registers the API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/v1/match", s.handleMatch)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// matchRequest is the POST /api/v1/match body.
type matchRequest struct {
	Record    record.Raw `json:"record"`
	Threshold float64    `json:"threshold,omitempty"`
}

// matchEntry is one ranked candidate on the wire.
type matchEntry struct {
	Score       float64            `json:"score"`
	FieldScores map[string]float64 `json:"field_scores"`
	Record      map[string]string  `json:"record"`
}

// matchResponse is the POST /api/v1/match response.
type matchResponse struct {
	Outcome string             `json:"outcome"`
	Weights map[string]float64 `json:"weights,omitempty"`
	Matches []matchEntry       `json:"matches,omitempty"`
	Message string             `json:"message,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Record) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "record is required")
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		writeError(w, http.StatusBadRequest, "validation_failed", domain.ErrInvalidThreshold.Error())
		return
	}

	res := s.matcher.Match(r.Context(), req.Record, req.Threshold)

	resp := matchResponse{Outcome: string(res.Outcome())}
	if res.Outcome() == match.OutcomeError {
		// Record-level failures are part of the result model, not HTTP
		// errors. Only sentinel messages reach the client.
		resp.Message = safeDomainMessage(res.Err())
		s.logger.Warn("match request ended in error outcome", zap.Error(res.Err()))
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if weights := res.Weights(); len(weights) > 0 {
		resp.Weights = make(map[string]float64, len(weights))
		for f, v := range weights {
			resp.Weights[string(f)] = v
		}
	}
	for _, c := range res.Candidates() {
		fs := make(map[string]float64, len(c.FieldScores()))
		for f, score := range c.FieldScores() {
			fs[string(f)] = score
		}
		resp.Matches = append(resp.Matches, matchEntry{
			Score:       c.Total(),
			FieldScores: fs,
			Record:      c.Row(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// errorResponse is the wire shape of an HTTP-level failure.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnknownEntity,
		domain.ErrNoApplicableFields,
		domain.ErrWeightsUnavailable,
		domain.ErrDatasetNotLoaded,
		domain.ErrInvalidThreshold,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

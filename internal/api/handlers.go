package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"healthmania-api/internal/features"
	"healthmania-api/internal/storage"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type runFunc func(ctx context.Context, req features.Request) (any, error)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	ErrorRate *float64  `json:"error_rate,omitempty"`
}

// HistoryResponse lists recorded predictions for one endpoint.
type HistoryResponse struct {
	Endpoint string                     `json:"endpoint"`
	Count    int                        `json:"count"`
	Records  []storage.PredictionRecord `json:"records"`
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, r, http.StatusMethodNotAllowed, ErrorResponse{
		Error: "Method not allowed",
		Code:  ErrCodeMethodNotAllowed,
	})
}

// predictHandler decodes the body into a Request and runs it through the service.
func (s *Server) predictHandler(endpoint string, run runFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}

		req, err := decodeRequest(r.Body)
		if err != nil {
			s.validationError(endpoint, "invalid_request")
			writeError(w, r, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("invalid request: %v", err),
				Code:  ErrCodeInvalidRequest,
			})
			return
		}

		res, err := run(r.Context(), req)
		if err != nil {
			s.handleError(w, r, endpoint, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// decodeRequest accepts a single JSON object. Numbers are kept as json.Number.
func decodeRequest(body io.Reader) (features.Request, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()

	var req features.Request
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty body")
		}
		return nil, err
	}
	if req == nil {
		return nil, errors.New("body must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return req, nil
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Hello API is live"})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()}
	if s.metrics != nil {
		// share of 5xx answers since start
		rate := s.metrics.ErrorRate()
		resp.ErrorRate = &rate
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	if s.svc == nil || !s.svc.Ready() {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC(),
			Reason:    "models or nutrition table not loaded",
		})
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "ready", Timestamp: time.Now().UTC()})
}

// handleHistory handles GET /history?endpoint=&limit=&since=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if s.history == nil {
		writeError(w, r, http.StatusServiceUnavailable, ErrorResponse{
			Error: "prediction history is disabled",
			Code:  ErrCodeServiceUnavailable,
		})
		return
	}

	q := r.URL.Query()
	endpoint := q.Get("endpoint")
	if !storage.ValidEndpoint(endpoint) {
		writeError(w, r, http.StatusBadRequest, ErrorResponse{
			Error: "unknown endpoint",
			Code:  ErrCodeInvalidRequest,
			Field: "endpoint",
			Value: endpoint,
		})
		return
	}

	limit := defaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, r, http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit),
				Code:  ErrCodeInvalidRequest,
				Field: "limit",
				Value: v,
			})
			return
		}
		limit = n
	}

	var (
		records []storage.PredictionRecord
		err     error
	)
	if v := q.Get("since"); v != "" {
		since, perr := time.Parse(time.RFC3339, v)
		if perr != nil {
			writeError(w, r, http.StatusBadRequest, ErrorResponse{
				Error: "since must be an RFC 3339 timestamp",
				Code:  ErrCodeInvalidRequest,
				Field: "since",
				Value: v,
			})
			return
		}
		records, err = s.history.GetRange(endpoint, since, time.Now())
		if len(records) > limit {
			records = records[len(records)-limit:]
		}
	} else {
		records, err = s.history.GetRecent(endpoint, limit)
	}
	if err != nil {
		s.handleError(w, r, endpoint, fmt.Errorf("read history: %w", err))
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{Endpoint: endpoint, Count: len(records), Records: records})
}

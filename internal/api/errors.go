package api

import (
	"errors"
	"net/http"

	"healthmania-api/internal/common"
	"healthmania-api/internal/features"
	"healthmania-api/internal/ml"

	"github.com/rs/zerolog/log"
)

// Error codes as constants
const (
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidCategory    = "INVALID_CATEGORY"
	ErrCodeInvalidValue       = "INVALID_VALUE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInferenceFailed    = "INFERENCE_FAILED"
	ErrCodeDataUnavailable    = "DATA_UNAVAILABLE"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error         string   `json:"error"`
	Code          string   `json:"code"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Field         string   `json:"field,omitempty"`
	Value         any      `json:"value,omitempty"`
	RequestID     string   `json:"request_id"`
}

// writeError writes error response
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, resp ErrorResponse) {
	resp.RequestID = common.RequestID(r.Context())
	respondJSON(w, statusCode, resp)
}

// handleError maps the service error taxonomy onto status codes.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var (
		missing     *features.MissingFieldsError
		category    *features.InvalidCategoryError
		value       *features.InvalidValueError
		inference   *ml.InferenceError
		unavailable *ml.DataUnavailableError
	)

	switch {
	case errors.As(err, &missing):
		s.validationError(endpoint, "missing_fields")
		writeError(w, r, http.StatusBadRequest, ErrorResponse{
			Error:         "You need to fill in the following fields",
			Code:          ErrCodeMissingFields,
			MissingFields: missing.Fields,
		})
	case errors.As(err, &category):
		s.validationError(endpoint, "invalid_category")
		writeError(w, r, http.StatusBadRequest, ErrorResponse{
			Error: "Invalid categorical values provided.",
			Code:  ErrCodeInvalidCategory,
			Field: category.Field,
			Value: category.Value,
		})
	case errors.As(err, &value):
		s.validationError(endpoint, "invalid_value")
		writeError(w, r, http.StatusBadRequest, ErrorResponse{
			Error: value.Error(),
			Code:  ErrCodeInvalidValue,
			Field: value.Field,
			Value: value.Value,
		})
	case errors.As(err, &unavailable):
		log.Error().Err(err).Str("endpoint", endpoint).Str("request_id", common.RequestID(r.Context())).Msg("Dependency not loaded")
		writeError(w, r, http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  ErrCodeDataUnavailable,
		})
	case errors.As(err, &inference):
		writeError(w, r, http.StatusInternalServerError, ErrorResponse{
			Error: inference.Error(),
			Code:  ErrCodeInferenceFailed,
		})
	default:
		log.Error().Err(err).Str("endpoint", endpoint).Str("request_id", common.RequestID(r.Context())).Msg("Request failed")
		writeError(w, r, http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  ErrCodeInternalError,
		})
	}
}

func (s *Server) validationError(endpoint, kind string) {
	if s.metrics != nil {
		s.metrics.ValidationErrorInc(endpoint, kind)
	}
}

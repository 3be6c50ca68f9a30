package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"taxtrail/internal/apperr"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

const maxBodyBytes = 1 << 20

type errorBody struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindUnsupportedCurrency:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindRegionNotFound, apperr.KindRecordNotFound:
		return http.StatusNotFound
	case apperr.KindIndicatorUnavailable, apperr.KindRateFetchFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorWriter renders errors as JSON envelopes. Internal errors are logged and
// replaced with a generic message.
func errorWriter(logger zerolog.Logger) func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		kind := apperr.KindOf(err)
		status := statusFor(kind)

		body := errorBody{Success: false, Error: string(kind), Message: apperr.MessageOf(err)}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			body.Details = appErr.Details
		}
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
			body.Error = "INTERNAL"
			body.Message = "Server Error"
			body.Details = nil
		} else if status == http.StatusBadGateway {
			logger.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
		}
		if body.Message == "" {
			body.Message = http.StatusText(status)
		}
		writeJSON(w, status, body)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid json body")
	}
	return nil
}

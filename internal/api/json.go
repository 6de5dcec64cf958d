package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/techtrack/internal/apperr"
	"github.com/starford/techtrack/internal/catalog"
)

// maxBodyBytes caps ordinary JSON request bodies. Imports use the codec limit.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string            `json:"error" validate:"required"`
	Details []string          `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Indices []int             `json:"indices,omitempty"`
	// State is the in-memory result of a change that could not be persisted.
	State any `json:"state,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeBody reads a JSON request body into v. It writes the error response
// itself and reports false when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeError maps a domain error onto a status code and error body.
// state is attached to 507 responses so that clients can show what the
// server holds in memory; it may be nil.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error, state any) {
	var (
		fe  *apperr.FormatError
		ve  *apperr.ValidationError
		pe  *apperr.PersistenceError
		mbe *http.MaxBytesError
	)
	body := errorBody(err.Error())
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &fe):
		status = http.StatusBadRequest
		if fe.TooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		body.Details = fe.Details
		if errors.As(err, &ve) {
			body.Fields, body.Indices = ve.Fields, ve.Indices
		}
	case errors.As(err, &mbe):
		status = http.StatusRequestEntityTooLarge
		body = errorBody("request body too large")
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body.Fields, body.Indices = ve.Fields, ve.Indices
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case errors.As(err, &pe):
		status = http.StatusInsufficientStorage
		body.State = state
		logger.Warn(op+" not persisted", slog.String("key", pe.Key), slog.String("error", err.Error()))
	default:
		logger.Error(op+" failed", slog.String("error", err.Error()))
		body = errorBody("internal error")
	}
	writeJSON(w, status, body)
}

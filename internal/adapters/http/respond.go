package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respond writes v, logging encoding failures since nothing more can be sent.
func respond(w http.ResponseWriter, r *http.Request, logger domain.Logger, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		logger.Error(r.Context(), "Failed to encode response", "path", r.URL.Path, "error", err.Error())
	}
}

// respondError maps a service error onto the standard error envelope.
func respondError(w http.ResponseWriter, r *http.Request, logger domain.Logger, err error) {
	errResp, status := domain.ErrorResponseFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "Request failed", "path", r.URL.Path, "error", err.Error())
	} else {
		logger.Debug(r.Context(), "Request rejected", "path", r.URL.Path, "status", status, "error", err.Error())
	}
	errResp.WriteJSON(w, status)
}

// decodeJSON reads a bounded JSON body into dst. An oversized body wraps
// domain.ErrTooLarge; other malformed input wraps domain.ErrInvalidInput.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrTooLarge, tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err.Error())
	}
	return nil
}

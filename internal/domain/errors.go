package domain

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
)

// Sentinel errors returned by the service layer. Wrap them with fmt.Errorf("...: %w").
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("access denied")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrTooLarge        = errors.New("payload too large")
)

// ErrorCode represents a specific error condition.
type ErrorCode string

const (
	ErrInvalidAPIKey    ErrorCode = "InvalidAPIKey"       // HTTP 401
	ErrUnauthorized     ErrorCode = "Unauthorized"        // HTTP 401, WS Close 4401
	ErrAccessDenied     ErrorCode = "AccessDenied"        // HTTP 403, WS Close 4403
	ErrResourceNotFound ErrorCode = "NotFound"            // HTTP 404, WS Close 4404
	ErrAlreadyExists    ErrorCode = "Conflict"            // HTTP 409
	ErrBadRequest       ErrorCode = "BadRequest"          // HTTP 400
	ErrPayloadTooLarge  ErrorCode = "PayloadTooLarge"     // HTTP 413, WS Close 1009
	ErrInternal         ErrorCode = "InternalServerError" // HTTP 500, WS Close 1011
)

// ErrorResponse is the standard error format returned to clients via WebSocket or HTTP JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrorResponseFor maps a service error to the response and HTTP status sent to the client.
// Unknown errors become a generic 500 so internals are not leaked.
func ErrorResponseFor(err error) (ErrorResponse, int) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return NewErrorResponse(ErrUnauthorized, "Authentication required", ""), http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return NewErrorResponse(ErrAccessDenied, "Access denied", err.Error()), http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return NewErrorResponse(ErrResourceNotFound, "Resource not found", err.Error()), http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return NewErrorResponse(ErrAlreadyExists, "Conflict", err.Error()), http.StatusConflict
	case errors.Is(err, ErrTooLarge):
		return NewErrorResponse(ErrPayloadTooLarge, "Payload too large", err.Error()), http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidInput):
		return NewErrorResponse(ErrBadRequest, "Invalid input", err.Error()), http.StatusBadRequest
	default:
		return NewErrorResponse(ErrInternal, "An unexpected error occurred", ""), http.StatusInternalServerError
	}
}

// ToWebSocketCloseCode maps the error code onto a websocket close status.
func (er ErrorResponse) ToWebSocketCloseCode() websocket.StatusCode {
	switch er.Code {
	case ErrUnauthorized, ErrInvalidAPIKey:
		return 4401
	case ErrAccessDenied:
		return 4403
	case ErrResourceNotFound:
		return 4404
	case ErrBadRequest:
		return websocket.StatusUnsupportedData
	case ErrPayloadTooLarge:
		return websocket.StatusMessageTooBig
	default:
		return websocket.StatusInternalError
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}

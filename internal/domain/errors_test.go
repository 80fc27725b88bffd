package domain

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
)

func TestErrorResponseFor(t *testing.T) {
	cases := []struct {
		err    error
		code   ErrorCode
		status int
	}{
		{fmt.Errorf("get page: %w", ErrNotFound), ErrResourceNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: not a member", ErrForbidden), ErrAccessDenied, http.StatusForbidden},
		{ErrUnauthenticated, ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: already invited", ErrConflict), ErrAlreadyExists, http.StatusConflict},
		{fmt.Errorf("%w: name is required", ErrInvalidInput), ErrBadRequest, http.StatusBadRequest},
		{fmt.Errorf("%w: body exceeds 4194304 bytes", ErrTooLarge), ErrPayloadTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("dial tcp: connection refused"), ErrInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		resp, status := ErrorResponseFor(tc.err)
		assert.Equal(t, tc.code, resp.Code, tc.err.Error())
		assert.Equal(t, tc.status, status, tc.err.Error())
	}

	resp, _ := ErrorResponseFor(errors.New("pq: password authentication failed"))
	assert.Empty(t, resp.Details)
}

func TestToWebSocketCloseCode(t *testing.T) {
	assert.Equal(t, websocket.StatusCode(4401), NewErrorResponse(ErrUnauthorized, "", "").ToWebSocketCloseCode())
	assert.Equal(t, websocket.StatusCode(4403), NewErrorResponse(ErrAccessDenied, "", "").ToWebSocketCloseCode())
	assert.Equal(t, websocket.StatusCode(4404), NewErrorResponse(ErrResourceNotFound, "", "").ToWebSocketCloseCode())
	assert.Equal(t, websocket.StatusUnsupportedData, NewErrorResponse(ErrBadRequest, "", "").ToWebSocketCloseCode())
	assert.Equal(t, websocket.StatusMessageTooBig, NewErrorResponse(ErrPayloadTooLarge, "", "").ToWebSocketCloseCode())
	assert.Equal(t, websocket.StatusInternalError, NewErrorResponse(ErrInternal, "", "").ToWebSocketCloseCode())
}

func TestErrorResponseWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorResponse(ErrAccessDenied, "Access denied", "").WriteJSON(rec, http.StatusForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":"AccessDenied","message":"Access denied"}`, rec.Body.String())
}

func TestSessionIdentity(t *testing.T) {
	now := time.Now()
	s := &SessionIdentity{UserEmail: "a@example.com"}
	assert.False(t, s.ExpiredAt(now))
	assert.Equal(t, "a@example.com", s.DisplayName())

	name := "Ada"
	s.UserName = &name
	s.Expires = now
	assert.True(t, s.ExpiredAt(now))
	assert.False(t, s.ExpiredAt(now.Add(-time.Second)))
	assert.Equal(t, "Ada", s.DisplayName())
}

func TestPermissionIsBasic(t *testing.T) {
	assert.True(t, PermissionRead.IsBasic())
	assert.True(t, PermissionWrite.IsBasic())
	assert.True(t, PermissionCreate.IsBasic())
	assert.False(t, PermissionDelete.IsBasic())
	assert.False(t, Permission("admin").IsBasic())
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/application/ratelimit/dto"
	"clipforge/internal/application/ratelimit/usecases"
	"clipforge/internal/infrastructure/auth"
	"clipforge/internal/shared/logger"
)

// =====================================================================
// Mock use cases
// =====================================================================

type mockCheckLimit struct {
	fn func(ctx context.Context, identifier string) (*dto.LimitStatusDTO, error)
}

func (m *mockCheckLimit) Execute(ctx context.Context, identifier string) (*dto.LimitStatusDTO, error) {
	if m.fn != nil {
		return m.fn(ctx, identifier)
	}
	return &dto.LimitStatusDTO{Allowed: true}, nil
}

type mockRecordAttempt struct {
	lastCmd *usecases.RecordAttemptCommand
	fn      func(ctx context.Context, cmd usecases.RecordAttemptCommand) (*dto.LimitStatusDTO, error)
}

func (m *mockRecordAttempt) Execute(ctx context.Context, cmd usecases.RecordAttemptCommand) (*dto.LimitStatusDTO, error) {
	m.lastCmd = &cmd
	if m.fn != nil {
		return m.fn(ctx, cmd)
	}
	return &dto.LimitStatusDTO{Allowed: true}, nil
}

type mockResetLimit struct {
	called     bool
	identifier string
	fn         func(ctx context.Context, identifier string) error
}

func (m *mockResetLimit) Execute(ctx context.Context, identifier string) error {
	m.called = true
	m.identifier = identifier
	if m.fn != nil {
		return m.fn(ctx, identifier)
	}
	return nil
}

type mockAuditTrail struct {
	fn func(ctx context.Context, identifier string, limit int) ([]*dto.AuthEventDTO, error)
}

func (m *mockAuditTrail) Execute(ctx context.Context, identifier string, limit int) ([]*dto.AuthEventDTO, error) {
	if m.fn != nil {
		return m.fn(ctx, identifier, limit)
	}
	return nil, nil
}

type mockVerifier struct {
	claims *auth.Claims
	err    error
}

func (m *mockVerifier) Verify(tokenString string) (*auth.Claims, error) {
	return m.claims, m.err
}

// =====================================================================
// Fixture
// =====================================================================

type handlerFixture struct {
	handler  *RateLimitHandler
	check    *mockCheckLimit
	record   *mockRecordAttempt
	reset    *mockResetLimit
	audit    *mockAuditTrail
	verifier *mockVerifier
}

func newHandlerFixture() *handlerFixture {
	gin.SetMode(gin.TestMode)
	f := &handlerFixture{
		check:    &mockCheckLimit{},
		record:   &mockRecordAttempt{},
		reset:    &mockResetLimit{},
		audit:    &mockAuditTrail{},
		verifier: &mockVerifier{},
	}
	f.handler = NewRateLimitHandler(f.check, f.record, f.reset, f.audit, f.verifier, logger.NewLogger())
	return f
}

func (f *handlerFixture) perform(t *testing.T, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	req := httptest.NewRequest(http.MethodPost, "/api/ratelimit", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	c.Request = req

	f.handler.Handle(c)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) dto.LimitStatusDTO {
	t.Helper()
	var status dto.LimitStatusDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

// =====================================================================
// Tests
// =====================================================================

func TestRateLimitHandler_CheckReturnsStatus(t *testing.T) {
	f := newHandlerFixture()
	remaining := 5
	f.check.fn = func(ctx context.Context, identifier string) (*dto.LimitStatusDTO, error) {
		return &dto.LimitStatusDTO{Allowed: true, RemainingAttempts: &remaining}, nil
	}

	rec := f.perform(t, `{"action":"check"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeStatus(t, rec)
	assert.True(t, status.Allowed)
	require.NotNil(t, status.RemainingAttempts)
	assert.Equal(t, 5, *status.RemainingAttempts)
}

func TestRateLimitHandler_MalformedBodyReturns400(t *testing.T) {
	f := newHandlerFixture()

	rec := f.perform(t, `{"action":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.perform(t, `{"action":"explode"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitHandler_RecordAttemptRequiresSuccessField(t *testing.T) {
	f := newHandlerFixture()

	rec := f.perform(t, `{"action":"record_attempt"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.record.lastCmd)
}

func TestRateLimitHandler_RecordAttemptPassesCommand(t *testing.T) {
	f := newHandlerFixture()

	rec := f.perform(t, `{"action":"record_attempt","success":false,"captchaSolved":true}`,
		map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.record.lastCmd)
	assert.Equal(t, "203.0.113.7", f.record.lastCmd.Identifier)
	assert.False(t, f.record.lastCmd.Success)
	assert.True(t, f.record.lastCmd.CaptchaSolved)
}

func TestRateLimitHandler_BlockedReturns429WithRetryAfter(t *testing.T) {
	f := newHandlerFixture()
	retryAfter := 900
	f.record.fn = func(ctx context.Context, cmd usecases.RecordAttemptCommand) (*dto.LimitStatusDTO, error) {
		return &dto.LimitStatusDTO{Blocked: true, RetryAfterSeconds: &retryAfter}, nil
	}

	rec := f.perform(t, `{"action":"record_attempt","success":false}`, nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	status := decodeStatus(t, rec)
	assert.True(t, status.Blocked)
}

func TestRateLimitHandler_IdentifierPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name: "first forwarded entry wins",
			headers: map[string]string{
				"X-Forwarded-For":  "198.51.100.1, 203.0.113.9",
				"CF-Connecting-IP": "203.0.113.2",
				"X-Real-IP":        "203.0.113.3",
			},
			expected: "198.51.100.1",
		},
		{
			name: "cloudflare header when no forwarded",
			headers: map[string]string{
				"CF-Connecting-IP": "203.0.113.2",
				"X-Real-IP":        "203.0.113.3",
			},
			expected: "203.0.113.2",
		},
		{
			name:     "real ip as last header",
			headers:  map[string]string{"X-Real-IP": "203.0.113.3"},
			expected: "203.0.113.3",
		},
		{
			name:     "shared fallback bucket",
			headers:  nil,
			expected: "0.0.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			var seen string
			f.check.fn = func(ctx context.Context, identifier string) (*dto.LimitStatusDTO, error) {
				seen = identifier
				return &dto.LimitStatusDTO{Allowed: true}, nil
			}

			rec := f.perform(t, `{"action":"check"}`, tt.headers)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.expected, seen)
		})
	}
}

func TestRateLimitHandler_ResetRequiresAdminToken(t *testing.T) {
	f := newHandlerFixture()

	rec := f.perform(t, `{"action":"reset"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, f.reset.called)
}

func TestRateLimitHandler_ResetRejectsNonAdmin(t *testing.T) {
	f := newHandlerFixture()
	f.verifier.claims = &auth.Claims{Subject: "ops-1", Role: auth.RoleOperator}

	rec := f.perform(t, `{"action":"reset"}`,
		map[string]string{"Authorization": "Bearer some-token"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, f.reset.called)
}

func TestRateLimitHandler_ResetClearsIdentifier(t *testing.T) {
	f := newHandlerFixture()
	f.verifier.claims = &auth.Claims{Subject: "admin-1", Role: auth.RoleAdmin}

	rec := f.perform(t, `{"action":"reset"}`, map[string]string{
		"Authorization":   "Bearer admin-token",
		"X-Forwarded-For": "203.0.113.7",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.reset.called)
	assert.Equal(t, "203.0.113.7", f.reset.identifier)
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

type recordingWebhook struct {
	payloads [][]byte
	err      error
}

func (r *recordingWebhook) HandleOrderCompleted(ctx context.Context, payload []byte) error {
	r.payloads = append(r.payloads, payload)
	return r.err
}

func testServer(t *testing.T, config Config, deps Dependencies) *Server {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logger.New(logger.Options{Output: io.Discard})
	}
	config.RateLimitPerMinute = 0
	return NewServer(config, deps)
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthWithoutChecker(t *testing.T) {
	s := testServer(t, DefaultConfig(), Dependencies{})

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestServer_LivenessProbe(t *testing.T) {
	s := testServer(t, DefaultConfig(), Dependencies{})

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_UnconfiguredHandlerAnswers501(t *testing.T) {
	s := testServer(t, DefaultConfig(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/enrollments/enr-1", nil)
	req.Header.Set("X-Student-ID", "student-1")
	rec := doRequest(s, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestServer_ListEnrollmentsOwnershipCheck(t *testing.T) {
	s := testServer(t, DefaultConfig(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/student-1/enrollments", nil)
	req.Header.Set("X-Student-ID", "someone-else")
	rec := doRequest(s, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_OrderWebhook(t *testing.T) {
	webhook := &recordingWebhook{}
	config := DefaultConfig()
	config.WebhookSecret = "commerce-secret"

	s := testServer(t, config, Dependencies{OrderWebhook: webhook})

	payload := `{"event_id":"e1","order_id":"o1","user_id":"s1","items":[{"course_id":"c1","price":10}]}`

	t.Run("rejects missing secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader(payload))
		rec := doRequest(s, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, webhook.payloads)
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader(payload))
		req.Header.Set("X-Webhook-Secret", "guess")
		rec := doRequest(s, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts secret header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader(payload))
		req.Header.Set("X-Webhook-Secret", "commerce-secret")
		rec := doRequest(s, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, webhook.payloads, 1)
		assert.JSONEq(t, payload, string(webhook.payloads[0]))
	})

	t.Run("accepts token in path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/orders/commerce-secret", strings.NewReader(payload))
		rec := doRequest(s, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_OrderWebhookHandlerFailure(t *testing.T) {
	webhook := &recordingWebhook{err: assert.AnError}
	s := testServer(t, DefaultConfig(), Dependencies{OrderWebhook: webhook})

	req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader(`{}`))
	rec := doRequest(s, req)

	// Non-2xx so the commerce system redelivers
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_AdminDeleteRequiresAPIKey(t *testing.T) {
	s := testServer(t, DefaultConfig(), Dependencies{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/enrollments/enr-1",
		strings.NewReader(`{"requested_by":"ops","reason":"refund"}`))
	rec := doRequest(s, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RequestIDPropagation(t *testing.T) {
	s := testServer(t, DefaultConfig(), Dependencies{})

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := doRequest(s, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

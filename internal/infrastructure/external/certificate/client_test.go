package certificate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultClientConfig(server.URL)
	config.APIKey = "test-key"
	config.RateLimiterConfig.MinInterval = 0

	return NewClient(config)
}

func TestClient_RequestCertificate(t *testing.T) {
	var gotAuth string
	var gotBody IssueRequestDTO

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/certificates", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(APIResponse[CertificateDTO]{
			Success: true,
			Data: CertificateDTO{
				ID:           "cert-1",
				EnrollmentID: gotBody.EnrollmentID,
				Status:       StatusPending,
			},
		})
	})

	err := client.RequestCertificate(context.Background(), "enr-1", "student-1", "course-1")
	assert.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "enr-1", gotBody.EnrollmentID)
	assert.Equal(t, "student-1", gotBody.StudentID)
	assert.Equal(t, "course-1", gotBody.CourseID)
	assert.False(t, gotBody.RequestedAt.IsZero())
}

func TestClient_RequestCertificate_ConflictIsSuccess(t *testing.T) {
	var calls atomic.Int32

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	})

	err := client.RequestCertificate(context.Background(), "enr-1", "student-1", "course-1")
	assert.NoError(t, err)

	// A conflict is a terminal answer, no retries should happen.
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RequestCertificate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(APIErrorDTO{Code: "SERVER_ERROR", Message: "boom"})
			return
		}
		json.NewEncoder(w).Encode(APIResponse[CertificateDTO]{
			Success: true,
			Data:    CertificateDTO{ID: "cert-1", Status: StatusPending},
		})
	})

	err := client.RequestCertificate(context.Background(), "enr-1", "student-1", "course-1")
	assert.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RequestCertificate_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(APIErrorDTO{Code: "VALIDATION_FAILED", Message: "missing course_id"})
	})

	err := client.RequestCertificate(context.Background(), "enr-1", "student-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_FAILED")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GetCertificate(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/certificates/by-enrollment/enr-1", r.URL.Path)
		json.NewEncoder(w).Encode(APIResponse[CertificateDTO]{
			Success: true,
			Data: CertificateDTO{
				ID:           "cert-1",
				EnrollmentID: "enr-1",
				Status:       StatusIssued,
				DownloadURL:  "https://certs.example.com/cert-1.pdf",
				IssuedAt:     &issuedAt,
			},
		})
	})

	cert, err := client.GetCertificate(context.Background(), "enr-1")
	require.NoError(t, err)

	assert.Equal(t, "cert-1", cert.ID)
	assert.True(t, cert.IsIssued())
	assert.Equal(t, "https://certs.example.com/cert-1.pdf", cert.DownloadURL)
}

func TestClient_RateLimitResponse(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := client.RequestCertificate(context.Background(), "enr-1", "student-1", "course-1")
	require.Error(t, err)

	// The limiter should have emptied its bucket after the 429.
	status := client.Status(context.Background())
	assert.Less(t, status.RateLimiter.AvailableTokens, 1.0)
}

func TestCertificateDTO_Parsing(t *testing.T) {
	jsonData := `{
		"success": true,
		"data": {
			"id": "0b29d1c7-7d2e-4f0a-9c3f-8a1e5d6b4c2a",
			"enrollment_id": "enr-42",
			"student_id": "student-7",
			"course_id": "course-go-101",
			"status": "issued",
			"download_url": "https://certs.example.com/0b29d1c7.pdf",
			"requested_at": "2025-06-01T10:00:00Z",
			"issued_at": "2025-06-01T10:00:05Z"
		}
	}`

	var response APIResponse[CertificateDTO]
	err := json.Unmarshal([]byte(jsonData), &response)
	assert.NoError(t, err)

	assert.True(t, response.Success)
	assert.Equal(t, "enr-42", response.Data.EnrollmentID)
	assert.True(t, response.Data.IsIssued())
	require.NotNil(t, response.Data.IssuedAt)
	assert.Equal(t, 5*time.Second, response.Data.IssuedAt.Sub(response.Data.RequestedAt))
}

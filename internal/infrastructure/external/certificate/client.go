package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edulearn-hub/enrollment-hub/pkg/circuitbreaker"
	"github.com/edulearn-hub/enrollment-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the certificate service client.
type ClientConfig struct {
	// BaseURL is the certificate service base URL
	BaseURL string

	// APIKey authenticates this service against the issuing service
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// ErrAlreadyRequested is returned by the issuing service when a certificate
// for the enrollment already exists. Callers treat it as success.
var ErrAlreadyRequested = errors.New("certificate already requested")

// Client is the certificate issuing service client.
// Implements the CertificateRequester interface of the application layer.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
}

// NewClient creates a new certificate service client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger.With("component", "certificate_client")

	breaker := circuitbreaker.CertificateAPIBreaker(func(name string, from, to circuitbreaker.State) {
		logger.Warn("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker:     breaker,
		retrier:     retry.CertificateAPIRetrier(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// RequestCertificate asks the issuing service to render a certificate for
// a completed enrollment. Safe to call again for the same enrollment: the
// service dedupes on enrollment_id and a conflict counts as success.
func (c *Client) RequestCertificate(ctx context.Context, enrollmentID, studentID, courseID string) error {
	body := IssueRequestDTO{
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		RequestedAt:  time.Now().UTC(),
	}

	var response APIResponse[CertificateDTO]
	err := c.doRequest(ctx, http.MethodPost, "/v1/certificates", body, &response)
	if errors.Is(err, ErrAlreadyRequested) {
		c.logger.Info("certificate already requested",
			"enrollment_id", enrollmentID,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("request certificate: %w", err)
	}

	if !response.Success {
		return fmt.Errorf("certificate api error: %s", response.Error)
	}

	c.logger.Info("certificate requested",
		"enrollment_id", enrollmentID,
		"certificate_id", response.Data.ID,
		"status", response.Data.Status,
	)

	return nil
}

// GetCertificate fetches the issuing state for an enrollment.
func (c *Client) GetCertificate(ctx context.Context, enrollmentID string) (*CertificateDTO, error) {
	path := fmt.Sprintf("/v1/certificates/by-enrollment/%s", url.PathEscape(enrollmentID))

	var response APIResponse[CertificateDTO]
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, fmt.Errorf("get certificate for enrollment %s: %w", enrollmentID, err)
	}

	if !response.Success {
		return nil, fmt.Errorf("certificate api error: %s", response.Error)
	}

	return &response.Data, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request with circuit breaking, retries, and
// rate limiting. The circuit breaker wraps the whole retry batch, so an
// endpoint that fails through every retry counts as one failure.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	// A conflict is a healthy response from the service, it must not trip
	// the breaker even though the caller sees it as an error value.
	var conflict bool

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		innerErr := c.retrier.Do(ctx, func(ctx context.Context) error {
			if err := c.rateLimiter.Allow(ctx); err != nil {
				return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
			}

			err := c.doSingleRequest(ctx, method, path, body, result)
			if err == nil {
				return nil
			}

			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
			}

			if c.isRetryable(err) {
				return retry.Retryable(err)
			}
			return retry.Permanent(err)
		})

		if errors.Is(innerErr, ErrAlreadyRequested) {
			conflict = true
			return nil
		}
		return innerErr
	})

	if conflict {
		return ErrAlreadyRequested
	}
	return err
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("certificate api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Conflict means the certificate already exists for this enrollment
	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyRequested
	}

	// Handle rate limiting
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 30 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded",
		}
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.Code = statusCode(resp.StatusCode, apiErr.Code)
			return &apiErr
		}
		return &APIErrorDTO{
			Code:    statusCode(resp.StatusCode, ""),
			Message: fmt.Sprintf("status %d", resp.StatusCode),
		}
	}

	// Unmarshal response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// statusCode keeps the service's own error code when it sent one, and
// classifies by HTTP status otherwise.
func statusCode(status int, code string) string {
	if code != "" {
		return code
	}
	if status >= 500 {
		return "SERVER_ERROR"
	}
	return "CLIENT_ERROR"
}

// isRetryable checks if an error is retryable.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Rate limit errors are retryable
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	// Conflicts resolve at the caller, retrying would not change anything
	if errors.Is(err, ErrAlreadyRequested) {
		return false
	}

	// API errors - server side failures are retryable, client errors are not
	var apiErr *APIErrorDTO
	if errors.As(err, &apiErr) {
		return apiErr.Code == "SERVER_ERROR" || apiErr.Code == "TEMPORARILY_UNAVAILABLE"
	}

	// Network errors are generally retryable
	errStr := err.Error()
	for _, marker := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the certificate service is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	var response APIResponse[map[string]interface{}]
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", nil, &response)
	return err == nil && response.Success
}

// ClientStatus contains the current status of the client.
type ClientStatus struct {
	RateLimiter    RateLimiterStatus
	CircuitBreaker circuitbreaker.State
	IsHealthy      bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		RateLimiter:    c.rateLimiter.Status(),
		CircuitBreaker: c.breaker.State(),
		IsHealthy:      c.IsHealthy(ctx),
	}
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.breaker.Reset()
}

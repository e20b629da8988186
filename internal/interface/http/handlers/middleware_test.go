package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashKey(t *testing.T, key string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAPIKeyAuth_Middleware(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{hashKey(t, "admin-key")})

	var reached bool
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid key in header", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
		req.Header.Set("X-API-Key", "admin-key")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("valid key via bearer token", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
		req.Header.Set("Authorization", "Bearer admin-key")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.True(t, reached)
	})

	t.Run("wrong key", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
		req.Header.Set("X-API-Key", "wrong-key")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.False(t, reached)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPIKeyAuth_NeverStoresPlaintext(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{hashKey(t, "secret")})

	assert.True(t, auth.IsValid("secret"))
	assert.False(t, auth.IsValid("$2a$10$notthekey"))
	assert.True(t, auth.HasKeys())
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	handler := RequestSizeLimitMiddleware(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.ContentLength = 1024
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChainOrdering(t *testing.T) {
	var order []string

	tag := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := ChainHandler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}),
		tag("first"),
		tag("second"),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

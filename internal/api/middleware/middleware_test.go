package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/emarzona/internal/repository/redis"
	"github.com/payhuk02/emarzona/internal/security"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetUserID(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	jwt := security.NewJWTManager("test-secret-key-with-32-chars!!", time.Minute)
	auth := NewAuthMiddleware(jwt)

	userToken, err := jwt.GenerateAccessToken("u1", "u1@example.com", "")
	require.NoError(t, err)
	adminToken, err := jwt.GenerateAccessToken("a1", "a1@example.com", security.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name       string
		handler    http.Handler
		header     string
		wantStatus int
		wantBody   string
	}{
		{"optional anonymous", auth.OptionalAuthenticate(echoUser()), "", http.StatusOK, ""},
		{"optional with token", auth.OptionalAuthenticate(echoUser()), "Bearer " + userToken, http.StatusOK, "u1"},
		{"optional bad token", auth.OptionalAuthenticate(echoUser()), "Bearer nope", http.StatusUnauthorized, ""},
		{"optional bad scheme", auth.OptionalAuthenticate(echoUser()), "Basic abc", http.StatusUnauthorized, ""},
		{"required anonymous", auth.Authenticate(echoUser()), "", http.StatusUnauthorized, ""},
		{"required with token", auth.Authenticate(echoUser()), "Bearer " + userToken, http.StatusOK, "u1"},
		{"admin as user", auth.Authenticate(RequireAdmin(echoUser())), "Bearer " + userToken, http.StatusForbidden, ""},
		{"admin as admin", auth.Authenticate(RequireAdmin(echoUser())), "Bearer " + adminToken, http.StatusOK, "a1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

type fakeLimiter struct {
	keys   []string
	result redis.RateLimit
	err    error
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (redis.RateLimit, error) {
	f.keys = append(f.keys, key)
	return f.result, f.err
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("keys by address when anonymous", func(t *testing.T) {
		limiter := &fakeLimiter{result: redis.RateLimit{Allowed: true, Limit: 10, Remaining: 9, ResetAt: time.Unix(120, 0)}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1"
		rec := httptest.NewRecorder()

		NewRateLimitMiddleware(limiter, zerolog.Nop()).Limit(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"ip:10.0.0.1"}, limiter.keys)
		assert.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "120", rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("keys by user and rejects over limit", func(t *testing.T) {
		limiter := &fakeLimiter{result: redis.RateLimit{Allowed: false, Limit: 10}}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, "u1"))
		rec := httptest.NewRecorder()

		NewRateLimitMiddleware(limiter, zerolog.Nop()).Limit(ok).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, []string{"user:u1"}, limiter.keys)
	})

	t.Run("limiter failure lets the request through", func(t *testing.T) {
		limiter := &fakeLimiter{err: errors.New("redis down")}
		rec := httptest.NewRecorder()

		NewRateLimitMiddleware(limiter, zerolog.Nop()).Limit(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

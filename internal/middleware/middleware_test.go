package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/pkg/api"
)

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code, "other clients have their own bucket")
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Unix(1000, 0)
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	limiter.now = func() time.Time { return now }

	limiter.limiterFor("10.0.0.1")
	now = now.Add(5 * time.Minute)
	limiter.limiterFor("10.0.0.2")

	assert.Equal(t, 1, limiter.Sweep(time.Minute))
	assert.Equal(t, 0, limiter.Sweep(time.Minute))
}

func TestRateLimiter_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	limiter := NewRateLimiter(RateLimitConfig{})
	for range 10 {
		rec := httptest.NewRecorder()
		limiter.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSessionToken(t *testing.T) {
	tests := []struct {
		name    string
		header  http.Header
		want    string
		wantErr bool
	}{
		{"none", http.Header{}, "", false},
		{"bearer", http.Header{"Authorization": {"Bearer abc"}}, "abc", false},
		{"malformed bearer", http.Header{"Authorization": {"Token abc"}}, "", true},
		{"cookie", http.Header{"Cookie": {"theme=dark; famsplit_session=xyz"}}, "xyz", false},
		{"bearer wins", http.Header{"Authorization": {"Bearer abc"}, "Cookie": {"famsplit_session=xyz"}}, "abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SessionToken(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthInterceptors(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u1", Username: "alice", Role: models.RoleManager})
	require.NoError(t, err)

	var seen context.Context
	next := connect.UnaryFunc(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		seen = ctx
		return nil, nil
	})

	newReq := func(authHeader string) connect.AnyRequest {
		req := connect.NewRequest(&api.GetCurrentUserRequest{})
		if authHeader != "" {
			req.Header().Set("Authorization", authHeader)
		}
		return req
	}

	t.Run("required with token", func(t *testing.T) {
		_, err := RequireAuth(jwtManager).WrapUnary(next)(context.Background(), newReq("Bearer "+token))
		require.NoError(t, err)
		assert.Equal(t, "u1", GetUserID(seen))
		assert.Equal(t, "alice", GetUsername(seen))
		assert.Equal(t, models.RoleManager, GetRole(seen))
	})

	t.Run("required without token", func(t *testing.T) {
		_, err := RequireAuth(jwtManager).WrapUnary(next)(context.Background(), newReq(""))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		assert.True(t, errors.Is(err, auth.ErrMissingToken))
	})

	t.Run("required with bad token", func(t *testing.T) {
		_, err := RequireAuth(jwtManager).WrapUnary(next)(context.Background(), newReq("Bearer nope"))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("optional without token", func(t *testing.T) {
		_, err := OptionalAuth(jwtManager).WrapUnary(next)(context.Background(), newReq(""))
		require.NoError(t, err)
		assert.Empty(t, GetUserID(seen))
		assert.Equal(t, models.RoleMember, GetRole(seen))
	})

	t.Run("optional with bad token", func(t *testing.T) {
		_, err := OptionalAuth(jwtManager).WrapUnary(next)(context.Background(), newReq("Bearer nope"))
		require.NoError(t, err)
		assert.Empty(t, GetUserID(seen))
	})
}

package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/pkg/api"
)

func TestAuthService(t *testing.T) {
	h := setupTestServer(t, Allocation{})
	ctx := context.Background()

	alice := h.register(t, "alice", "manager", "alice@example.com")
	if alice.user.Role != "manager" {
		t.Errorf("Role = %q, want manager", alice.user.Role)
	}
	if alice.token == "" {
		t.Fatal("expected a session token")
	}

	t.Run("register validation", func(t *testing.T) {
		tests := []struct {
			name string
			req  *api.RegisterRequest
			want connect.Code
		}{
			{"weak password", &api.RegisterRequest{Username: "bob", Password: "short"}, connect.CodeInvalidArgument},
			{"missing username", &api.RegisterRequest{Password: "password123"}, connect.CodeInvalidArgument},
			{"duplicate username", &api.RegisterRequest{Username: "alice", Password: "password123"}, connect.CodeAlreadyExists},
			{"duplicate email", &api.RegisterRequest{Username: "al", Password: "password123", Email: "alice@example.com"}, connect.CodeAlreadyExists},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := h.auth.Register(ctx, connect.NewRequest(tt.req))
				assertCode(t, err, tt.want)
			})
		}
	})

	t.Run("unknown role registers a member", func(t *testing.T) {
		s := h.register(t, "carol", "admin", "")
		if s.user.Role != "member" {
			t.Errorf("Role = %q, want member", s.user.Role)
		}
	})

	t.Run("login sets cookie", func(t *testing.T) {
		resp, err := h.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice", Password: "password123"}))
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if resp.Msg.User.ID != alice.user.ID {
			t.Errorf("User.ID = %s, want %s", resp.Msg.User.ID, alice.user.ID)
		}
		cookie := resp.Header().Get("Set-Cookie")
		if !strings.HasPrefix(cookie, auth.SessionCookieName+"="+resp.Msg.Token) {
			t.Errorf("Set-Cookie = %q", cookie)
		}
	})

	t.Run("login rejects bad password", func(t *testing.T) {
		_, err := h.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice", Password: "wrong-password"}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("current user by bearer", func(t *testing.T) {
		resp, err := h.auth.GetCurrentUser(ctx, withToken(alice.token, &api.GetCurrentUserRequest{}))
		if err != nil {
			t.Fatalf("GetCurrentUser failed: %v", err)
		}
		if resp.Msg.User.Username != "alice" || resp.Msg.User.Email != "alice@example.com" {
			t.Errorf("unexpected user: %+v", resp.Msg.User)
		}
	})

	t.Run("current user by cookie", func(t *testing.T) {
		req := connect.NewRequest(&api.GetCurrentUserRequest{})
		req.Header().Set("Cookie", (&http.Cookie{Name: auth.SessionCookieName, Value: alice.token}).String())
		resp, err := h.auth.GetCurrentUser(ctx, req)
		if err != nil {
			t.Fatalf("GetCurrentUser failed: %v", err)
		}
		if resp.Msg.User.ID != alice.user.ID {
			t.Errorf("User.ID = %s, want %s", resp.Msg.User.ID, alice.user.ID)
		}
	})

	t.Run("current user unauthenticated", func(t *testing.T) {
		_, err := h.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
		assertCode(t, err, connect.CodeUnauthenticated)
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		resp, err := h.auth.Logout(ctx, withToken(alice.token, &api.LogoutRequest{}))
		if err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		if cookie := resp.Header().Get("Set-Cookie"); !strings.Contains(cookie, "Max-Age=0") {
			t.Errorf("Set-Cookie = %q, want an expired cookie", cookie)
		}
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"", "7.00", false},
		{"12.5", "12.50", false},
		{"0", "0.00", false},
		{"-1", "", true},
		{"ten", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseAmount("amount", tt.raw, decimal.NewFromInt(7))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.StringFixed(2) != tt.want {
				t.Errorf("got %s, want %s", got.StringFixed(2), tt.want)
			}
		})
	}
}

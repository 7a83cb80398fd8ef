package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
	"github.com/mmynk/famsplit/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewPasswordAuthenticator(store)
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := newTestAuthenticator(t)

	user, err := a.Register(ctx, "alice", "correct-horse", models.RoleManager, "alice@example.com")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in plain text")
	}
	if !user.IsManager() {
		t.Errorf("Role = %q, want manager", user.Role)
	}

	tests := []struct {
		name     string
		username string
		password string
		email    string
		wantErr  error
	}{
		{"weak password", "bob", "short", "", ErrWeakPassword},
		{"duplicate username", "alice", "long-enough", "", ErrUsernameExists},
		{"duplicate email", "carol", "long-enough", "alice@example.com", ErrEmailExists},
		{"blank username", "  ", "long-enough", "", ErrUsernameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, tt.username, tt.password, models.RoleMember, tt.email)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("authenticate", func(t *testing.T) {
		got, err := a.Authenticate(ctx, "alice", "correct-horse")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("ID = %s, want %s", got.ID, user.ID)
		}
		if _, err := a.Authenticate(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("wrong password error = %v", err)
		}
		if _, err := a.Authenticate(ctx, "nobody", "correct-horse"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("unknown user error = %v", err)
		}
	})
}

func TestJWTManager(t *testing.T) {
	user := &models.User{ID: "u1", Username: "alice", Role: models.RoleManager}

	m := NewJWTManager("secret", time.Hour)
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" || claims.Role != "manager" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTManager("secret", -time.Minute)
		tok, err := expired.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate(strings.Repeat("x", 20)); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("error = %v, want ErrInvalidToken", err)
		}
	})
}

// racingStore reports every username and email as free, so uniqueness is
// only enforced by the insert.
type racingStore struct {
	*sqlite.SQLiteStore
}

func (racingStore) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, storage.ErrNotFound
}

func (racingStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, storage.ErrNotFound
}

func TestRegisterLosesRace(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	a := NewPasswordAuthenticator(racingStore{store})

	if _, err := a.Register(ctx, "alice", "correct-horse", models.RoleMember, "alice@example.com"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		username string
		email    string
		want     error
	}{
		{"same username", "alice", "other@example.com", ErrUsernameExists},
		{"same email", "alice2", "alice@example.com", ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Register(ctx, tt.username, "correct-horse", models.RoleMember, tt.email)
			if !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role gates manager-only operations.
type Role string

const (
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// ParseRole maps a free-form role string to a Role. The legacy "user"
// spelling and anything unknown become RoleMember.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleManager)) {
		return RoleManager
	}
	return RoleMember
}

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique login name.
	Username string

	// PasswordHash is the bcrypt hash of the user's password.
	// Never send this to clients.
	PasswordHash string

	// Role is either RoleManager or RoleMember.
	Role Role

	// Email is optional; members without one are skipped by email
	// notifications but still get a NotificationLog row.
	Email string

	// FamilyID is the family this user belongs to, empty if none.
	FamilyID string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// NewUser creates a new user with generated ID and timestamp.
func NewUser(username, passwordHash string, role Role) *User {
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().Unix(),
	}
}

// IsManager reports whether the user may run manager-only operations.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

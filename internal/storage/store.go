// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/famsplit/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a unique constraint
	// (username, email, invitation token).
	ErrConflict = errors.New("already exists")

	// ErrInvitationAccepted is returned by AcceptInvitation when another
	// redemption already stamped accepted_at.
	ErrInvitationAccepted = errors.New("invitation already accepted")
)

// ConflictError names the unique field a write collided on. It matches
// ErrConflict with errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " " + ErrConflict.Error()
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ConflictField returns the field named by a ConflictError in err's
// chain, or "" if there is none.
func ConflictField(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Field
	}
	return ""
}

// Store defines the interface for famsplit storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Create methods populate empty ID and timestamp fields on the passed model.
type Store interface {
	CreateFamily(ctx context.Context, family *models.Family) error
	GetFamily(ctx context.Context, familyID string) (*models.Family, error)

	// ListFamilyMembers returns the family's users in join order.
	ListFamilyMembers(ctx context.Context, familyID string) ([]*models.User, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserFamily(ctx context.Context, userID, familyID string) error

	// CreateBill persists a bill and any items already attached to it.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill including its items.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// GetLatestBill returns the most recently published bill of a family,
	// including its items. Returns ErrNotFound if the family has no bills.
	GetLatestBill(ctx context.Context, familyID string) (*models.Bill, error)

	ListBillsByFamily(ctx context.Context, familyID string) ([]*models.Bill, error)

	AddBillItem(ctx context.Context, item *models.BillItem) error
	GetBillItem(ctx context.Context, itemID string) (*models.BillItem, error)

	// RecordPayment appends a payment and stamps the item's paid_at.
	RecordPayment(ctx context.Context, payment *models.Payment) error
	ListPaymentsByBill(ctx context.Context, billID string) ([]*models.Payment, error)

	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)

	// AcceptInvitation creates the user and stamps accepted_at in a single
	// transaction. Returns a ConflictError naming "username" or "email" if
	// either is taken and
	// ErrInvitationAccepted if the invitation was redeemed concurrently.
	AcceptInvitation(ctx context.Context, invitationID string, user *models.User, acceptedAt int64) error

	AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error
	ListNotificationLogs(ctx context.Context, billID string) ([]*models.NotificationLog, error)

	// Close releases any resources held by the store.
	Close() error
}

package models

// NotificationLog is an append-only audit row written for every
// notification attempt, whether or not the email transport succeeded.
type NotificationLog struct {
	ID string

	// UserID is the recipient, empty for notifications not tied to an
	// account (e.g., invitations).
	UserID string

	// BillID is the bill that triggered the notification, if any.
	BillID string

	Message string
	SentAt  int64
}

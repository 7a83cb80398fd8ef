package models

// Family is a household that shares bills.
type Family struct {
	// ID is the unique identifier for the family (UUID format).
	ID string

	// Name is the display name (e.g., "Smith").
	Name string

	// CreatedAt is the Unix timestamp when the family was created.
	CreatedAt int64
}

package models

// Invitation binds an email address to a Family until it is accepted.
type Invitation struct {
	ID       string
	FamilyID string
	Email    string

	// Token is the signed invitation token (unique).
	Token string

	CreatedAt int64

	// AcceptedAt is zero while the invitation is pending.
	AcceptedAt int64
}

// Accepted reports whether the invitation has been redeemed.
func (i *Invitation) Accepted() bool {
	return i.AcceptedAt != 0
}

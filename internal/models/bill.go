package models

import "github.com/shopspring/decimal"

// Bill represents one billing cycle for a Family.
// The total is immutable once published.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// FamilyID is the family this bill belongs to (required).
	FamilyID string

	// CreatedBy is the ID of the manager who published the bill.
	CreatedBy string

	// CycleMonth is an optional label such as "2025-06".
	CycleMonth string

	// TotalAmount is the base amount split across participants.
	TotalAmount decimal.Decimal

	// DueDate is an optional ISO date (YYYY-MM-DD).
	DueDate string

	// PublishedAt is the Unix timestamp when the bill was published.
	PublishedAt int64

	// Items are the line items attached to this bill.
	// Only populated by GetBill.
	Items []BillItem
}

// BillItem is a per-member surcharge or shared line item.
type BillItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// BillID is the bill this item is attached to (required).
	BillID string

	// UserID scopes the item to one member. Empty means the item applies
	// to everyone and is not attributed to any participant.
	UserID string

	// Description is the name of the charge (e.g., "cell", "addon").
	Description string

	// Amount is the charge amount.
	Amount decimal.Decimal

	// IsRecurring marks charges that repeat every cycle.
	IsRecurring bool

	// PaidAt is the Unix timestamp of the last payment, zero if unpaid.
	PaidAt int64
}

// Payment records settlement of a BillItem by a member. Append-only.
type Payment struct {
	ID         string
	BillItemID string
	UserID     string
	Amount     decimal.Decimal
	PaidAt     int64
}

package calculator

import (
	"github.com/shopspring/decimal"
)

// Item is the minimal view of a bill item needed for allocation.
type Item struct {
	// UserID is the member the item is attributed to. Empty means the item
	// is unassigned and does not count towards any participant.
	UserID      string
	Description string
	Amount      decimal.Decimal
}

// Share represents the calculated amount one participant owes on a bill.
type Share struct {
	UserID string

	// Base is the participant's equal portion of the bill total.
	Base decimal.Decimal

	// Surcharge is the sum of the participant's own items.
	Surcharge decimal.Decimal

	// Total is Base + Surcharge, unrounded.
	Total decimal.Decimal

	// Items are the participant's own items in bill order.
	Items []Item
}

// Participants returns the distinct non-empty UserIDs across items in
// first-appearance order.
func Participants(items []Item) []string {
	seen := make(map[string]bool)
	var participants []string
	for _, item := range items {
		if item.UserID == "" || seen[item.UserID] {
			continue
		}
		seen[item.UserID] = true
		participants = append(participants, item.UserID)
	}
	return participants
}

// CalculateShares computes each participant's share of a bill:
//
//	share = total / len(participants) + sum(participant's own items)
//
// Participants are members with at least one assigned item. The bill total
// is not reduced by item amounts; surcharges are charged on top of the
// equal split. With zero participants no shares are computed.
func CalculateShares(total decimal.Decimal, items []Item) map[string]*Share {
	participants := Participants(items)
	if len(participants) == 0 {
		return map[string]*Share{}
	}

	base := total.Div(decimal.NewFromInt(int64(len(participants))))

	shares := make(map[string]*Share, len(participants))
	for _, p := range participants {
		shares[p] = &Share{UserID: p, Base: base, Surcharge: decimal.Zero}
	}

	for _, item := range items {
		share, ok := shares[item.UserID]
		if !ok {
			continue
		}
		share.Surcharge = share.Surcharge.Add(item.Amount)
		share.Items = append(share.Items, item)
	}

	for _, share := range shares {
		share.Total = share.Base.Add(share.Surcharge)
	}

	return shares
}

// Round rounds an amount to two decimal places for storage and display.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount with exactly two decimal places (e.g., "30.00").
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Number renders an amount as a float rounded to two decimal places, for
// JSON payloads that carry numeric amounts.
func Number(d decimal.Decimal) float64 {
	return Round(d).InexactFloat64()
}

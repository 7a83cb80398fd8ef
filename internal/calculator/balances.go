package calculator

import "github.com/shopspring/decimal"

// PaymentForBalance is the minimal view of a payment needed for balances.
type PaymentForBalance struct {
	UserID string
	Amount decimal.Decimal
}

// MemberBalance is one participant's standing on a bill.
type MemberBalance struct {
	UserID    string
	Owed      decimal.Decimal // The participant's share
	Paid      decimal.Decimal // Sum of the participant's payments
	Remaining decimal.Decimal // Owed - Paid, never below zero
}

// CalculateBalances combines computed shares with recorded payments.
// Payments from users without a share are ignored.
func CalculateBalances(shares map[string]*Share, payments []PaymentForBalance) map[string]*MemberBalance {
	balances := make(map[string]*MemberBalance, len(shares))
	for userID, share := range shares {
		balances[userID] = &MemberBalance{
			UserID: userID,
			Owed:   share.Total,
			Paid:   decimal.Zero,
		}
	}

	for _, p := range payments {
		if bal, ok := balances[p.UserID]; ok {
			bal.Paid = bal.Paid.Add(p.Amount)
		}
	}

	for _, bal := range balances {
		bal.Remaining = decimal.Max(bal.Owed.Sub(bal.Paid), decimal.Zero)
	}

	return balances
}

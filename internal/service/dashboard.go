package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/famsplit/internal/calculator"
	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/models"
)

// Allocation selects how a member's amount due is derived.
type Allocation struct {
	// Mode is config.AllocationSplit or config.AllocationFlat.
	Mode string
	Flat calculator.FlatTable
}

// dashboardView is the resolved amount due for one member. HasBill false
// means there is nothing to show, which is distinct from a zero amount.
type dashboardView struct {
	HasBill   bool
	Amount    decimal.Decimal
	IsDefault bool

	// Share is set when the amount was computed from Bill.
	Share     *calculator.Share
	Bill      *models.Bill
	Remaining decimal.Decimal
}

// resolveDashboard applies the allocation policy.
//
// In split mode the latest bill's computed share wins, then a flat
// override, otherwise no bill. In flat mode the override is used, falling
// back to a zero default. bill may be nil.
func (a Allocation) resolveDashboard(user *models.User, bill *models.Bill, payments []*models.Payment) dashboardView {
	override, hasOverride := a.Flat.Lookup(user.Username)

	if a.Mode == config.AllocationFlat {
		if hasOverride {
			return dashboardView{HasBill: true, Amount: override, Remaining: override}
		}
		return dashboardView{HasBill: true, Amount: decimal.Zero, Remaining: decimal.Zero, IsDefault: true}
	}

	if bill != nil {
		shares := calculator.CalculateShares(bill.TotalAmount, calculatorItems(bill.Items))
		if share, ok := shares[user.ID]; ok {
			balances := calculator.CalculateBalances(shares, calculatorPayments(payments))
			return dashboardView{
				HasBill:   true,
				Amount:    calculator.Round(share.Total),
				Share:     share,
				Bill:      bill,
				Remaining: calculator.Round(balances[user.ID].Remaining),
			}
		}
	}

	if hasOverride {
		return dashboardView{HasBill: true, Amount: override, Remaining: override}
	}
	return dashboardView{}
}

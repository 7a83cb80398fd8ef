package service

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/models"
)

func TestResolveDashboard(t *testing.T) {
	d := decimal.RequireFromString
	alice := &models.User{ID: "u1", Username: "alice"}
	bill := &models.Bill{
		ID:          "b1",
		TotalAmount: d("15"),
		Items: []models.BillItem{
			{ID: "i1", UserID: "u1", Amount: d("10")},
			{ID: "i2", UserID: "u1", Amount: d("5")},
		},
	}
	zeroBill := &models.Bill{
		ID:          "b2",
		TotalAmount: d("0"),
		Items:       []models.BillItem{{ID: "i3", UserID: "u1", Amount: d("0")}},
	}
	flat := map[string]decimal.Decimal{"alice": d("20.50")}

	tests := []struct {
		name        string
		allocation  Allocation
		bill        *models.Bill
		payments    []*models.Payment
		wantBill    bool
		wantAmount  string
		wantDefault bool
	}{
		{"split computed share", Allocation{Mode: config.AllocationSplit}, bill, nil, true, "30.00", false},
		{"split share beats override", Allocation{Mode: config.AllocationSplit, Flat: flat}, bill, nil, true, "30.00", false},
		{"split override without bill", Allocation{Mode: config.AllocationSplit, Flat: flat}, nil, nil, true, "20.50", false},
		{"split nothing", Allocation{Mode: config.AllocationSplit}, nil, nil, false, "", false},
		{"split zero bill is a bill", Allocation{Mode: config.AllocationSplit}, zeroBill, nil, true, "0.00", false},
		{"flat override", Allocation{Mode: config.AllocationFlat, Flat: flat}, bill, nil, true, "20.50", false},
		{"flat default", Allocation{Mode: config.AllocationFlat}, bill, nil, true, "0.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.allocation.resolveDashboard(alice, tt.bill, tt.payments)
			if view.HasBill != tt.wantBill {
				t.Fatalf("HasBill = %v, want %v", view.HasBill, tt.wantBill)
			}
			if !tt.wantBill {
				return
			}
			if got := view.Amount.StringFixed(2); got != tt.wantAmount {
				t.Errorf("Amount = %s, want %s", got, tt.wantAmount)
			}
			if view.IsDefault != tt.wantDefault {
				t.Errorf("IsDefault = %v, want %v", view.IsDefault, tt.wantDefault)
			}
		})
	}

	t.Run("remaining after payment", func(t *testing.T) {
		payments := []*models.Payment{{UserID: "u1", Amount: d("12.25")}}
		view := Allocation{Mode: config.AllocationSplit}.resolveDashboard(alice, bill, payments)
		if got := view.Remaining.StringFixed(2); got != "17.75" {
			t.Errorf("Remaining = %s, want 17.75", got)
		}
	})
}

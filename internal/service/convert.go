package service

import (
	"github.com/mmynk/famsplit/internal/calculator"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		Email:     u.Email,
		FamilyID:  u.FamilyID,
		CreatedAt: u.CreatedAt,
	}
}

func toAPIFamily(f *models.Family, members []*models.User) *api.Family {
	out := &api.Family{
		ID:        f.ID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
	}
	for _, m := range members {
		out.Members = append(out.Members, toAPIUser(m))
	}
	return out
}

func toAPIItem(item *models.BillItem) *api.BillItem {
	return &api.BillItem{
		ID:          item.ID,
		BillID:      item.BillID,
		UserID:      item.UserID,
		Description: item.Description,
		Amount:      calculator.Format(item.Amount),
		IsRecurring: item.IsRecurring,
		PaidAt:      item.PaidAt,
	}
}

func toAPIBill(b *models.Bill) *api.Bill {
	out := &api.Bill{
		ID:          b.ID,
		FamilyID:    b.FamilyID,
		CreatedBy:   b.CreatedBy,
		CycleMonth:  b.CycleMonth,
		TotalAmount: calculator.Format(b.TotalAmount),
		DueDate:     b.DueDate,
		PublishedAt: b.PublishedAt,
	}
	for i := range b.Items {
		out.Items = append(out.Items, toAPIItem(&b.Items[i]))
	}
	return out
}

func toAPIPayment(p *models.Payment) *api.Payment {
	return &api.Payment{
		ID:         p.ID,
		BillItemID: p.BillItemID,
		UserID:     p.UserID,
		Amount:     calculator.Format(p.Amount),
		PaidAt:     p.PaidAt,
	}
}

// calculatorItems converts bill items for allocation.
func calculatorItems(items []models.BillItem) []calculator.Item {
	out := make([]calculator.Item, len(items))
	for i, item := range items {
		out[i] = calculator.Item{
			UserID:      item.UserID,
			Description: item.Description,
			Amount:      item.Amount,
		}
	}
	return out
}

// calculatorPayments converts payments for balance computation.
func calculatorPayments(payments []*models.Payment) []calculator.PaymentForBalance {
	out := make([]calculator.PaymentForBalance, len(payments))
	for i, p := range payments {
		out[i] = calculator.PaymentForBalance{UserID: p.UserID, Amount: p.Amount}
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/famsplit/internal/calculator"
	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/notify"
	"github.com/mmynk/famsplit/internal/storage"
	"github.com/mmynk/famsplit/pkg/api"
	"github.com/mmynk/famsplit/pkg/api/apiconnect"
)

var _ apiconnect.BillServiceHandler = (*BillService)(nil)

// BillService implements the Connect BillService.
type BillService struct {
	store      storage.Store
	dispatcher *notify.Dispatcher
	publisher  events.Publisher
	allocation Allocation
	logger     *slog.Logger
	now        func() time.Time
}

// NewBillService creates a new BillService.
func NewBillService(store storage.Store, dispatcher *notify.Dispatcher, publisher events.Publisher, allocation Allocation, logger *slog.Logger) *BillService {
	return &BillService{
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
		allocation: allocation,
		logger:     logger,
		now:        time.Now,
	}
}

// PublishBill creates a bill for the manager's family and notifies every
// member before returning.
func (s *BillService) PublishBill(ctx context.Context, req *connect.Request[api.PublishBillRequest]) (*connect.Response[api.PublishBillResponse], error) {
	s.logger.Info("PublishBill request received", "family_id", req.Msg.FamilyID, "cycle_month", req.Msg.CycleMonth)

	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "PublishBill failed", err)
	}
	if err := requireManager(user); err != nil {
		return nil, fail(s.logger, "PublishBill denied", err, "user_id", user.ID)
	}

	bill, err := s.validateBill(req.Msg)
	if err != nil {
		return nil, fail(s.logger, "PublishBill invalid", err)
	}
	if err := requireFamily(user, bill.FamilyID); err != nil {
		return nil, fail(s.logger, "PublishBill denied", err, "user_id", user.ID, "family_id", bill.FamilyID)
	}
	members, err := s.store.ListFamilyMembers(ctx, bill.FamilyID)
	if err != nil {
		return nil, fail(s.logger, "Failed to list members", err, "family_id", bill.FamilyID)
	}

	bill.CreatedBy = user.ID
	bill.PublishedAt = s.now().Unix()

	if err := s.store.CreateBill(ctx, bill); err != nil {
		return nil, fail(s.logger, "PublishBill failed", err, "family_id", bill.FamilyID)
	}

	subject := billSubject(bill)
	if err := s.dispatcher.NotifyFamily(ctx, bill, members, subject, s.billBody(bill)); err != nil {
		// The bill is already persisted; audit gaps are logged, not surfaced.
		s.logger.Error("Notification log incomplete", "bill_id", bill.ID, "error", err)
	}

	s.logger.Info("Bill published", "bill_id", bill.ID, "family_id", bill.FamilyID, "total", calculator.Format(bill.TotalAmount))
	return connect.NewResponse(&api.PublishBillResponse{
		Bill:     toAPIBill(bill),
		Notified: len(members),
	}), nil
}

func (s *BillService) validateBill(msg *api.PublishBillRequest) (*models.Bill, error) {
	if msg.FamilyID == "" {
		return nil, invalidf("family_id is required")
	}
	total, err := parseAmount("total_amount", strings.TrimSpace(msg.TotalAmount), decimal.Zero)
	if err != nil {
		return nil, err
	}
	dueDate := strings.TrimSpace(msg.DueDate)
	if dueDate != "" {
		if _, err := time.Parse(time.DateOnly, dueDate); err != nil {
			return nil, invalidf("due_date must be YYYY-MM-DD")
		}
	}
	return &models.Bill{
		FamilyID:    msg.FamilyID,
		CycleMonth:  strings.TrimSpace(msg.CycleMonth),
		TotalAmount: calculator.Round(total),
		DueDate:     dueDate,
	}, nil
}

func billSubject(bill *models.Bill) string {
	if bill.CycleMonth != "" {
		return "New bill for " + bill.CycleMonth
	}
	return "New bill published"
}

// billBody renders the per-member email. Items are usually attached after
// publishing, so the body points at the dashboard unless a flat amount
// already applies.
func (s *BillService) billBody(bill *models.Bill) notify.BodyFunc {
	return func(member *models.User) string {
		var b strings.Builder
		fmt.Fprintf(&b, "Hi %s,\n\nA new bill totalling %s has been published", member.Username, calculator.Format(bill.TotalAmount))
		if bill.DueDate != "" {
			fmt.Fprintf(&b, ", due %s", bill.DueDate)
		}
		b.WriteString(".\n")
		if amount, ok := s.allocation.Flat.Lookup(member.Username); ok {
			fmt.Fprintf(&b, "Your fixed amount is %s.\n", calculator.Format(amount))
		} else {
			b.WriteString("Your share is on your dashboard.\n")
		}
		return b.String()
	}
}

// AddItem attaches a surcharge or shared line item to a bill.
func (s *BillService) AddItem(ctx context.Context, req *connect.Request[api.AddItemRequest]) (*connect.Response[api.AddItemResponse], error) {
	s.logger.Info("AddItem request received", "bill_id", req.Msg.BillID, "user_id", req.Msg.UserID)

	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "AddItem failed", err)
	}
	if err := requireManager(user); err != nil {
		return nil, fail(s.logger, "AddItem denied", err, "user_id", user.ID)
	}

	description := strings.TrimSpace(req.Msg.Description)
	if description == "" {
		return nil, fail(s.logger, "AddItem invalid", invalidf("description is required"))
	}
	if strings.TrimSpace(req.Msg.Amount) == "" {
		return nil, fail(s.logger, "AddItem invalid", invalidf("amount is required"))
	}
	amount, err := parseAmount("amount", strings.TrimSpace(req.Msg.Amount), decimal.Zero)
	if err != nil {
		return nil, fail(s.logger, "AddItem invalid", err)
	}

	bill, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, fail(s.logger, "AddItem failed", err, "bill_id", req.Msg.BillID)
	}
	if err := requireFamily(user, bill.FamilyID); err != nil {
		return nil, fail(s.logger, "AddItem denied", err, "user_id", user.ID, "bill_id", bill.ID)
	}

	if req.Msg.UserID != "" {
		assignee, err := s.store.GetUserByID(ctx, req.Msg.UserID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && assignee.FamilyID != bill.FamilyID) {
			return nil, fail(s.logger, "AddItem invalid", invalidf("user %s is not a member of this family", req.Msg.UserID))
		}
		if err != nil {
			return nil, fail(s.logger, "AddItem failed", err)
		}
	}

	item := &models.BillItem{
		BillID:      bill.ID,
		UserID:      req.Msg.UserID,
		Description: description,
		Amount:      calculator.Round(amount),
		IsRecurring: req.Msg.IsRecurring,
	}
	if err := s.store.AddBillItem(ctx, item); err != nil {
		return nil, fail(s.logger, "AddItem failed", err, "bill_id", bill.ID)
	}

	s.publish(events.TypeBillItemAdded, map[string]any{
		"bill_id":   bill.ID,
		"family_id": bill.FamilyID,
		"item_id":   item.ID,
		"user_id":   item.UserID,
		"amount":    calculator.Number(item.Amount),
	})

	s.logger.Info("Item added", "bill_id", bill.ID, "item_id", item.ID)
	return connect.NewResponse(&api.AddItemResponse{Item: toAPIItem(item)}), nil
}

// GetBill returns a bill with its items and every participant's share.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "GetBill failed", err)
	}

	bill, err := s.store.GetBill(ctx, req.Msg.BillID)
	if err != nil {
		return nil, fail(s.logger, "GetBill failed", err, "bill_id", req.Msg.BillID)
	}
	if err := requireFamily(user, bill.FamilyID); err != nil {
		return nil, fail(s.logger, "GetBill denied", err, "user_id", user.ID, "bill_id", bill.ID)
	}

	payments, err := s.store.ListPaymentsByBill(ctx, bill.ID)
	if err != nil {
		return nil, fail(s.logger, "Failed to list payments", err, "bill_id", bill.ID)
	}

	items := calculatorItems(bill.Items)
	shares := calculator.CalculateShares(bill.TotalAmount, items)
	balances := calculator.CalculateBalances(shares, calculatorPayments(payments))

	var apiShares []*api.Share
	for _, userID := range calculator.Participants(items) {
		share, bal := shares[userID], balances[userID]
		apiShares = append(apiShares, &api.Share{
			UserID:    userID,
			Base:      calculator.Format(share.Base),
			Surcharge: calculator.Format(share.Surcharge),
			Total:     calculator.Format(share.Total),
			Paid:      calculator.Format(bal.Paid),
			Remaining: calculator.Format(bal.Remaining),
		})
	}

	return connect.NewResponse(&api.GetBillResponse{Bill: toAPIBill(bill), Shares: apiShares}), nil
}

// RecordPayment records the caller paying one of their own items or a
// shared, unassigned item.
func (s *BillService) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.RecordPaymentResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "RecordPayment failed", err)
	}

	item, err := s.store.GetBillItem(ctx, req.Msg.BillItemID)
	if err != nil {
		return nil, fail(s.logger, "RecordPayment failed", err, "bill_item_id", req.Msg.BillItemID)
	}
	bill, err := s.store.GetBill(ctx, item.BillID)
	if err != nil {
		return nil, fail(s.logger, "RecordPayment failed", err, "bill_id", item.BillID)
	}
	if err := requireFamily(user, bill.FamilyID); err != nil {
		return nil, fail(s.logger, "RecordPayment denied", err, "user_id", user.ID, "bill_id", bill.ID)
	}
	if item.UserID != "" && item.UserID != user.ID {
		return nil, fail(s.logger, "RecordPayment denied", ErrNotYourItem, "user_id", user.ID, "bill_item_id", item.ID)
	}

	amount, err := parseAmount("amount", strings.TrimSpace(req.Msg.Amount), item.Amount)
	if err != nil {
		return nil, fail(s.logger, "RecordPayment invalid", err)
	}
	if !amount.IsPositive() {
		return nil, fail(s.logger, "RecordPayment invalid", invalidf("amount must be positive"))
	}

	payment := &models.Payment{
		BillItemID: item.ID,
		UserID:     user.ID,
		Amount:     calculator.Round(amount),
		PaidAt:     s.now().Unix(),
	}
	if err := s.store.RecordPayment(ctx, payment); err != nil {
		return nil, fail(s.logger, "RecordPayment failed", err, "bill_item_id", item.ID)
	}

	s.publish(events.TypePaymentRecorded, map[string]any{
		"bill_id":      bill.ID,
		"family_id":    bill.FamilyID,
		"bill_item_id": item.ID,
		"user_id":      user.ID,
		"amount":       calculator.Number(payment.Amount),
	})

	s.logger.Info("Payment recorded", "payment_id", payment.ID, "bill_item_id", item.ID, "user_id", user.ID)
	return connect.NewResponse(&api.RecordPaymentResponse{Payment: toAPIPayment(payment)}), nil
}

// GetDashboard returns the caller's amount due on their family's latest
// bill, or state "no_bill" when there is nothing to show.
func (s *BillService) GetDashboard(ctx context.Context, req *connect.Request[api.GetDashboardRequest]) (*connect.Response[api.GetDashboardResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "GetDashboard failed", err)
	}

	var (
		bill     *models.Bill
		payments []*models.Payment
	)
	if user.FamilyID != "" {
		bill, err = s.store.GetLatestBill(ctx, user.FamilyID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			bill = nil
		case err != nil:
			return nil, fail(s.logger, "GetDashboard failed", err, "family_id", user.FamilyID)
		default:
			payments, err = s.store.ListPaymentsByBill(ctx, bill.ID)
			if err != nil {
				return nil, fail(s.logger, "Failed to list payments", err, "bill_id", bill.ID)
			}
		}
	}

	view := s.allocation.resolveDashboard(user, bill, payments)
	if !view.HasBill {
		return connect.NewResponse(&api.GetDashboardResponse{State: api.DashboardStateNoBill}), nil
	}

	resp := &api.GetDashboardResponse{
		State:     api.DashboardStateBill,
		Amount:    calculator.Format(view.Amount),
		IsDefault: view.IsDefault,
		Remaining: calculator.Format(view.Remaining),
	}
	if view.Bill != nil {
		header := *view.Bill
		header.Items = nil
		resp.Bill = toAPIBill(&header)
		for i := range view.Bill.Items {
			if view.Bill.Items[i].UserID == user.ID {
				resp.Items = append(resp.Items, toAPIItem(&view.Bill.Items[i]))
			}
		}
	}
	return connect.NewResponse(resp), nil
}

func (s *BillService) publish(eventType string, fields map[string]any) {
	if s.publisher == nil {
		return
	}
	payload, err := events.Encode(eventType, fields)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", eventType, "error", err)
		return
	}
	s.publisher.Publish(payload)
}

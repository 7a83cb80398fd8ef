package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/calculator"
	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/middleware"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/notify"
	"github.com/mmynk/famsplit/internal/storage"
	"github.com/mmynk/famsplit/pkg/api"
)

func TestPublishBillNotifiesEveryMember(t *testing.T) {
	h := setupTestServer(t, Allocation{})
	ctx := context.Background()

	manager, familyID, _ := h.setupFamily(t, "alice", "bob")

	// A member without an email still gets an audit row.
	carol := models.NewUser("carol", "hash", models.RoleMember)
	carol.FamilyID = familyID
	if err := h.store.CreateUser(ctx, carol); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	h.mailbox.mu.Lock()
	h.mailbox.fail = true
	h.mailbox.to = nil
	h.mailbox.mu.Unlock()

	resp, err := h.bill.PublishBill(ctx, withToken(manager.token, &api.PublishBillRequest{
		FamilyID:    familyID,
		CycleMonth:  "2025-06",
		TotalAmount: "120",
		DueDate:     "2025-06-30",
	}))
	if err != nil {
		t.Fatalf("PublishBill failed despite transport failures: %v", err)
	}
	bill := resp.Msg.Bill
	if bill.TotalAmount != "120.00" || bill.CreatedBy != manager.user.ID {
		t.Errorf("unexpected bill: %+v", bill)
	}
	if resp.Msg.Notified != 4 {
		t.Errorf("Notified = %d, want 4", resp.Msg.Notified)
	}

	logs, err := h.store.ListNotificationLogs(ctx, bill.ID)
	if err != nil {
		t.Fatalf("ListNotificationLogs failed: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("got %d notification logs, want 4", len(logs))
	}
	for _, entry := range logs {
		if entry.Message != "New bill for 2025-06" {
			t.Errorf("Message = %q", entry.Message)
		}
	}

	h.mailbox.mu.Lock()
	attempts := len(h.mailbox.to)
	h.mailbox.mu.Unlock()
	if attempts != 3 {
		t.Errorf("send attempts = %d, want 3 (carol has no email)", attempts)
	}
}

// membersUnavailable fails every member lookup.
type membersUnavailable struct {
	storage.Store
}

func (membersUnavailable) ListFamilyMembers(context.Context, string) ([]*models.User, error) {
	return nil, errors.New("database is locked")
}

func TestPublishBillWritesNothingWhenMembersUnavailable(t *testing.T) {
	h := setupTestServer(t, Allocation{})
	manager, familyID, _ := h.setupFamily(t, "alice")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := membersUnavailable{Store: h.store}
	svc := NewBillService(store, notify.NewDispatcher(h.store, nil, nil, logger), nil, Allocation{}, logger)

	ctx := middleware.WithClaims(context.Background(), &auth.Claims{
		UserID:   manager.user.ID,
		Username: manager.user.Username,
		Role:     manager.user.Role,
	})
	_, err := svc.PublishBill(ctx, connect.NewRequest(&api.PublishBillRequest{FamilyID: familyID, TotalAmount: "50"}))
	assertCode(t, err, connect.CodeInternal)

	bills, err := h.store.ListBillsByFamily(context.Background(), familyID)
	if err != nil {
		t.Fatalf("ListBillsByFamily failed: %v", err)
	}
	if len(bills) != 0 {
		t.Errorf("failed publish left %d bills behind", len(bills))
	}
}

func TestPublishBillValidation(t *testing.T) {
	h := setupTestServer(t, Allocation{})
	ctx := context.Background()
	manager, familyID, members := h.setupFamily(t, "alice")

	tests := []struct {
		name  string
		token string
		req   *api.PublishBillRequest
		want  connect.Code
	}{
		{"member", members[0].token, &api.PublishBillRequest{FamilyID: familyID}, connect.CodePermissionDenied},
		{"anonymous", "", &api.PublishBillRequest{FamilyID: familyID}, connect.CodeUnauthenticated},
		{"missing family", manager.token, &api.PublishBillRequest{}, connect.CodeInvalidArgument},
		{"other family", manager.token, &api.PublishBillRequest{FamilyID: "nope"}, connect.CodePermissionDenied},
		{"negative total", manager.token, &api.PublishBillRequest{FamilyID: familyID, TotalAmount: "-5"}, connect.CodeInvalidArgument},
		{"bad total", manager.token, &api.PublishBillRequest{FamilyID: familyID, TotalAmount: "lots"}, connect.CodeInvalidArgument},
		{"bad due date", manager.token, &api.PublishBillRequest{FamilyID: familyID, DueDate: "30/06/2025"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.bill.PublishBill(ctx, withToken(tt.token, tt.req))
			assertCode(t, err, tt.want)
		})
	}

	bills, err := h.store.ListBillsByFamily(ctx, familyID)
	if err != nil {
		t.Fatalf("ListBillsByFamily failed: %v", err)
	}
	if len(bills) != 0 {
		t.Errorf("rejected requests wrote %d bills", len(bills))
	}
}

func TestDashboardSplitMode(t *testing.T) {
	flat, err := calculator.ParseFlatTable(map[string]string{"bob": "12.5"})
	if err != nil {
		t.Fatalf("ParseFlatTable failed: %v", err)
	}
	h := setupTestServer(t, Allocation{Mode: config.AllocationSplit, Flat: flat})
	ctx := context.Background()
	manager, familyID, members := h.setupFamily(t, "alice", "bob", "carol")
	alice, bob, carol := members[0], members[1], members[2]

	dashboard := func(s session) *api.GetDashboardResponse {
		t.Helper()
		resp, err := h.bill.GetDashboard(ctx, withToken(s.token, &api.GetDashboardRequest{}))
		if err != nil {
			t.Fatalf("GetDashboard failed: %v", err)
		}
		return resp.Msg
	}

	if got := dashboard(alice); got.State != api.DashboardStateNoBill {
		t.Errorf("before publishing: State = %q, want no_bill", got.State)
	}

	pub, err := h.bill.PublishBill(ctx, withToken(manager.token, &api.PublishBillRequest{FamilyID: familyID, TotalAmount: "15"}))
	if err != nil {
		t.Fatalf("PublishBill failed: %v", err)
	}
	billID := pub.Msg.Bill.ID

	for _, item := range []*api.AddItemRequest{
		{BillID: billID, UserID: alice.user.ID, Description: "cell", Amount: "10"},
		{BillID: billID, UserID: alice.user.ID, Description: "addon", Amount: "5"},
		{BillID: billID, Description: "shared router", Amount: "40"},
	} {
		if _, err := h.bill.AddItem(ctx, withToken(manager.token, item)); err != nil {
			t.Fatalf("AddItem failed: %v", err)
		}
	}

	got := dashboard(alice)
	if got.State != api.DashboardStateBill || got.Amount != "30.00" {
		t.Errorf("alice: State = %q Amount = %q, want bill 30.00", got.State, got.Amount)
	}
	if len(got.Items) != 2 || got.Bill == nil || got.Bill.ID != billID {
		t.Errorf("alice: unexpected items %v or bill %v", got.Items, got.Bill)
	}

	if got := dashboard(bob); got.State != api.DashboardStateBill || got.Amount != "12.50" {
		t.Errorf("bob: State = %q Amount = %q, want flat 12.50", got.State, got.Amount)
	}
	if got := dashboard(carol); got.State != api.DashboardStateNoBill {
		t.Errorf("carol: State = %q, want no_bill", got.State)
	}

	t.Run("payments reduce remaining", func(t *testing.T) {
		detail, err := h.bill.GetBill(ctx, withToken(alice.token, &api.GetBillRequest{BillID: billID}))
		if err != nil {
			t.Fatalf("GetBill failed: %v", err)
		}
		if len(detail.Msg.Shares) != 1 || detail.Msg.Shares[0].Total != "30.00" {
			t.Fatalf("unexpected shares: %+v", detail.Msg.Shares)
		}

		var cell *api.BillItem
		for _, item := range detail.Msg.Bill.Items {
			if item.Description == "cell" {
				cell = item
			}
		}
		if _, err := h.bill.RecordPayment(ctx, withToken(alice.token, &api.RecordPaymentRequest{BillItemID: cell.ID})); err != nil {
			t.Fatalf("RecordPayment failed: %v", err)
		}

		got := dashboard(alice)
		if got.Amount != "30.00" || got.Remaining != "20.00" {
			t.Errorf("Amount = %q Remaining = %q, want 30.00 / 20.00", got.Amount, got.Remaining)
		}

		_, err = h.bill.RecordPayment(ctx, withToken(bob.token, &api.RecordPaymentRequest{BillItemID: cell.ID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})
}

func TestDashboardFlatMode(t *testing.T) {
	flat, err := calculator.ParseFlatTable(map[string]string{"Alice": "20.5"})
	if err != nil {
		t.Fatalf("ParseFlatTable failed: %v", err)
	}
	h := setupTestServer(t, Allocation{Mode: config.AllocationFlat, Flat: flat})
	ctx := context.Background()
	_, _, members := h.setupFamily(t, "alice", "bob")

	tests := []struct {
		name        string
		s           session
		wantAmount  string
		wantDefault bool
	}{
		{"override", members[0], "20.50", false},
		{"zero default", members[1], "0.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.bill.GetDashboard(ctx, withToken(tt.s.token, &api.GetDashboardRequest{}))
			if err != nil {
				t.Fatalf("GetDashboard failed: %v", err)
			}
			if resp.Msg.State != api.DashboardStateBill {
				t.Errorf("State = %q, want bill", resp.Msg.State)
			}
			if resp.Msg.Amount != tt.wantAmount || resp.Msg.IsDefault != tt.wantDefault {
				t.Errorf("Amount = %q IsDefault = %v, want %q %v", resp.Msg.Amount, resp.Msg.IsDefault, tt.wantAmount, tt.wantDefault)
			}
		})
	}
}

func TestAddItemValidation(t *testing.T) {
	h := setupTestServer(t, Allocation{})
	ctx := context.Background()
	manager, familyID, members := h.setupFamily(t, "alice")

	pub, err := h.bill.PublishBill(ctx, withToken(manager.token, &api.PublishBillRequest{FamilyID: familyID}))
	if err != nil {
		t.Fatalf("PublishBill failed: %v", err)
	}
	billID := pub.Msg.Bill.ID

	tests := []struct {
		name  string
		token string
		req   *api.AddItemRequest
		want  connect.Code
	}{
		{"member", members[0].token, &api.AddItemRequest{BillID: billID, Description: "x", Amount: "1"}, connect.CodePermissionDenied},
		{"missing description", manager.token, &api.AddItemRequest{BillID: billID, Amount: "1"}, connect.CodeInvalidArgument},
		{"missing amount", manager.token, &api.AddItemRequest{BillID: billID, Description: "x"}, connect.CodeInvalidArgument},
		{"unknown bill", manager.token, &api.AddItemRequest{BillID: "nope", Description: "x", Amount: "1"}, connect.CodeNotFound},
		{"unknown assignee", manager.token, &api.AddItemRequest{BillID: billID, UserID: "nope", Description: "x", Amount: "1"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.bill.AddItem(ctx, withToken(tt.token, tt.req))
			assertCode(t, err, tt.want)
		})
	}
}

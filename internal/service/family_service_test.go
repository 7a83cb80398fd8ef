package service

import (
	"context"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/pkg/api"
)

func TestFamilyService(t *testing.T) {
	h := setupTestServer(t, Allocation{})
	ctx := context.Background()

	manager, familyID, members := h.setupFamily(t, "alice")
	alice := members[0]

	t.Run("manager joined the family", func(t *testing.T) {
		resp, err := h.family.GetFamily(ctx, withToken(manager.token, &api.GetFamilyRequest{}))
		if err != nil {
			t.Fatalf("GetFamily failed: %v", err)
		}
		if resp.Msg.Family.ID != familyID {
			t.Errorf("Family.ID = %s, want %s", resp.Msg.Family.ID, familyID)
		}
		var names []string
		for _, m := range resp.Msg.Family.Members {
			names = append(names, m.Username)
		}
		if strings.Join(names, ",") != "manager,alice" {
			t.Errorf("members = %v, want [manager alice]", names)
		}
	})

	t.Run("accepted member is bound to the family", func(t *testing.T) {
		if alice.user.FamilyID != familyID || alice.user.Role != "member" {
			t.Errorf("unexpected member: %+v", alice.user)
		}
		if alice.user.Email != "alice@example.com" {
			t.Errorf("Email = %q", alice.user.Email)
		}
	})

	t.Run("invite emails a link", func(t *testing.T) {
		resp, err := h.family.InviteMember(ctx, withToken(manager.token, &api.InviteMemberRequest{Email: "bob@example.com"}))
		if err != nil {
			t.Fatalf("InviteMember failed: %v", err)
		}
		if !strings.HasPrefix(resp.Msg.Link, "http://localhost/invite?token=") {
			t.Errorf("Link = %q", resp.Msg.Link)
		}
		h.mailbox.mu.Lock()
		last := h.mailbox.to[len(h.mailbox.to)-1]
		h.mailbox.mu.Unlock()
		if last != "bob@example.com" {
			t.Errorf("last mail to %q, want bob@example.com", last)
		}
	})

	t.Run("re-accepting an invitation", func(t *testing.T) {
		inv, err := h.family.InviteMember(ctx, withToken(manager.token, &api.InviteMemberRequest{Email: "dave@example.com"}))
		if err != nil {
			t.Fatalf("InviteMember failed: %v", err)
		}
		accept := func(username string) error {
			_, err := h.family.AcceptInvite(ctx, connect.NewRequest(&api.AcceptInviteRequest{
				Token: inv.Msg.Token, Username: username, Password: "password123",
			}))
			return err
		}
		if err := accept("dave"); err != nil {
			t.Fatalf("first accept failed: %v", err)
		}
		assertCode(t, accept("dave"), connect.CodeAlreadyExists)
		assertCode(t, accept("david"), connect.CodeFailedPrecondition)
	})

	t.Run("permission and validation", func(t *testing.T) {
		tests := []struct {
			name string
			call func() error
			want connect.Code
		}{
			{"member cannot create family", func() error {
				_, err := h.family.CreateFamily(ctx, withToken(alice.token, &api.CreateFamilyRequest{Name: "Mine"}))
				return err
			}, connect.CodePermissionDenied},
			{"member cannot invite", func() error {
				_, err := h.family.InviteMember(ctx, withToken(alice.token, &api.InviteMemberRequest{Email: "x@example.com"}))
				return err
			}, connect.CodePermissionDenied},
			{"anonymous cannot read family", func() error {
				_, err := h.family.GetFamily(ctx, connect.NewRequest(&api.GetFamilyRequest{FamilyID: familyID}))
				return err
			}, connect.CodeUnauthenticated},
			{"empty family name", func() error {
				_, err := h.family.CreateFamily(ctx, withToken(manager.token, &api.CreateFamilyRequest{Name: " "}))
				return err
			}, connect.CodeInvalidArgument},
			{"invite without email", func() error {
				_, err := h.family.InviteMember(ctx, withToken(manager.token, &api.InviteMemberRequest{}))
				return err
			}, connect.CodeInvalidArgument},
			{"invite registered email", func() error {
				_, err := h.family.InviteMember(ctx, withToken(manager.token, &api.InviteMemberRequest{Email: "alice@example.com"}))
				return err
			}, connect.CodeAlreadyExists},
			{"accept garbage token", func() error {
				_, err := h.family.AcceptInvite(ctx, connect.NewRequest(&api.AcceptInviteRequest{Token: "garbage", Username: "x", Password: "password123"}))
				return err
			}, connect.CodeInvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assertCode(t, tt.call(), tt.want)
			})
		}
	})

	t.Run("outsider cannot read family", func(t *testing.T) {
		other := h.register(t, "outsider", "manager", "")
		_, err := h.family.CreateFamily(ctx, withToken(other.token, &api.CreateFamilyRequest{Name: "Joneses"}))
		if err != nil {
			t.Fatalf("CreateFamily failed: %v", err)
		}
		_, err = h.family.GetFamily(ctx, withToken(other.token, &api.GetFamilyRequest{FamilyID: familyID}))
		assertCode(t, err, connect.CodePermissionDenied)
	})
}

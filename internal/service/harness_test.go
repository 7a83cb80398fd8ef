package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/internal/invite"
	"github.com/mmynk/famsplit/internal/mail"
	"github.com/mmynk/famsplit/internal/middleware"
	"github.com/mmynk/famsplit/internal/notify"
	"github.com/mmynk/famsplit/internal/storage/sqlite"
	"github.com/mmynk/famsplit/pkg/api"
	"github.com/mmynk/famsplit/pkg/api/apiconnect"
)

// mailbox records sends and optionally fails every one of them.
type mailbox struct {
	mu   sync.Mutex
	to   []string
	fail bool
}

func (m *mailbox) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	return nil
}

type harness struct {
	store    *sqlite.SQLiteStore
	registry *events.Registry
	mailbox  *mailbox

	auth   apiconnect.AuthServiceClient
	family apiconnect.FamilyServiceClient
	bill   apiconnect.BillServiceClient
	events apiconnect.EventServiceClient
}

// setupTestServer wires every service against a temp-file SQLite database
// behind an httptest server.
func setupTestServer(t *testing.T, allocation Allocation) *harness {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := events.NewRegistry(0)
	box := &mailbox{}
	var sender mail.Sender = box

	jwtManager := auth.NewJWTManager("session-secret", time.Hour)
	invites := invite.NewService(store, sender, config.Invite{
		Secret:  "invite-secret",
		MaxAge:  72 * time.Hour,
		BaseURL: "http://localhost/invite",
	}, logger, invite.WithPublisher(registry))
	dispatcher := notify.NewDispatcher(store, sender, registry, logger)

	optional := connect.WithInterceptors(middleware.OptionalAuth(jwtManager))
	required := connect.WithInterceptors(middleware.RequireAuth(jwtManager))

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger), optional))
	mux.Handle(apiconnect.NewFamilyServiceHandler(NewFamilyService(store, invites, jwtManager, logger), optional))
	mux.Handle(apiconnect.NewBillServiceHandler(NewBillService(store, dispatcher, registry, allocation, logger), required))
	mux.Handle(apiconnect.NewEventServiceHandler(NewEventService(registry, logger), required))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		registry.Close()
		server.Close()
		store.Close()
	})

	return &harness{
		store:    store,
		registry: registry,
		mailbox:  box,
		auth:     apiconnect.NewAuthServiceClient(server.Client(), server.URL),
		family:   apiconnect.NewFamilyServiceClient(server.Client(), server.URL),
		bill:     apiconnect.NewBillServiceClient(server.Client(), server.URL),
		events:   apiconnect.NewEventServiceClient(server.Client(), server.URL),
	}
}

// withToken builds a request carrying a bearer session token.
func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

type session struct {
	user  *api.User
	token string
}

func (h *harness) register(t *testing.T, username, role, email string) session {
	t.Helper()
	resp, err := h.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Username: username,
		Password: "password123",
		Role:     role,
		Email:    email,
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", username, err)
	}
	return session{user: resp.Msg.User, token: resp.Msg.Token}
}

// setupFamily registers a manager, creates a family and brings in
// members by invitation. Members are returned in join order.
func (h *harness) setupFamily(t *testing.T, memberNames ...string) (session, string, []session) {
	t.Helper()
	ctx := context.Background()

	manager := h.register(t, "manager", "manager", "manager@example.com")
	famResp, err := h.family.CreateFamily(ctx, withToken(manager.token, &api.CreateFamilyRequest{Name: "Smiths"}))
	if err != nil {
		t.Fatalf("CreateFamily failed: %v", err)
	}
	familyID := famResp.Msg.Family.ID

	var members []session
	for _, name := range memberNames {
		invResp, err := h.family.InviteMember(ctx, withToken(manager.token, &api.InviteMemberRequest{Email: name + "@example.com"}))
		if err != nil {
			t.Fatalf("InviteMember(%s) failed: %v", name, err)
		}
		accResp, err := h.family.AcceptInvite(ctx, connect.NewRequest(&api.AcceptInviteRequest{
			Token:    invResp.Msg.Token,
			Username: name,
			Password: "password123",
		}))
		if err != nil {
			t.Fatalf("AcceptInvite(%s) failed: %v", name, err)
		}
		members = append(members, session{user: accResp.Msg.User, token: accResp.Msg.Token})
	}
	return manager, familyID, members
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Errorf("code = %v, want %v (err: %v)", got, want, err)
	}
}

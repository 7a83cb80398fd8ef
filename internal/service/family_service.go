package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/invite"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
	"github.com/mmynk/famsplit/pkg/api"
	"github.com/mmynk/famsplit/pkg/api/apiconnect"
)

var _ apiconnect.FamilyServiceHandler = (*FamilyService)(nil)

// FamilyService implements the Connect FamilyService.
type FamilyService struct {
	store      storage.Store
	invites    *invite.Service
	jwtManager *auth.JWTManager
	logger     *slog.Logger
}

// NewFamilyService creates a new FamilyService.
func NewFamilyService(store storage.Store, invites *invite.Service, jwtManager *auth.JWTManager, logger *slog.Logger) *FamilyService {
	return &FamilyService{
		store:      store,
		invites:    invites,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// CreateFamily creates a family. The calling manager joins it if they
// are not in a family yet.
func (s *FamilyService) CreateFamily(ctx context.Context, req *connect.Request[api.CreateFamilyRequest]) (*connect.Response[api.CreateFamilyResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "CreateFamily failed", err)
	}
	if err := requireManager(user); err != nil {
		return nil, fail(s.logger, "CreateFamily denied", err, "user_id", user.ID)
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, fail(s.logger, "CreateFamily invalid", invalidf("name is required"))
	}

	family := &models.Family{Name: name}
	if err := s.store.CreateFamily(ctx, family); err != nil {
		return nil, fail(s.logger, "CreateFamily failed", err)
	}

	if user.FamilyID == "" {
		if err := s.store.SetUserFamily(ctx, user.ID, family.ID); err != nil {
			return nil, fail(s.logger, "Failed to join family", err, "family_id", family.ID)
		}
	}

	members, err := s.store.ListFamilyMembers(ctx, family.ID)
	if err != nil {
		return nil, fail(s.logger, "Failed to list members", err, "family_id", family.ID)
	}

	s.logger.Info("Family created", "family_id", family.ID, "name", family.Name, "manager_id", user.ID)
	return connect.NewResponse(&api.CreateFamilyResponse{Family: toAPIFamily(family, members)}), nil
}

// GetFamily returns a family with its members. Only members may read it.
func (s *FamilyService) GetFamily(ctx context.Context, req *connect.Request[api.GetFamilyRequest]) (*connect.Response[api.GetFamilyResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "GetFamily failed", err)
	}

	familyID := req.Msg.FamilyID
	if familyID == "" {
		familyID = user.FamilyID
	}
	if err := requireFamily(user, familyID); err != nil {
		return nil, fail(s.logger, "GetFamily denied", err, "user_id", user.ID, "family_id", familyID)
	}

	family, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		return nil, fail(s.logger, "GetFamily failed", err, "family_id", familyID)
	}
	members, err := s.store.ListFamilyMembers(ctx, familyID)
	if err != nil {
		return nil, fail(s.logger, "Failed to list members", err, "family_id", familyID)
	}

	return connect.NewResponse(&api.GetFamilyResponse{Family: toAPIFamily(family, members)}), nil
}

// InviteMember emails an invitation to join the manager's family.
func (s *FamilyService) InviteMember(ctx context.Context, req *connect.Request[api.InviteMemberRequest]) (*connect.Response[api.InviteMemberResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "InviteMember failed", err)
	}
	if err := requireManager(user); err != nil {
		return nil, fail(s.logger, "InviteMember denied", err, "user_id", user.ID)
	}

	familyID := req.Msg.FamilyID
	if familyID == "" {
		familyID = user.FamilyID
	}
	if err := requireFamily(user, familyID); err != nil {
		return nil, fail(s.logger, "InviteMember denied", err, "user_id", user.ID, "family_id", familyID)
	}

	inv, err := s.invites.Create(ctx, familyID, req.Msg.Email)
	if err != nil {
		return nil, fail(s.logger, "InviteMember failed", err, "family_id", familyID)
	}

	return connect.NewResponse(&api.InviteMemberResponse{
		InvitationID: inv.ID,
		Email:        inv.Email,
		Token:        inv.Token,
		Link:         s.invites.Link(inv.Token),
	}), nil
}

// AcceptInvite redeems an invitation token and signs the new member in.
// It does not require authentication.
func (s *FamilyService) AcceptInvite(ctx context.Context, req *connect.Request[api.AcceptInviteRequest]) (*connect.Response[api.AcceptInviteResponse], error) {
	if req.Msg.Token == "" {
		return nil, fail(s.logger, "AcceptInvite invalid", invalidf("token is required"))
	}

	user, err := s.invites.Accept(ctx, req.Msg.Token, req.Msg.Username, req.Msg.Password)
	if err != nil {
		return nil, fail(s.logger, "AcceptInvite failed", err, "username", req.Msg.Username)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, fail(s.logger, "Failed to generate token", fmt.Errorf("session for %s: %w", user.ID, err))
	}

	resp := connect.NewResponse(&api.AcceptInviteResponse{User: toAPIUser(user), Token: token})
	setSessionCookie(resp.Header(), token, s.jwtManager.TTL())
	return resp, nil
}

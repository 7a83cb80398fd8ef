// Package invite implements family invitations: signed, time-limited
// tokens that are emailed to a prospective member and redeemed to create
// their account.
package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/config"
	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/internal/mail"
	"github.com/mmynk/famsplit/internal/metrics"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
)

var (
	ErrTokenInvalid    = errors.New("invalid invitation token")
	ErrTokenExpired    = errors.New("invitation token expired")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrAlreadyAccepted = errors.New("invitation already accepted")
	ErrEmailRequired   = errors.New("email is required")
	ErrEmailInvalid    = errors.New("email is not a valid address")
	ErrEmailRegistered = errors.New("email already registered")
)

// Store is the subset of storage.Store the invitation flow uses.
type Store interface {
	GetFamily(ctx context.Context, familyID string) (*models.Family, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, invitationID string, user *models.User, acceptedAt int64) error
	AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error
}

// Service creates and redeems invitations.
type Service struct {
	store     Store
	signer    *Signer
	mailer    mail.Sender
	publisher events.Publisher
	maxAge    time.Duration
	baseURL   string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuing and aging tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.signer.now = now
	}
}

// WithPublisher emits a member_joined event on every accepted invitation.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService creates an invitation service.
func NewService(store Store, mailer mail.Sender, cfg config.Invite, logger *slog.Logger, opts ...Option) *Service {
	if mailer == nil {
		mailer = mail.Unconfigured{}
	}
	s := &Service{
		store:   store,
		signer:  NewSigner(cfg.Secret),
		mailer:  mailer,
		maxAge:  cfg.MaxAge,
		baseURL: cfg.BaseURL,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Link returns the acceptance URL for token.
func (s *Service) Link(token string) string {
	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	return s.baseURL + sep + "token=" + url.QueryEscape(token)
}

// Create issues and persists an invitation for email to join familyID,
// then emails the link. Email delivery is best-effort; a NotificationLog
// row is appended either way.
func (s *Service) Create(ctx context.Context, familyID, email string) (*models.Invitation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := netmail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailInvalid, email)
	}

	if _, err := s.store.GetFamily(ctx, familyID); err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailRegistered
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	now := s.now()
	token, err := s.signer.Sign(email, now)
	if err != nil {
		return nil, err
	}

	inv := &models.Invitation{
		FamilyID:  familyID,
		Email:     email,
		Token:     token,
		CreatedAt: now.Unix(),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save invitation: %w", err)
	}

	s.send(ctx, inv)

	entry := &models.NotificationLog{
		Message: "Invitation sent to " + email,
		SentAt:  now.Unix(),
	}
	if err := s.store.AppendNotificationLog(ctx, entry); err != nil {
		s.logger.Error("Failed to log invitation", "invitation_id", inv.ID, "error", err)
	}

	s.logger.Info("Invitation created", "invitation_id", inv.ID, "family_id", familyID, "email", email)
	return inv, nil
}

func (s *Service) send(ctx context.Context, inv *models.Invitation) {
	body := fmt.Sprintf("You have been invited to join a family on famsplit.\n\nAccept the invitation: %s\n\nThe link expires in %s.\n",
		s.Link(inv.Token), s.maxAge)

	err := s.mailer.Send(ctx, inv.Email, "You're invited to famsplit", body)
	switch {
	case err == nil:
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultSent).Inc()
	case errors.Is(err, mail.ErrNotConfigured):
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		s.logger.Warn("Invitation email not sent", "email", inv.Email, "error", err)
	default:
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		s.logger.Warn("Invitation email failed", "email", inv.Email, "error", err)
	}
}

// Accept redeems token and creates a member account in the inviting
// family. Checks run in order: signature, age, invitation row, username,
// acceptance state, email, password.
func (s *Service) Accept(ctx context.Context, token, username, password string) (*models.User, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if claims.age(now) > s.maxAge {
		return nil, ErrTokenExpired
	}

	inv, err := s.store.GetInvitationByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, auth.ErrUsernameRequired
	}
	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	if inv.Accepted() {
		return nil, ErrAlreadyAccepted
	}

	if _, err := s.store.GetUserByEmail(ctx, inv.Email); err == nil {
		return nil, ErrEmailRegistered
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(username, hash, models.RoleMember)
	user.Email = inv.Email
	user.FamilyID = inv.FamilyID
	user.CreatedAt = now.Unix()

	err = s.store.AcceptInvitation(ctx, inv.ID, user, now.Unix())
	switch {
	case errors.Is(err, storage.ErrInvitationAccepted):
		return nil, ErrAlreadyAccepted
	case storage.ConflictField(err) == "email":
		return nil, ErrEmailRegistered
	case errors.Is(err, storage.ErrConflict):
		return nil, ErrUsernameTaken
	case err != nil:
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.logger.Info("Invitation accepted", "invitation_id", inv.ID, "user_id", user.ID, "family_id", user.FamilyID)

	if s.publisher != nil {
		payload, err := events.Encode(events.TypeMemberJoined, map[string]any{
			"family_id": user.FamilyID,
			"user_id":   user.ID,
			"username":  user.Username,
			"amount":    0,
		})
		if err != nil {
			s.logger.Error("Failed to encode event", "error", err)
		} else {
			s.publisher.Publish(payload)
		}
	}

	return user, nil
}

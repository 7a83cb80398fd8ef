package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/invite"
	"github.com/mmynk/famsplit/internal/middleware"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrManagerOnly     = errors.New("manager role required")
	ErrNotFamilyMember = errors.New("not a member of this family")
	ErrNoFamily        = errors.New("user does not belong to a family")
	ErrNotYourItem     = errors.New("item belongs to another member")
)

// invalidf returns an ErrInvalidArgument with a message.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// toConnectError maps domain errors to connect codes. Errors that are
// already *connect.Error pass through.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrUsernameRequired),
		errors.Is(err, invite.ErrTokenInvalid),
		errors.Is(err, invite.ErrEmailRequired),
		errors.Is(err, invite.ErrEmailInvalid):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, ErrManagerOnly),
		errors.Is(err, ErrNotFamilyMember),
		errors.Is(err, ErrNotYourItem):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, auth.ErrUsernameExists),
		errors.Is(err, auth.ErrEmailExists),
		errors.Is(err, invite.ErrUsernameTaken),
		errors.Is(err, invite.ErrEmailRegistered):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, invite.ErrTokenExpired),
		errors.Is(err, invite.ErrAlreadyAccepted),
		errors.Is(err, ErrNoFamily):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// currentUser loads the authenticated caller.
func currentUser(ctx context.Context, store storage.Store) (*models.User, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, auth.ErrMissingToken
	}
	user, err := store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		// Token outlived the account.
		return nil, auth.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func requireManager(user *models.User) error {
	if !user.IsManager() {
		return ErrManagerOnly
	}
	return nil
}

func requireFamily(user *models.User, familyID string) error {
	if user.FamilyID == "" {
		return ErrNoFamily
	}
	if user.FamilyID != familyID {
		return ErrNotFamilyMember
	}
	return nil
}

// parseAmount parses a non-negative decimal amount. Empty input yields
// fallback.
func parseAmount(field, raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, invalidf("%s must be a number", field)
	}
	if d.IsNegative() {
		return decimal.Zero, invalidf("%s must not be negative", field)
	}
	return d, nil
}

// fail logs err and converts it for the wire.
func fail(logger *slog.Logger, msg string, err error, args ...any) error {
	cerr := toConnectError(err)
	args = append(args, "error", err)
	if connect.CodeOf(cerr) == connect.CodeInternal {
		logger.Error(msg, args...)
	} else {
		logger.Warn(msg, args...)
	}
	return cerr
}

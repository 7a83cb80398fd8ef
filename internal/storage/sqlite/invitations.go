package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
)

// CreateInvitation persists a pending invitation.
func (s *SQLiteStore) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt == 0 {
		inv.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (id, family_id, email, token, created_at, accepted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.FamilyID, inv.Email, inv.Token, inv.CreatedAt, nullInt(inv.AcceptedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("invitation token: %w", storage.ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("family %s: %w", inv.FamilyID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// GetInvitationByToken retrieves an invitation by its token.
func (s *SQLiteStore) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv := &models.Invitation{}
	var acceptedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, family_id, email, token, created_at, accepted_at
		 FROM invitations WHERE token = ?`,
		token,
	).Scan(&inv.ID, &inv.FamilyID, &inv.Email, &inv.Token, &inv.CreatedAt, &acceptedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invitation: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	inv.AcceptedAt = acceptedAt.Int64
	return inv, nil
}

// AcceptInvitation creates the invited user and stamps accepted_at atomically.
func (s *SQLiteStore) AcceptInvitation(ctx context.Context, invitationID string, user *models.User, acceptedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE invitations SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL",
		acceptedAt, invitationID,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp invitation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invitation %s: %w", invitationID, storage.ErrInvitationAccepted)
	}

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

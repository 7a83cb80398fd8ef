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

// CreateFamily persists a new family.
func (s *SQLiteStore) CreateFamily(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.New().String()
	}
	if family.CreatedAt == 0 {
		family.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO families (id, name, created_at) VALUES (?, ?, ?)",
		family.ID, family.Name, family.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert family: %w", err)
	}
	return nil
}

// GetFamily retrieves a family by ID.
func (s *SQLiteStore) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	family := &models.Family{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM families WHERE id = ?",
		familyID,
	).Scan(&family.ID, &family.Name, &family.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("family %s: %w", familyID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// ListFamilyMembers returns the users bound to a family, oldest first.
func (s *SQLiteStore) ListFamilyMembers(ctx context.Context, familyID string) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE family_id = ? ORDER BY created_at, rowid",
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	defer rows.Close()

	var members []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

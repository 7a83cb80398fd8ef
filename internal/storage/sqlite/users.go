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

const userColumns = "id, username, password_hash, role, email, family_id, created_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var email, familyID sql.NullString
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&role,
		&email,
		&familyID,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	user.Email = email.String
	user.FamilyID = familyID.String
	return user, nil
}

// CreateUser inserts a new user into the database.
// Returns a storage.ConflictError naming "username" or "email" if either
// is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	return insertUser(ctx, s.db, user)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt == 0 {
		user.CreatedAt = time.Now().Unix()
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}

	query := `
		INSERT INTO users (id, username, password_hash, role, email, family_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		string(user.Role),
		nullString(user.Email),
		nullString(user.FamilyID),
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		field := uniqueColumn(err)
		if field == "" {
			field = "username"
		}
		return fmt.Errorf("user %q: %w", user.Username, &storage.ConflictError{Field: field})
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("family %s: %w", user.FamilyID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByUsername retrieves a user by their unique username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username", username)
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

// getUser looks a user up by one of the fixed column names above.
func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + column + " = ?"

	user, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s=%q: %w", column, value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	return user, nil
}

// SetUserFamily binds a user to a family.
func (s *SQLiteStore) SetUserFamily(ctx context.Context, userID, familyID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET family_id = ? WHERE id = ?",
		nullString(familyID), userID,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("family %s: %w", familyID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to set user family: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	return nil
}

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

const billColumns = "id, family_id, created_by, cycle_month, total_amount, due_date, published_at"

const itemColumns = "id, bill_id, user_id, description, amount, is_recurring, paid_at"

// CreateBill persists a new bill and its items in one transaction.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.PublishedAt == 0 {
		bill.PublishedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO bills ("+billColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		bill.ID,
		bill.FamilyID,
		nullString(bill.CreatedBy),
		nullString(bill.CycleMonth),
		bill.TotalAmount.StringFixed(2),
		nullString(bill.DueDate),
		bill.PublishedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("family %s: %w", bill.FamilyID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i := range bill.Items {
		item := &bill.Items[i]
		item.BillID = bill.ID
		if err := insertItem(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including all items.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE id = ?",
		billID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", billID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	if bill.Items, err = s.listItems(ctx, bill.ID); err != nil {
		return nil, err
	}
	return bill, nil
}

// GetLatestBill returns the most recently published bill for a family.
func (s *SQLiteStore) GetLatestBill(ctx context.Context, familyID string) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE family_id = ? ORDER BY published_at DESC, rowid DESC LIMIT 1",
		familyID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no bills for family %s: %w", familyID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest bill: %w", err)
	}

	if bill.Items, err = s.listItems(ctx, bill.ID); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListBillsByFamily returns a family's bills, newest first, without items.
func (s *SQLiteStore) ListBillsByFamily(ctx context.Context, familyID string) ([]*models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE family_id = ? ORDER BY published_at DESC, rowid DESC",
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

// AddBillItem attaches a new item to an existing bill.
func (s *SQLiteStore) AddBillItem(ctx context.Context, item *models.BillItem) error {
	return insertItem(ctx, s.db, item)
}

// GetBillItem retrieves a single item by ID.
func (s *SQLiteStore) GetBillItem(ctx context.Context, itemID string) (*models.BillItem, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM bill_items WHERE id = ?",
		itemID,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill item %s: %w", itemID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill item: %w", err)
	}
	return item, nil
}

func insertItem(ctx context.Context, db execer, item *models.BillItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO bill_items (id, bill_id, user_id, description, amount, is_recurring, paid_at, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(position), 0) + 1 FROM bill_items WHERE bill_id = ?))`,
		item.ID,
		item.BillID,
		nullString(item.UserID),
		item.Description,
		item.Amount.StringFixed(2),
		item.IsRecurring,
		nullInt(item.PaidAt),
		item.BillID,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("bill %s or user %q: %w", item.BillID, item.UserID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (s *SQLiteStore) listItems(ctx context.Context, billID string) ([]models.BillItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM bill_items WHERE bill_id = ? ORDER BY position",
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var items []models.BillItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func scanBill(row rowScanner) (*models.Bill, error) {
	bill := &models.Bill{}
	var createdBy, cycleMonth, dueDate sql.NullString
	if err := row.Scan(
		&bill.ID,
		&bill.FamilyID,
		&createdBy,
		&cycleMonth,
		&bill.TotalAmount,
		&dueDate,
		&bill.PublishedAt,
	); err != nil {
		return nil, err
	}
	bill.CreatedBy = createdBy.String
	bill.CycleMonth = cycleMonth.String
	bill.DueDate = dueDate.String
	return bill, nil
}

func scanItem(row rowScanner) (*models.BillItem, error) {
	item := &models.BillItem{}
	var userID sql.NullString
	var paidAt sql.NullInt64
	if err := row.Scan(
		&item.ID,
		&item.BillID,
		&userID,
		&item.Description,
		&item.Amount,
		&item.IsRecurring,
		&paidAt,
	); err != nil {
		return nil, err
	}
	item.UserID = userID.String
	item.PaidAt = paidAt.Int64
	return item, nil
}

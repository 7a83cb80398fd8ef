package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
)

// RecordPayment appends a payment and stamps the item's paid_at.
func (s *SQLiteStore) RecordPayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.PaidAt == 0 {
		payment.PaidAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO payments (id, bill_item_id, user_id, amount, paid_at) VALUES (?, ?, ?, ?, ?)",
		payment.ID, payment.BillItemID, payment.UserID, payment.Amount.StringFixed(2), payment.PaidAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("bill item %s or user %s: %w", payment.BillItemID, payment.UserID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bill_items SET paid_at = ? WHERE id = ?",
		payment.PaidAt, payment.BillItemID,
	); err != nil {
		return fmt.Errorf("failed to mark item paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListPaymentsByBill returns all payments made against a bill's items.
func (s *SQLiteStore) ListPaymentsByBill(ctx context.Context, billID string) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.bill_item_id, p.user_id, p.amount, p.paid_at
		 FROM payments p JOIN bill_items i ON i.id = p.bill_item_id
		 WHERE i.bill_id = ? ORDER BY p.paid_at, p.rowid`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p := &models.Payment{}
		var amount decimal.NullDecimal
		var paidAt sql.NullInt64
		if err := rows.Scan(&p.ID, &p.BillItemID, &p.UserID, &amount, &paidAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = amount.Decimal
		p.PaidAt = paidAt.Int64
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

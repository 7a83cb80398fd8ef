// Package notify fans a bill notification out to every member of a family.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/famsplit/internal/calculator"
	"github.com/mmynk/famsplit/internal/events"
	"github.com/mmynk/famsplit/internal/mail"
	"github.com/mmynk/famsplit/internal/metrics"
	"github.com/mmynk/famsplit/internal/models"
)

// LogStore persists notification audit rows.
type LogStore interface {
	AppendNotificationLog(ctx context.Context, entry *models.NotificationLog) error
}

// BodyFunc renders the email body for one member.
type BodyFunc func(member *models.User) string

// Dispatcher sends per-member emails, records one audit row per member
// and emits a summary event.
type Dispatcher struct {
	store     LogStore
	mailer    mail.Sender
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher. A nil mailer behaves like an
// unconfigured transport.
func NewDispatcher(store LogStore, mailer mail.Sender, publisher events.Publisher, logger *slog.Logger) *Dispatcher {
	if mailer == nil {
		mailer = mail.Unconfigured{}
	}
	return &Dispatcher{
		store:     store,
		mailer:    mailer,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// NotifyFamily visits members in order. Members with an email address are
// sent subject and bodyFor(member); transport failures are logged and
// dropped. Every member gets exactly one NotificationLog row with the
// subject as its message, whether or not an email went out. After the
// loop one bill_published event carrying the bill total is published.
//
// The returned error joins any audit-row write failures. It never
// reflects email delivery.
func (d *Dispatcher) NotifyFamily(ctx context.Context, bill *models.Bill, members []*models.User, subject string, bodyFor BodyFunc) error {
	var errs []error
	for _, member := range members {
		d.deliver(ctx, member, subject, bodyFor)

		entry := &models.NotificationLog{
			UserID:  member.ID,
			BillID:  bill.ID,
			Message: subject,
			SentAt:  d.now().Unix(),
		}
		if err := d.store.AppendNotificationLog(ctx, entry); err != nil {
			d.logger.Error("Failed to write notification log", "user_id", member.ID, "bill_id", bill.ID, "error", err)
			errs = append(errs, fmt.Errorf("log notification for %s: %w", member.ID, err))
		}
	}

	d.publishSummary(bill)

	d.logger.Info("Family notified", "bill_id", bill.ID, "family_id", bill.FamilyID, "members", len(members))
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, member *models.User, subject string, bodyFor BodyFunc) {
	if member.Email == "" {
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		d.logger.Debug("Member has no email, skipping send", "user_id", member.ID)
		return
	}

	body := ""
	if bodyFor != nil {
		body = bodyFor(member)
	}

	if err := d.mailer.Send(ctx, member.Email, subject, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		d.logger.Warn("Email delivery failed", "user_id", member.ID, "email", member.Email, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues(metrics.ResultSent).Inc()
}

func (d *Dispatcher) publishSummary(bill *models.Bill) {
	if d.publisher == nil {
		return
	}
	payload, err := events.Encode(events.TypeBillPublished, map[string]any{
		"bill_id":     bill.ID,
		"family_id":   bill.FamilyID,
		"cycle_month": bill.CycleMonth,
		"amount":      calculator.Number(bill.TotalAmount),
	})
	if err != nil {
		d.logger.Error("Failed to encode event", "bill_id", bill.ID, "error", err)
		return
	}
	d.publisher.Publish(payload)
}

// Package reminders sends due-bill notifications on a schedule.
//
// A sweep reads the bills whose due date falls within their own
// reminder_days of now and, for every enabled channel, sends one reminder per bill, channel and due
// date. Sent reminders are recorded in bill_reminders, which is also what
// makes repeated sweeps idempotent. Bills themselves are never modified.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/audit"
	"github.com/ficoreafrica/ficore/schema"
	"github.com/ficoreafrica/ficore/store"
)

// DefaultReminderDays applies to bills without reminder_days.
const DefaultReminderDays = 7

// ToolName identifies sweeps in the tool-usage audit.
const ToolName = "bill_reminders"

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// BillStore is the part of store.Store the sweep reads and writes.
type BillStore interface {
	GetBills(ctx context.Context, filter store.Doc) ([]store.Bill, error)
	GetBillReminders(ctx context.Context, filter store.Doc) ([]store.BillReminder, error)
	CreateBillReminder(ctx context.Context, doc store.Doc) (string, error)
}

// Summary counts what a sweep did.
type Summary struct {
	Bills   int
	Sent    int
	Skipped int
	Failed  int
}

// Handler runs reminder sweeps.
type Handler struct {
	store    BillStore
	notifier Notifier
	logger   *slog.Logger
	recorder *audit.Recorder
}

// NewHandler creates a reminder handler. A nil notifier logs messages
// instead of delivering them; a nil logger uses slog.Default().
func NewHandler(s BillStore, n Notifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if n == nil {
		n = NewLogNotifier(logger)
	}
	return &Handler{
		store:    s,
		notifier: n,
		logger:   logger,
	}
}

// WithRecorder makes every sweep leave a tool-usage entry in r.
func (h *Handler) WithRecorder(r *audit.Recorder) *Handler {
	h.recorder = r
	return h
}

// HandleScheduled runs a sweep for an EventBridge scheduled event.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleScheduled(ctx context.Context, event events.CloudWatchEvent) error {
	now := event.Time
	if now.IsZero() {
		now = time.Now()
	}
	h.logger.InfoContext(ctx, "starting reminder sweep", "eventID", event.ID, "time", now)

	sum, err := h.Sweep(ctx, now)
	h.logger.InfoContext(ctx, "reminder sweep completed",
		"bills", sum.Bills,
		"sent", sum.Sent,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
	)
	return err
}

// Sweep sends the reminders due at now. Failures on one bill don't stop the
// others; they are joined into the returned error.
func (h *Handler) Sweep(ctx context.Context, now time.Time) (Summary, error) {
	now = now.UTC()
	if h.recorder != nil {
		defer h.recorder.Record(ctx, audit.Entry{ToolName: ToolName, Action: "sweep"})
	}

	bills, err := h.store.GetBills(ctx, WindowFilter(now))
	if err != nil {
		return Summary{}, fmt.Errorf("query bills: %w", err)
	}

	var sum Summary
	var errs []error
	for _, bill := range bills {
		if !Due(bill, now) {
			continue
		}
		sum.Bills++
		if err := h.remind(ctx, bill, &sum); err != nil {
			h.logger.ErrorContext(ctx, "failed to send bill reminder",
				"bill_id", bill.ID,
				"user_id", bill.UserID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("bill %s: %w", bill.ID, err))
		}
	}
	return sum, errors.Join(errs...)
}

// remind sends every pending channel of bill.
func (h *Handler) remind(ctx context.Context, bill store.Bill, sum *Summary) error {
	var errs []error
	for _, n := range Notifications(bill) {
		existing, err := h.store.GetBillReminders(ctx, store.Doc{"notification_id": n.ID})
		if err != nil {
			return fmt.Errorf("check %s: %w", n.ID, err)
		}
		if len(existing) > 0 {
			sum.Skipped++
			sent.WithLabelValues(n.Channel, "skipped").Inc()
			continue
		}

		if err := h.notifier.Notify(ctx, n); err != nil {
			sum.Failed++
			sent.WithLabelValues(n.Channel, "error").Inc()
			errs = append(errs, fmt.Errorf("send %s: %w", n.Channel, err))
			continue
		}

		doc := store.Doc{
			"user_id":         bill.UserID,
			"notification_id": n.ID,
			"type":            n.Channel,
			"message":         n.Message,
		}
		if bill.SessionID != "" {
			doc["session_id"] = bill.SessionID
		}
		if _, err := h.store.CreateBillReminder(ctx, doc); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// An overlapping sweep recorded it first.
				sum.Skipped++
				sent.WithLabelValues(n.Channel, "skipped").Inc()
				continue
			}
			// Delivered but unrecorded: the next sweep sends it again.
			sum.Failed++
			sent.WithLabelValues(n.Channel, "error").Inc()
			errs = append(errs, fmt.Errorf("record %s: %w", n.ID, err))
			continue
		}
		sum.Sent++
		sent.WithLabelValues(n.Channel, "ok").Inc()
	}
	return errors.Join(errs...)
}

// WindowFilter matches the notifiable bills that are due between now and
// now plus their own reminder_days (DefaultReminderDays when unset).
func WindowFilter(now time.Time) store.Doc {
	windowEnd := store.Doc{"$add": bson.A{
		now,
		store.Doc{"$multiply": bson.A{
			store.Doc{"$ifNull": bson.A{"$reminder_days", DefaultReminderDays}},
			dayMillis,
		}},
	}}
	return store.Doc{
		"status":             store.Doc{"$in": bson.A{schema.BillPending, schema.BillOverdue}},
		"send_notifications": true,
		"due_date":           store.Doc{"$gte": now},
		"$expr":              store.Doc{"$lte": bson.A{"$due_date", windowEnd}},
	}
}

// Due reports whether bill is within its reminder window at now.
func Due(bill store.Bill, now time.Time) bool {
	days := DefaultReminderDays
	if bill.ReminderDays != nil {
		days = int(*bill.ReminderDays)
	}
	until := bill.DueDate.Sub(now)
	return until >= 0 && until <= time.Duration(days)*24*time.Hour
}

// Notifications returns the reminders bill asks for, one per enabled
// channel that has a destination.
func Notifications(bill store.Bill) []Notification {
	var out []Notification
	add := func(channel, to string) {
		out = append(out, Notification{
			ID:      NotificationID(bill.ID, channel, bill.DueDate),
			BillID:  bill.ID,
			UserID:  bill.UserID,
			Channel: channel,
			To:      to,
			Message: Message(bill),
		})
	}
	if bill.SendEmail && bill.UserEmail != "" {
		add(schema.ChannelEmail, bill.UserEmail)
	}
	if bill.SendSMS && bill.UserPhone != "" {
		add(schema.ChannelSMS, bill.UserPhone)
	}
	if bill.SendWhatsApp && bill.UserPhone != "" {
		add(schema.ChannelWhatsApp, bill.UserPhone)
	}
	return out
}

// NotificationID identifies the reminder for a bill, channel and due date.
func NotificationID(billID, channel string, due time.Time) string {
	return fmt.Sprintf("%s:%s:%s", billID, channel, due.UTC().Format("2006-01-02"))
}

// Message renders the reminder text for bill.
func Message(bill store.Bill) string {
	name := bill.FirstName
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s, your bill %q of %s is due on %s.",
		name,
		bill.BillName,
		decimal.NewFromFloat(bill.Amount).StringFixed(2),
		bill.DueDate.UTC().Format("2 Jan 2006"),
	)
}

// Package reminder delivers booking.reminder.due.v1 events to customers.
package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/barberq/libs/kafkax"
	"github.com/md-rashed-zaman/barberq/libs/outbox"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/sms"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/storage"
)

const (
	EventNotificationSent   = "notification.sent.v1"
	EventNotificationFailed = "notification.failed.v1"
)

// Payload mirrors the booking-service reminder event.
type Payload struct {
	BookingID    string `json:"booking_id"`
	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	Channel      string `json:"channel"`
	Recipient    string `json:"recipient"`
	CustomerName string `json:"customer_name"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	RemindAt     string `json:"remind_at"`
}

func (p Payload) validate() error {
	if p.BookingID == "" || p.Channel == "" || p.Recipient == "" || p.Date == "" || p.Time == "" {
		return errors.New("missing reminder fields")
	}
	if p.RemindAt != "" {
		if _, err := time.Parse(time.RFC3339, p.RemindAt); err != nil {
			return fmt.Errorf("invalid remind_at: %w", err)
		}
	}
	return nil
}

// Body renders the customer-facing text.
func (p Payload) Body() string {
	who := strings.TrimSpace(p.CustomerName)
	if who == "" {
		who = "there"
	}
	with := ""
	if p.ProviderName != "" {
		with = " with " + p.ProviderName
	}
	return fmt.Sprintf("Hi %s, your appointment%s starts at %s on %s. Show your booking QR code at the front desk.", who, with, p.Time, p.Date)
}

type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Config struct {
	// FailSuffix simulates a delivery failure for recipients ending with it.
	FailSuffix string
	Now        func() time.Time
}

type Handler struct {
	db            Beginner
	notifications *storage.Repository
	outbox        *outbox.Repository
	sms           sms.Sender
	email         email.Sender
	logger        *slog.Logger
	failSuffix    string
	now           func() time.Time
}

func NewHandler(db Beginner, notifications *storage.Repository, outboxRepo *outbox.Repository, smsSender sms.Sender, emailSender email.Sender, logger *slog.Logger, cfg Config) *Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		db:            db,
		notifications: notifications,
		outbox:        outboxRepo,
		sms:           smsSender,
		email:         emailSender,
		logger:        logger,
		failSuffix:    cfg.FailSuffix,
		now:           cfg.Now,
	}
}

// Handle delivers one reminder and records the attempt together with its
// notification.sent / notification.failed event. Malformed payloads are
// dropped; only storage errors are returned.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var p Payload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		h.logger.Error("invalid reminder payload", "err", err, "topic", msg.Topic)
		return nil
	}
	if err := p.validate(); err != nil {
		h.logger.Error("reminder rejected", "err", err, "booking_id", p.BookingID)
		return nil
	}

	n := storage.Notification{
		EventID:    kafkax.ExtractEventMeta(msg).EventID,
		BookingID:  p.BookingID,
		ProviderID: p.ProviderID,
		Channel:    strings.ToLower(p.Channel),
		Recipient:  p.Recipient,
		Body:       p.Body(),
		Status:     storage.StatusSent,
	}
	if err := h.deliver(ctx, &n); err != nil {
		n.Status = storage.StatusFailed
		n.FailureReason = err.Error()
		h.logger.Warn("reminder delivery failed", "err", err, "booking_id", p.BookingID, "channel", n.Channel)
	}

	if err := h.record(ctx, n); err != nil {
		h.logger.Error("failed to record notification", "err", err, "booking_id", p.BookingID)
		return err
	}
	h.logger.Info("reminder processed", "booking_id", p.BookingID, "channel", n.Channel, "status", n.Status)
	return nil
}

func (h *Handler) deliver(ctx context.Context, n *storage.Notification) error {
	if h.failSuffix != "" && strings.HasSuffix(n.Recipient, h.failSuffix) {
		return errors.New("simulated failure")
	}
	switch n.Channel {
	case "sms":
		if err := h.sms.Send(ctx, n.Recipient, n.Body); err != nil {
			return err
		}
		n.SenderID = h.sms.ProviderID()
	case "email":
		if h.email == nil {
			return errors.New("email delivery not configured")
		}
		if err := h.email.Send(n.Recipient, "Your appointment is coming up", n.Body); err != nil {
			return err
		}
		n.SenderID = "smtp"
	default:
		return fmt.Errorf("unsupported channel: %s", n.Channel)
	}
	return nil
}

type resultEvent struct {
	BookingID   string `json:"booking_id"`
	ProviderID  string `json:"provider_id"`
	Channel     string `json:"channel"`
	SenderID    string `json:"sender_id,omitempty"`
	ErrorReason string `json:"error_reason,omitempty"`
	At          string `json:"at"`
}

func (h *Handler) record(ctx context.Context, n storage.Notification) error {
	eventType := EventNotificationSent
	if n.Status == storage.StatusFailed {
		eventType = EventNotificationFailed
	}
	payload, err := json.Marshal(resultEvent{
		BookingID:   n.BookingID,
		ProviderID:  n.ProviderID,
		Channel:     n.Channel,
		SenderID:    n.SenderID,
		ErrorReason: n.FailureReason,
		At:          h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	tx, err := h.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.notifications.Insert(ctx, tx, n); err != nil {
		return err
	}
	if err := h.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   n.BookingID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

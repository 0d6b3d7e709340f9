// Package reminder alerts customers shortly before their slot starts.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Sender delivers one upcoming-booking notification.
type Sender interface {
	NotifyUpcoming(ctx context.Context, b model.Booking, p model.Provider) error
}

// Payload is the booking.reminder.due.v1 event body.
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

// EventWriter appends an event to the transactional outbox.
type EventWriter interface {
	AppendEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error
}

// OutboxSender hands reminders to the notification-service through the outbox.
type OutboxSender struct {
	events EventWriter
	loc    *time.Location
}

func NewOutboxSender(events EventWriter, loc *time.Location) *OutboxSender {
	if loc == nil {
		loc = time.UTC
	}
	return &OutboxSender{events: events, loc: loc}
}

func (s *OutboxSender) NotifyUpcoming(ctx context.Context, b model.Booking, p model.Provider) error {
	start, err := b.Start(s.loc)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(Payload{
		BookingID:    b.ID,
		ProviderID:   b.ProviderID,
		ProviderName: p.Name,
		Channel:      "sms",
		Recipient:    b.CustomerPhone,
		CustomerName: b.CustomerName,
		Date:         b.Date.String(),
		Time:         b.Time.String(),
		RemindAt:     start.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}
	return s.events.AppendEvent(ctx, b.ID, booking.EventReminderDue, payload)
}

type Notifier struct {
	manager  *booking.Manager
	dedupe   Deduper
	sender   Sender
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	lead     time.Duration
}

type Config struct {
	Interval time.Duration
	Lead     time.Duration
}

func NewNotifier(manager *booking.Manager, dedupe Deduper, sender Sender, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Notifier {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Lead <= 0 {
		cfg.Lead = 30 * time.Minute
	}
	return &Notifier{
		manager:  manager,
		dedupe:   dedupe,
		sender:   sender,
		logger:   logger,
		metrics:  m,
		interval: cfg.Interval,
		lead:     cfg.Lead,
	}
}

func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.Check(ctx); err != nil {
				n.logger.Error("reminder check failed", "err", err)
			}
		}
	}
}

// Due reports whether a booking starting at start should be reminded at now.
func (n *Notifier) Due(start, now time.Time) bool {
	until := start.Sub(now)
	return until > 0 && until <= n.lead
}

// Check notifies every BOOKED booking that starts within the lead window and
// has not been reminded yet. It returns the number of reminders sent.
func (n *Notifier) Check(ctx context.Context) (int, error) {
	booked, err := n.manager.List(ctx, booking.BookingFilter{Statuses: []model.Status{model.StatusBooked}})
	if err != nil {
		return 0, err
	}
	now := n.manager.Now()
	sent := 0
	for _, b := range booked {
		start, err := b.Start(n.manager.Location())
		if err != nil || !n.Due(start, now) {
			continue
		}
		ok, err := n.dedupe.Claim(ctx, b.ID)
		if err != nil {
			n.metrics.ObserveReminder("dedupe_error")
			n.logger.Warn("reminder dedupe unavailable", "err", err, "booking_id", b.ID)
			continue
		}
		if !ok {
			continue
		}
		if err := n.send(ctx, b); err != nil {
			n.metrics.ObserveReminder("failed")
			n.logger.Error("reminder send failed", "err", err, "booking_id", b.ID)
			if rerr := n.dedupe.Release(ctx, b.ID); rerr != nil {
				n.logger.Warn("reminder release failed", "err", rerr, "booking_id", b.ID)
			}
			continue
		}
		sent++
		n.metrics.ObserveReminder("sent")
		n.logger.Info("reminder sent", "booking_id", b.ID, "provider_id", b.ProviderID, "time", b.Time)
	}
	return sent, nil
}

func (n *Notifier) send(ctx context.Context, b model.Booking) error {
	p, err := n.manager.Store().GetProvider(ctx, b.ProviderID)
	if err != nil {
		// Reminders still go out for providers removed after the booking was made.
		p = model.Provider{ID: b.ProviderID, Name: b.ProviderID}
	}
	return n.sender.NotifyUpcoming(ctx, b, p)
}

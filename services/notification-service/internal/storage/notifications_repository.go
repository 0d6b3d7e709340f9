package storage

import (
	"context"

	"github.com/md-rashed-zaman/barberq/libs/outbox"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is one delivery attempt for a booking reminder.
type Notification struct {
	EventID       string
	BookingID     string
	ProviderID    string
	Channel       string
	Recipient     string
	Body          string
	Status        string
	FailureReason string
	SenderID      string
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert writes n through ex so callers can pair it with an outbox event.
func (r *Repository) Insert(ctx context.Context, ex outbox.Execer, n Notification) error {
	_, err := ex.Exec(ctx, `
		INSERT INTO notifications (event_id, booking_id, provider_id, channel, recipient, body, status, failure_reason, sender_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.EventID, n.BookingID, n.ProviderID, n.Channel, n.Recipient, n.Body, n.Status, n.FailureReason, n.SenderID)
	return err
}

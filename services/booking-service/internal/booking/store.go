package booking

import (
	"context"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Event types written to the outbox; each is also the Kafka topic.
const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingCancelled = "booking.cancelled.v1"
	EventBookingCompleted = "booking.completed.v1"
	EventBookingExpired   = "booking.expired.v1"
	EventReminderDue      = "booking.reminder.due.v1"
)

type BookingFilter struct {
	ProviderID string
	Date       model.Date
	UserID     string
	Statuses   []model.Status
	// NewestFirst orders by date and time descending.
	NewestFirst bool
	Limit       int
}

// Effects are persisted in the same transaction as the booking write.
type Effects struct {
	AuditAction string
	AuditDetail string
	EventType   string
	Payload     []byte
}

// Store is the persistence port. Implementations must enforce, atomically
// with the write, that no two consuming bookings share a (provider, date,
// time) and that the daily count stays within maxPerDay; violations come back
// as ErrSlotTaken and ErrCapacityExceeded. Transitions only apply when the
// current status equals from, otherwise ErrInvalidTransition (or ErrNotFound).
type Store interface {
	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	CreateBooking(ctx context.Context, b model.Booking, maxPerDay int, fx Effects) error
	TransitionBooking(ctx context.Context, id string, from, to model.Status, fx Effects) error
	GetSettings(ctx context.Context) (model.Settings, error)
	GetProvider(ctx context.Context, id string) (model.Provider, error)
}

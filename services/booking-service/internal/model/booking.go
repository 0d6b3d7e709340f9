package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusBooked, StatusCompleted, StatusCancelled, StatusExpired:
		return st, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s != StatusBooked
}

// Consumes reports whether a booking in this status holds its slot and counts
// toward the provider's daily capacity.
func (s Status) Consumes() bool {
	return s == StatusBooked || s == StatusCompleted
}

// Booking is a reservation of one slot with one provider. ID doubles as the
// check-in credential.
type Booking struct {
	ID            string
	ProviderID    string
	UserID        string
	UserName      string
	CustomerName  string
	CustomerPhone string
	Date          Date
	Time          Clock
	Status        Status
	CreatedAt     time.Time
}

func (b Booking) Start(loc *time.Location) (time.Time, error) {
	return At(b.Date, b.Time, loc)
}

func (b Booking) End(loc *time.Location, slot time.Duration) (time.Time, error) {
	start, err := b.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(slot), nil
}

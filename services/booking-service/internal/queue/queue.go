// Package queue orders a provider's day into first-booked-first-served order.
package queue

import (
	"sort"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Queue is one provider's bookings for one date, earliest slot first.
// Cancelled and expired bookings are not part of it.
type Queue struct {
	ProviderID string
	Date       model.Date
	Entries    []model.Booking
}

func Build(bookings []model.Booking, providerID string, date model.Date) Queue {
	q := Queue{ProviderID: providerID, Date: date}
	for _, b := range bookings {
		if b.ProviderID != providerID || b.Date != date {
			continue
		}
		if b.Status == model.StatusCancelled || b.Status == model.StatusExpired {
			continue
		}
		q.Entries = append(q.Entries, b)
	}
	// HH:MM is zero padded so string order is time order.
	sort.SliceStable(q.Entries, func(i, j int) bool { return q.Entries[i].Time < q.Entries[j].Time })
	return q
}

// NextUp is the earliest booking not yet served. ok is false once the day is
// fully served.
func (q Queue) NextUp() (model.Booking, bool) {
	for _, b := range q.Entries {
		if b.Status == model.StatusBooked {
			return b, true
		}
	}
	return model.Booking{}, false
}

// Waiting lists the BOOKED entries in queue order.
func (q Queue) Waiting() []model.Booking {
	var out []model.Booking
	for _, b := range q.Entries {
		if b.Status == model.StatusBooked {
			out = append(out, b)
		}
	}
	return out
}

func (q Queue) Served() int {
	n := 0
	for _, b := range q.Entries {
		if b.Status == model.StatusCompleted {
			n++
		}
	}
	return n
}

// Ahead returns the BOOKED entries whose slot is strictly earlier than at.
func (q Queue) Ahead(at model.Clock) []model.Booking {
	var out []model.Booking
	for _, b := range q.Entries {
		if b.Time >= at {
			break
		}
		if b.Status == model.StatusBooked {
			out = append(out, b)
		}
	}
	return out
}

// Board builds a queue for every provider on date, in provider order.
func Board(bookings []model.Booking, providers []model.Provider, date model.Date) []Queue {
	out := make([]Queue, 0, len(providers))
	for _, p := range providers {
		out = append(out, Build(bookings, p.ID, date))
	}
	return out
}

package availability

import (
	"errors"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

var ErrInvalidSchedule = errors.New("invalid schedule: opening must be before closing and slot duration must be positive")

// GenerateSlots returns the slot start times from opening, stepping by
// durationMinutes. Only whole slots that end by closing are produced, so the
// count is floor((closing-opening)/duration) and every start is before closing.
func GenerateSlots(opening, closing model.Clock, durationMinutes int) ([]model.Clock, error) {
	start, end := opening.Minutes(), closing.Minutes()
	if durationMinutes <= 0 || start < 0 || end < 0 || start >= end {
		return nil, ErrInvalidSchedule
	}

	slots := make([]model.Clock, 0, (end-start)/durationMinutes)
	for m := start; m+durationMinutes <= end; m += durationMinutes {
		slots = append(slots, model.ClockFromMinutes(m))
	}
	return slots, nil
}

func SlotsFor(s model.Settings) ([]model.Clock, error) {
	return GenerateSlots(s.OpeningTime, s.ClosingTime, s.SlotDurationMinutes)
}

// SlotCount is len(SlotsFor(s)) without building the slice; 0 for an invalid schedule.
func SlotCount(s model.Settings) int {
	start, end := s.OpeningTime.Minutes(), s.ClosingTime.Minutes()
	if s.SlotDurationMinutes <= 0 || start < 0 || end < 0 || start >= end {
		return 0
	}
	return (end - start) / s.SlotDurationMinutes
}

type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
)

func PeriodOf(c model.Clock) Period {
	if c.Hour() < 12 {
		return PeriodMorning
	}
	return PeriodAfternoon
}

// PartitionDay groups slots for display; order is preserved within each group.
func PartitionDay(slots []model.Clock) (morning, afternoon []model.Clock) {
	for _, s := range slots {
		if PeriodOf(s) == PeriodMorning {
			morning = append(morning, s)
		} else {
			afternoon = append(afternoon, s)
		}
	}
	return morning, afternoon
}

func containsSlot(slots []model.Clock, c model.Clock) bool {
	for _, s := range slots {
		if s == c {
			return true
		}
	}
	return false
}

package model

import (
	"errors"
	"time"
)

// Settings is the singleton business configuration.
type Settings struct {
	OpeningTime          Clock
	ClosingTime          Clock
	SlotDurationMinutes  int
	MaxPerProviderPerDay int
	UpdatedAt            time.Time
}

func DefaultSettings() Settings {
	return Settings{
		OpeningTime:          "08:00",
		ClosingTime:          "17:00",
		SlotDurationMinutes:  45,
		MaxPerProviderPerDay: 10,
	}
}

func (s Settings) Validate() error {
	opening, closing := s.OpeningTime.Minutes(), s.ClosingTime.Minutes()
	switch {
	case opening < 0 || closing < 0:
		return errors.New("opening and closing time must be HH:MM")
	case opening >= closing:
		return errors.New("opening time must be before closing time")
	case s.SlotDurationMinutes <= 0:
		return errors.New("slot duration must be positive")
	case s.MaxPerProviderPerDay <= 0:
		return errors.New("max bookings per provider per day must be positive")
	}
	return nil
}

func (s Settings) SlotDuration() time.Duration {
	return time.Duration(s.SlotDurationMinutes) * time.Minute
}

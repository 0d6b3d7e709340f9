// Package sweeper expires BOOKED bookings whose slot has already ended.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

type Sweeper struct {
	manager  *booking.Manager
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

type Config struct {
	Interval time.Duration
}

func New(manager *booking.Manager, logger *slog.Logger, m *metrics.Metrics, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Sweeper{manager: manager, logger: logger, metrics: m, interval: cfg.Interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("expiration sweep failed", "err", err)
			}
		}
	}
}

// Sweep expires every BOOKED booking whose end time is before now and returns
// how many it expired. A booking completed or cancelled since the snapshot was
// read is skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	settings, err := s.manager.Store().GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	booked, err := s.manager.List(ctx, booking.BookingFilter{Statuses: []model.Status{model.StatusBooked}})
	if err != nil {
		return 0, err
	}

	now := s.manager.Now()
	loc := s.manager.Location()
	expired := 0
	var firstErr error
	for _, b := range booked {
		end, err := b.End(loc, settings.SlotDuration())
		if err != nil {
			s.logger.Warn("skipping booking with malformed slot", "booking_id", b.ID, "err", err)
			continue
		}
		if !now.After(end) {
			continue
		}
		if _, err := s.manager.Expire(ctx, b); err != nil {
			if errors.Is(err, booking.ErrInvalidTransition) || errors.Is(err, booking.ErrNotFound) {
				continue
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		expired++
	}
	if expired > 0 {
		s.metrics.ObserveExpired(expired)
		s.logger.Info("expired bookings", "count", expired)
	}
	return expired, firstErr
}

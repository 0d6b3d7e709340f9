// Package bookingtest provides an in-memory booking.Store for tests.
package bookingtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Store mirrors the uniqueness and capacity guarantees of the Postgres store.
type Store struct {
	mu        sync.Mutex
	bookings  map[string]model.Booking
	order     []string
	providers map[string]model.Provider
	settings  model.Settings
	effects   []booking.Effects
	auditLog  []model.AuditEntry

	// Err, when set, is returned by every call.
	Err error
}

func NewStore(settings model.Settings, providers ...model.Provider) *Store {
	s := &Store{
		bookings:  map[string]model.Booking{},
		providers: map[string]model.Provider{},
		settings:  settings,
	}
	for _, p := range providers {
		s.providers[p.ID] = p
	}
	return s
}

// Seed inserts bookings as-is, bypassing every check.
func (s *Store) Seed(bs ...model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bs {
		if _, ok := s.bookings[b.ID]; !ok {
			s.order = append(s.order, b.ID)
		}
		s.bookings[b.ID] = b
	}
}

func (s *Store) Effects() []booking.Effects {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]booking.Effects(nil), s.effects...)
}

func (s *Store) Booking(id string) (model.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return b, ok
}

func (s *Store) ListBookings(_ context.Context, f booking.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Booking
	for _, id := range s.order {
		b := s.bookings[id]
		if f.ProviderID != "" && b.ProviderID != f.ProviderID {
			continue
		}
		if f.Date != "" && b.Date != f.Date {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, b.Status) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := string(out[i].Date)+string(out[i].Time), string(out[j].Date)+string(out[j].Time)
		if f.NewestFirst {
			return ki > kj
		}
		return ki < kj
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.Booking{}, s.Err
	}
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, booking.ErrNotFound.WithMessage("booking %s not found", id)
	}
	return b, nil
}

func (s *Store) CreateBooking(_ context.Context, b model.Booking, maxPerDay int, fx booking.Effects) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	count, taken := 0, false
	for _, other := range s.bookings {
		if other.ProviderID != b.ProviderID || other.Date != b.Date || !other.Status.Consumes() {
			continue
		}
		count++
		taken = taken || other.Time == b.Time
	}
	if maxPerDay > 0 && count >= maxPerDay {
		return booking.ErrCapacityExceeded
	}
	if taken {
		return booking.ErrSlotTaken
	}
	s.bookings[b.ID] = b
	s.order = append(s.order, b.ID)
	s.effects = append(s.effects, fx)
	if fx.AuditAction != "" {
		s.audit(fx.AuditAction, fx.AuditDetail)
	}
	return nil
}

func (s *Store) TransitionBooking(_ context.Context, id string, from, to model.Status, fx booking.Effects) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	b, ok := s.bookings[id]
	if !ok {
		return booking.ErrNotFound
	}
	if b.Status != from {
		return booking.ErrInvalidTransition.WithMessage("booking is %s", b.Status)
	}
	b.Status = to
	s.bookings[id] = b
	s.effects = append(s.effects, fx)
	if fx.AuditAction != "" {
		s.audit(fx.AuditAction, fx.AuditDetail)
	}
	return nil
}

func (s *Store) GetSettings(context.Context) (model.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.Settings{}, s.Err
	}
	return s.settings, nil
}

func (s *Store) SetSettings(settings model.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *Store) GetProvider(_ context.Context, id string) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.Provider{}, s.Err
	}
	p, ok := s.providers[id]
	if !ok {
		return model.Provider{}, booking.ErrNotFound.WithMessage("provider %s not found", id)
	}
	return p, nil
}

func (s *Store) ListProviders(context.Context) ([]model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveSettings(_ context.Context, settings model.Settings) (model.Settings, error) {
	if err := settings.Validate(); err != nil {
		return model.Settings{}, booking.ErrInvalidRequest.WithMessage("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.Settings{}, s.Err
	}
	s.settings = settings
	s.audit(model.AuditSettingsUpdated, "settings updated")
	return settings, nil
}

func (s *Store) CreateProvider(ctx context.Context, p model.Provider) (model.Provider, error) {
	s.mu.Lock()
	_, taken := s.providers[p.ID]
	s.mu.Unlock()
	if p.ID != "" && taken {
		return model.Provider{}, booking.ErrAlreadyExists.WithMessage("provider %s already exists", p.ID)
	}
	return s.SaveProvider(ctx, p)
}

func (s *Store) SaveProvider(_ context.Context, p model.Provider) (model.Provider, error) {
	if p.Name == "" {
		return model.Provider{}, booking.ErrInvalidRequest.WithMessage("provider name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return model.Provider{}, s.Err
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("p%d", len(s.providers)+1)
	}
	s.providers[p.ID] = p
	s.audit(model.AuditProviderSaved, "saved provider "+p.ID)
	return p, nil
}

func (s *Store) DeleteProvider(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.providers[id]; !ok {
		return booking.ErrNotFound.WithMessage("provider %s not found", id)
	}
	delete(s.providers, id)
	s.audit(model.AuditProviderDeleted, "deleted provider "+id)
	return nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]model.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.AuditEntry
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.auditLog[i])
	}
	return out, nil
}

func (s *Store) audit(action, detail string) {
	s.auditLog = append(s.auditLog, model.AuditEntry{ID: int64(len(s.auditLog) + 1), Action: action, Detail: detail, CreatedAt: time.Now()})
}

func hasStatus(list []model.Status, st model.Status) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

var _ booking.Store = (*Store)(nil)

package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Manager owns the booking lifecycle: BOOKED -> COMPLETED | CANCELLED | EXPIRED.
type Manager struct {
	store    Store
	calendar *availability.Calendar
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	horizon  int
}

// DefaultHorizonDays lets customers book today and the six days after it.
const DefaultHorizonDays = 7

type Option func(*Manager)

// WithClock replaces time.Now; tests pin the wall clock with it.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(m *Manager) { m.loc = loc }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithHorizonDays sets how many days, today included, are open for booking.
// Values below 1 keep the default.
func WithHorizonDays(days int) Option {
	return func(m *Manager) {
		if days > 0 {
			m.horizon = days
		}
	}
}

func NewManager(store Store, calendar *availability.Calendar, logger *slog.Logger, opts ...Option) *Manager {
	if calendar == nil {
		calendar = availability.NewCalendar(availability.DefaultHolidays())
	}
	m := &Manager{
		store:    store,
		calendar: calendar,
		loc:      time.Local,
		now:      time.Now,
		logger:   logger,
		tracer:   otel.Tracer("booking"),
		horizon:  DefaultHorizonDays,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LastBookableDate is the final day customers may book, counted from today.
func (m *Manager) LastBookableDate() model.Date {
	return model.DateOf(m.Now()).AddDays(m.horizon - 1)
}

// Now is the current wall clock in the business location.
func (m *Manager) Now() time.Time { return m.now().In(m.loc) }

func (m *Manager) Location() *time.Location { return m.loc }

func (m *Manager) Calendar() *availability.Calendar { return m.calendar }

func (m *Manager) Store() Store { return m.store }

type CreateRequest struct {
	ProviderID    string
	UserID        string
	UserName      string
	CustomerName  string
	CustomerPhone string
	Date          string
	Time          string
}

func (r CreateRequest) normalize() (CreateRequest, model.Date, model.Clock, error) {
	r.ProviderID = strings.TrimSpace(r.ProviderID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.UserName = strings.TrimSpace(r.UserName)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	if r.ProviderID == "" || r.UserID == "" || r.CustomerName == "" || r.CustomerPhone == "" {
		return r, "", "", ErrInvalidRequest.WithMessage("provider, user, customer name and phone are required")
	}
	if r.UserName == "" {
		r.UserName = r.CustomerName
	}
	date, err := model.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return r, "", "", ErrInvalidRequest.WithMessage("%v", err)
	}
	at, err := model.ParseClock(strings.TrimSpace(r.Time))
	if err != nil {
		return r, "", "", ErrInvalidRequest.WithMessage("%v", err)
	}
	return r, date, at, nil
}

// Create validates the request against a fresh snapshot of the provider's day
// and commits a BOOKED booking. The store re-checks slot uniqueness and daily
// capacity atomically with the insert.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	ctx, span := m.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("booking.provider_id", req.ProviderID),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.time", req.Time),
	))
	defer span.End()

	b, err := m.create(ctx, req)
	if err != nil {
		code := CodeOf(err)
		m.metrics.ObserveCreate(strings.ToLower(string(code)))
		span.SetStatus(codes.Error, string(code))
		if code == CodePersistenceFailure {
			span.RecordError(err)
			m.logger.Error("booking create failed", "err", err, "provider_id", req.ProviderID)
		} else {
			m.logger.Info("booking rejected", "code", code, "provider_id", req.ProviderID, "date", req.Date, "time", req.Time)
		}
		return model.Booking{}, err
	}
	m.metrics.ObserveCreate("created")
	span.SetAttributes(attribute.String("booking.id", b.ID))
	m.logger.Info("booking created", "booking_id", b.ID, "provider_id", b.ProviderID, "date", b.Date, "time", b.Time)
	return b, nil
}

func (m *Manager) create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	req, date, at, err := req.normalize()
	if err != nil {
		return model.Booking{}, err
	}

	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		return model.Booking{}, persistence("get settings", err)
	}
	provider, err := m.store.GetProvider(ctx, req.ProviderID)
	if err != nil {
		if CodeOf(err) == CodeNotFound {
			return model.Booking{}, ErrInvalidRequest.WithMessage("unknown provider %s", req.ProviderID)
		}
		return model.Booking{}, persistence("get provider", err)
	}
	if last := m.LastBookableDate(); date > last {
		return model.Booking{}, ErrInvalidRequest.WithMessage("bookings open up to %s", last)
	}

	snapshot, err := m.store.ListBookings(ctx, BookingFilter{ProviderID: provider.ID, Date: date})
	if err != nil {
		return model.Booking{}, persistence("list bookings", err)
	}
	ev, err := availability.NewEvaluator(settings, m.calendar, snapshot)
	if err != nil {
		return model.Booking{}, ErrInvalidRequest.WithMessage("business hours are misconfigured: %v", err)
	}
	if !ev.IsSlot(at) {
		return model.Booking{}, ErrInvalidRequest.WithMessage("%s is not a bookable slot", at)
	}

	now := m.Now()
	switch {
	case ev.IsNonWorkingDay(date):
		return model.Booking{}, ErrNonWorkingDay
	case ev.IsDayFull(provider.ID, date):
		return model.Booking{}, ErrCapacityExceeded.WithMessage("%s has no capacity left on %s", provider.Name, date)
	case ev.IsSlotOccupied(provider.ID, date, at):
		return model.Booking{}, ErrSlotTaken
	case availability.IsPast(date, at, now):
		return model.Booking{}, ErrSlotInPast
	}

	b := model.Booking{
		ID:            uuid.NewString(),
		ProviderID:    provider.ID,
		UserID:        req.UserID,
		UserName:      req.UserName,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          date,
		Time:          at,
		Status:        model.StatusBooked,
		CreatedAt:     now,
	}
	fx, err := effects(b, model.AuditBookingCreated, EventBookingCreated,
		fmt.Sprintf("%s booked %s on %s at %s", b.CustomerName, provider.Name, b.Date, b.Time))
	if err != nil {
		return model.Booking{}, err
	}
	if err := m.store.CreateBooking(ctx, b, settings.MaxPerProviderPerDay, fx); err != nil {
		return model.Booking{}, persistence("create booking", err)
	}
	return b, nil
}

// Actor is who asks for a cancellation. Operators may cancel any booking.
type Actor struct {
	UserID   string
	Operator bool
}

func (m *Manager) Cancel(ctx context.Context, id string, actor Actor) (model.Booking, error) {
	b, err := m.get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !actor.Operator && b.UserID != actor.UserID {
		return model.Booking{}, ErrForbidden.WithMessage("booking belongs to another customer")
	}
	who := "customer"
	if actor.Operator {
		who = "operator"
	}
	return m.transition(ctx, b, model.StatusCancelled, model.AuditBookingCancelled, EventBookingCancelled,
		fmt.Sprintf("%s cancelled booking %s (%s %s)", who, b.ID, b.Date, b.Time))
}

// Complete marks a BOOKED booking as served. Only check-in calls it.
func (m *Manager) Complete(ctx context.Context, id string) (model.Booking, error) {
	b, err := m.get(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	return m.transition(ctx, b, model.StatusCompleted, model.AuditBookingCompleted, EventBookingCompleted,
		fmt.Sprintf("checked in %s for %s at %s", b.CustomerName, b.Date, b.Time))
}

// Expire marks a BOOKED booking whose slot has ended. Only the sweeper calls it.
func (m *Manager) Expire(ctx context.Context, b model.Booking) (model.Booking, error) {
	return m.transition(ctx, b, model.StatusExpired, model.AuditBookingExpired, EventBookingExpired,
		fmt.Sprintf("booking %s (%s %s) expired", b.ID, b.Date, b.Time))
}

func (m *Manager) get(ctx context.Context, id string) (model.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Booking{}, ErrInvalidRequest.WithMessage("booking id is required")
	}
	b, err := m.store.GetBooking(ctx, id)
	if err != nil {
		return model.Booking{}, persistence("get booking", err)
	}
	return b, nil
}

func (m *Manager) transition(ctx context.Context, b model.Booking, to model.Status, action, eventType, detail string) (model.Booking, error) {
	ctx, span := m.tracer.Start(ctx, "booking.transition", trace.WithAttributes(
		attribute.String("booking.id", b.ID),
		attribute.String("booking.to", string(to)),
	))
	defer span.End()

	if b.Status != model.StatusBooked {
		span.SetStatus(codes.Error, string(CodeInvalidTransition))
		return model.Booking{}, ErrInvalidTransition.WithMessage("booking is %s", b.Status)
	}
	next := b
	next.Status = to
	fx, err := effects(next, action, eventType, detail)
	if err != nil {
		return model.Booking{}, err
	}
	if err := m.store.TransitionBooking(ctx, b.ID, model.StatusBooked, to, fx); err != nil {
		err = persistence("transition booking", err)
		span.SetStatus(codes.Error, string(CodeOf(err)))
		if errors.Is(err, ErrPersistenceFailure) {
			span.RecordError(err)
			m.logger.Error("booking transition failed", "err", err, "booking_id", b.ID, "to", to)
		}
		return model.Booking{}, err
	}
	m.metrics.ObserveTransition(string(to))
	m.logger.Info("booking transitioned", "booking_id", b.ID, "from", b.Status, "to", to)
	return next, nil
}

// History lists a customer's bookings, newest first, every status included.
func (m *Manager) History(ctx context.Context, userID string) ([]model.Booking, error) {
	out, err := m.store.ListBookings(ctx, BookingFilter{UserID: userID, NewestFirst: true})
	if err != nil {
		return nil, persistence("list history", err)
	}
	return out, nil
}

func (m *Manager) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	out, err := m.store.ListBookings(ctx, f)
	if err != nil {
		return nil, persistence("list bookings", err)
	}
	return out, nil
}

type eventPayload struct {
	BookingID     string `json:"booking_id"`
	ProviderID    string `json:"provider_id"`
	UserID        string `json:"user_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
}

func effects(b model.Booking, action, eventType, detail string) (Effects, error) {
	payload, err := json.Marshal(eventPayload{
		BookingID:     b.ID,
		ProviderID:    b.ProviderID,
		UserID:        b.UserID,
		CustomerName:  b.CustomerName,
		CustomerPhone: b.CustomerPhone,
		Date:          b.Date.String(),
		Time:          b.Time.String(),
		Status:        string(b.Status),
	})
	if err != nil {
		return Effects{}, fmt.Errorf("build %s payload: %w", eventType, err)
	}
	return Effects{AuditAction: action, AuditDetail: detail, EventType: eventType, Payload: payload}, nil
}

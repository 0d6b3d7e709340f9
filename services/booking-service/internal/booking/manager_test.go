package booking_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking/bookingtest"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Monday 2024-06-03 09:10 local.
var monday = time.Date(2024, 6, 3, 9, 10, 0, 0, time.UTC)

func newManager(t *testing.T, settings model.Settings, now time.Time) (*booking.Manager, *bookingtest.Store) {
	t.Helper()
	store := bookingtest.NewStore(settings, model.DefaultProviders()...)
	m := booking.NewManager(store,
		availability.NewCalendar(availability.DefaultHolidays()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		booking.WithClock(func() time.Time { return now }),
		booking.WithLocation(time.UTC),
	)
	return m, store
}

func request(provider, date, at string) booking.CreateRequest {
	return booking.CreateRequest{
		ProviderID:    provider,
		UserID:        "user-1",
		UserName:      "sam",
		CustomerName:  "Sam",
		CustomerPhone: "555-0100",
		Date:          date,
		Time:          at,
	}
}

func TestCreateThenSlotTaken(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	ctx := context.Background()

	b, err := m.Create(ctx, request("b1", "2024-06-03", "10:15"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.ID == "" || b.Status != model.StatusBooked || b.UserName != "sam" {
		t.Fatalf("unexpected booking %+v", b)
	}
	fx := store.Effects()
	if len(fx) != 1 || fx[0].EventType != booking.EventBookingCreated || fx[0].AuditAction != model.AuditBookingCreated {
		t.Fatalf("unexpected effects %+v", fx)
	}

	other := request("b1", "2024-06-03", "10:15")
	other.UserID = "user-2"
	if _, err := m.Create(ctx, other); !errors.Is(err, booking.ErrSlotTaken) {
		t.Fatalf("expected SlotTaken, got %v", err)
	}

	if _, err := m.Create(ctx, request("b2", "2024-06-03", "10:15")); err != nil {
		t.Fatalf("same slot with another provider should succeed: %v", err)
	}
}

func TestCreateCapacityExceeded(t *testing.T) {
	settings := model.DefaultSettings()
	settings.MaxPerProviderPerDay = 2
	m, _ := newManager(t, settings, monday)
	ctx := context.Background()

	for _, at := range []string{"09:30", "10:15"} {
		if _, err := m.Create(ctx, request("b1", "2024-06-03", at)); err != nil {
			t.Fatalf("Create %s: %v", at, err)
		}
	}
	if _, err := m.Create(ctx, request("b1", "2024-06-03", "11:00")); !errors.Is(err, booking.ErrCapacityExceeded) {
		t.Fatalf("expected CapacityExceeded, got %v", err)
	}
}

func TestCreateValidationOrder(t *testing.T) {
	settings := model.DefaultSettings()
	settings.MaxPerProviderPerDay = 1
	m, store := newManager(t, settings, monday)
	ctx := context.Background()

	cases := []struct {
		name string
		req  booking.CreateRequest
		want *booking.Error
	}{
		{"saturday", request("b1", "2024-06-08", "10:15"), booking.ErrNonWorkingDay},
		{"past slot today", request("b1", "2024-06-03", "08:45"), booking.ErrSlotInPast},
		{"yesterday", request("b1", "2024-05-31", "16:15"), booking.ErrSlotInPast},
		{"not a slot", request("b1", "2024-06-04", "10:00"), booking.ErrInvalidRequest},
		{"unknown provider", request("zz", "2024-06-04", "10:15"), booking.ErrInvalidRequest},
		{"missing phone", func() booking.CreateRequest { r := request("b1", "2024-06-04", "10:15"); r.CustomerPhone = " "; return r }(), booking.ErrInvalidRequest},
	}
	for _, tc := range cases {
		if _, err := m.Create(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.want.Code, err)
		}
	}

	// Capacity is checked before occupancy: a full day reports CapacityExceeded
	// even for the occupied slot itself.
	store.Seed(model.Booking{ID: "x", ProviderID: "b1", Date: "2024-06-04", Time: "10:15", Status: model.StatusBooked})
	if _, err := m.Create(ctx, request("b1", "2024-06-04", "10:15")); !errors.Is(err, booking.ErrCapacityExceeded) {
		t.Fatalf("expected CapacityExceeded, got %v", err)
	}
}

func TestCreateHolidayAndHorizon(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, model.DefaultSettings(), time.Date(2024, 9, 30, 9, 0, 0, 0, time.UTC))
	if _, err := m.Create(ctx, request("b1", "2024-10-01", "10:15")); !errors.Is(err, booking.ErrNonWorkingDay) {
		t.Fatalf("holiday: expected NonWorkingDay, got %v", err)
	}

	m, _ = newManager(t, model.DefaultSettings(), monday)
	if got := m.LastBookableDate(); got != "2024-06-09" {
		t.Fatalf("expected last bookable date 2024-06-09, got %s", got)
	}
	for _, date := range []string{"2024-06-10", "2031-06-03"} {
		if _, err := m.Create(ctx, request("b1", date, "10:15")); !errors.Is(err, booking.ErrInvalidRequest) {
			t.Fatalf("%s: expected InvalidRequest past the horizon, got %v", date, err)
		}
	}
	if _, err := m.Create(ctx, request("b1", "2024-06-07", "10:15")); err != nil {
		t.Fatalf("last weekday inside the horizon should be bookable: %v", err)
	}

	store := bookingtest.NewStore(model.DefaultSettings(), model.DefaultProviders()...)
	wide := booking.NewManager(store, availability.NewCalendar(nil), slog.New(slog.NewTextHandler(io.Discard, nil)),
		booking.WithClock(func() time.Time { return monday }),
		booking.WithLocation(time.UTC),
		booking.WithHorizonDays(30),
	)
	if _, err := wide.Create(ctx, request("b1", "2024-06-28", "10:15")); err != nil {
		t.Fatalf("a 30 day horizon should accept 2024-06-28: %v", err)
	}
}

func TestCurrentMinuteIsBookable(t *testing.T) {
	now := time.Date(2024, 6, 3, 9, 30, 40, 0, time.UTC)
	m, _ := newManager(t, model.DefaultSettings(), now)
	if _, err := m.Create(context.Background(), request("b1", "2024-06-03", "09:30")); err != nil {
		t.Fatalf("expected current slot to be bookable, got %v", err)
	}
}

func TestCancelRoundTrip(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	ctx := context.Background()

	b, err := m.Create(ctx, request("b1", "2024-06-04", "12:30"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	occupied := func() bool {
		snap, _ := store.ListBookings(ctx, booking.BookingFilter{ProviderID: "b1", Date: "2024-06-04"})
		ev, err := availability.NewEvaluator(model.DefaultSettings(), nil, snap)
		if err != nil {
			t.Fatalf("NewEvaluator: %v", err)
		}
		return ev.IsSlotOccupied("b1", "2024-06-04", "12:30")
	}
	if !occupied() {
		t.Fatal("slot should be occupied after create")
	}

	if _, err := m.Cancel(ctx, b.ID, booking.Actor{UserID: "someone-else"}); !errors.Is(err, booking.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	cancelled, err := m.Cancel(ctx, b.ID, booking.Actor{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}
	if occupied() {
		t.Fatal("slot should be free after cancel")
	}

	if _, err := m.Cancel(ctx, b.ID, booking.Actor{Operator: true}); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	if _, err := m.Create(ctx, request("b1", "2024-06-04", "12:30")); err != nil {
		t.Fatalf("rebooking a cancelled slot should succeed: %v", err)
	}
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	ctx := context.Background()
	store.Seed(
		model.Booking{ID: "done", ProviderID: "b1", UserID: "user-1", Date: "2024-06-03", Time: "08:00", Status: model.StatusCompleted},
		model.Booking{ID: "gone", ProviderID: "b1", UserID: "user-1", Date: "2024-06-03", Time: "08:45", Status: model.StatusExpired},
	)

	if _, err := m.Complete(ctx, "done"); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	gone, _ := store.Booking("gone")
	if _, err := m.Expire(ctx, gone); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	if _, err := m.Cancel(ctx, "missing", booking.Actor{Operator: true}); !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestStaleSnapshotTransitionLosesRace(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	ctx := context.Background()
	stale := model.Booking{ID: "r1", ProviderID: "b1", UserID: "user-1", Date: "2024-06-03", Time: "08:00", Status: model.StatusBooked}
	store.Seed(stale)

	if _, err := m.Complete(ctx, "r1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	// The sweeper still holds the BOOKED copy; the store's conditional write must refuse it.
	if _, err := m.Expire(ctx, stale); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
	got, _ := store.Booking("r1")
	if got.Status != model.StatusCompleted {
		t.Fatalf("expected COMPLETED to stick, got %s", got.Status)
	}
}

func TestPersistenceFailureWrapsCause(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	cause := errors.New("connection refused")
	store.Err = cause

	_, err := m.Create(context.Background(), request("b1", "2024-06-04", "10:15"))
	if !errors.Is(err, booking.ErrPersistenceFailure) {
		t.Fatalf("expected PersistenceFailure, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if booking.CodeOf(err) != booking.CodePersistenceFailure {
		t.Fatalf("unexpected code %s", booking.CodeOf(err))
	}
}

func TestConcurrentCreatesSameSlot(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	ctx := context.Background()

	const clients = 8
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(ctx, request("b3", "2024-06-05", "14:00"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, booking.ErrSlotTaken):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one winner, got %d", ok)
	}
	snap, _ := store.ListBookings(ctx, booking.BookingFilter{ProviderID: "b3", Date: "2024-06-05", Statuses: []model.Status{model.StatusBooked}})
	if len(snap) != 1 {
		t.Fatalf("expected one BOOKED row, got %d", len(snap))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	m, store := newManager(t, model.DefaultSettings(), monday)
	store.Seed(
		model.Booking{ID: "a", ProviderID: "b1", UserID: "user-1", Date: "2024-06-01", Time: "08:00", Status: model.StatusCompleted},
		model.Booking{ID: "b", ProviderID: "b1", UserID: "user-1", Date: "2024-06-05", Time: "08:00", Status: model.StatusCancelled},
		model.Booking{ID: "c", ProviderID: "b1", UserID: "user-2", Date: "2024-06-06", Time: "08:00", Status: model.StatusBooked},
	)
	got, err := m.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected history %+v", got)
	}
}

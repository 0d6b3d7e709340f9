package availability

import (
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// busyRatio marks a provider's day as busy on the capacity board.
const busyRatio = 0.7

// Evaluator answers bookability questions over one snapshot of bookings.
// Only bookings whose status consumes a slot (BOOKED, COMPLETED) count.
type Evaluator struct {
	settings model.Settings
	slots    []model.Clock
	calendar *Calendar
	bookings []model.Booking
}

func NewEvaluator(settings model.Settings, calendar *Calendar, bookings []model.Booking) (*Evaluator, error) {
	slots, err := SlotsFor(settings)
	if err != nil {
		return nil, err
	}
	if calendar == nil {
		calendar = NewCalendar(nil)
	}
	return &Evaluator{settings: settings, slots: slots, calendar: calendar, bookings: bookings}, nil
}

func (e *Evaluator) Slots() []model.Clock { return e.slots }

func (e *Evaluator) IsSlot(c model.Clock) bool { return containsSlot(e.slots, c) }

func (e *Evaluator) ActiveCountFor(providerID string, date model.Date) int {
	n := 0
	for _, b := range e.bookings {
		if b.ProviderID == providerID && b.Date == date && b.Status.Consumes() {
			n++
		}
	}
	return n
}

func (e *Evaluator) IsSlotOccupied(providerID string, date model.Date, at model.Clock) bool {
	for _, b := range e.bookings {
		if b.ProviderID == providerID && b.Date == date && b.Time == at && b.Status.Consumes() {
			return true
		}
	}
	return false
}

func (e *Evaluator) IsDayFull(providerID string, date model.Date) bool {
	return e.ActiveCountFor(providerID, date) >= e.settings.MaxPerProviderPerDay
}

func (e *Evaluator) IsNonWorkingDay(date model.Date) bool {
	return e.calendar.IsNonWorkingDay(date)
}

// TheoreticalMax caps the configured daily maximum at what the schedule can
// physically offer.
func TheoreticalMax(s model.Settings) int {
	return min(s.MaxPerProviderPerDay, SlotCount(s))
}

// IsPast reports whether (date, at) is before now's minute. now must already
// be in the business's location.
func IsPast(date model.Date, at model.Clock, now time.Time) bool {
	today := model.DateOf(now)
	if date != today {
		return date < today
	}
	return at < model.ClockOf(now)
}

type SlotView struct {
	Time      model.Clock
	Period    Period
	Occupied  bool
	Past      bool
	Available bool
}

type DayView struct {
	ProviderID    string
	Date          model.Date
	NonWorkingDay bool
	Full          bool
	Booked        int
	Max           int
	Slots         []SlotView
}

// DayAvailability renders every slot of the day for one provider.
func (e *Evaluator) DayAvailability(providerID string, date model.Date, now time.Time) DayView {
	view := DayView{
		ProviderID:    providerID,
		Date:          date,
		NonWorkingDay: e.IsNonWorkingDay(date),
		Booked:        e.ActiveCountFor(providerID, date),
		Max:           e.settings.MaxPerProviderPerDay,
		Slots:         make([]SlotView, 0, len(e.slots)),
	}
	view.Full = view.Booked >= view.Max
	for _, s := range e.slots {
		sv := SlotView{
			Time:     s,
			Period:   PeriodOf(s),
			Occupied: e.IsSlotOccupied(providerID, date, s),
			Past:     IsPast(date, s, now),
		}
		sv.Available = !view.NonWorkingDay && !view.Full && !sv.Occupied && !sv.Past
		view.Slots = append(view.Slots, sv)
	}
	return view
}

type CapacityCell struct {
	ProviderID string
	Date       model.Date
	Booked     int
	Max        int
	Full       bool
	Busy       bool
}

// Capacity builds the provider x date board shown on the dashboard.
func (e *Evaluator) Capacity(providerIDs []string, dates []model.Date) []CapacityCell {
	maxPerDay := TheoreticalMax(e.settings)
	cells := make([]CapacityCell, 0, len(providerIDs)*len(dates))
	for _, p := range providerIDs {
		for _, d := range dates {
			booked := e.ActiveCountFor(p, d)
			cells = append(cells, CapacityCell{
				ProviderID: p,
				Date:       d,
				Booked:     booked,
				Max:        maxPerDay,
				Full:       booked >= maxPerDay,
				Busy:       float64(booked) >= float64(maxPerDay)*busyRatio,
			})
		}
	}
	return cells
}

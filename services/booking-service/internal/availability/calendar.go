package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// Calendar knows which days the shop is closed.
type Calendar struct {
	weekend  map[time.Weekday]bool
	holidays map[model.Date]bool
}

// NewCalendar closes the given weekdays (Saturday and Sunday when none are
// passed) and every listed holiday.
func NewCalendar(holidays []model.Date, weekend ...time.Weekday) *Calendar {
	if len(weekend) == 0 {
		weekend = []time.Weekday{time.Saturday, time.Sunday}
	}
	c := &Calendar{
		weekend:  make(map[time.Weekday]bool, len(weekend)),
		holidays: make(map[model.Date]bool, len(holidays)),
	}
	for _, d := range weekend {
		c.weekend[d] = true
	}
	for _, h := range holidays {
		c.holidays[h] = true
	}
	return c
}

func (c *Calendar) IsHoliday(d model.Date) bool {
	return c.holidays[d]
}

func (c *Calendar) IsWeekend(d model.Date) bool {
	wd, err := d.Weekday()
	if err != nil {
		return false
	}
	return c.weekend[wd]
}

func (c *Calendar) IsNonWorkingDay(d model.Date) bool {
	return c.IsWeekend(d) || c.IsHoliday(d)
}

// DefaultHolidays is the shop's built-in holiday list.
func DefaultHolidays() []model.Date {
	return []model.Date{
		"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05",
		"2024-06-08", "2024-06-09", "2024-06-10",
		"2024-09-15", "2024-09-16", "2024-09-17",
		"2024-10-01", "2024-10-02", "2024-10-03", "2024-10-04", "2024-10-05", "2024-10-06", "2024-10-07",
	}
}

func ParseHolidays(raw []string) ([]model.Date, error) {
	out := make([]model.Date, 0, len(raw))
	for _, r := range raw {
		d, err := model.ParseDate(strings.TrimSpace(r))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays accepts three-letter day names ("sat", "sun").
func ParseWeekdays(raw []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(raw))
	for _, r := range raw {
		key := strings.ToLower(strings.TrimSpace(r))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", r)
		}
		out = append(out, wd)
	}
	return out, nil
}

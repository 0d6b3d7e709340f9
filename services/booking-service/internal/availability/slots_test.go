package availability

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

func TestGenerateSlots_DefaultSchedule(t *testing.T) {
	slots, err := GenerateSlots("08:00", "17:00", 45)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 12 {
		t.Fatalf("expected 12 slots, got %d: %v", len(slots), slots)
	}
	if slots[0] != "08:00" || slots[1] != "08:45" || slots[len(slots)-1] != "16:15" {
		t.Fatalf("unexpected slots %v", slots)
	}
}

func TestGenerateSlots_Properties(t *testing.T) {
	cases := []struct {
		open, close model.Clock
		duration    int
	}{
		{"08:00", "17:00", 45},
		{"08:00", "17:00", 40},
		{"09:30", "12:10", 25},
		{"00:00", "23:59", 1},
		{"10:00", "10:30", 45},
	}
	for _, tc := range cases {
		slots, err := GenerateSlots(tc.open, tc.close, tc.duration)
		if err != nil {
			t.Fatalf("%v: %v", tc, err)
		}
		want := (tc.close.Minutes() - tc.open.Minutes()) / tc.duration
		if len(slots) != want {
			t.Fatalf("%v: expected %d slots, got %d", tc, want, len(slots))
		}
		s := model.Settings{OpeningTime: tc.open, ClosingTime: tc.close, SlotDurationMinutes: tc.duration}
		if SlotCount(s) != want {
			t.Fatalf("%v: SlotCount mismatch", tc)
		}
		for i, slot := range slots {
			if slot >= tc.close {
				t.Fatalf("%v: slot %s not before closing", tc, slot)
			}
			if i > 0 && slot <= slots[i-1] {
				t.Fatalf("%v: sequence not increasing at %d", tc, i)
			}
		}
	}
}

func TestGenerateSlots_InvalidSchedule(t *testing.T) {
	for _, tc := range []struct {
		open, close model.Clock
		duration    int
	}{
		{"08:00", "17:00", 0},
		{"08:00", "17:00", -15},
		{"17:00", "08:00", 30},
		{"09:00", "09:00", 30},
		{"9am", "17:00", 30},
	} {
		if _, err := GenerateSlots(tc.open, tc.close, tc.duration); !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("%v: expected ErrInvalidSchedule, got %v", tc, err)
		}
	}
}

func TestPartitionDay(t *testing.T) {
	slots, _ := GenerateSlots("08:00", "17:00", 45)
	morning, afternoon := PartitionDay(slots)
	if len(morning) != 6 || morning[len(morning)-1] != "11:45" {
		t.Fatalf("unexpected morning %v", morning)
	}
	if len(afternoon) != 6 || afternoon[0] != "12:30" {
		t.Fatalf("unexpected afternoon %v", afternoon)
	}
}

func TestCalendar(t *testing.T) {
	cal := NewCalendar(DefaultHolidays())
	cases := map[model.Date]bool{
		"2024-05-01": true,  // holiday, Wednesday
		"2024-06-01": true,  // Saturday
		"2024-06-02": true,  // Sunday
		"2024-06-03": false, // Monday
		"2024-10-07": true,
	}
	for d, want := range cases {
		if got := cal.IsNonWorkingDay(d); got != want {
			t.Fatalf("IsNonWorkingDay(%s) = %v, want %v", d, got, want)
		}
	}

	days, err := ParseWeekdays([]string{"Friday"})
	if err != nil {
		t.Fatalf("ParseWeekdays: %v", err)
	}
	fri := NewCalendar(nil, days...)
	if !fri.IsNonWorkingDay("2024-06-07") || fri.IsNonWorkingDay("2024-06-08") {
		t.Fatal("custom weekend not honoured")
	}
	if _, err := ParseWeekdays([]string{"someday"}); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
	if _, err := ParseHolidays([]string{"2024-13-01"}); err == nil {
		t.Fatal("expected error for bad holiday")
	}
}

package queue

import (
	"math/rand"
	"testing"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

func bk(id, provider string, at model.Clock, st model.Status) model.Booking {
	return model.Booking{ID: id, ProviderID: provider, Date: "2024-05-10", Time: at, Status: st}
}

func TestBuildOrdersAndFilters(t *testing.T) {
	q := Build([]model.Booking{
		bk("c", "p1", "10:15", model.StatusBooked),
		bk("x", "p1", "08:00", model.StatusCancelled),
		bk("a", "p1", "08:45", model.StatusCompleted),
		bk("e", "p1", "09:30", model.StatusExpired),
		bk("b", "p1", "09:00", model.StatusBooked),
		bk("o", "p2", "08:00", model.StatusBooked),
		{ID: "d", ProviderID: "p1", Date: "2024-05-11", Time: "08:00", Status: model.StatusBooked},
	}, "p1", "2024-05-10")

	var ids string
	for _, b := range q.Entries {
		ids += b.ID
	}
	if ids != "abc" {
		t.Fatalf("expected order abc, got %q", ids)
	}
	next, ok := q.NextUp()
	if !ok || next.ID != "b" {
		t.Fatalf("expected next up b, got %v %v", next.ID, ok)
	}
	if q.Served() != 1 || len(q.Waiting()) != 2 {
		t.Fatalf("served=%d waiting=%d", q.Served(), len(q.Waiting()))
	}
	if ahead := q.Ahead("10:15"); len(ahead) != 1 || ahead[0].ID != "b" {
		t.Fatalf("unexpected ahead %+v", ahead)
	}
	if ahead := q.Ahead("09:00"); len(ahead) != 0 {
		t.Fatalf("completed entries must not count as ahead: %+v", ahead)
	}
}

func TestNextUpFullyServed(t *testing.T) {
	q := Build([]model.Booking{bk("a", "p1", "08:00", model.StatusCompleted)}, "p1", "2024-05-10")
	if _, ok := q.NextUp(); ok {
		t.Fatal("expected fully served queue")
	}
	if _, ok := Build(nil, "p1", "2024-05-10").NextUp(); ok {
		t.Fatal("expected empty queue to have no next up")
	}
}

func TestNextUpIsEarliestBooked(t *testing.T) {
	statuses := []model.Status{model.StatusBooked, model.StatusCompleted, model.StatusCancelled, model.StatusExpired}
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var bookings []model.Booking
		for i := 0; i < 10; i++ {
			at := model.ClockFromMinutes(8*60 + rng.Intn(18)*30)
			bookings = append(bookings, bk(string(rune('a'+i)), "p1", at, statuses[rng.Intn(len(statuses))]))
		}
		q := Build(bookings, "p1", "2024-05-10")
		next, ok := q.NextUp()
		for _, b := range bookings {
			if b.Status != model.StatusBooked {
				continue
			}
			if !ok {
				t.Fatalf("round %d: BOOKED entry %s exists but no next up", round, b.ID)
			}
			if next.Time > b.Time {
				t.Fatalf("round %d: next up %s later than booked %s", round, next.Time, b.Time)
			}
		}
	}
}

func TestBoard(t *testing.T) {
	providers := []model.Provider{{ID: "p1"}, {ID: "p2"}}
	board := Board([]model.Booking{
		bk("a", "p1", "08:00", model.StatusBooked),
		bk("b", "p2", "09:00", model.StatusBooked),
		bk("c", "p2", "08:00", model.StatusBooked),
	}, providers, "2024-05-10")
	if len(board) != 2 || board[0].ProviderID != "p1" || len(board[1].Entries) != 2 {
		t.Fatalf("unexpected board %+v", board)
	}
	if next, _ := board[1].NextUp(); next.ID != "c" {
		t.Fatalf("expected c next for p2, got %s", next.ID)
	}
}

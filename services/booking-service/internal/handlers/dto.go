package handlers

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/queue"
)

type bookingItem struct {
	ID            string `json:"id"`
	ProviderID    string `json:"provider_id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		ID:            b.ID,
		ProviderID:    b.ProviderID,
		UserID:        b.UserID,
		UserName:      b.UserName,
		CustomerName:  b.CustomerName,
		CustomerPhone: b.CustomerPhone,
		Date:          b.Date.String(),
		Time:          b.Time.String(),
		Status:        string(b.Status),
	}
	if !b.CreatedAt.IsZero() {
		item.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func toBookingItems(bs []model.Booking) []bookingItem {
	out := make([]bookingItem, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingItem(b))
	}
	return out
}

type providerItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

func toProviderItem(p model.Provider) providerItem {
	return providerItem{ID: p.ID, Name: p.Name, Specialty: p.Specialty, AvatarURL: p.AvatarURL, Bio: p.Bio}
}

func (p providerItem) model(id string) model.Provider {
	return model.Provider{ID: id, Name: p.Name, Specialty: p.Specialty, AvatarURL: p.AvatarURL, Bio: p.Bio}
}

type settingsItem struct {
	OpeningTime          string `json:"opening_time"`
	ClosingTime          string `json:"closing_time"`
	SlotDurationMinutes  int    `json:"slot_duration_minutes"`
	MaxPerProviderPerDay int    `json:"max_per_provider_per_day"`
	SlotCount            int    `json:"slot_count"`
	UpdatedAt            string `json:"updated_at,omitempty"`
}

func toSettingsItem(s model.Settings) settingsItem {
	item := settingsItem{
		OpeningTime:          s.OpeningTime.String(),
		ClosingTime:          s.ClosingTime.String(),
		SlotDurationMinutes:  s.SlotDurationMinutes,
		MaxPerProviderPerDay: s.MaxPerProviderPerDay,
		SlotCount:            availability.SlotCount(s),
	}
	if !s.UpdatedAt.IsZero() {
		item.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

type slotItem struct {
	Time      string `json:"time"`
	Period    string `json:"period"`
	Occupied  bool   `json:"occupied"`
	Past      bool   `json:"past"`
	Available bool   `json:"available"`
}

type dayResponse struct {
	ProviderID    string     `json:"provider_id"`
	Date          string     `json:"date"`
	NonWorkingDay bool       `json:"non_working_day"`
	Full          bool       `json:"full"`
	Booked        int        `json:"booked"`
	Max           int        `json:"max"`
	Slots         []slotItem `json:"slots"`
}

func toDayResponse(v availability.DayView) dayResponse {
	out := dayResponse{
		ProviderID:    v.ProviderID,
		Date:          v.Date.String(),
		NonWorkingDay: v.NonWorkingDay,
		Full:          v.Full,
		Booked:        v.Booked,
		Max:           v.Max,
		Slots:         make([]slotItem, 0, len(v.Slots)),
	}
	for _, s := range v.Slots {
		out.Slots = append(out.Slots, slotItem{
			Time:      s.Time.String(),
			Period:    string(s.Period),
			Occupied:  s.Occupied,
			Past:      s.Past,
			Available: s.Available,
		})
	}
	return out
}

type queueResponse struct {
	ProviderID string        `json:"provider_id"`
	Date       string        `json:"date"`
	Entries    []bookingItem `json:"entries"`
	NextUp     *bookingItem  `json:"next_up"`
	Served     int           `json:"served"`
	Waiting    int           `json:"waiting"`
}

func toQueueResponse(q queue.Queue) queueResponse {
	out := queueResponse{
		ProviderID: q.ProviderID,
		Date:       q.Date.String(),
		Entries:    toBookingItems(q.Entries),
		Served:     q.Served(),
		Waiting:    len(q.Waiting()),
	}
	if next, ok := q.NextUp(); ok {
		item := toBookingItem(next)
		out.NextUp = &item
	}
	return out
}

// publicQueueEntry is what anonymous viewers see of a queued booking. The
// booking id doubles as the check-in code, so it stays out.
type publicQueueEntry struct {
	Time     string `json:"time"`
	Status   string `json:"status"`
	Customer string `json:"customer"`
}

type publicQueueResponse struct {
	ProviderID string             `json:"provider_id"`
	Date       string             `json:"date"`
	Entries    []publicQueueEntry `json:"entries"`
	NextUp     *publicQueueEntry  `json:"next_up"`
	Served     int                `json:"served"`
	Waiting    int                `json:"waiting"`
}

func toPublicQueueEntry(b model.Booking) publicQueueEntry {
	return publicQueueEntry{Time: b.Time.String(), Status: string(b.Status), Customer: maskName(b.CustomerName)}
}

func toPublicQueueResponse(q queue.Queue) publicQueueResponse {
	out := publicQueueResponse{
		ProviderID: q.ProviderID,
		Date:       q.Date.String(),
		Entries:    make([]publicQueueEntry, 0, len(q.Entries)),
		Served:     q.Served(),
		Waiting:    len(q.Waiting()),
	}
	for _, b := range q.Entries {
		out.Entries = append(out.Entries, toPublicQueueEntry(b))
	}
	if next, ok := q.NextUp(); ok {
		item := toPublicQueueEntry(next)
		out.NextUp = &item
	}
	return out
}

// maskName keeps initials only: "Sam Doe" becomes "S. D.".
func maskName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "Guest"
	}
	initials := make([]string, 0, len(parts))
	for _, p := range parts {
		r, _ := utf8.DecodeRuneInString(p)
		initials = append(initials, string(unicode.ToUpper(r))+".")
	}
	return strings.Join(initials, " ")
}

type capacityItem struct {
	ProviderID    string `json:"provider_id"`
	Date          string `json:"date"`
	NonWorkingDay bool   `json:"non_working_day"`
	Booked        int    `json:"booked"`
	Max           int    `json:"max"`
	Full          bool   `json:"full"`
	Busy          bool   `json:"busy"`
}

type auditItem struct {
	ID        int64  `json:"id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}

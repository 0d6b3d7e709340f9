package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/checkin"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/queue"
)

const maxDashboardDays = 31

func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	providers, err := h.admin.ListProviders(r.Context())
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providerItems(providers)})
}

// ProviderToken returns the text to encode in a provider's booking QR code.
func (h *Handler) ProviderToken(w http.ResponseWriter, r *http.Request) {
	p, err := h.admin.GetProvider(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"provider_id": p.ID,
		"token":       checkin.ProviderToken(p.ID),
	})
}

// dateParam reads ?date=, defaulting to today in the business location.
func (h *Handler) dateParam(r *http.Request) (model.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return model.DateOf(h.manager.Now()), nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return "", badRequest("%v", err)
	}
	return d, nil
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		writeError(w, h.logger, badRequest("provider_id is required"))
		return
	}
	date, err := h.dateParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.admin.GetProvider(ctx, providerID); err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	settings, err := h.admin.GetSettings(ctx)
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	bookings, err := h.manager.List(ctx, booking.BookingFilter{ProviderID: providerID, Date: date})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	ev, err := availability.NewEvaluator(settings, h.manager.Calendar(), bookings)
	if err != nil {
		writeError(w, h.logger, booking.ErrInvalidRequest.WithMessage("business hours are misconfigured: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, toDayResponse(ev.DayAvailability(providerID, date, h.manager.Now())))
}

// Dashboard returns the provider x day capacity board starting today plus
// today's queue for every provider.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDashboardDays {
			writeError(w, h.logger, badRequest("days must be between 1 and %d", maxDashboardDays))
			return
		}
		days = n
	}

	providers, err := h.admin.ListProviders(ctx)
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	settings, err := h.admin.GetSettings(ctx)
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}

	today := model.DateOf(h.manager.Now())
	dates := make([]model.Date, 0, days)
	var snapshot, todays []model.Booking
	for i := 0; i < days; i++ {
		d := today.AddDays(i)
		dates = append(dates, d)
		bs, err := h.manager.List(ctx, booking.BookingFilter{Date: d})
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if i == 0 {
			todays = bs
		}
		snapshot = append(snapshot, bs...)
	}

	ev, err := availability.NewEvaluator(settings, h.manager.Calendar(), snapshot)
	if err != nil {
		writeError(w, h.logger, booking.ErrInvalidRequest.WithMessage("business hours are misconfigured: %v", err))
		return
	}
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		ids = append(ids, p.ID)
	}
	cells := ev.Capacity(ids, dates)
	capacity := make([]capacityItem, 0, len(cells))
	for _, c := range cells {
		capacity = append(capacity, capacityItem{
			ProviderID:    c.ProviderID,
			Date:          c.Date.String(),
			NonWorkingDay: ev.IsNonWorkingDay(c.Date),
			Booked:        c.Booked,
			Max:           c.Max,
			Full:          c.Full,
			Busy:          c.Busy,
		})
	}
	queues := make([]publicQueueResponse, 0, len(providers))
	for _, q := range queue.Board(todays, providers, today) {
		queues = append(queues, toPublicQueueResponse(q))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"today":     today.String(),
		"settings":  toSettingsItem(settings),
		"providers": providerItems(providers),
		"capacity":  capacity,
		"queues":    queues,
	})
}

// Queue is the anonymous waiting-room view: times, statuses and initials.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	if q, ok := h.loadQueue(w, r); ok {
		writeJSON(w, http.StatusOK, toPublicQueueResponse(q))
	}
}

// AdminQueue is the staff view of the same queue, booking ids and contact
// details included.
func (h *Handler) AdminQueue(w http.ResponseWriter, r *http.Request) {
	if q, ok := h.loadQueue(w, r); ok {
		writeJSON(w, http.StatusOK, toQueueResponse(q))
	}
}

func (h *Handler) loadQueue(w http.ResponseWriter, r *http.Request) (queue.Queue, bool) {
	providerID := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	if providerID == "" {
		writeError(w, h.logger, badRequest("provider_id is required"))
		return queue.Queue{}, false
	}
	date, err := h.dateParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return queue.Queue{}, false
	}
	bookings, err := h.manager.List(r.Context(), booking.BookingFilter{ProviderID: providerID, Date: date})
	if err != nil {
		writeError(w, h.logger, err)
		return queue.Queue{}, false
	}
	return queue.Build(bookings, providerID, date), true
}

type scanRequest struct {
	Code string `json:"code"`
}

// Scan dispatches a scanned QR payload. Blocked scans still carry the result
// body so the scanner can show who is ahead.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.scan(w, r, req.Code)
}

// PublicScan accepts only provider booking codes. Checking a customer in
// completes their booking, so that stays behind a staff sign-in.
func (h *Handler) PublicScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if checkin.ParseScan(req.Code).Kind != checkin.KindProviderBooking {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{Code: "UNAUTHORIZED", Message: "checking in requires a staff sign-in"}})
		return
	}
	h.scan(w, r, req.Code)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request, code string) {
	res, err := h.checkin.Scan(r.Context(), code)
	if err != nil {
		status := statusFor(booking.CodeOf(err))
		if status == http.StatusServiceUnavailable || status == http.StatusInternalServerError {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func providerItems(ps []model.Provider) []providerItem {
	out := make([]providerItem, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProviderItem(p))
	}
	return out
}

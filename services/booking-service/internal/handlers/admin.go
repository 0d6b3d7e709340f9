package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

const defaultAuditLimit = 100

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.admin.GetSettings(r.Context())
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	writeJSON(w, http.StatusOK, toSettingsItem(s))
}

type settingsRequest struct {
	OpeningTime          string `json:"opening_time"`
	ClosingTime          string `json:"closing_time"`
	SlotDurationMinutes  int    `json:"slot_duration_minutes"`
	MaxPerProviderPerDay int    `json:"max_per_provider_per_day"`
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	opening, err := model.ParseClock(strings.TrimSpace(req.OpeningTime))
	if err != nil {
		writeError(w, h.logger, badRequest("opening_time: %v", err))
		return
	}
	closing, err := model.ParseClock(strings.TrimSpace(req.ClosingTime))
	if err != nil {
		writeError(w, h.logger, badRequest("closing_time: %v", err))
		return
	}
	saved, err := h.admin.SaveSettings(r.Context(), model.Settings{
		OpeningTime:          opening,
		ClosingTime:          closing,
		SlotDurationMinutes:  req.SlotDurationMinutes,
		MaxPerProviderPerDay: req.MaxPerProviderPerDay,
	})
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	h.logger.Info("settings updated", "opening", saved.OpeningTime, "closing", saved.ClosingTime,
		"slot_minutes", saved.SlotDurationMinutes, "max_per_day", saved.MaxPerProviderPerDay)
	writeJSON(w, http.StatusOK, toSettingsItem(saved))
}

func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.saveProvider(w, r, req.model(strings.TrimSpace(req.ID)), h.admin.CreateProvider, http.StatusCreated)
}

func (h *Handler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerItem
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id := r.PathValue("id")
	if _, err := h.admin.GetProvider(r.Context(), id); err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	h.saveProvider(w, r, req.model(id), h.admin.SaveProvider, http.StatusOK)
}

type providerWriter func(ctx context.Context, p model.Provider) (model.Provider, error)

func (h *Handler) saveProvider(w http.ResponseWriter, r *http.Request, p model.Provider, write providerWriter, status int) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		writeError(w, h.logger, badRequest("name is required"))
		return
	}
	saved, err := write(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	h.logger.Info("provider saved", "provider_id", saved.ID)
	writeJSON(w, status, toProviderItem(saved))
}

func (h *Handler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.admin.DeleteProvider(r.Context(), id); err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	h.logger.Info("provider deleted", "provider_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// AdminBookings lists every booking, optionally narrowed by provider_id,
// date and status.
func (h *Handler) AdminBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := booking.BookingFilter{ProviderID: strings.TrimSpace(q.Get("provider_id")), NewestFirst: true}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, h.logger, badRequest("%v", err))
			return
		}
		f.Date = d
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := model.ParseStatus(strings.ToUpper(strings.TrimSpace(part)))
			if err != nil {
				writeError(w, h.logger, badRequest("%v", err))
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, h.logger, badRequest("limit must be a positive integer"))
			return
		}
		f.Limit = n
	}
	bookings, err := h.manager.List(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": toBookingItems(bookings)})
}

func (h *Handler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsOf(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.manager.Cancel(r.Context(), r.PathValue("id"), booking.Actor{UserID: claims.Subject, Operator: true})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, h.logger, badRequest("limit must be between 1 and 1000"))
			return
		}
		limit = n
	}
	entries, err := h.admin.ListAudit(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, storeError(err))
		return
	}
	items := make([]auditItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, auditItem{
			ID:        e.ID,
			Action:    e.Action,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": items})
}

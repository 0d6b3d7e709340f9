package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/barberq/libs/auth"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
)

type createBookingRequest struct {
	ProviderID    string `json:"provider_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

func claimsOf(r *http.Request) (*auth.Claims, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		return nil, booking.ErrForbidden.WithMessage("sign in to manage bookings")
	}
	return claims, nil
}

// Create books a slot for the signed-in customer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsOf(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.manager.Create(r.Context(), booking.CreateRequest{
		ProviderID:    req.ProviderID,
		UserID:        claims.Subject,
		UserName:      claims.Name,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          req.Date,
		Time:          req.Time,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingItem(b))
}

// CancelOwn cancels one of the caller's own BOOKED bookings.
func (h *Handler) CancelOwn(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsOf(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.manager.Cancel(r.Context(), r.PathValue("id"), booking.Actor{UserID: claims.Subject})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(b))
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsOf(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	bookings, err := h.manager.History(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": toBookingItems(bookings)})
}

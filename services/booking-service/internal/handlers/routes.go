package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/barberq/libs/auth"
	"github.com/md-rashed-zaman/barberq/libs/httpx"
)

// Register mounts the booking API on mux. Customer routes need any valid
// token; admin routes and check-in scans need the operator role.
func (h *Handler) Register(mux *http.ServeMux, verifier *auth.Verifier) {
	mux.HandleFunc("GET /api/v1/public/providers", h.Providers)
	mux.HandleFunc("GET /api/v1/public/providers/{id}/qr-token", h.ProviderToken)
	mux.HandleFunc("GET /api/v1/public/slots", h.Slots)
	mux.HandleFunc("GET /api/v1/public/dashboard", h.Dashboard)
	mux.HandleFunc("GET /api/v1/queue", h.Queue)
	mux.HandleFunc("POST /api/v1/public/scan", h.PublicScan)

	user := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, auth.RequireAuth(verifier))
	}
	mux.Handle("POST /api/v1/bookings", user(h.Create))
	mux.Handle("POST /api/v1/bookings/{id}/cancel", user(h.CancelOwn))
	mux.Handle("GET /api/v1/bookings/mine", user(h.Mine))

	operator := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, auth.RequireAuth(verifier), auth.RequireRole(auth.RoleOperator))
	}
	mux.Handle("GET /api/v1/admin/settings", operator(h.GetSettings))
	mux.Handle("PUT /api/v1/admin/settings", operator(h.PutSettings))
	mux.Handle("GET /api/v1/admin/providers", operator(h.Providers))
	mux.Handle("POST /api/v1/admin/providers", operator(h.CreateProvider))
	mux.Handle("PUT /api/v1/admin/providers/{id}", operator(h.UpdateProvider))
	mux.Handle("DELETE /api/v1/admin/providers/{id}", operator(h.DeleteProvider))
	mux.Handle("GET /api/v1/admin/bookings", operator(h.AdminBookings))
	mux.Handle("POST /api/v1/admin/bookings/{id}/cancel", operator(h.AdminCancel))
	mux.Handle("GET /api/v1/admin/audit", operator(h.Audit))
	mux.Handle("GET /api/v1/admin/queue", operator(h.AdminQueue))
	mux.Handle("POST /api/v1/scan", operator(h.Scan))
}

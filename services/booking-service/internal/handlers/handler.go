package handlers

import (
	"context"
	"log/slog"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/checkin"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// AdminStore is the roster, settings and audit surface behind the operator
// endpoints.
type AdminStore interface {
	ListProviders(ctx context.Context) ([]model.Provider, error)
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	CreateProvider(ctx context.Context, p model.Provider) (model.Provider, error)
	SaveProvider(ctx context.Context, p model.Provider) (model.Provider, error)
	DeleteProvider(ctx context.Context, id string) error
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error)
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

type Handler struct {
	manager *booking.Manager
	admin   AdminStore
	checkin *checkin.Processor
	logger  *slog.Logger
}

func New(manager *booking.Manager, admin AdminStore, processor *checkin.Processor, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, admin: admin, checkin: processor, logger: logger}
}

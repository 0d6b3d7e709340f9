package model

import "time"

const (
	AuditBookingCreated   = "booking.created"
	AuditBookingCancelled = "booking.cancelled"
	AuditBookingCompleted = "booking.completed"
	AuditBookingExpired   = "booking.expired"
	AuditSettingsUpdated  = "settings.updated"
	AuditProviderSaved    = "provider.saved"
	AuditProviderDeleted  = "provider.deleted"
)

type AuditEntry struct {
	ID        int64
	Action    string
	Detail    string
	CreatedAt time.Time
}

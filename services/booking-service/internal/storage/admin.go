package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/barberq/libs/outbox"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// GetSettings returns the singleton settings row, or the defaults when the
// operator has never saved any.
func (r *Repository) GetSettings(ctx context.Context) (model.Settings, error) {
	var (
		s                model.Settings
		opening, closing string
	)
	err := r.db.QueryRow(ctx, `
		SELECT opening_time, closing_time, slot_duration_minutes, max_per_provider_per_day, updated_at
		FROM business_settings
		WHERE id = 1
	`).Scan(&opening, &closing, &s.SlotDurationMinutes, &s.MaxPerProviderPerDay, &s.UpdatedAt)
	if IsNotFound(err) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	s.OpeningTime, s.ClosingTime = model.Clock(opening), model.Clock(closing)
	return s, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	if err := s.Validate(); err != nil {
		return model.Settings{}, booking.ErrInvalidRequest.WithMessage("%v", err)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO business_settings (id, opening_time, closing_time, slot_duration_minutes, max_per_provider_per_day, updated_at)
		VALUES (1, $1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET opening_time = EXCLUDED.opening_time,
			closing_time = EXCLUDED.closing_time,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			max_per_provider_per_day = EXCLUDED.max_per_provider_per_day,
			updated_at = now()
		RETURNING updated_at
	`, string(s.OpeningTime), string(s.ClosingTime), s.SlotDurationMinutes, s.MaxPerProviderPerDay).Scan(&s.UpdatedAt)
	if err != nil {
		return model.Settings{}, err
	}
	detail := fmt.Sprintf("hours %s-%s, %d min slots, max %d per provider", s.OpeningTime, s.ClosingTime, s.SlotDurationMinutes, s.MaxPerProviderPerDay)
	if err := insertAudit(ctx, tx, model.AuditSettingsUpdated, detail); err != nil {
		return model.Settings{}, err
	}
	return s, tx.Commit(ctx)
}

const providerColumns = `id, name, specialty, avatar_url, bio`

func (r *Repository) ListProviders(ctx context.Context) ([]model.Provider, error) {
	providers, err := r.listProviders(ctx)
	if err != nil {
		return nil, err
	}
	if len(providers) > 0 || !r.seedProviders {
		return providers, nil
	}
	if err := r.seedDefaultProviders(ctx); err != nil {
		return nil, err
	}
	return r.listProviders(ctx)
}

func (r *Repository) listProviders(ctx context.Context) ([]model.Provider, error) {
	rows, err := r.db.Query(ctx, `SELECT `+providerColumns+` FROM providers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Provider
	for rows.Next() {
		var p model.Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Specialty, &p.AvatarURL, &p.Bio); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) seedDefaultProviders(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, p := range model.DefaultProviders() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, avatar_url, bio)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Name, p.Specialty, p.AvatarURL, p.Bio); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	var p model.Provider
	err := r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Specialty, &p.AvatarURL, &p.Bio)
	if IsNotFound(err) {
		return model.Provider{}, booking.ErrNotFound.WithMessage("provider %s not found", id)
	}
	return p, err
}

// CreateProvider inserts p and fails with ErrAlreadyExists when the id is
// taken. An empty id gets a fresh UUID.
func (r *Repository) CreateProvider(ctx context.Context, p model.Provider) (model.Provider, error) {
	return r.writeProvider(ctx, p, `
		INSERT INTO providers (id, name, specialty, avatar_url, bio)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`)
}

// SaveProvider inserts p, or updates it when the id already exists. An empty
// id gets a fresh UUID.
func (r *Repository) SaveProvider(ctx context.Context, p model.Provider) (model.Provider, error) {
	return r.writeProvider(ctx, p, `
		INSERT INTO providers (id, name, specialty, avatar_url, bio)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			specialty = EXCLUDED.specialty,
			avatar_url = EXCLUDED.avatar_url,
			bio = EXCLUDED.bio,
			updated_at = now()
	`)
}

func (r *Repository) writeProvider(ctx context.Context, p model.Provider, query string) (model.Provider, error) {
	if p.Name == "" {
		return model.Provider{}, booking.ErrInvalidRequest.WithMessage("provider name is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.Provider{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, query, p.ID, p.Name, p.Specialty, p.AvatarURL, p.Bio)
	if err != nil {
		return model.Provider{}, err
	}
	if tag.RowsAffected() == 0 {
		return model.Provider{}, booking.ErrAlreadyExists.WithMessage("provider %s already exists", p.ID)
	}
	if err := insertAudit(ctx, tx, model.AuditProviderSaved, fmt.Sprintf("saved provider %s (%s)", p.Name, p.ID)); err != nil {
		return model.Provider{}, err
	}
	return p, tx.Commit(ctx)
}

// DeleteProvider removes the provider. Their bookings stay for history.
func (r *Repository) DeleteProvider(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound.WithMessage("provider %s not found", id)
	}
	if err := insertAudit(ctx, tx, model.AuditProviderDeleted, "deleted provider "+id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) AppendAudit(ctx context.Context, action, detail string) error {
	return insertAudit(ctx, r.db, action, detail)
}

// ListAudit returns the newest entries first.
func (r *Repository) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, action, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func insertAudit(ctx context.Context, ex outbox.Execer, action, detail string) error {
	_, err := ex.Exec(ctx, `INSERT INTO audit_log (action, detail) VALUES ($1, $2)`, action, detail)
	return err
}

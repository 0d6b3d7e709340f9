package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/barberq/libs/db"
	"github.com/md-rashed-zaman/barberq/libs/outbox"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
)

// DB is the subset of *db.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres booking.Store plus the administration queries.
type Repository struct {
	db            DB
	outbox        *outbox.Repository
	seedProviders bool
}

type Option func(*Repository)

// WithProviderSeed fills an empty provider table with model.DefaultProviders
// on first read.
func WithProviderSeed(enabled bool) Option {
	return func(r *Repository) { r.seedProviders = enabled }
}

func NewRepository(db DB, outboxRepo *outbox.Repository, opts ...Option) *Repository {
	if outboxRepo == nil {
		outboxRepo = outbox.NewRepository()
	}
	r := &Repository{db: db, outbox: outboxRepo}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const bookingColumns = `id::text, provider_id, user_id, user_name, customer_name, customer_phone, booking_date, time_slot, status, created_at`

func (r *Repository) ListBookings(ctx context.Context, f booking.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ProviderID != "" {
		add("provider_id = $%d", f.ProviderID)
	}
	if f.Date != "" {
		add("booking_date = $%d", string(f.Date))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		add("status = ANY($%d)", statuses)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + bookingColumns + " FROM bookings")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if f.NewestFirst {
		sb.WriteString(" ORDER BY booking_date DESC, time_slot DESC, created_at DESC")
	} else {
		sb.WriteString(" ORDER BY booking_date ASC, time_slot ASC, created_at ASC")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Booking{}, booking.ErrNotFound.WithMessage("booking %s not found", id)
	}
	b, err := scanBooking(r.db.QueryRow(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id))
	if IsNotFound(err) {
		return model.Booking{}, booking.ErrNotFound.WithMessage("booking %s not found", id)
	}
	return b, err
}

// CreateBooking serialises writers for one provider-day with a transaction
// scoped advisory lock, re-counts consumed bookings and inserts. The partial
// unique index bookings_active_slot_uq rejects a second consuming booking for
// the same slot.
func (r *Repository) CreateBooking(ctx context.Context, b model.Booking, maxPerDay int, fx booking.Effects) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.ProviderID+"|"+string(b.Date)); err != nil {
		return err
	}
	var count int
	if err := tx.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE provider_id = $1 AND booking_date = $2 AND status IN ('BOOKED', 'COMPLETED')
	`, b.ProviderID, string(b.Date)).Scan(&count); err != nil {
		return err
	}
	if maxPerDay > 0 && count >= maxPerDay {
		return booking.ErrCapacityExceeded
	}

	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, provider_id, user_id, user_name, customer_name, customer_phone, booking_date, time_slot, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, b.ID, b.ProviderID, b.UserID, b.UserName, b.CustomerName, b.CustomerPhone, string(b.Date), string(b.Time), string(b.Status), createdAt.UTC())
	if IsUniqueViolation(err) {
		return booking.ErrSlotTaken
	}
	if err != nil {
		return err
	}
	if err := r.writeEffects(ctx, tx, b.ID, fx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// TransitionBooking applies from -> to only if the row still has status from.
func (r *Repository) TransitionBooking(ctx context.Context, id string, from, to model.Status, fx booking.Effects) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, id).Scan(&current)
		if IsNotFound(err) {
			return booking.ErrNotFound.WithMessage("booking %s not found", id)
		}
		if err != nil {
			return err
		}
		return booking.ErrInvalidTransition.WithMessage("booking is %s", current)
	}
	if err := r.writeEffects(ctx, tx, id, fx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) writeEffects(ctx context.Context, tx pgx.Tx, bookingID string, fx booking.Effects) error {
	if fx.AuditAction != "" {
		if err := insertAudit(ctx, tx, fx.AuditAction, fx.AuditDetail); err != nil {
			return err
		}
	}
	if fx.EventType != "" {
		return r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "booking",
			AggregateID:   bookingID,
			EventType:     fx.EventType,
			Payload:       fx.Payload,
		})
	}
	return nil
}

// AppendEvent writes a standalone outbox event.
func (r *Repository) AppendEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error {
	return r.outbox.Insert(ctx, r.db, outbox.Event{
		AggregateType: "booking",
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                  model.Booking
		date, slot, status string
	)
	if err := row.Scan(&b.ID, &b.ProviderID, &b.UserID, &b.UserName, &b.CustomerName, &b.CustomerPhone, &date, &slot, &status, &b.CreatedAt); err != nil {
		return model.Booking{}, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return model.Booking{}, err
	}
	b.Date, b.Time, b.Status = model.Date(date), model.Clock(slot), st
	return b, nil
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var (
	_ booking.Store = (*Repository)(nil)
	_ DB            = (*db.Pool)(nil)
)

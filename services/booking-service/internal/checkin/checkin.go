// Package checkin turns scanned QR codes into queue progress.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/queue"
)

const (
	ProviderTokenPrefix = "PROVIDER_BOOK:"
	// Printed shop codes still carry the old prefix.
	legacyProviderTokenPrefix = "BARBER_BOOK:"
)

type Kind string

const (
	KindProviderBooking Kind = "provider_booking"
	KindCheckIn         Kind = "check_in"
)

// Scan is a classified QR payload. Value is the provider id for
// KindProviderBooking and the booking id for KindCheckIn.
type Scan struct {
	Kind  Kind
	Value string
}

func ParseScan(raw string) Scan {
	raw = strings.TrimSpace(raw)
	for _, prefix := range []string{ProviderTokenPrefix, legacyProviderTokenPrefix} {
		if strings.HasPrefix(raw, prefix) {
			return Scan{Kind: KindProviderBooking, Value: strings.TrimSpace(strings.TrimPrefix(raw, prefix))}
		}
	}
	return Scan{Kind: KindCheckIn, Value: raw}
}

// ProviderToken is the text encoded in a provider's booking QR code.
func ProviderToken(providerID string) string {
	return ProviderTokenPrefix + providerID
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeBlocked Outcome = "blocked"
)

type Result struct {
	Kind         Kind         `json:"kind"`
	Outcome      Outcome      `json:"outcome"`
	Code         booking.Code `json:"code,omitempty"`
	Message      string       `json:"message"`
	BookingID    string       `json:"booking_id,omitempty"`
	ProviderID   string       `json:"provider_id,omitempty"`
	ProviderName string       `json:"provider_name,omitempty"`
	Date         model.Date   `json:"date,omitempty"`
	Time         model.Clock  `json:"time,omitempty"`
	Status       model.Status `json:"status,omitempty"`
	Ahead        int          `json:"ahead,omitempty"`
	Earliest     model.Clock  `json:"earliest,omitempty"`
}

type Processor struct {
	manager *booking.Manager
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewProcessor(manager *booking.Manager, logger *slog.Logger, m *metrics.Metrics) *Processor {
	return &Processor{manager: manager, logger: logger, metrics: m, tracer: otel.Tracer("checkin")}
}

// Scan dispatches a raw QR payload. Provider codes are resolved without any
// state change; booking codes are checked in against a fresh snapshot. A
// blocked scan returns both the Result (for display) and the booking error.
func (p *Processor) Scan(ctx context.Context, raw string) (Result, error) {
	scan := ParseScan(raw)
	ctx, span := p.tracer.Start(ctx, "checkin.scan", trace.WithAttributes(attribute.String("scan.kind", string(scan.Kind))))
	defer span.End()

	var (
		res Result
		err error
	)
	if scan.Kind == KindProviderBooking {
		res, err = p.providerBooking(ctx, scan.Value)
	} else {
		res, err = p.checkIn(ctx, scan.Value)
	}

	result := string(res.Outcome)
	if err != nil {
		code := booking.CodeOf(err)
		result = strings.ToLower(string(code))
		res.Kind = scan.Kind
		res.Outcome = OutcomeBlocked
		res.Code = code
		if res.Message == "" {
			res.Message = message(err)
		}
		span.SetAttributes(attribute.String("checkin.code", string(code)))
		if code == booking.CodePersistenceFailure {
			span.RecordError(err)
			p.logger.Error("check-in failed", "err", err)
		} else {
			p.logger.Info("check-in blocked", "code", code, "booking_id", res.BookingID)
		}
	}
	p.metrics.ObserveCheckIn(result)
	return res, err
}

func (p *Processor) providerBooking(ctx context.Context, providerID string) (Result, error) {
	if providerID == "" {
		return Result{}, booking.ErrUnrecognizedCode
	}
	provider, err := p.manager.Store().GetProvider(ctx, providerID)
	if err != nil {
		if booking.CodeOf(err) == booking.CodeNotFound {
			return Result{}, booking.ErrUnrecognizedCode.WithMessage("provider %s is not known", providerID)
		}
		return Result{}, booking.ErrPersistenceFailure.WithError(err)
	}
	return Result{
		Kind:         KindProviderBooking,
		Outcome:      OutcomeSuccess,
		Message:      fmt.Sprintf("Book with %s", provider.Name),
		ProviderID:   provider.ID,
		ProviderName: provider.Name,
	}, nil
}

func (p *Processor) checkIn(ctx context.Context, id string) (Result, error) {
	if id == "" {
		return Result{}, booking.ErrUnrecognizedCode
	}
	// The whole booking set is re-read so the queue check sees every
	// completion made on other devices.
	snapshot, err := p.manager.List(ctx, booking.BookingFilter{})
	if err != nil {
		return Result{}, err
	}
	var (
		b     model.Booking
		found bool
	)
	for _, candidate := range snapshot {
		if candidate.ID == id {
			b, found = candidate, true
			break
		}
	}
	if !found {
		return Result{}, booking.ErrUnrecognizedCode
	}

	res := Result{
		Kind:       KindCheckIn,
		BookingID:  b.ID,
		ProviderID: b.ProviderID,
		Date:       b.Date,
		Time:       b.Time,
		Status:     b.Status,
	}
	if provider, err := p.manager.Store().GetProvider(ctx, b.ProviderID); err == nil {
		res.ProviderName = provider.Name
	}

	if b.Status != model.StatusBooked {
		err := booking.ErrNotCheckable.WithMessage("booking is already %s", b.Status)
		res.Message = err.Message
		return res, err
	}

	if b.Date == model.DateOf(p.manager.Now()) {
		ahead := queue.Build(snapshot, b.ProviderID, b.Date).Ahead(b.Time)
		if len(ahead) > 0 {
			res.Ahead = len(ahead)
			res.Earliest = ahead[0].Time
			err := booking.ErrOutOfOrder.WithMessage("%d customer(s) ahead of you, earliest at %s; please wait", len(ahead), ahead[0].Time)
			res.Message = err.Message
			return res, err
		}
	}

	done, err := p.manager.Complete(ctx, b.ID)
	if err != nil {
		return res, err
	}
	res.Outcome = OutcomeSuccess
	res.Status = done.Status
	who := res.ProviderName
	if who == "" {
		who = b.ProviderID
	}
	res.Message = fmt.Sprintf("Checked in with %s for %s", who, b.Time)
	p.logger.Info("checked in", "booking_id", b.ID, "provider_id", b.ProviderID, "time", b.Time)
	return res, nil
}

func message(err error) string {
	var e *booking.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

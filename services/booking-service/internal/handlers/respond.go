package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/barberq/services/booking-service/internal/booking"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(code booking.Code) int {
	switch code {
	case booking.CodeNonWorkingDay, booking.CodeSlotInPast:
		return http.StatusUnprocessableEntity
	case booking.CodeCapacityExceeded, booking.CodeSlotTaken, booking.CodeInvalidTransition,
		booking.CodeNotCheckable, booking.CodeOutOfOrder, booking.CodeAlreadyExists:
		return http.StatusConflict
	case booking.CodeUnrecognizedCode, booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeInvalidRequest:
		return http.StatusBadRequest
	case booking.CodeForbidden:
		return http.StatusForbidden
	case booking.CodePersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": {...}}. Business outcomes carry their
// own message; anything else is logged and hidden from the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var be *booking.Error
	if !errors.As(err, &be) {
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{Code: "INTERNAL", Message: "internal error"}})
		return
	}
	status := statusFor(be.Code)
	if be.Code == booking.CodePersistenceFailure {
		logger.Error("persistence failure", "err", err)
		writeJSON(w, status, errorBody{Error: errorDetail{Code: string(be.Code), Message: "the booking store is unavailable, please try again"}})
		return
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: string(be.Code), Message: be.Message}})
}

// storeError classifies a raw repository error for writeError.
func storeError(err error) error {
	var be *booking.Error
	if errors.As(err, &be) {
		return err
	}
	return booking.ErrPersistenceFailure.WithError(err)
}

func badRequest(format string, args ...any) error {
	return booking.ErrInvalidRequest.WithMessage(format, args...)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid json body: %v", err)
	}
	return nil
}

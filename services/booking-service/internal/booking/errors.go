package booking

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNonWorkingDay      Code = "NON_WORKING_DAY"
	CodeCapacityExceeded   Code = "CAPACITY_EXCEEDED"
	CodeSlotTaken          Code = "SLOT_TAKEN"
	CodeSlotInPast         Code = "SLOT_IN_PAST"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeNotCheckable       Code = "NOT_CHECKABLE"
	CodeOutOfOrder         Code = "OUT_OF_ORDER"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeUnrecognizedCode   Code = "UNRECOGNIZED_CODE"
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
)

// Error is a booking outcome with a stable code. errors.Is matches on Code,
// so a copy carrying a more specific message still matches its sentinel.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) WithMessage(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

func (e *Error) WithError(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

var (
	ErrNonWorkingDay      = &Error{Code: CodeNonWorkingDay, Message: "the shop is closed on this date"}
	ErrCapacityExceeded   = &Error{Code: CodeCapacityExceeded, Message: "provider is fully booked for this date"}
	ErrSlotTaken          = &Error{Code: CodeSlotTaken, Message: "this slot is already booked"}
	ErrSlotInPast         = &Error{Code: CodeSlotInPast, Message: "this slot has already started"}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition, Message: "booking is no longer active"}
	ErrNotCheckable       = &Error{Code: CodeNotCheckable, Message: "booking cannot be checked in"}
	ErrOutOfOrder         = &Error{Code: CodeOutOfOrder, Message: "earlier customers are still waiting"}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure, Message: "booking store unavailable"}
	ErrUnrecognizedCode   = &Error{Code: CodeUnrecognizedCode, Message: "code not recognised"}
	ErrInvalidRequest     = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "not allowed"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
)

// CodeOf returns the booking code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// persistence passes booking errors through and wraps anything else as a
// PersistenceFailure.
func persistence(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrPersistenceFailure.WithError(fmt.Errorf("%s: %w", op, err))
}

package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of the checkout handshake.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindAuth                Kind = "auth"
	KindPersistence         Kind = "persistence"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindPaymentNotCompleted Kind = "payment_not_completed"
	KindUpstream            Kind = "upstream"
	KindInternal            Kind = "internal"
)

// Error carries a user-facing message, its kind and the underlying cause.
// Error() only returns the message: causes may hold driver details that
// should end up in logs, not in responses.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() string { return string(e.kind) }

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: cause}
}

func Validation(format string, args ...any) error {
	return newError(KindValidation, nil, format, args...)
}

func Auth(cause error, format string, args ...any) error {
	return newError(KindAuth, cause, format, args...)
}

func Persistence(cause error, format string, args ...any) error {
	return newError(KindPersistence, cause, format, args...)
}

func InsufficientStock(cause error, format string, args ...any) error {
	return newError(KindInsufficientStock, cause, format, args...)
}

func PaymentNotCompleted(format string, args ...any) error {
	return newError(KindPaymentNotCompleted, nil, format, args...)
}

func Upstream(cause error, format string, args ...any) error {
	return newError(KindUpstream, cause, format, args...)
}

// KindOf returns the kind of the first *Error in the chain. Context
// expiry is reported as upstream since it only happens around remote calls.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUpstream
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Describe renders the message and the full cause chain, for logs.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return err.Error()
}

// HTTPStatus maps a kind to the status used by the /api routes.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case "":
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindInsufficientStock:
		return http.StatusConflict
	case KindPaymentNotCompleted:
		return http.StatusPaymentRequired
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidCoupon     ErrorKind = "InvalidCoupon"
	KindInsufficientStock ErrorKind = "InsufficientStock"
	KindSignatureMismatch ErrorKind = "SignatureMismatch"
	KindAmountMismatch    ErrorKind = "AmountMismatch"
	KindInvalidTransition ErrorKind = "InvalidTransition"
	KindOrderNotFound     ErrorKind = "OrderNotFound"
	KindOrderNotPending   ErrorKind = "OrderNotPending"
	KindInvalidInput      ErrorKind = "InvalidInput"
	KindNotFound          ErrorKind = "NotFound"
	KindConflict          ErrorKind = "Conflict"
	KindUnauthorized      ErrorKind = "Unauthorized"
	KindForbidden         ErrorKind = "Forbidden"
)

// Error is a business failure that is safe to report to callers.
// Two errors match under errors.Is when their kinds match; the message is ignored.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// sentinels for errors.Is
var (
	ErrInvalidCoupon     = &Error{Kind: KindInvalidCoupon}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrSignatureMismatch = &Error{Kind: KindSignatureMismatch}
	ErrAmountMismatch    = &Error{Kind: KindAmountMismatch}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrOrderNotFound     = &Error{Kind: KindOrderNotFound}
	ErrOrderNotPending   = &Error{Kind: KindOrderNotPending}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
)

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Package apperr defines the error taxonomy shared by the storefront components.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies how an error is recovered.
type Kind string

const (
	// KindValidation marks malformed user input; recovered by re-prompting.
	KindValidation Kind = "VALIDATION"
	// KindStorage marks a persistence read/write failure.
	KindStorage Kind = "STORAGE"
	// KindDelivery marks a failure to reach one recipient.
	KindDelivery Kind = "DELIVERY"
	// KindResolution marks an attachment that could not be resolved to a stable reference.
	KindResolution Kind = "RESOLUTION"
)

// Error carries a kind, a short machine-friendly reason and the wrapped cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Code is picked up by handler summary logs as err_code.
func (e *Error) Code() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + "_" + e.Reason
}

// Validation builds a KindValidation error.
func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// Storage wraps err as a KindStorage error.
func Storage(reason string, err error) *Error {
	return &Error{Kind: KindStorage, Reason: reason, Err: err}
}

// Delivery wraps err as a KindDelivery error.
func Delivery(reason string, err error) *Error {
	return &Error{Kind: KindDelivery, Reason: reason, Err: err}
}

// Resolution wraps err as a KindResolution error.
func Resolution(reason string, err error) *Error {
	return &Error{Kind: KindResolution, Reason: reason, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

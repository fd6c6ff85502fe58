package domain

import (
	"errors"
	"fmt"
)

// DomainError keeps a generic code for errors that do not fit a typed case.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError reports an overlapping reservation. The caller can retry with
// different dates.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "forbidden"
}

// InvalidTransitionError is returned when a status change lost a race or is
// not a legal successor. Callers re-read state instead of retrying.
type InvalidTransitionError struct {
	Resource string
	From     string
	To       string
	Current  string
}

func (e InvalidTransitionError) Error() string {
	resource := e.Resource
	if resource == "" {
		resource = "booking"
	}
	if e.Current != "" && e.Current != e.From {
		return fmt.Sprintf("%s is %s, cannot move from %s to %s", resource, e.Current, e.From, e.To)
	}
	return fmt.Sprintf("%s cannot move from %s to %s", resource, e.From, e.To)
}

type AlreadyCancelledError struct {
	BookingID string
}

func (e AlreadyCancelledError) Error() string {
	return fmt.Sprintf("booking %s already cancelled", e.BookingID)
}

type AlreadyInitiatedError struct {
	BookingID string
}

func (e AlreadyInitiatedError) Error() string {
	return fmt.Sprintf("checkout already initiated for booking %s", e.BookingID)
}

type InvalidSignatureError struct {
	Reason string
}

func (e InvalidSignatureError) Error() string {
	if e.Reason == "" {
		return "invalid signature"
	}
	return "invalid signature: " + e.Reason
}

// ProcessorUnavailableError wraps transient failures of the payment processor.
type ProcessorUnavailableError struct {
	Op  string
	Err error
}

func (e ProcessorUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment processor unavailable (%s)", e.Op)
	}
	return fmt.Sprintf("payment processor unavailable (%s): %v", e.Op, e.Err)
}

func (e ProcessorUnavailableError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsAlreadyCancelled(err error) bool {
	var target AlreadyCancelledError
	return errors.As(err, &target)
}

func IsAlreadyInitiated(err error) bool {
	var target AlreadyInitiatedError
	return errors.As(err, &target)
}

func IsInvalidSignature(err error) bool {
	var target InvalidSignatureError
	return errors.As(err, &target)
}

func IsProcessorUnavailable(err error) bool {
	var target ProcessorUnavailableError
	return errors.As(err, &target)
}

// Package apperrors provides the error taxonomy used across the ingestion core.
//
// Every exported constructor wraps one error category (Validation, NotFound,
// Conflict, RateLimit, Transient, RaceCondition, Precondition,
// ResourceExhausted, CorruptCheckpoint, Config, Internal, NotImplemented).
// Callers classify with Is* helpers instead of type-asserting; the concrete
// *Error type is exported so errors.As can reach its Kind.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for retry/propagation decisions.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindRateLimit         Kind = "RATE_LIMIT"
	KindTransient         Kind = "TRANSIENT"
	KindRaceCondition     Kind = "RACE_CONDITION"
	KindPrecondition      Kind = "PRECONDITION_FAILED"
	KindResourceExhausted Kind = "RESOURCE_EXHAUSTED"
	KindCorruptCheckpoint Kind = "CORRUPT_CHECKPOINT"
	KindConfig            Kind = "CONFIG"
	KindInternal          Kind = "INTERNAL"
	KindNotImplemented    Kind = "NOT_IMPLEMENTED"
)

// Error is the unified application error. It always carries a Kind so the
// job queue and provider wrappers can decide retry/surface behavior without
// string-sniffing at every call site.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) error { return newErr(KindValidation, msg, nil) }
func Validationf(format string, a...any) error {
	return newErr(KindValidation, fmt.Sprintf(format, a...), nil)
}
func NotFound(msg string) error             { return newErr(KindNotFound, msg, nil) }
func Conflict(msg string) error             { return newErr(KindConflict, msg, nil) }
func RateLimit(msg string, err error) error { return newErr(KindRateLimit, msg, err) }
func Transient(msg string, err error) error { return newErr(KindTransient, msg, err) }
func RaceCondition(msg string, err error) error {
	return newErr(KindRaceCondition, msg, err)
}
func Precondition(msg string) error { return newErr(KindPrecondition, msg, nil) }
func ResourceExhausted(msg string) error {
	return newErr(KindResourceExhausted, msg, nil)
}
func CorruptCheckpoint(msg string, err error) error {
	return newErr(KindCorruptCheckpoint, msg, err)
}
func Config(msg string, err error) error { return newErr(KindConfig, msg, err) }
func Internal(msg string, err error) error {
	return newErr(KindInternal, msg, err)
}
func NotImplemented(msg string) error { return newErr(KindNotImplemented, msg, nil) }

// Wrap attaches additional context to err, preserving its Kind when it is
// already one of ours.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Message: fmt.Sprintf("%s: %s", msg, ae.Message), Err: ae.Err}
	}
	return newErr(KindInternal, msg, err)
}

func kindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

func IsValidation(err error) bool { k, ok := kindOf(err); return ok && k == KindValidation }
func IsNotFound(err error) bool   { k, ok := kindOf(err); return ok && k == KindNotFound }
func IsConflict(err error) bool   { k, ok := kindOf(err); return ok && k == KindConflict }
func IsRaceCondition(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindRaceCondition
}
func IsPrecondition(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindPrecondition
}
func IsCorruptCheckpoint(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindCorruptCheckpoint
}
func IsNotImplemented(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotImplemented
}

// IsRetryable reports whether the job queue's retry budget should be spent on
// this error: rate limits, transient connection errors, resource
// exhaustion, and expected concurrency conflicts recover on their own; everything else
// (validation, precondition, config) is surfaced non-retryably.
func IsRetryable(err error) bool {
	k, ok := kindOf(err)
	if !ok {
		return false
	}
	switch k {
	case KindRateLimit, KindTransient, KindRaceCondition, KindResourceExhausted:
		return true
	default:
		return false
	}
}

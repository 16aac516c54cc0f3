package interfaces

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable category of a ledger error
type ErrorKind string

const (
	KindValidation               ErrorKind = "validation"
	KindInvalidState             ErrorKind = "invalid_state"
	KindRiskRejection            ErrorKind = "risk_rejection"
	KindConcurrencyConflict      ErrorKind = "concurrency_conflict"
	KindAggregationInconsistency ErrorKind = "aggregation_inconsistency"
	KindNotFound                 ErrorKind = "not_found"
	KindAlreadyResolved          ErrorKind = "already_resolved"
	KindInternal                 ErrorKind = "internal"
)

// Error is the structured error returned by every ledger operation
type Error struct {
	Kind     ErrorKind
	Op       string
	Message  string
	Decision *Decision
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// DecisionOf returns the risk decision attached to a rejection, if any
func DecisionOf(err error) *Decision {
	var e *Error
	if errors.As(err, &e) {
		return e.Decision
	}
	return nil
}

func ValidationError(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateError(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Op: op, Message: fmt.Sprintf(format, args...)}
}

func RiskRejection(op string, d Decision) error {
	return &Error{Kind: KindRiskRejection, Op: op, Message: d.Reason, Decision: &d}
}

func ConcurrencyConflict(op string, err error) error {
	return &Error{Kind: KindConcurrencyConflict, Op: op, Message: "account state changed concurrently", Err: err}
}

func AggregationInconsistency(op, format string, args ...any) error {
	return &Error{Kind: KindAggregationInconsistency, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

func AlreadyResolvedError(op, signalID string) error {
	return &Error{Kind: KindAlreadyResolved, Op: op, Message: fmt.Sprintf("signal %s already resolved", signalID)}
}

// Internal wraps an unexpected failure (storage, encoding) with an op name
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

package schemas

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory is the stable machine-readable discriminator attached to
// every failure crossing the orchestration boundary. Callers switch on the
// category, never on error text.
type ErrorCategory string

const (
	CategoryValidation         ErrorCategory = "VALIDATION_ERROR"
	CategoryAuthentication     ErrorCategory = "AUTHENTICATION_ERROR"
	CategoryDelivery           ErrorCategory = "DELIVERY_ERROR"
	CategoryConflictResolution ErrorCategory = "CONFLICT_RESOLUTION_ERROR"
	CategoryTimeout            ErrorCategory = "TIMEOUT_ERROR"
	CategoryInternal           ErrorCategory = "INTERNAL_ERROR"
)

// ValidationError rejects malformed or unsafe input. It is never retried and
// never creates a workflow.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// AuthenticationError reports a bad or missing credential on an inbound
// message. It is logged as a security event and the message is dropped.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// DeliveryError reports a failed outbound send. Retryable marks the
// transient classes (rate-limited, unavailable, temporary failure) that the
// retry policy may re-attempt; everything else is fatal.
type DeliveryError struct {
	Status    int
	Reason    string
	Retryable bool
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("delivery failed: %s", e.Reason)
	}
	return fmt.Sprintf("delivery failed with status %d: %s", e.Status, e.Reason)
}

// ConflictResolutionError signals an internal invariant violation in the
// resolution pipeline, such as an action belonging to no partition. It should
// not occur; it is surfaced as an internal bug, never retried.
type ConflictResolutionError struct {
	Reason string
}

func (e *ConflictResolutionError) Error() string {
	return fmt.Sprintf("conflict resolution invariant violated: %s", e.Reason)
}

// TimeoutError reports that the overall workflow deadline elapsed before a
// decision was produced. It is distinct from an internal error so callers can
// tell "still might complete" from "definitely failed".
type TimeoutError struct {
	RequestID string
	Deadline  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workflow %s exceeded decision deadline of %s", e.RequestID, e.Deadline)
}

// CategoryOf maps an error to its stable category. Unrecognized errors are
// internal by definition.
func CategoryOf(err error) ErrorCategory {
	var (
		ve *ValidationError
		ae *AuthenticationError
		de *DeliveryError
		ce *ConflictResolutionError
		te *TimeoutError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return CategoryValidation
	case errors.As(err, &ae):
		return CategoryAuthentication
	case errors.As(err, &de):
		return CategoryDelivery
	case errors.As(err, &ce):
		return CategoryConflictResolution
	case errors.As(err, &te):
		return CategoryTimeout
	default:
		return CategoryInternal
	}
}

/*
errors.go - Error taxonomy for the leave ledger

PURPOSE:
  All ledger errors in one place. Callers branch with errors.Is on the
  sentinels or errors.As on the structured errors, and use KindOf to map
  an error onto a transport status.

ERROR KINDS:
  KindMalformedID:   input failed identifier shape validation
  KindNotFound:      well-formed identifier absent from its store
  KindValidation:    business rule or payload violation
  KindConflict:      overlap, duplicate email, illegal status transition
  KindInconsistency: a dependent write lost its target (owner vanished)
  KindInternal:      anything else (store failures)

SEE ALSO:
  - api/handlers.go: maps kinds to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrMalformedID = errors.New("malformed identifier")

	ErrUserNotFound  = errors.New("user not found")
	ErrLeaveNotFound = errors.New("leave request not found")

	ErrInvalidPayload     = errors.New("invalid payload")
	ErrStartNotBeforeEnd  = errors.New("start date must be before end date")
	ErrOutsideCurrentYear = errors.New("leave dates must fall in the current year")
	ErrInvalidDuration    = errors.New("leave must last at least one day")
	ErrInvalidStatus      = errors.New("invalid leave status")
	ErrLeaveNotEditable   = errors.New("only pending leave requests can be edited")

	// ErrInsufficientBalance is wrapped by InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	ErrDuplicateEmail          = errors.New("email already in use")
	ErrLeaveOverlap            = errors.New("leave overlaps an existing request")
	ErrInvalidStatusTransition = errors.New("invalid leave status transition")

	// ErrBalanceTargetMissing is returned when a balance adjustment finds
	// no user to adjust. No partial state is written.
	ErrBalanceTargetMissing = errors.New("balance adjustment target no longer exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    string
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance: available %d, requested %d",
		e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OverlapError names the existing request a new range collides with.
type OverlapError struct {
	UserID     string
	Requested  DateRange
	ExistingID string
	Existing   DateRange
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave %s overlaps request %s %s", e.Requested, e.ExistingID, e.Existing)
}

func (e *OverlapError) Unwrap() error { return ErrLeaveOverlap }

// TransitionError describes a rejected status change.
type TransitionError struct {
	RequestID string
	From      Status
	To        Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move leave request %s from %s to %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidStatusTransition }

type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid leave status %q: expected one of %s, %s, %s",
		e.Value, StatusPending, StatusApproved, StatusRejected)
}

func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }

// PayloadError lists the fields that failed shape validation.
type PayloadError struct {
	Fields map[string]string
}

func (e *PayloadError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range sortedKeys(e.Fields) {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (e *PayloadError) Unwrap() error { return ErrInvalidPayload }

func newPayloadError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeTag(fe)
	}
	return &PayloadError{Fields: fields}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "leavedate":
		return "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
	default:
		return "failed " + fe.Tag()
	}
}

// =============================================================================
// ERROR KINDS
// =============================================================================

type Kind int

const (
	KindInternal Kind = iota
	KindMalformedID
	KindNotFound
	KindValidation
	KindConflict
	KindInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindMalformedID:
		return "malformed_id"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	case KindConflict:
		return "conflict"
	case KindInconsistency:
		return "inconsistency"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrMalformedID):
		return KindMalformedID
	case IsNotFound(err):
		return KindNotFound
	case errors.Is(err, ErrBalanceTargetMissing):
		return KindInconsistency
	case errors.Is(err, ErrLeaveOverlap),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrInvalidStatusTransition):
		return KindConflict
	case IsValidation(err):
		return KindValidation
	default:
		return KindInternal
	}
}

// IsNotFound returns true if the error indicates a missing user or request.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrLeaveNotFound)
}

// IsValidation returns true if the error is a business rule or payload violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrStartNotBeforeEnd) ||
		errors.Is(err, ErrOutsideCurrentYear) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrLeaveNotEditable)
}

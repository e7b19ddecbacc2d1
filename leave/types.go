/*
Package leave provides the leave ledger: users with a balance of
available leave days, and the leave requests charged against it.

PURPOSE:
  A user holds a mutable balance of whole leave days. Leave requests
  consume that balance when they are created and restore it when they
  are rejected or withdrawn. The Ledger is the only component allowed
  to change a balance, so every rule that keeps the balance in step
  with the requests lives in this package.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: the balance holder (AvailableDays)
  - LeaveRequest: a date range charged against its owner
  - Status: PENDING, APPROVED, REJECTED
  - Direction: Credit or Debit applied by the balance adjuster
  - UserPayload / LeavePayload: caller input, validated before use

LIFECYCLE:
  create ──▶ PENDING (charged) ──▶ APPROVED (charge kept)
                               └─▶ REJECTED (charge credited back)

  Edits recompute Days and settle the difference.
  Deletes refund a charge that is still held.

SEE ALSO:
  - ledger.go: Ledger construction and user operations
  - request.go: Leave request lifecycle
  - balance.go: Balance adjuster
  - duration.go: Duration and overlap rules
*/
package leave

import "time"

// =============================================================================
// USER - The balance holder
// =============================================================================

type User struct {
	ID            string
	Name          string
	Email         string
	AvailableDays int
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// =============================================================================
// LEAVE REQUEST - A date range charged against a user's balance
// =============================================================================

type LeaveRequest struct {
	ID        string
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	Days      int
	Status    Status
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Range returns the request's inclusive date range.
func (r LeaveRequest) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// =============================================================================
// DIRECTION - Sign of a balance adjustment
// =============================================================================

type Direction string

const (
	Credit Direction = "credit" // restores days to the balance
	Debit  Direction = "debit"  // consumes days from the balance
)

func (d Direction) sign() int {
	if d == Credit {
		return 1
	}
	return -1
}

// =============================================================================
// PAYLOADS - Caller input
// =============================================================================

// UserPayload carries the fields accepted by AddUser and UpdateUser.
type UserPayload struct {
	Name          string `validate:"required,max=200"`
	Email         string `validate:"required,email"`
	AvailableDays *int   `validate:"required,min=0"`
}

// LeavePayload carries a proposed date range. Dates are YYYY-MM-DD or RFC 3339.
type LeavePayload struct {
	StartDate string `validate:"required,leavedate"`
	EndDate   string `validate:"required,leavedate"`
}

package leave

import "strings"

// =============================================================================
// STATUS - Leave request state machine
// =============================================================================

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// transitions lists the only edges a request may take.
// APPROVED and REJECTED are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}

// ParseStatus normalises a status name. Matching is case-insensitive.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &InvalidStatusError{Value: s}
	}
	return st, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge s -> to exists.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// HoldsCharge reports whether a request in this status still has its
// creation debit applied to the owner's balance.
func (s Status) HoldsCharge() bool {
	return s == StatusPending || s == StatusApproved
}

// settlement returns the balance effect of entering status to.
// Only rejection moves days; approval keeps the charge taken at creation.
func settlement(to Status) (Direction, bool) {
	if to == StatusRejected {
		return Credit, true
	}
	return "", false
}

/*
store.go - Collaborator interfaces consumed by the Ledger

PURPOSE:
  Defines the boundary between the ledger rules and everything they
  depend on: the two keyed stores, the clock, identifier generation and
  validation, and the metrics sink.

STORE CONTRACT:
  UserStore and LeaveStore are keyed collections:
  - Get:    (nil, nil) when the key is absent
  - List:   every value, in a stable order
  - Put:    insert-or-replace, returns the previous value (nil if new)
  - Remove: delete, returns the removed value (nil if absent)
  There is no secondary index; filtering by owner or status is a scan.

TRANSACTIONS:
  WithTx runs fn against a transactional view. If fn returns an error
  every write made through the view is discarded. The ledger uses it so
  a leave request and the balance change it causes land together.

IMPLEMENTATIONS:
  - leave/store/memory.go: In-memory, snapshot rollback
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - ledger.go: Ledger wiring
*/
package leave

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STORES
// =============================================================================

type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	PutUser(ctx context.Context, u User) (*User, error)
	RemoveUser(ctx context.Context, id string) (*User, error)
}

type LeaveStore interface {
	GetLeave(ctx context.Context, id string) (*LeaveRequest, error)
	ListLeaves(ctx context.Context) ([]LeaveRequest, error)
	PutLeave(ctx context.Context, r LeaveRequest) (*LeaveRequest, error)
	RemoveLeave(ctx context.Context, id string) (*LeaveRequest, error)
}

// Store combines both collections with transaction support.
type Store interface {
	UserStore
	LeaveStore

	// WithTx executes fn within a transaction.
	// If fn returns error, all writes made through tx are rolled back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// =============================================================================
// CLOCK
// =============================================================================

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type IDGenerator interface {
	NewID() string
}

type IDValidator interface {
	Valid(id string) bool
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// UUIDValidator accepts canonical 36-character UUID strings only.
type UUIDValidator struct{}

func (UUIDValidator) Valid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// =============================================================================
// METRICS
// =============================================================================

// Metrics receives ledger events. Implementations must be safe for concurrent use.
type Metrics interface {
	LeaveRequested(outcome string)
	BalanceAdjusted(direction string, days int)
	StatusChanged(from, to string)
}

type NopMetrics struct{}

func (NopMetrics) LeaveRequested(string)        {}
func (NopMetrics) BalanceAdjusted(string, int)  {}
func (NopMetrics) StatusChanged(string, string) {}

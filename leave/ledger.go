/*
ledger.go - The leave ledger and its user operations

PURPOSE:
  Ledger is the entry point for every operation on users and leave
  requests. It validates identifiers and payloads, applies the business
  rules, and is the only code path that changes a user's balance.

CRITICAL INVARIANTS:
  1. Leave operations never take AvailableDays below zero
     (AdjustBalance alone may overdraw)
  2. Email is unique across users (case-insensitive)
  3. A request's charge is applied exactly once per state change:
     debited at creation, credited on rejection or on deletion of a
     held charge, and the difference settled on edit
  4. Request and balance writes commit together (Store.WithTx)

CONCURRENCY:
  Mutating operations are serialised by mu, so one runs at a time to
  completion. Reads go straight to the store, which guards itself.

EXAMPLE:
  ledger := leave.New(store, leave.WithLogger(logger))

  user, err := ledger.AddUser(ctx, leave.UserPayload{Name: "Ada", Email: "ada@example.com", AvailableDays: &days})
  req, err := ledger.RequestLeave(ctx, user.ID, leave.LeavePayload{StartDate: "2026-03-10", EndDate: "2026-03-15"})
  req, err = ledger.UpdateLeaveStatus(ctx, req.ID, "REJECTED")

SEE ALSO:
  - request.go: Leave request operations
  - balance.go: AdjustBalance
  - store.go: Collaborator interfaces
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store   Store
	clock   Clock
	ids     IDGenerator
	idCheck IDValidator
	metrics Metrics
	logger  *zap.Logger

	mu sync.Mutex
}

type Option func(*Ledger)

func WithClock(c Clock) Option             { return func(l *Ledger) { l.clock = c } }
func WithIDGenerator(g IDGenerator) Option { return func(l *Ledger) { l.ids = g } }
func WithIDValidator(v IDValidator) Option { return func(l *Ledger) { l.idCheck = v } }
func WithMetrics(m Metrics) Option         { return func(l *Ledger) { l.metrics = m } }
func WithLogger(z *zap.Logger) Option      { return func(l *Ledger) { l.logger = z } }

// New creates a ledger over store. Defaults: system clock, UUID
// identifiers, no metrics, the global zap logger.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		clock:   SystemClock{},
		ids:     UUIDGenerator{},
		idCheck: UUIDValidator{},
		metrics: NopMetrics{},
		logger:  zap.L(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("leave.ledger")
	return l
}

// Now is the ledger clock's current time.
func (l *Ledger) Now() time.Time { return l.clock.Now() }

func (l *Ledger) checkID(id string) error {
	if !l.idCheck.Valid(id) {
		return fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	return nil
}

// =============================================================================
// USER QUERIES
// =============================================================================

// GetUser returns one user.
func (l *Ledger) GetUser(ctx context.Context, id string) (*User, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}
	return l.loadUser(ctx, l.store, id)
}

// GetUsers returns every user in store order.
func (l *Ledger) GetUsers(ctx context.Context) ([]User, error) {
	users, err := l.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (l *Ledger) loadUser(ctx context.Context, s UserStore, id string) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// =============================================================================
// USER MUTATIONS
// =============================================================================

// AddUser creates a user with the payload's opening balance.
func (l *Ledger) AddUser(ctx context.Context, p UserPayload) (*User, error) {
	if err := validatePayload(p); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureEmailFree(ctx, p.Email, ""); err != nil {
		return nil, err
	}

	u := User{
		ID:            l.ids.NewID(),
		Name:          strings.TrimSpace(p.Name),
		Email:         strings.TrimSpace(p.Email),
		AvailableDays: *p.AvailableDays,
		CreatedAt:     l.clock.Now(),
	}
	if _, err := l.store.PutUser(ctx, u); err != nil {
		l.logger.Error("add user persist failed", zap.Error(err))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	l.logger.Info("user added", zap.String("user_id", u.ID), zap.Int("available_days", u.AvailableDays))
	return &u, nil
}

// UpdateUser replaces a user's name, email and balance.
func (l *Ledger) UpdateUser(ctx context.Context, id string, p UserPayload) (*User, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}
	if err := validatePayload(p); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	u, err := l.loadUser(ctx, l.store, id)
	if err != nil {
		return nil, err
	}
	if err := l.ensureEmailFree(ctx, p.Email, id); err != nil {
		return nil, err
	}

	now := l.clock.Now()
	u.Name = strings.TrimSpace(p.Name)
	u.Email = strings.TrimSpace(p.Email)
	u.AvailableDays = *p.AvailableDays
	u.UpdatedAt = &now

	if _, err := l.store.PutUser(ctx, *u); err != nil {
		l.logger.Error("update user persist failed", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	l.logger.Info("user updated", zap.String("user_id", id))
	return u, nil
}

// DeleteUser removes a user. Leave requests it owns are left in place
// and keep whatever balance effect they had.
func (l *Ledger) DeleteUser(ctx context.Context, id string) (*User, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, err := l.store.RemoveUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to remove user %s: %w", id, err)
	}
	if prev == nil {
		return nil, ErrUserNotFound
	}

	l.logger.Info("user deleted", zap.String("user_id", id))
	return prev, nil
}

// ensureEmailFree scans users for email, ignoring the user with ID except.
func (l *Ledger) ensureEmailFree(ctx context.Context, email, except string) error {
	users, err := l.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	email = strings.TrimSpace(email)
	for _, u := range users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return ErrDuplicateEmail
		}
	}
	return nil
}

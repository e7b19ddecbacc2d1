/*
request.go - Leave request lifecycle

PURPOSE:
  Creation, edit, status change and deletion of leave requests, each
  settling the owner's balance inside the same store transaction.

REQUEST FLOW:
  ┌──────────────────────────────────────────────────────────────────┐
  │                                                                  │
  │  RequestLeave ──▶ validate ──▶ persist PENDING ──▶ debit Days    │
  │                                                                  │
  │  UpdateLeaveStatus                                               │
  │    PENDING ──▶ APPROVED   charge kept, no balance change         │
  │    PENDING ──▶ REJECTED   credit Days                            │
  │    anything else          ErrInvalidStatusTransition             │
  │                                                                  │
  │  UpdateLeave (PENDING only)   settle newDays - oldDays           │
  │  DeleteLeave                  credit Days if the charge is held  │
  │                                                                  │
  └──────────────────────────────────────────────────────────────────┘

CREATION RULES (fail fast, in order):
  1. owner exists
  2. start strictly before end
  3. both dates in the current calendar year (clock, UTC)
  4. duration >= 1 day
  5. duration <= owner's AvailableDays
  6. no inclusive overlap with any of the owner's requests

SEE ALSO:
  - duration.go: Duration, DateRange.Overlaps
  - status.go: transition table
  - balance.go: adjust
*/
package leave

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// QUERIES
// =============================================================================

// GetLeaveRequests returns every leave request in store order.
func (l *Ledger) GetLeaveRequests(ctx context.Context) ([]LeaveRequest, error) {
	reqs, err := l.store.ListLeaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	return reqs, nil
}

// GetLeaveRequest returns one leave request.
func (l *Ledger) GetLeaveRequest(ctx context.Context, id string) (*LeaveRequest, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}
	return l.loadLeave(ctx, l.store, id)
}

// GetUsersLeaveRequests returns the requests owned by userID.
func (l *Ledger) GetUsersLeaveRequests(ctx context.Context, userID string) ([]LeaveRequest, error) {
	if err := l.checkID(userID); err != nil {
		return nil, err
	}
	if _, err := l.loadUser(ctx, l.store, userID); err != nil {
		return nil, err
	}
	return l.filterLeaves(ctx, l.store, func(r LeaveRequest) bool { return r.UserID == userID })
}

// GetLeaveRequestsByStatus returns the requests currently in status.
func (l *Ledger) GetLeaveRequestsByStatus(ctx context.Context, status string) ([]LeaveRequest, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return l.filterLeaves(ctx, l.store, func(r LeaveRequest) bool { return r.Status == st })
}

func (l *Ledger) loadLeave(ctx context.Context, s LeaveStore, id string) (*LeaveRequest, error) {
	r, err := s.GetLeave(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load leave request %s: %w", id, err)
	}
	if r == nil {
		return nil, ErrLeaveNotFound
	}
	return r, nil
}

func (l *Ledger) filterLeaves(ctx context.Context, s LeaveStore, keep func(LeaveRequest) bool) ([]LeaveRequest, error) {
	all, err := s.ListLeaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	out := make([]LeaveRequest, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// findOverlap returns the first request of userID, other than skipID,
// whose range overlaps rng.
func (l *Ledger) findOverlap(ctx context.Context, s LeaveStore, userID, skipID string, rng DateRange) (*OverlapError, error) {
	owned, err := l.filterLeaves(ctx, s, func(r LeaveRequest) bool {
		return r.UserID == userID && r.ID != skipID
	})
	if err != nil {
		return nil, err
	}
	for _, r := range owned {
		if rng.Overlaps(r.Range()) {
			return &OverlapError{UserID: userID, Requested: rng, ExistingID: r.ID, Existing: r.Range()}, nil
		}
	}
	return nil, nil
}

// =============================================================================
// CREATE
// =============================================================================

// RequestLeave validates and records a new PENDING request for userID and
// debits its duration from the owner's balance.
func (l *Ledger) RequestLeave(ctx context.Context, userID string, p LeavePayload) (*LeaveRequest, error) {
	if err := l.checkID(userID); err != nil {
		return nil, err
	}
	if err := validatePayload(p); err != nil {
		return nil, err
	}
	rng, err := p.dateRange()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	l.logger.Debug("leave requested",
		zap.String("user_id", userID),
		zap.String("start_date", p.StartDate),
		zap.String("end_date", p.EndDate),
	)

	l.mu.Lock()
	defer l.mu.Unlock()

	var created LeaveRequest
	err = l.store.WithTx(ctx, func(tx Store) error {
		u, err := l.loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		days, err := l.checkRange(rng)
		if err != nil {
			return err
		}
		if days > u.AvailableDays {
			return &InsufficientBalanceError{UserID: userID, Available: u.AvailableDays, Requested: days}
		}
		overlap, err := l.findOverlap(ctx, tx, userID, "", rng)
		if err != nil {
			return err
		}
		if overlap != nil {
			return overlap
		}

		created = LeaveRequest{
			ID:        l.ids.NewID(),
			UserID:    userID,
			StartDate: rng.Start,
			EndDate:   rng.End,
			Days:      days,
			Status:    StatusPending,
			CreatedAt: l.clock.Now(),
		}
		if _, err := tx.PutLeave(ctx, created); err != nil {
			return fmt.Errorf("failed to save leave request: %w", err)
		}
		_, err = l.adjust(ctx, tx, userID, days, Debit)
		return err
	})
	if err != nil {
		l.metrics.LeaveRequested(KindOf(err).String())
		l.logFailure("request leave", err, zap.String("user_id", userID))
		return nil, err
	}

	l.metrics.LeaveRequested("created")
	l.metrics.BalanceAdjusted(string(Debit), created.Days)
	l.logger.Info("leave request created",
		zap.String("leave_id", created.ID),
		zap.String("user_id", userID),
		zap.Int("days", created.Days),
	)
	return &created, nil
}

// checkRange applies the ordering, current-year and duration rules and
// returns the charged duration.
func (l *Ledger) checkRange(rng DateRange) (int, error) {
	if !rng.Valid() {
		return 0, ErrStartNotBeforeEnd
	}
	if !rng.WithinYear(l.clock.Now().UTC().Year()) {
		return 0, ErrOutsideCurrentYear
	}
	days := rng.Days()
	if days < 1 {
		return 0, ErrInvalidDuration
	}
	return days, nil
}

// =============================================================================
// EDIT
// =============================================================================

// UpdateLeave moves a PENDING request to a new date range. The change in
// duration is settled against the owner's balance: a longer range must
// fit the remaining balance, a shorter one returns the difference.
func (l *Ledger) UpdateLeave(ctx context.Context, id string, p LeavePayload) (*LeaveRequest, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}
	if err := validatePayload(p); err != nil {
		return nil, err
	}
	rng, err := p.dateRange()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var updated *LeaveRequest
	var delta int
	err = l.store.WithTx(ctx, func(tx Store) error {
		r, err := l.loadLeave(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusPending {
			return fmt.Errorf("%w: request %s is %s", ErrLeaveNotEditable, id, r.Status)
		}
		days, err := l.checkRange(rng)
		if err != nil {
			return err
		}
		overlap, err := l.findOverlap(ctx, tx, r.UserID, r.ID, rng)
		if err != nil {
			return err
		}
		if overlap != nil {
			return overlap
		}

		delta = days - r.Days
		switch {
		case delta > 0:
			owner, err := tx.GetUser(ctx, r.UserID)
			if err != nil {
				return fmt.Errorf("failed to load user %s: %w", r.UserID, err)
			}
			if owner == nil {
				return fmt.Errorf("%w: user %s", ErrBalanceTargetMissing, r.UserID)
			}
			if delta > owner.AvailableDays {
				return &InsufficientBalanceError{UserID: r.UserID, Available: owner.AvailableDays, Requested: delta}
			}
			if _, err := l.adjust(ctx, tx, r.UserID, delta, Debit); err != nil {
				return err
			}
		case delta < 0:
			if _, err := l.adjust(ctx, tx, r.UserID, -delta, Credit); err != nil {
				return err
			}
		}

		now := l.clock.Now()
		r.StartDate = rng.Start
		r.EndDate = rng.End
		r.Days = days
		r.UpdatedAt = &now
		if _, err := tx.PutLeave(ctx, *r); err != nil {
			return fmt.Errorf("failed to save leave request %s: %w", id, err)
		}
		updated = r
		return nil
	})
	if err != nil {
		l.logFailure("update leave", err, zap.String("leave_id", id))
		return nil, err
	}

	if delta > 0 {
		l.metrics.BalanceAdjusted(string(Debit), delta)
	} else if delta < 0 {
		l.metrics.BalanceAdjusted(string(Credit), -delta)
	}
	l.logger.Info("leave request updated",
		zap.String("leave_id", id),
		zap.Int("days", updated.Days),
		zap.Int("delta", delta),
	)
	return updated, nil
}

// =============================================================================
// STATUS TRANSITION
// =============================================================================

// UpdateLeaveStatus moves a request along the status state machine and
// applies the balance effect of that edge.
//
// The charge is taken once, at creation. Approval confirms it without a
// second debit, and a repeated APPROVED (or any move out of a terminal
// state) is refused with ErrInvalidStatusTransition rather than debiting
// again.
func (l *Ledger) UpdateLeaveStatus(ctx context.Context, id string, status string) (*LeaveRequest, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var updated *LeaveRequest
	var from Status
	err = l.store.WithTx(ctx, func(tx Store) error {
		r, err := l.loadLeave(ctx, tx, id)
		if err != nil {
			return err
		}
		from = r.Status
		if !r.Status.CanTransitionTo(to) {
			return &TransitionError{RequestID: id, From: r.Status, To: to}
		}
		if dir, ok := settlement(to); ok {
			if _, err := l.adjust(ctx, tx, r.UserID, r.Days, dir); err != nil {
				return err
			}
		}

		now := l.clock.Now()
		r.Status = to
		r.UpdatedAt = &now
		if _, err := tx.PutLeave(ctx, *r); err != nil {
			return fmt.Errorf("failed to save leave request %s: %w", id, err)
		}
		updated = r
		return nil
	})
	if err != nil {
		l.logFailure("update leave status", err, zap.String("leave_id", id), zap.String("status", string(to)))
		return nil, err
	}

	if dir, ok := settlement(to); ok {
		l.metrics.BalanceAdjusted(string(dir), updated.Days)
	}
	l.metrics.StatusChanged(string(from), string(to))
	l.logger.Info("leave status changed",
		zap.String("leave_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteLeave removes a request. A charge that is still held (PENDING or
// APPROVED) is credited back to the owner first; if the owner has been
// deleted the request is removed without a refund.
func (l *Ledger) DeleteLeave(ctx context.Context, id string) (*LeaveRequest, error) {
	if err := l.checkID(id); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var removed *LeaveRequest
	var refunded bool
	err := l.store.WithTx(ctx, func(tx Store) error {
		r, err := l.loadLeave(ctx, tx, id)
		if err != nil {
			return err
		}
		if r.Status.HoldsCharge() {
			owner, err := tx.GetUser(ctx, r.UserID)
			if err != nil {
				return fmt.Errorf("failed to load user %s: %w", r.UserID, err)
			}
			if owner == nil {
				// The owner's balance went with the owner.
				l.logger.Warn("deleting leave request of removed user, no refund",
					zap.String("leave_id", id),
					zap.String("user_id", r.UserID),
					zap.Int("days", r.Days),
				)
			} else {
				if _, err := l.adjust(ctx, tx, r.UserID, r.Days, Credit); err != nil {
					return err
				}
				refunded = true
			}
		}
		if _, err := tx.RemoveLeave(ctx, id); err != nil {
			return fmt.Errorf("failed to remove leave request %s: %w", id, err)
		}
		removed = r
		return nil
	})
	if err != nil {
		l.logFailure("delete leave", err, zap.String("leave_id", id))
		return nil, err
	}

	if refunded {
		l.metrics.BalanceAdjusted(string(Credit), removed.Days)
	}
	l.logger.Info("leave request deleted", zap.String("leave_id", id), zap.String("status", string(removed.Status)))
	return removed, nil
}

// logFailure logs business-rule rejections at Warn and everything else at Error.
func (l *Ledger) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if KindOf(err) == KindInternal || errors.Is(err, ErrBalanceTargetMissing) {
		l.logger.Error(op+" failed", fields...)
		return
	}
	l.logger.Warn(op+" rejected", fields...)
}

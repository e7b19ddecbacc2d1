package leave

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// =============================================================================
// BALANCE ADJUSTER
// =============================================================================

// AdjustBalance credits or debits days on a user's balance.
//
// No floor is enforced: a debit can take the balance below zero. The
// request lifecycle only calls it after checking sufficiency; direct
// callers own that check. days must be positive; the direction carries
// the sign. If the user does not exist the adjustment fails
// with ErrBalanceTargetMissing and nothing is written.
func (l *Ledger) AdjustBalance(ctx context.Context, userID string, days int, dir Direction) (*User, error) {
	if err := l.checkID(userID); err != nil {
		return nil, err
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be at least 1, got %d", ErrInvalidPayload, days)
	}
	if dir != Credit && dir != Debit {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidPayload, dir)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var adjusted *User
	err := l.store.WithTx(ctx, func(tx Store) error {
		u, err := l.adjust(ctx, tx, userID, days, dir)
		adjusted = u
		return err
	})
	if err != nil {
		return nil, err
	}
	l.metrics.BalanceAdjusted(string(dir), days)
	return adjusted, nil
}

// adjust applies the signed delta inside an open transaction.
// Callers record metrics once the transaction commits.
func (l *Ledger) adjust(ctx context.Context, tx Store, userID string, days int, dir Direction) (*User, error) {
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if u == nil {
		l.logger.Warn("balance adjustment target missing",
			zap.String("user_id", userID),
			zap.String("direction", string(dir)),
			zap.Int("days", days),
		)
		return nil, fmt.Errorf("%w: user %s", ErrBalanceTargetMissing, userID)
	}

	now := l.clock.Now()
	u.AvailableDays += dir.sign() * days
	u.UpdatedAt = &now

	if _, err := tx.PutUser(ctx, *u); err != nil {
		return nil, fmt.Errorf("failed to save balance for user %s: %w", userID, err)
	}

	l.logger.Debug("balance adjusted",
		zap.String("user_id", userID),
		zap.String("direction", string(dir)),
		zap.Int("days", days),
		zap.Int("available_days", u.AvailableDays),
	)
	return u, nil
}

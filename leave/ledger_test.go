package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/leave/store"
	"github.com/warp/leave-ledger/metrics"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var now = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*leave.Ledger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return leave.New(mem, leave.WithClock(leave.FixedClock(now))), mem
}

func days(n int) *int { return &n }

func addUser(t *testing.T, l *leave.Ledger, email string, available int) *leave.User {
	t.Helper()
	u, err := l.AddUser(context.Background(), leave.UserPayload{
		Name:          "Test User",
		Email:         email,
		AvailableDays: days(available),
	})
	require.NoError(t, err)
	return u
}

func balance(t *testing.T, l *leave.Ledger, userID string) int {
	t.Helper()
	u, err := l.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.AvailableDays
}

// =============================================================================
// USERS
// =============================================================================

func TestAddUser(t *testing.T) {
	l, _ := newTestLedger(t)

	u := addUser(t, l, "ada@example.com", 21)

	assert.True(t, leave.UUIDValidator{}.Valid(u.ID))
	assert.Equal(t, 21, u.AvailableDays)
	assert.Equal(t, now, u.CreatedAt)
	assert.Nil(t, u.UpdatedAt)

	got, err := l.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestAddUser_InvalidPayload(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AddUser(ctx, leave.UserPayload{Name: "", Email: "not-an-email"})

	require.ErrorIs(t, err, leave.ErrInvalidPayload)
	var perr *leave.PayloadError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Fields, "Name")
	assert.Contains(t, perr.Fields, "Email")
	assert.Contains(t, perr.Fields, "AvailableDays")
	assert.Equal(t, leave.KindValidation, leave.KindOf(err))

	_, err = l.AddUser(ctx, leave.UserPayload{Name: "Neg", Email: "neg@example.com", AvailableDays: days(-1)})
	assert.ErrorIs(t, err, leave.ErrInvalidPayload)
}

func TestAddUser_DuplicateEmail(t *testing.T) {
	// GIVEN: a user with ada@example.com
	// WHEN: another user registers the same address in a different case
	// THEN: the second registration is rejected
	l, _ := newTestLedger(t)
	addUser(t, l, "ada@example.com", 10)

	_, err := l.AddUser(context.Background(), leave.UserPayload{
		Name: "Other", Email: "ADA@example.com", AvailableDays: days(3),
	})

	assert.ErrorIs(t, err, leave.ErrDuplicateEmail)
	users, err := l.GetUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUpdateUser(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := addUser(t, l, "ada@example.com", 10)
	other := addUser(t, l, "bob@example.com", 10)

	updated, err := l.UpdateUser(ctx, u.ID, leave.UserPayload{
		Name: "Ada L.", Email: "ada@example.com", AvailableDays: days(25),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, 25, updated.AvailableDays)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, u.CreatedAt, updated.CreatedAt)

	_, err = l.UpdateUser(ctx, u.ID, leave.UserPayload{
		Name: "Ada", Email: "bob@example.com", AvailableDays: days(25),
	})
	assert.ErrorIs(t, err, leave.ErrDuplicateEmail, "email owned by %s", other.ID)
}

func TestDeleteUser(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := addUser(t, l, "ada@example.com", 10)

	removed, err := l.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, removed.ID)

	_, err = l.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, leave.ErrUserNotFound)
}

func TestIdentifierErrors(t *testing.T) {
	// Every keyed operation distinguishes a malformed identifier from a
	// well-formed one that is simply absent.
	l, _ := newTestLedger(t)
	ctx := context.Background()
	missing := uuid.NewString()
	malformed := "not-a-uuid"
	payload := leave.UserPayload{Name: "X", Email: "x@example.com", AvailableDays: days(1)}
	leavePayload := leave.LeavePayload{StartDate: "2026-03-10", EndDate: "2026-03-12"}

	ops := map[string]func(id string) error{
		"GetUser":               func(id string) error { _, err := l.GetUser(ctx, id); return err },
		"UpdateUser":            func(id string) error { _, err := l.UpdateUser(ctx, id, payload); return err },
		"DeleteUser":            func(id string) error { _, err := l.DeleteUser(ctx, id); return err },
		"GetUsersLeaveRequests": func(id string) error { _, err := l.GetUsersLeaveRequests(ctx, id); return err },
		"RequestLeave":          func(id string) error { _, err := l.RequestLeave(ctx, id, leavePayload); return err },
		"GetLeaveRequest":       func(id string) error { _, err := l.GetLeaveRequest(ctx, id); return err },
		"UpdateLeave":           func(id string) error { _, err := l.UpdateLeave(ctx, id, leavePayload); return err },
		"DeleteLeave":           func(id string) error { _, err := l.DeleteLeave(ctx, id); return err },
		"UpdateLeaveStatus":     func(id string) error { _, err := l.UpdateLeaveStatus(ctx, id, "APPROVED"); return err },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op(malformed)
			assert.ErrorIs(t, err, leave.ErrMalformedID)
			assert.Equal(t, leave.KindMalformedID, leave.KindOf(err))

			err = op(missing)
			assert.True(t, leave.IsNotFound(err), "got %v", err)
			assert.Equal(t, leave.KindNotFound, leave.KindOf(err))
		})
	}
}

// =============================================================================
// BALANCE ADJUSTER
// =============================================================================

func TestAdjustBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	u := addUser(t, l, "ada@example.com", 2)

	credited, err := l.AdjustBalance(ctx, u.ID, 3, leave.Credit)
	require.NoError(t, err)
	assert.Equal(t, 5, credited.AvailableDays)

	// No floor: a direct debit may overdraw.
	debited, err := l.AdjustBalance(ctx, u.ID, 7, leave.Debit)
	require.NoError(t, err)
	assert.Equal(t, -2, debited.AvailableDays)
	assert.Equal(t, -2, balance(t, l, u.ID))
}

func TestAdjustBalance_MissingUser(t *testing.T) {
	l, mem := newTestLedger(t)
	ctx := context.Background()

	_, err := l.AdjustBalance(ctx, uuid.NewString(), 1, leave.Credit)

	assert.ErrorIs(t, err, leave.ErrBalanceTargetMissing)
	assert.Equal(t, leave.KindInconsistency, leave.KindOf(err))
	users, _ := mem.ListUsers(ctx)
	assert.Empty(t, users)
}

func TestAdjustBalance_NonPositiveDays(t *testing.T) {
	// GIVEN: a ledger wired to the Prometheus collector
	// WHEN: an adjustment of zero or negative days is attempted
	// THEN: it fails validation and the balance is untouched
	for _, n := range []int{0, -3} {
		for _, dir := range []leave.Direction{leave.Credit, leave.Debit} {
			mem := store.NewMemory()
			l := leave.New(mem,
				leave.WithClock(leave.FixedClock(now)),
				leave.WithMetrics(metrics.NewCollector(prometheus.NewRegistry())),
			)
			u := addUser(t, l, "ada@example.com", 10)

			_, err := l.AdjustBalance(context.Background(), u.ID, n, dir)

			assert.ErrorIs(t, err, leave.ErrInvalidPayload, "%d %s", n, dir)
			assert.Equal(t, leave.KindValidation, leave.KindOf(err))
			assert.Equal(t, 10, balance(t, l, u.ID))
		}
	}
}

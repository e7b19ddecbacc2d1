/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Persists users and leave requests in two keyed tables. The ledger sees
  the same get / list / put / remove contract as the in-memory store, so
  the business rules never know which one they run on.

KEY TABLES:
  users:          one row per user, email unique (case-insensitive)
  leave_requests: one row per request, user_id is not a foreign key
                  (deleting a user leaves its requests in place)

INDEXES:
  - idx_users_email:           backs email uniqueness
  - idx_leave_requests_user:   owner scans
  - idx_leave_requests_status: status scans

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases alive for the life of the Store.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := leave.New(store)

SEE ALSO:
  - leave/store.go: Store contract
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/leave-ledger/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ leave.Store = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		available_days INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
		ON users(email COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		seq INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_user
		ON leave_requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USER STORE
// =============================================================================

const userColumns = `id, name, email, available_days, created_at, updated_at`

func (s *Store) GetUser(ctx context.Context, id string) (*leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]leave.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(ctx, s.db)
}

func (s *Store) PutUser(ctx context.Context, u leave.User) (*leave.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putUser(ctx, s.db, u)
}

func (s *Store) RemoveUser(ctx context.Context, id string) (*leave.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q querier, id string) (*leave.User, error) {
	row := q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func listUsers(ctx context.Context, q querier) ([]leave.User, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []leave.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func putUser(ctx context.Context, q querier, u leave.User) (*leave.User, error) {
	prev, err := getUser(ctx, q, u.ID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (id, name, email, available_days, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM users), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			available_days = excluded.available_days,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.AvailableDays,
		formatTime(u.CreatedAt), formatTimePtr(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, leave.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return prev, nil
}

func removeUser(ctx context.Context, q querier, id string) (*leave.User, error) {
	prev, err := getUser(ctx, q, id)
	if err != nil || prev == nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}
	return prev, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (leave.User, error) {
	var u leave.User
	var createdAt string
	var updatedAt sql.NullString
	if err := sc.Scan(&u.ID, &u.Name, &u.Email, &u.AvailableDays, &createdAt, &updatedAt); err != nil {
		return leave.User{}, err
	}
	var err error
	if u.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return leave.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	if u.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return leave.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

// =============================================================================
// LEAVE STORE
// =============================================================================

const leaveColumns = `id, user_id, start_date, end_date, days, status, created_at, updated_at`

func (s *Store) GetLeave(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeave(ctx, s.db, id)
}

func (s *Store) ListLeaves(ctx context.Context) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLeaves(ctx, s.db)
}

func (s *Store) PutLeave(ctx context.Context, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putLeave(ctx, s.db, r)
}

func (s *Store) RemoveLeave(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeLeave(ctx, s.db, id)
}

func getLeave(ctx context.Context, q querier, id string) (*leave.LeaveRequest, error) {
	row := q.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = ?", id)
	r, err := scanLeave(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func listLeaves(ctx context.Context, q querier) ([]leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+leaveColumns+" FROM leave_requests ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []leave.LeaveRequest{}
	for rows.Next() {
		r, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func putLeave(ctx context.Context, q querier, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	prev, err := getLeave(ctx, q, r.ID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO leave_requests (id, user_id, start_date, end_date, days, status, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM leave_requests), ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			days = excluded.days,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err = q.ExecContext(ctx, query,
		r.ID, r.UserID, formatTime(r.StartDate), formatTime(r.EndDate), r.Days, string(r.Status),
		formatTime(r.CreatedAt), formatTimePtr(r.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save leave request: %w", err)
	}
	return prev, nil
}

func removeLeave(ctx context.Context, q querier, id string) (*leave.LeaveRequest, error) {
	prev, err := getLeave(ctx, q, id)
	if err != nil || prev == nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to delete leave request: %w", err)
	}
	return prev, nil
}

func scanLeave(sc scanner) (leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	var start, end, status, createdAt string
	var updatedAt sql.NullString
	if err := sc.Scan(&r.ID, &r.UserID, &start, &end, &r.Days, &status, &createdAt, &updatedAt); err != nil {
		return leave.LeaveRequest{}, err
	}
	var err error
	if r.StartDate, err = parseTime("start_date", start); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s: %w", r.ID, err)
	}
	if r.EndDate, err = parseTime("end_date", end); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s: %w", r.ID, err)
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s: %w", r.ID, err)
	}
	r.Status = leave.Status(status)
	return r, nil
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetUser(ctx context.Context, id string) (*leave.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]leave.User, error) {
	return listUsers(ctx, ts.tx)
}

func (ts *txStore) PutUser(ctx context.Context, u leave.User) (*leave.User, error) {
	return putUser(ctx, ts.tx, u)
}

func (ts *txStore) RemoveUser(ctx context.Context, id string) (*leave.User, error) {
	return removeUser(ctx, ts.tx, id)
}

func (ts *txStore) GetLeave(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return getLeave(ctx, ts.tx, id)
}

func (ts *txStore) ListLeaves(ctx context.Context) ([]leave.LeaveRequest, error) {
	return listLeaves(ctx, ts.tx)
}

func (ts *txStore) PutLeave(ctx context.Context, r leave.LeaveRequest) (*leave.LeaveRequest, error) {
	return putLeave(ctx, ts.tx, r)
}

func (ts *txStore) RemoveLeave(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return removeLeave(ctx, ts.tx, id)
}

// WithTx on a transactional view joins the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(leave.Store) error) error {
	return fn(ts)
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(column, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", column, s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime("updated_at", s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

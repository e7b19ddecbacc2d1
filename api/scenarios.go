/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the ledger with realistic
  users and leave requests. Everything is created through leave.Ledger,
  so balances come out exactly as if a client had made the calls.

AVAILABLE SCENARIOS:
  small-team:    Three users, requests in every status
  near-limit:    A user one request away from an empty balance
  busy-quarter:  Back-to-back approved requests for one user

HOW SCENARIOS WORK:
  1. Clear the ledger (delete every request, then every user)
  2. Create users
  3. Request leave in the current year (ledger clock)
  4. Approve or reject some of them

USAGE VIA API:
  GET  /api/scenarios
  POST /api/scenarios/load  {"scenario_id": "small-team"}

NOTE:
  Loading a scenario deletes all existing data. Only use in development
  and demo environments.
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "Three users with pending, approved and rejected requests",
	},
	{
		ID:          "near-limit",
		Name:        "Near Limit",
		Description: "A user whose balance covers only a short request",
	},
	{
		ID:          "busy-quarter",
		Name:        "Busy Quarter",
		Description: "Adjacent approved requests that leave no room for overlap",
	},
}

type scenarioLoader func(ctx context.Context, s *seeder) error

var scenarioLoaders = map[string]scenarioLoader{
	"small-team":   loadSmallTeam,
	"near-limit":   loadNearLimit,
	"busy-quarter": loadBusyQuarter,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario clears the ledger and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", "unknown_scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.resetLedger(ctx); err != nil {
		h.writeLedgerError(w, r, "Failed to reset ledger", err)
		return
	}

	s := &seeder{ledger: h.Ledger, year: h.Ledger.Now().UTC().Year()}
	if err := load(ctx, s); err != nil {
		h.writeLedgerError(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// resetLedger deletes requests before users so each held charge is refunded
// to an owner that still exists. Requests of already-deleted users are
// removed without a refund.
func (h *Handler) resetLedger(ctx context.Context) error {
	reqs, err := h.Ledger.GetLeaveRequests(ctx)
	if err != nil {
		return err
	}
	for _, r := range reqs {
		if _, err := h.Ledger.DeleteLeave(ctx, r.ID); err != nil && !leave.IsNotFound(err) {
			return err
		}
	}

	users, err := h.Ledger.GetUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if _, err := h.Ledger.DeleteUser(ctx, u.ID); err != nil && !leave.IsNotFound(err) {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seeder struct {
	ledger *leave.Ledger
	year   int
}

func (s *seeder) user(ctx context.Context, name, email string, days int) (*leave.User, error) {
	return s.ledger.AddUser(ctx, leave.UserPayload{Name: name, Email: email, AvailableDays: &days})
}

// request books leave between two dates of the scenario year.
func (s *seeder) request(ctx context.Context, userID string, from, to time.Time) (*leave.LeaveRequest, error) {
	return s.ledger.RequestLeave(ctx, userID, leave.LeavePayload{
		StartDate: from.Format("2006-01-02"),
		EndDate:   to.Format("2006-01-02"),
	})
}

func (s *seeder) date(month time.Month, day int) time.Time {
	return time.Date(s.year, month, day, 0, 0, 0, 0, time.UTC)
}

func (s *seeder) setStatus(ctx context.Context, id string, status leave.Status) error {
	_, err := s.ledger.UpdateLeaveStatus(ctx, id, string(status))
	return err
}

func loadSmallTeam(ctx context.Context, s *seeder) error {
	alice, err := s.user(ctx, "Alice Johnson", "alice@example.com", 21)
	if err != nil {
		return err
	}
	bob, err := s.user(ctx, "Bob Smith", "bob@example.com", 15)
	if err != nil {
		return err
	}
	if _, err := s.user(ctx, "Carol White", "carol@example.com", 25); err != nil {
		return err
	}

	// Alice: one approved, one pending
	approved, err := s.request(ctx, alice.ID, s.date(time.July, 6), s.date(time.July, 13))
	if err != nil {
		return err
	}
	if err := s.setStatus(ctx, approved.ID, leave.StatusApproved); err != nil {
		return err
	}
	if _, err := s.request(ctx, alice.ID, s.date(time.September, 1), s.date(time.September, 3)); err != nil {
		return err
	}

	// Bob: one rejected, refunded
	rejected, err := s.request(ctx, bob.ID, s.date(time.August, 3), s.date(time.August, 10))
	if err != nil {
		return err
	}
	return s.setStatus(ctx, rejected.ID, leave.StatusRejected)
}

func loadNearLimit(ctx context.Context, s *seeder) error {
	dana, err := s.user(ctx, "Dana Lee", "dana@example.com", 3)
	if err != nil {
		return err
	}
	_, err = s.request(ctx, dana.ID, s.date(time.November, 2), s.date(time.November, 4))
	return err
}

func loadBusyQuarter(ctx context.Context, s *seeder) error {
	erin, err := s.user(ctx, "Erin Park", "erin@example.com", 30)
	if err != nil {
		return err
	}
	spans := [][2]time.Time{
		{s.date(time.October, 5), s.date(time.October, 9)},
		{s.date(time.October, 10), s.date(time.October, 14)},
		{s.date(time.November, 16), s.date(time.November, 20)},
	}
	for _, span := range spans {
		r, err := s.request(ctx, erin.ID, span[0], span[1])
		if err != nil {
			return err
		}
		if err := s.setStatus(ctx, r.ID, leave.StatusApproved); err != nil {
			return err
		}
	}
	return nil
}

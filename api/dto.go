/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the leave domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  User:
    UserDTO, UserRequest, AdjustmentRequest

  Leave:
    LeaveRequestDTO, LeaveDatesRequest, StatusRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

  Errors:
    ErrorResponse

DATES:
  Leave dates are rendered as RFC 3339 instants in UTC. Requests accept
  either YYYY-MM-DD or RFC 3339.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: Domain types
*/
package api

import (
	"time"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	AvailableDays int     `json:"available_days"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     *string `json:"updated_at,omitempty"`
}

// UserRequest is the body of POST /api/users and PUT /api/users/{id}.
type UserRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	AvailableDays *int   `json:"available_days"`
}

func (r UserRequest) payload() leave.UserPayload {
	return leave.UserPayload{Name: r.Name, Email: r.Email, AvailableDays: r.AvailableDays}
}

// AdjustmentRequest is a manual balance correction.
type AdjustmentRequest struct {
	Days      int    `json:"days" validate:"required,min=1"`
	Direction string `json:"direction" validate:"required,oneof=credit debit"`
	Reason    string `json:"reason,omitempty" validate:"max=500"`
}

func toUserDTO(u leave.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		AvailableDays: u.AvailableDays,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     formatOptional(u.UpdatedAt),
	}
}

func toUserDTOs(users []leave.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	return dtos
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Days      int     `json:"days"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

// LeaveDatesRequest is the body of POST /api/users/{id}/leaves and PUT /api/leaves/{id}.
type LeaveDatesRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (r LeaveDatesRequest) payload() leave.LeavePayload {
	return leave.LeavePayload{StartDate: r.StartDate, EndDate: r.EndDate}
}

// StatusRequest is the body of PUT /api/leaves/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

func toLeaveDTO(r leave.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		StartDate: r.StartDate.UTC().Format(time.RFC3339),
		EndDate:   r.EndDate.UTC().Format(time.RFC3339),
		Days:      r.Days,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
		UpdatedAt: formatOptional(r.UpdatedAt),
	}
}

func toLeaveDTOs(reqs []leave.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, len(reqs))
	for i, r := range reqs {
		dtos[i] = toLeaveDTO(r)
	}
	return dtos
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

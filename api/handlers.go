/*
handlers.go - HTTP API handlers for the leave ledger

PURPOSE:
  Exposes the leave ledger via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every rule to leave.Ledger.

ENDPOINTS:
  Users:
    GET    /api/users                     List all users
    POST   /api/users                     Create user
    GET    /api/users/{id}                Get user
    PUT    /api/users/{id}                Replace name, email, balance
    DELETE /api/users/{id}                Delete user
    POST   /api/users/{id}/adjustments    Manual balance adjustment

  Leave requests:
    GET    /api/users/{id}/leaves         Requests owned by a user
    POST   /api/users/{id}/leaves         Request leave (debits balance)
    GET    /api/leaves[?status=PENDING]   All requests, optionally by status
    GET    /api/leaves/{id}               Get request
    PUT    /api/leaves/{id}               Edit dates of a PENDING request
    DELETE /api/leaves/{id}               Delete request (refunds held charge)
    PUT    /api/leaves/{id}/status        Approve or reject

REQUEST FLOW:
  1. Parse HTTP request
  2. Call the ledger (validation lives there)
  3. Serialize response
  4. Map errors by leave.KindOf

ERROR HANDLING:
  Errors are returned as ErrorResponse JSON:
  - 400: Malformed identifier or body
  - 404: User or leave request not found
  - 409: Overlap, duplicate email, illegal status transition
  - 422: Payload or business-rule violation
  - 500: Store failures and lost balance targets

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *leave.Ledger

	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a new handler over ledger.
func NewHandler(ledger *leave.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Ledger:   ledger,
		logger:   logger.Named("api"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Ledger.GetUsers(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Ledger.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// CreateUser creates a new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.Ledger.AddUser(r.Context(), req.payload())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*u))
}

// UpdateUser replaces a user's fields.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.Ledger.UpdateUser(r.Context(), chi.URLParam(r, "id"), req.payload())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// DeleteUser removes a user and returns it.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Ledger.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to delete user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// CreateAdjustment credits or debits a user's balance directly.
// POST /api/users/{id}/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AdjustmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid adjustment", "validation_failed", err)
		return
	}

	// Resolve the user first so an unknown id is a 404, not a lost target.
	if _, err := h.Ledger.GetUser(r.Context(), id); err != nil {
		h.writeLedgerError(w, r, "Failed to adjust balance", err)
		return
	}

	u, err := h.Ledger.AdjustBalance(r.Context(), id, req.Days, leave.Direction(req.Direction))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to adjust balance", err)
		return
	}

	h.logger.Info("manual balance adjustment",
		zap.String("user_id", id),
		zap.String("direction", req.Direction),
		zap.Int("days", req.Days),
		zap.String("reason", req.Reason),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// =============================================================================
// LEAVE REQUEST HANDLERS
// =============================================================================

// ListLeaves returns all leave requests, or those in ?status= when given.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	var (
		reqs []leave.LeaveRequest
		err  error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		reqs, err = h.Ledger.GetLeaveRequestsByStatus(r.Context(), status)
	} else {
		reqs, err = h.Ledger.GetLeaveRequests(r.Context())
	}
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list leave requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(reqs))
}

// ListUserLeaves returns the requests owned by a user.
func (h *Handler) ListUserLeaves(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Ledger.GetUsersLeaveRequests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to list leave requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(reqs))
}

// GetLeave returns a single leave request.
func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.Ledger.GetLeaveRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to get leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*req))
}

// RequestLeave creates a PENDING request for the user in the path.
func (h *Handler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	var body LeaveDatesRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := h.Ledger.RequestLeave(r.Context(), chi.URLParam(r, "id"), body.payload())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to request leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(*req))
}

// UpdateLeave changes the dates of a PENDING request.
func (h *Handler) UpdateLeave(w http.ResponseWriter, r *http.Request) {
	var body LeaveDatesRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := h.Ledger.UpdateLeave(r.Context(), chi.URLParam(r, "id"), body.payload())
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*req))
}

// UpdateLeaveStatus approves or rejects a request.
func (h *Handler) UpdateLeaveStatus(w http.ResponseWriter, r *http.Request) {
	var body StatusRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := h.Ledger.UpdateLeaveStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update leave status", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*req))
}

// DeleteLeave removes a request and returns it.
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.Ledger.DeleteLeave(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLedgerError(w, r, "Failed to delete leave request", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*req))
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	var perr *leave.PayloadError
	if errors.As(err, &perr) {
		resp.Fields = perr.Fields
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps a ledger error to its HTTP status.
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	kind := leave.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message,
			zap.Error(err),
			zap.String("kind", kind.String()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	writeError(w, status, message, kind.String(), err)
}

func statusFor(kind leave.Kind) int {
	switch kind {
	case leave.KindMalformedID:
		return http.StatusBadRequest
	case leave.KindNotFound:
		return http.StatusNotFound
	case leave.KindValidation:
		return http.StatusUnprocessableEntity
	case leave.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes the JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "malformed_body", err)
		return false
	}
	return true
}

package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-approvals/internal/application/service"
	"github.com/garyjia/club-approvals/internal/domain/approval"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// ProfileRequest is the body of POST /api/profiles
type ProfileRequest struct {
	FullName        string `json:"full_name"`
	RollNumber      string `json:"roll_number"`
	Department      string `json:"department"`
	ClubName        string `json:"club_name"`
	FacultyInCharge string `json:"faculty_in_charge"`
	College         string `json:"college"`
}

// DecisionRequest is the body of POST /api/entities/:id/decisions.
// Role defaults to the caller's own role.
type DecisionRequest struct {
	Action            entity.DecisionAction `json:"action"`
	Role              entity.RoleKey        `json:"role"`
	Comment           string                `json:"comment"`
	ApprovedMemberIDs []string              `json:"approved_member_ids"`
}

// GateResponse reports whether a profile unlocks a gated action
type GateResponse struct {
	ProfileID string `json:"profile_id"`
	Action    string `json:"action"`
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
}

// ReviewQuery holds query parameters of the review listing endpoints
type ReviewQuery struct {
	Kind       string `form:"kind"`
	Department string `form:"department"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.services.Health != nil {
		healthy, details := h.services.Health()
		resp.Components = details
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    resp,
	})
}

// SubmitProfile handles POST /api/profiles
func (h *Handlers) SubmitProfile(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	profile, err := h.services.Submissions.SubmitProfile(c.Request.Context(), actor, entity.ProfileDetails{
		FullName:        req.FullName,
		RollNumber:      req.RollNumber,
		Department:      req.Department,
		ClubName:        req.ClubName,
		FacultyInCharge: req.FacultyInCharge,
		College:         req.College,
	})
	if err != nil {
		h.respondError(c, "submit_profile", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    profile,
	})
}

// CheckGate handles GET /api/profiles/:id/gates/:action
func (h *Handlers) CheckGate(c *gin.Context) {
	profileID := c.Param("id")
	action := service.GatedAction(c.Param("action"))

	resp := GateResponse{
		ProfileID: profileID,
		Action:    string(action),
		Allowed:   true,
	}

	_, err := h.services.Gate.Check(c.Request.Context(), profileID, action)
	if err != nil {
		if !errors.Is(err, approval.ErrAccessDenied) {
			h.respondError(c, "check_gate", err)
			return
		}
		resp.Allowed = false
		resp.Reason = err.Error()
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    resp,
	})
}

// DeleteCollectionLetters handles DELETE /api/profiles/:id/collections/:collection/letters
func (h *Handlers) DeleteCollectionLetters(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	n, err := h.services.Submissions.DeleteCollectionLetters(c.Request.Context(), actor, c.Param("id"), c.Param("collection"))
	if err != nil {
		h.respondError(c, "delete_collection_letters", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"deleted": n},
	})
}

// SubmitLetter handles POST /api/letters
func (h *Handlers) SubmitLetter(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req service.LetterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	letter, err := h.services.Submissions.SubmitLetter(c.Request.Context(), actor, req)
	if err != nil {
		h.respondError(c, "submit_letter", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    letter,
	})
}

// MemberApprovals handles GET /api/letters/:id/members
func (h *Handlers) MemberApprovals(c *gin.Context) {
	members, err := h.services.Submissions.MemberApprovals(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "member_approvals", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    members,
	})
}

// GetEntity handles GET /api/entities/:id
func (h *Handlers) GetEntity(c *gin.Context) {
	e, err := h.services.Submissions.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get_entity", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    e,
	})
}

// SubmitDecision handles POST /api/entities/:id/decisions
func (h *Handlers) SubmitDecision(c *gin.Context) {
	actor, ok := h.requireActor(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	claimed := req.Role
	if claimed == "" {
		claimed = actor.Role
	}

	state, err := h.services.Decisions.RecordDecision(c.Request.Context(), service.DecisionRequest{
		EntityID:          c.Param("id"),
		Actor:             actor,
		ClaimedRole:       claimed,
		Action:            req.Action,
		Comment:           req.Comment,
		ApprovedMemberIDs: req.ApprovedMemberIDs,
	})
	if err != nil {
		h.respondError(c, "submit_decision", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    state,
	})
}

// GetAggregateStatus handles GET /api/entities/:id/status
func (h *Handlers) GetAggregateStatus(c *gin.Context) {
	status, err := h.services.Submissions.GetAggregateStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get_aggregate_status", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    status,
	})
}

// History handles GET /api/entities/:id/history
func (h *Handlers) History(c *gin.Context) {
	history, err := h.services.Submissions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "history", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    history,
	})
}

// ListReviews handles GET /api/reviews
func (h *Handlers) ListReviews(c *gin.Context) {
	queue, _, ok := h.loadQueue(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    queue,
	})
}

// ExportReviews handles GET /api/reviews/export
func (h *Handlers) ExportReviews(c *gin.Context) {
	queue, role, ok := h.loadQueue(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.services.Exporter.Export(c.Request.Context(), role, queue.Sheets(), &buf); err != nil {
		h.respondError(c, "export_reviews", err)
		return
	}

	filename := fmt.Sprintf("reviews_%s_%s.xlsx", role, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// loadQueue lists the caller's own review queue from the query parameters
func (h *Handlers) loadQueue(c *gin.Context) (*service.Categorized, entity.RoleKey, bool) {
	actor, ok := h.requireActor(c)
	if !ok {
		return nil, "", false
	}

	var q ReviewQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return nil, "", false
	}

	queue, err := h.services.Reviews.ListCategorized(c.Request.Context(), service.ReviewFilter{
		Role:       actor.Role,
		Department: q.Department,
		Kind:       entity.EntityKind(q.Kind),
	})
	if err != nil {
		h.respondError(c, "list_reviews", err)
		return nil, "", false
	}
	return queue, actor.Role, true
}

func (h *Handlers) requireActor(c *gin.Context) (entity.ActorIdentity, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "unauthenticated",
		})
	}
	return actor, ok
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

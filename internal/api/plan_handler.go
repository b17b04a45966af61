package api

import (
	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/planner"
	"alcyxob/tricoach/internal/service"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler exposes the plan lifecycle: generation, trigger scans,
// proposals, apply/reject, locks and the audit export.
type PlanHandler struct {
	plannerService service.PlannerService
}

func NewPlanHandler(plannerService service.PlannerService) *PlanHandler {
	return &PlanHandler{plannerService: plannerService}
}

// --- DTOs ---

// GeneratePlanRequest carries the plan setup. Weekdays follow
// time.Weekday numbering (0 = Sunday).
type GeneratePlanRequest struct {
	StartDate        time.Time `json:"startDate" binding:"required"`
	EventDate        time.Time `json:"eventDate" binding:"required"`
	WeeksToEvent     int       `json:"weeksToEvent" binding:"required,min=1"`
	WeekStart        int       `json:"weekStart" binding:"min=0,max=6"`
	AvailabilityDays []int     `json:"availabilityDays" binding:"required,min=1"`
	WeeklyMinutes    int       `json:"weeklyMinutes" binding:"required,min=1"`
	Emphasis         string    `json:"emphasis" binding:"required,oneof=balanced swim bike run"`
	RiskTolerance    string    `json:"riskTolerance" binding:"required,oneof=low med high"`
	MaxIntensityDays int       `json:"maxIntensityDays" binding:"min=0"`
	MaxDoubles       int       `json:"maxDoubles" binding:"min=0"`
	LongSessionDay   int       `json:"longSessionDay" binding:"min=0,max=6"`
}

func (r GeneratePlanRequest) toSetup() domain.PlanSetup {
	days := make([]time.Weekday, len(r.AvailabilityDays))
	for i, d := range r.AvailabilityDays {
		days[i] = time.Weekday(d)
	}
	return domain.PlanSetup{
		StartDate:        r.StartDate,
		EventDate:        r.EventDate,
		WeeksToEvent:     r.WeeksToEvent,
		WeekStart:        time.Weekday(r.WeekStart),
		AvailabilityDays: days,
		WeeklyMinutes:    r.WeeklyMinutes,
		Emphasis:         domain.Emphasis(r.Emphasis),
		RiskTolerance:    domain.RiskTolerance(r.RiskTolerance),
		MaxIntensityDays: r.MaxIntensityDays,
		MaxDoubles:       r.MaxDoubles,
		LongSessionDay:   time.Weekday(r.LongSessionDay),
	}
}

type CreateProposalRequest struct {
	TriggerIDs []string `json:"triggerIds" binding:"required,min=1"`
}

type SetLockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

type AuditExportResponse struct {
	URL string `json:"url"`
}

// --- Handler Methods ---

// GeneratePlan godoc
// @Summary Generate a training plan for an athlete
// @Description Builds a deterministic multi-week plan from the submitted setup. Regenerating from the same setup yields the same schedule and hash.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param athleteId path string true "Athlete ID"
// @Param setup body GeneratePlanRequest true "Plan setup"
// @Success 201 {object} domain.GeneratedPlan
// @Failure 400 {object} gin.H "Invalid setup"
// @Failure 403 {object} gin.H "Athlete not on this coach's roster"
// @Failure 404 {object} gin.H "Athlete not found"
// @Router /coach/athletes/{athleteId}/plans [post]
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	athleteID, ok := parseObjectIDParam(c, "athleteId")
	if !ok {
		return
	}

	plan, err := h.plannerService.GeneratePlanForAthlete(c.Request.Context(), coachID, athleteID, req.toSetup())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlan returns a plan to its coach or its athlete.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	userID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.plannerService.GetPlan(c.Request.Context(), userID, planID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ScanTriggers godoc
// @Summary Derive adaptation triggers from recent athlete data
// @Description Scans the feedback and activity window for the plan's athlete and persists any derived triggers.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {array} domain.AdaptationTrigger
// @Failure 403 {object} gin.H "Plan belongs to another coach"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /coach/plans/{planId}/triggers/scan [post]
func (h *PlanHandler) ScanTriggers(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	triggers, err := h.plannerService.ScanTriggers(c.Request.Context(), coachID, planID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	if triggers == nil {
		c.JSON(http.StatusOK, []domain.AdaptationTrigger{})
		return
	}
	c.JSON(http.StatusOK, triggers)
}

// CreateProposal godoc
// @Summary Create a change proposal from derived triggers
// @Description Runs the proposal engine over the selected triggers and stores the safety-rewritten diff for coach review.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param request body CreateProposalRequest true "Trigger IDs"
// @Success 201 {object} domain.PlanChangeProposal
// @Failure 400 {object} gin.H "Triggers missing or not from this plan"
// @Failure 404 {object} gin.H "Plan not found"
// @Router /coach/plans/{planId}/proposals [post]
func (h *PlanHandler) CreateProposal(c *gin.Context) {
	var req CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	triggerIDs := make([]primitive.ObjectID, len(req.TriggerIDs))
	for i, raw := range req.TriggerIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid trigger ID format: "+raw)
			return
		}
		triggerIDs[i] = id
	}

	proposal, err := h.plannerService.CreateProposal(c.Request.Context(), coachID, planID, triggerIDs)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// ListProposals returns every proposal recorded against a plan.
func (h *PlanHandler) ListProposals(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	proposals, err := h.plannerService.ListProposals(c.Request.Context(), coachID, planID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	if proposals == nil {
		c.JSON(http.StatusOK, []domain.PlanChangeProposal{})
		return
	}
	c.JSON(http.StatusOK, proposals)
}

// ApproveProposal godoc
// @Summary Approve and apply a proposal
// @Description Re-validates the stored diff against the current plan snapshot, applies it atomically and bumps the plan version. Lock conflicts and concurrent edits return 409.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param proposalId path string true "Proposal ID"
// @Success 200 {object} domain.GeneratedPlan "Updated plan"
// @Failure 404 {object} gin.H "Proposal or plan not found"
// @Failure 409 {object} gin.H "Lock conflict, version conflict, or proposal no longer approvable"
// @Router /coach/proposals/{proposalId}/approve [post]
func (h *PlanHandler) ApproveProposal(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	proposalID, ok := parseObjectIDParam(c, "proposalId")
	if !ok {
		return
	}

	plan, err := h.plannerService.ApproveProposal(c.Request.Context(), coachID, proposalID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// RejectProposal marks a pending proposal as rejected.
func (h *PlanHandler) RejectProposal(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	proposalID, ok := parseObjectIDParam(c, "proposalId")
	if !ok {
		return
	}

	if err := h.plannerService.RejectProposal(c.Request.Context(), coachID, proposalID); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetWeekLock toggles the lock on a plan week.
func (h *PlanHandler) SetWeekLock(c *gin.Context) {
	var req SetLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	weekIndex, parseErr := strconv.Atoi(c.Param("weekIndex"))
	if parseErr != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid weekIndex format")
		return
	}

	plan, err := h.plannerService.SetWeekLock(c.Request.Context(), coachID, planID, weekIndex, *req.Locked)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// SetSessionLock toggles the lock on a single session.
func (h *PlanHandler) SetSessionLock(c *gin.Context) {
	var req SetLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		abortWithError(c, http.StatusBadRequest, "Session ID is required")
		return
	}

	plan, err := h.plannerService.SetSessionLock(c.Request.Context(), coachID, planID, sessionID, *req.Locked)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

// ListAuditEntries returns the plan's applied-change audit records.
func (h *PlanHandler) ListAuditEntries(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	entries, err := h.plannerService.ListAuditEntries(c.Request.Context(), coachID, planID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	if entries == nil {
		c.JSON(http.StatusOK, []domain.PlanChangeAudit{})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ExportAuditTrail godoc
// @Summary Export a plan's change audit trail
// @Description Serializes the plan's audit entries to object storage and returns a presigned download URL.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Success 200 {object} AuditExportResponse
// @Failure 404 {object} gin.H "Plan not found"
// @Router /coach/plans/{planId}/audit/export [post]
func (h *PlanHandler) ExportAuditTrail(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	url, err := h.plannerService.ExportAuditTrail(c.Request.Context(), coachID, planID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuditExportResponse{URL: url})
}

// respondServiceError maps planner service errors to HTTP statuses.
// Conflicts (locks, stale versions, double transitions) all surface as
// 409 so clients can re-read and retry.
func (h *PlanHandler) respondServiceError(c *gin.Context, err error) {
	var (
		validationErr *planner.ValidationError
		conflictErr   *planner.ConflictError
	)

	switch {
	case errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrProposalNotFound),
		errors.Is(err, service.ErrAthleteNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanAccessDenied),
		errors.Is(err, service.ErrAthleteNotManaged),
		errors.Is(err, service.ErrAthleteNotRole):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPlanVersionConflict),
		errors.Is(err, planner.ErrProposalAlreadyApplied),
		errors.Is(err, planner.ErrProposalNotApprovable):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.As(err, &conflictErr):
		abortWithError(c, http.StatusConflict, conflictErr.Error())
	case errors.Is(err, service.ErrTriggerMismatch),
		errors.Is(err, service.ErrNoTriggers):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &validationErr):
		abortWithError(c, http.StatusBadRequest, validationErr.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

package api

import (
	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AthleteHandler struct {
	athleteService service.AthleteService
}

func NewAthleteHandler(athleteService service.AthleteService) *AthleteHandler {
	return &AthleteHandler{athleteService: athleteService}
}

// --- DTOs ---

type SubmitFeedbackRequest struct {
	SessionID    string `json:"sessionId" binding:"required"`
	Status       string `json:"status" binding:"required,oneof=COMPLETED PARTIAL SKIPPED"`
	Feel         string `json:"feel" binding:"omitempty,oneof=easy ok hard too_hard"`
	Effort       *int   `json:"effort" binding:"omitempty,min=1,max=10"`
	SorenessFlag bool   `json:"sorenessFlag"`
	Comment      string `json:"comment"`
}

type RecordActivityRequest struct {
	SessionID   string `json:"sessionId"` // Optional link to a planned session
	Discipline  string `json:"discipline" binding:"required,oneof=swim bike run"`
	DurationMin int    `json:"durationMin" binding:"required,min=1"`
	PainFlag    bool   `json:"painFlag"`
}

// --- Handler Methods ---

// GetMyPlan returns the athlete's most recent plan.
func (h *AthleteHandler) GetMyPlan(c *gin.Context) {
	athleteID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}

	plan, err := h.athleteService.GetMyPlan(c.Request.Context(), athleteID)
	if err != nil {
		if errors.Is(err, service.ErrNoPlanForAthlete) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to retrieve plan.")
		}
		return
	}

	c.JSON(http.StatusOK, plan)
}

// SubmitFeedback godoc
// @Summary Submit feedback for a planned session
// @Description Records completion status, feel, effort and soreness for one of the athlete's planned sessions.
// @Tags Athlete
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param feedback body SubmitFeedbackRequest true "Feedback details"
// @Success 201 {object} domain.FeedbackRecord
// @Failure 400 {object} gin.H "Invalid feedback payload"
// @Failure 403 {object} gin.H "Plan belongs to another athlete"
// @Failure 404 {object} gin.H "Plan or session not found"
// @Router /athlete/plans/{planId}/feedback [post]
func (h *AthleteHandler) SubmitFeedback(c *gin.Context) {
	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	athleteID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	record, err := h.athleteService.SubmitFeedback(c.Request.Context(), athleteID, planID, service.FeedbackInput{
		SessionID:    req.SessionID,
		Status:       domain.CompletionStatus(req.Status),
		Feel:         domain.FeelRating(req.Feel),
		Effort:       req.Effort,
		SorenessFlag: req.SorenessFlag,
		Comment:      req.Comment,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// RecordActivity godoc
// @Summary Record a completed activity
// @Description Logs an activity against the plan, optionally linked to a planned session. Pain-flagged activities feed the soreness trigger scan.
// @Tags Athlete
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param planId path string true "Plan ID"
// @Param activity body RecordActivityRequest true "Activity details"
// @Success 201 {object} domain.ActivityRecord
// @Failure 400 {object} gin.H "Invalid activity payload"
// @Failure 403 {object} gin.H "Plan belongs to another athlete"
// @Failure 404 {object} gin.H "Plan or session not found"
// @Router /athlete/plans/{planId}/activities [post]
func (h *AthleteHandler) RecordActivity(c *gin.Context) {
	var req RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	athleteID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify athlete from token.")
		return
	}
	planID, ok := parseObjectIDParam(c, "planId")
	if !ok {
		return
	}

	record, err := h.athleteService.RecordActivity(c.Request.Context(), athleteID, planID, service.ActivityInput{
		SessionID:   req.SessionID,
		Discipline:  domain.Discipline(req.Discipline),
		DurationMin: req.DurationMin,
		PainFlag:    req.PainFlag,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h *AthleteHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound), errors.Is(err, service.ErrSessionNotInPlan):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPlanNotForAthlete):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidFeedback), errors.Is(err, service.ErrEffortOutOfRange):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

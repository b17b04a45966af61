package api

import (
	"alcyxob/tricoach/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CoachHandler struct {
	coachService service.CoachService
}

func NewCoachHandler(coachService service.CoachService) *CoachHandler {
	return &CoachHandler{coachService: coachService}
}

// --- DTOs for Roster Management ---

type AddAthleteRequest struct {
	AthleteEmail string `json:"athleteEmail" binding:"required,email"`
}

// AddAthleteByEmail godoc
// @Summary Add an athlete to the coach's roster by email
// @Description Associates an existing athlete user with the authenticated coach.
// @Tags Coach
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param athleteRequest body AddAthleteRequest true "Athlete's email"
// @Success 200 {object} UserResponse "Athlete successfully added/associated"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden (not an athlete, or athlete already coached)"
// @Failure 404 {object} gin.H "Athlete not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /coach/athletes [post]
func (h *CoachHandler) AddAthleteByEmail(c *gin.Context) {
	var req AddAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	athlete, err := h.coachService.AddAthleteByEmail(c.Request.Context(), coachID, req.AthleteEmail)
	if err != nil {
		if errors.Is(err, service.ErrAthleteNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrAthleteNotRole) || errors.Is(err, service.ErrAthleteAlreadyCoached) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to add athlete.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(athlete))
}

// GetRoster godoc
// @Summary Get the coach's managed athletes
// @Description Retrieves a list of athletes currently coached by the authenticated coach.
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse "List of managed athletes"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /coach/athletes [get]
func (h *CoachHandler) GetRoster(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	athletes, err := h.coachService.GetRoster(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve roster.")
		return
	}

	if athletes == nil {
		c.JSON(http.StatusOK, []UserResponse{})
		return
	}

	c.JSON(http.StatusOK, MapUsersToResponse(athletes))
}

// AcknowledgeSoreness godoc
// @Summary Acknowledge an athlete's soreness report
// @Description Marks a soreness-flagged feedback record as seen by the coach, which suppresses it from future trigger scans.
// @Tags Coach
// @Produce json
// @Security BearerAuth
// @Param feedbackId path string true "Feedback record ID"
// @Success 204 "Acknowledged"
// @Failure 400 {object} gin.H "Invalid feedback ID"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Feedback record not found"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /coach/feedback/{feedbackId}/ack [post]
func (h *CoachHandler) AcknowledgeSoreness(c *gin.Context) {
	coachID, err := getUserObjectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	feedbackID, ok := parseObjectIDParam(c, "feedbackId")
	if !ok {
		return
	}

	if err := h.coachService.AcknowledgeSoreness(c.Request.Context(), coachID, feedbackID); err != nil {
		if errors.Is(err, service.ErrFeedbackNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to acknowledge soreness report.")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

package api

import (
	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	registry *prometheus.Registry,
	authService service.AuthService,
	coachService service.CoachService,
	plannerService service.PlannerService,
	athleteService service.AthleteService,
) {

	authHandler := NewAuthHandler(authService)
	coachHandler := NewCoachHandler(coachService)
	planHandler := NewPlanHandler(plannerService)
	athleteHandler := NewAthleteHandler(athleteService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			roleRaw, _ := c.Get(ContextUserRoleKey)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": roleRaw})
		})

		// GET /api/v1/plans/{planId} - readable by the plan's coach or athlete
		protected.GET("/plans/:planId", planHandler.GetPlan)

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			// Roster management
			coachGroup.POST("/athletes", coachHandler.AddAthleteByEmail)
			coachGroup.GET("/athletes", coachHandler.GetRoster)

			// Soreness acknowledgement
			coachGroup.POST("/feedback/:feedbackId/ack", coachHandler.AcknowledgeSoreness)

			// Plan generation
			coachGroup.POST("/athletes/:athleteId/plans", planHandler.GeneratePlan)

			// Trigger derivation and proposals
			coachGroup.POST("/plans/:planId/triggers/scan", planHandler.ScanTriggers)
			coachGroup.POST("/plans/:planId/proposals", planHandler.CreateProposal)
			coachGroup.GET("/plans/:planId/proposals", planHandler.ListProposals)
			coachGroup.POST("/proposals/:proposalId/approve", planHandler.ApproveProposal)
			coachGroup.POST("/proposals/:proposalId/reject", planHandler.RejectProposal)

			// Locks
			coachGroup.PUT("/plans/:planId/weeks/:weekIndex/lock", planHandler.SetWeekLock)
			coachGroup.PUT("/plans/:planId/sessions/:sessionId/lock", planHandler.SetSessionLock)

			// Audit trail
			coachGroup.GET("/plans/:planId/audit", planHandler.ListAuditEntries)
			coachGroup.POST("/plans/:planId/audit/export", planHandler.ExportAuditTrail)
		}

		// --- Athlete Routes ---
		athleteGroup := protected.Group("/athlete")
		athleteGroup.Use(RoleMiddleware(domain.RoleAthlete))
		{
			athleteGroup.GET("/plan", athleteHandler.GetMyPlan)
			athleteGroup.POST("/plans/:planId/feedback", athleteHandler.SubmitFeedback)
			athleteGroup.POST("/plans/:planId/activities", athleteHandler.RecordActivity)
		}
	}
}

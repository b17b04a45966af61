package service

import (
	"context"
	"errors"
	"time"

	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNoPlanForAthlete  = errors.New("no plan exists for this athlete")
	ErrSessionNotInPlan  = errors.New("session does not belong to this plan")
	ErrInvalidFeedback   = errors.New("invalid feedback payload")
	ErrEffortOutOfRange  = errors.New("effort must be between 1 and 10")
	ErrPlanNotForAthlete = errors.New("plan does not belong to this athlete")
)

// FeedbackInput is the athlete-facing feedback payload.
type FeedbackInput struct {
	SessionID    string
	Status       domain.CompletionStatus
	Feel         domain.FeelRating
	Effort       *int
	SorenessFlag bool
	Comment      string
}

// ActivityInput is the athlete-facing completed-activity payload.
type ActivityInput struct {
	SessionID   string
	Discipline  domain.Discipline
	DurationMin int
	PainFlag    bool
}

type AthleteService interface {
	GetMyPlan(ctx context.Context, athleteID primitive.ObjectID) (*domain.GeneratedPlan, error)
	SubmitFeedback(ctx context.Context, athleteID, planID primitive.ObjectID, input FeedbackInput) (*domain.FeedbackRecord, error)
	RecordActivity(ctx context.Context, athleteID, planID primitive.ObjectID, input ActivityInput) (*domain.ActivityRecord, error)
}

// athleteService implements the AthleteService interface.
type athleteService struct {
	planRepo     repository.PlanRepository
	feedbackRepo repository.FeedbackRepository
	now          func() time.Time
}

// NewAthleteService creates a new instance of athleteService.
func NewAthleteService(planRepo repository.PlanRepository, feedbackRepo repository.FeedbackRepository) AthleteService {
	return &athleteService{
		planRepo:     planRepo,
		feedbackRepo: feedbackRepo,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetMyPlan retrieves the athlete's most recent plan.
func (s *athleteService) GetMyPlan(ctx context.Context, athleteID primitive.ObjectID) (*domain.GeneratedPlan, error) {
	plan, err := s.planRepo.GetLatestByAthleteID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoPlanForAthlete
		}
		return nil, err
	}
	return plan, nil
}

// SubmitFeedback records session feedback. The referenced session must
// exist in the plan; the session type is denormalized onto the record at
// submit time so the trigger engine never needs a plan lookup.
func (s *athleteService) SubmitFeedback(ctx context.Context, athleteID, planID primitive.ObjectID, input FeedbackInput) (*domain.FeedbackRecord, error) {
	if !input.Status.Valid() {
		return nil, ErrInvalidFeedback
	}
	if input.Effort != nil && (*input.Effort < 1 || *input.Effort > 10) {
		return nil, ErrEffortOutOfRange
	}

	plan, err := s.athletePlan(ctx, athleteID, planID)
	if err != nil {
		return nil, err
	}
	session, _ := plan.SessionByID(input.SessionID)
	if session == nil {
		return nil, ErrSessionNotInPlan
	}

	record := &domain.FeedbackRecord{
		AthleteID:    athleteID,
		PlanID:       planID,
		SessionID:    input.SessionID,
		SessionType:  session.Type,
		Status:       input.Status,
		Feel:         input.Feel,
		Effort:       input.Effort,
		SorenessFlag: input.SorenessFlag,
		Comment:      input.Comment,
		RecordedAt:   s.now(),
	}

	recordID, err := s.feedbackRepo.CreateFeedback(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = recordID
	return record, nil
}

// RecordActivity records a completed activity, optionally linked to a
// planned session.
func (s *athleteService) RecordActivity(ctx context.Context, athleteID, planID primitive.ObjectID, input ActivityInput) (*domain.ActivityRecord, error) {
	if !input.Discipline.Valid() {
		return nil, errors.New("unrecognized discipline")
	}
	if input.DurationMin <= 0 {
		return nil, errors.New("activity duration must be positive")
	}

	plan, err := s.athletePlan(ctx, athleteID, planID)
	if err != nil {
		return nil, err
	}
	if input.SessionID != "" {
		if session, _ := plan.SessionByID(input.SessionID); session == nil {
			return nil, ErrSessionNotInPlan
		}
	}

	record := &domain.ActivityRecord{
		AthleteID:   athleteID,
		PlanID:      planID,
		SessionID:   input.SessionID,
		Discipline:  input.Discipline,
		DurationMin: input.DurationMin,
		PainFlag:    input.PainFlag,
		RecordedAt:  s.now(),
	}

	recordID, err := s.feedbackRepo.CreateActivity(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = recordID
	return record, nil
}

// athletePlan loads a plan and verifies it belongs to the athlete.
func (s *athleteService) athletePlan(ctx context.Context, athleteID, planID primitive.ObjectID) (*domain.GeneratedPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.AthleteID != athleteID {
		return nil, ErrPlanNotForAthlete
	}
	return plan, nil
}

package service

import (
	"context"
	"errors"

	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAthleteNotFound       = errors.New("athlete user not found")
	ErrAthleteNotRole        = errors.New("user found but is not an athlete")
	ErrAthleteAlreadyCoached = errors.New("athlete is already paired with a coach")
	ErrAthleteNotManaged     = errors.New("athlete is not on this coach's roster")
	ErrFeedbackNotFound      = errors.New("feedback record not found")
)

type CoachService interface {
	AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error)
	GetRoster(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	AcknowledgeSoreness(ctx context.Context, coachID, feedbackID primitive.ObjectID) error
}

// coachService implements the CoachService interface.
type coachService struct {
	userRepo     repository.UserRepository
	feedbackRepo repository.FeedbackRepository
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(userRepo repository.UserRepository, feedbackRepo repository.FeedbackRepository) CoachService {
	return &coachService{
		userRepo:     userRepo,
		feedbackRepo: feedbackRepo,
	}
}

// AddAthleteByEmail finds an athlete by email and pairs them with the coach.
func (s *coachService) AddAthleteByEmail(ctx context.Context, coachID primitive.ObjectID, athleteEmail string) (*domain.User, error) {
	if coachID == primitive.NilObjectID || athleteEmail == "" {
		return nil, errors.New("coach ID and athlete email are required")
	}

	athlete, err := s.userRepo.GetByEmail(ctx, athleteEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}

	if athlete.Role != domain.RoleAthlete {
		return nil, ErrAthleteNotRole
	}

	// An athlete pairs with exactly one coach. Re-adding to the same coach
	// is a no-op rather than an error.
	if athlete.CoachID != nil && *athlete.CoachID != primitive.NilObjectID {
		if *athlete.CoachID == coachID {
			return athlete, nil
		}
		return nil, ErrAthleteAlreadyCoached
	}

	err = s.userRepo.AddAthleteIDToCoach(ctx, coachID, athlete.ID)
	if err != nil {
		return nil, err
	}

	err = s.userRepo.SetCoachForAthlete(ctx, athlete.ID, coachID)
	if err != nil {
		return nil, err
	}

	athlete.CoachID = &coachID
	return athlete, nil
}

// GetRoster retrieves the athletes paired with the coach.
func (s *coachService) GetRoster(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	if coachID == primitive.NilObjectID {
		return nil, errors.New("coach ID is required")
	}
	return s.userRepo.GetAthletesByCoachID(ctx, coachID)
}

// AcknowledgeSoreness marks an athlete's soreness report as reviewed so it
// stops producing new soreness triggers.
func (s *coachService) AcknowledgeSoreness(ctx context.Context, coachID, feedbackID primitive.ObjectID) error {
	if coachID == primitive.NilObjectID || feedbackID == primitive.NilObjectID {
		return errors.New("coach ID and feedback ID are required")
	}

	err := s.feedbackRepo.AcknowledgeSoreness(ctx, feedbackID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrFeedbackNotFound
	}
	return err
}

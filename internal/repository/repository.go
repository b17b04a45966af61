package repository

import (
	"context"
	"time"

	"alcyxob/tricoach/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound        = RepositoryError("not found")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrVersionConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddAthleteIDToCoach(ctx context.Context, coachID, athleteID primitive.ObjectID) error
	GetAthletesByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForAthlete(ctx context.Context, athleteID, coachID primitive.ObjectID) error
}

// PlanRepository defines the interface for interacting with generated plans.
// ReplaceIfVersion is the optimistic-concurrency primitive: it swaps the
// stored plan only when the stored version still matches expectedVersion,
// returning ErrVersionConflict otherwise. Lock toggles and proposal applies
// both go through it so concurrent edits never silently overwrite each other.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.GeneratedPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.GeneratedPlan, error)
	GetLatestByAthleteID(ctx context.Context, athleteID primitive.ObjectID) (*domain.GeneratedPlan, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.GeneratedPlan, error)
	ReplaceIfVersion(ctx context.Context, plan *domain.GeneratedPlan, expectedVersion int64) error
}

// TriggerRepository defines the interface for interacting with derived
// adaptation triggers.
type TriggerRepository interface {
	CreateMany(ctx context.Context, triggers []domain.AdaptationTrigger) ([]primitive.ObjectID, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.AdaptationTrigger, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.AdaptationTrigger, error)
}

// ProposalRepository defines the interface for interacting with plan change
// proposals.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.PlanChangeProposal) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanChangeProposal, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.ProposalStatus) error
}

// AuditRepository defines the interface for interacting with the applied
// change audit trail. Audit records are append-only.
type AuditRepository interface {
	Create(ctx context.Context, audit *domain.PlanChangeAudit) (primitive.ObjectID, error)
	GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error)
}

// FeedbackRepository defines the interface for interacting with athlete
// feedback and completed-activity records, the raw signal the trigger
// engine scans.
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, record *domain.FeedbackRecord) (primitive.ObjectID, error)
	CreateActivity(ctx context.Context, record *domain.ActivityRecord) (primitive.ObjectID, error)
	GetFeedbackSince(ctx context.Context, planID primitive.ObjectID, since time.Time) ([]domain.FeedbackRecord, error)
	GetActivitiesSince(ctx context.Context, planID primitive.ObjectID, since time.Time) ([]domain.ActivityRecord, error)
	AcknowledgeSoreness(ctx context.Context, feedbackID primitive.ObjectID) error
}

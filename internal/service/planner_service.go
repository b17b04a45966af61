package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/metrics"
	"alcyxob/tricoach/internal/planner"
	"alcyxob/tricoach/internal/repository"
	"alcyxob/tricoach/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound        = errors.New("plan not found")
	ErrPlanAccessDenied    = errors.New("access denied to this plan")
	ErrPlanVersionConflict = errors.New("plan was modified concurrently, retry")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrTriggerMismatch     = errors.New("one or more triggers do not belong to this plan")
	ErrNoTriggers          = errors.New("at least one trigger is required for a proposal")
)

type PlannerService interface {
	GeneratePlanForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID, setup domain.PlanSetup) (*domain.GeneratedPlan, error)
	GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.GeneratedPlan, error)
	ScanTriggers(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.AdaptationTrigger, error)
	CreateProposal(ctx context.Context, coachID, planID primitive.ObjectID, triggerIDs []primitive.ObjectID) (*domain.PlanChangeProposal, error)
	ApproveProposal(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.GeneratedPlan, error)
	RejectProposal(ctx context.Context, coachID, proposalID primitive.ObjectID) error
	SetWeekLock(ctx context.Context, coachID, planID primitive.ObjectID, weekIndex int, locked bool) (*domain.GeneratedPlan, error)
	SetSessionLock(ctx context.Context, coachID, planID primitive.ObjectID, sessionID string, locked bool) (*domain.GeneratedPlan, error)
	ListProposals(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error)
	ListAuditEntries(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error)
	ExportAuditTrail(ctx context.Context, coachID, planID primitive.ObjectID) (string, error)
}

// plannerService wires the pure planning core to persistence, object
// storage and metrics. All multi-step plan mutations go through the plan
// repository's version check so concurrent edits surface as
// ErrPlanVersionConflict instead of lost updates.
type plannerService struct {
	planRepo     repository.PlanRepository
	triggerRepo  repository.TriggerRepository
	proposalRepo repository.ProposalRepository
	auditRepo    repository.AuditRepository
	feedbackRepo repository.FeedbackRepository
	userRepo     repository.UserRepository
	engine       planner.ProposalEngine
	objectStore  storage.ObjectStorage
	policy       planner.Policy
	windowDays   int
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// PlannerServiceDeps collects the dependencies of NewPlannerService; the
// list is long enough that positional arguments invite mistakes.
type PlannerServiceDeps struct {
	PlanRepo     repository.PlanRepository
	TriggerRepo  repository.TriggerRepository
	ProposalRepo repository.ProposalRepository
	AuditRepo    repository.AuditRepository
	FeedbackRepo repository.FeedbackRepository
	UserRepo     repository.UserRepository
	Engine       planner.ProposalEngine
	ObjectStore  storage.ObjectStorage
	Policy       planner.Policy
	WindowDays   int
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
}

// NewPlannerService creates a new instance of plannerService.
func NewPlannerService(deps PlannerServiceDeps) PlannerService {
	if deps.WindowDays <= 0 {
		deps.WindowDays = 10
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &plannerService{
		planRepo:     deps.PlanRepo,
		triggerRepo:  deps.TriggerRepo,
		proposalRepo: deps.ProposalRepo,
		auditRepo:    deps.AuditRepo,
		feedbackRepo: deps.FeedbackRepo,
		userRepo:     deps.UserRepo,
		engine:       deps.Engine,
		objectStore:  deps.ObjectStore,
		policy:       deps.Policy,
		windowDays:   deps.WindowDays,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GeneratePlanForAthlete validates the coach/athlete pairing, runs the
// deterministic generator and persists the result.
func (s *plannerService) GeneratePlanForAthlete(ctx context.Context, coachID, athleteID primitive.ObjectID, setup domain.PlanSetup) (*domain.GeneratedPlan, error) {
	athlete, err := s.userRepo.GetByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAthleteNotFound
		}
		return nil, err
	}
	if !athlete.IsAthlete() {
		return nil, ErrAthleteNotRole
	}
	if athlete.CoachID == nil || *athlete.CoachID != coachID {
		return nil, ErrAthleteNotManaged
	}

	plan, err := planner.GeneratePlan(setup)
	if err != nil {
		return nil, err
	}
	plan.CoachID = coachID
	plan.AthleteID = athleteID

	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID

	if s.metrics != nil {
		s.metrics.PlansGenerated.Inc()
	}
	s.logger.Info("generated plan",
		zap.String("planId", planID.Hex()),
		zap.String("athleteId", athleteID.Hex()),
		zap.Int("weeks", len(plan.Weeks)),
		zap.String("hash", plan.Hash),
	)
	return plan, nil
}

// GetPlan returns a plan to its coach or its athlete; anyone else is denied.
func (s *plannerService) GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.GeneratedPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CoachID != userID && plan.AthleteID != userID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

// ScanTriggers derives adaptation triggers from the plan's recent feedback
// and activity window and persists whatever it finds.
func (s *plannerService) ScanTriggers(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.AdaptationTrigger, error) {
	plan, err := s.coachPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	since := now.Add(-time.Duration(s.windowDays) * 24 * time.Hour)

	feedback, err := s.feedbackRepo.GetFeedbackSince(ctx, planID, since)
	if err != nil {
		return nil, err
	}
	activities, err := s.feedbackRepo.GetActivitiesSince(ctx, planID, since)
	if err != nil {
		return nil, err
	}

	triggers, err := planner.DeriveTriggers(planner.TriggerInput{
		Now:        now,
		WindowDays: s.windowDays,
		PlanID:     planID,
		AthleteID:  plan.AthleteID,
		Feedback:   feedback,
		Activities: activities,
	}, s.policy)
	if err != nil {
		return nil, err
	}

	if _, err := s.triggerRepo.CreateMany(ctx, triggers); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		for _, tr := range triggers {
			s.metrics.TriggersDerived.WithLabelValues(string(tr.Type)).Inc()
		}
	}
	s.logger.Info("scanned triggers",
		zap.String("planId", planID.Hex()),
		zap.Int("derived", len(triggers)),
	)
	return triggers, nil
}

// CreateProposal runs the configured proposal engine over the plan's
// current state for the given triggers, then pushes the diff through the
// mandatory safety rewrite before persisting it as PROPOSED.
func (s *plannerService) CreateProposal(ctx context.Context, coachID, planID primitive.ObjectID, triggerIDs []primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	if len(triggerIDs) == 0 {
		return nil, ErrNoTriggers
	}
	plan, err := s.coachPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}

	triggers, err := s.triggerRepo.GetByIDs(ctx, triggerIDs)
	if err != nil {
		return nil, err
	}
	for _, tr := range triggers {
		if tr.PlanID != planID {
			return nil, ErrTriggerMismatch
		}
	}
	types := normalizeTriggerTypes(triggers)

	// Scope the draft to weeks that can still change; elapsed weeks would
	// only yield ops for the safety rewrite to drop.
	result, err := s.engine.Propose(ctx, planner.ProposalInput{
		TriggerTypes: types,
		Draft: planner.DraftState{
			Weeks:    plan.Weeks,
			FromWeek: planner.CurrentWeekIndex(plan.Setup, s.now()),
		},
	})
	if err != nil {
		return nil, err
	}

	// Mandatory, engine-independent sanitization. The stored diff is the
	// rewritten one; the raw engine output is never persisted.
	safe := planner.RewriteForSafeApply(planner.SafetyInput{
		Setup:        plan.Setup,
		Now:          s.now(),
		Weeks:        plan.Weeks,
		Diff:         result.Diff,
		TriggerTypes: types,
	}, s.policy)

	diffHash, err := planner.ComputeStableHash(safe.Diff)
	if err != nil {
		return nil, err
	}

	proposal := &domain.PlanChangeProposal{
		PlanID:       planID,
		TriggerIDs:   triggerIDs,
		TriggerTypes: types,
		Diff:         safe.Diff,
		DiffHash:     diffHash,
		DroppedOps:   safe.DroppedOps,
		Engine:       s.engine.Name(),
		PlanVersion:  plan.Version,
		Status:       domain.ProposalProposed,
	}

	proposalID, err := s.proposalRepo.Create(ctx, proposal)
	if err != nil {
		return nil, err
	}
	proposal.ID = proposalID

	if s.metrics != nil {
		s.metrics.ProposalsCreated.WithLabelValues(proposal.Engine).Inc()
		s.metrics.SafetyDroppedOps.Add(float64(safe.DroppedOps))
	}
	s.logger.Info("created proposal",
		zap.String("proposalId", proposalID.Hex()),
		zap.String("planId", planID.Hex()),
		zap.String("engine", proposal.Engine),
		zap.Int("ops", len(safe.Diff)),
		zap.Int("droppedOps", safe.DroppedOps),
	)
	return proposal, nil
}

// ApproveProposal applies a pending proposal to a fresh plan snapshot and
// persists the outcome atomically with respect to the plan version: if the
// plan changed between snapshot and replace, nothing is written and the
// caller gets ErrPlanVersionConflict.
func (s *plannerService) ApproveProposal(ctx context.Context, coachID, proposalID primitive.ObjectID) (*domain.GeneratedPlan, error) {
	proposal, err := s.proposalRepo.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	plan, err := s.coachPlan(ctx, coachID, proposal.PlanID)
	if err != nil {
		return nil, err
	}

	result, err := planner.ApproveProposal(planner.ApplyInput{
		Proposal: *proposal,
		Plan:     plan,
		Actor:    domain.ActorCoach,
		ActorID:  &coachID,
		Now:      s.now(),
	})
	if err != nil {
		var conflict *planner.ConflictError
		if s.metrics != nil && errors.As(err, &conflict) {
			s.metrics.ApplyConflicts.WithLabelValues(string(conflict.Scope)).Inc()
		}
		return nil, err
	}

	if err := s.planRepo.ReplaceIfVersion(ctx, result.UpdatedPlan, plan.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			if s.metrics != nil {
				s.metrics.ApplyConflicts.WithLabelValues("version").Inc()
			}
			return nil, ErrPlanVersionConflict
		}
		return nil, err
	}

	if _, err := s.auditRepo.Create(ctx, &result.Audit); err != nil {
		// The plan replace already succeeded; a missing audit row is a
		// serious inconsistency worth loud logging, not a rollback.
		s.logger.Error("plan updated but audit write failed",
			zap.String("proposalId", proposalID.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.proposalRepo.UpdateStatus(ctx, proposalID, domain.ProposalProposed, domain.ProposalApplied); err != nil {
		s.logger.Error("plan updated but proposal status transition failed",
			zap.String("proposalId", proposalID.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ProposalsApplied.Inc()
	}
	s.logger.Info("applied proposal",
		zap.String("proposalId", proposalID.Hex()),
		zap.String("planId", plan.ID.Hex()),
		zap.Int64("newVersion", result.UpdatedPlan.Version),
		zap.String("planHash", result.UpdatedPlan.Hash),
	)
	return result.UpdatedPlan, nil
}

// RejectProposal transitions a pending proposal to REJECTED.
func (s *plannerService) RejectProposal(ctx context.Context, coachID, proposalID primitive.ObjectID) error {
	proposal, err := s.proposalRepo.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProposalNotFound
		}
		return err
	}
	if _, err := s.coachPlan(ctx, coachID, proposal.PlanID); err != nil {
		return err
	}

	switch proposal.Status {
	case domain.ProposalProposed:
	case domain.ProposalApplied:
		return planner.ErrProposalAlreadyApplied
	default:
		return planner.ErrProposalNotApprovable
	}

	return s.proposalRepo.UpdateStatus(ctx, proposalID, domain.ProposalProposed, domain.ProposalRejected)
}

// SetWeekLock toggles the lock flag on one plan week.
func (s *plannerService) SetWeekLock(ctx context.Context, coachID, planID primitive.ObjectID, weekIndex int, locked bool) (*domain.GeneratedPlan, error) {
	return s.mutatePlan(ctx, coachID, planID, func(plan *domain.GeneratedPlan) error {
		week := plan.WeekByIndex(weekIndex)
		if week == nil {
			return fmt.Errorf("week %d not found in plan", weekIndex)
		}
		week.Locked = locked
		return nil
	})
}

// SetSessionLock toggles the lock flag on one session.
func (s *plannerService) SetSessionLock(ctx context.Context, coachID, planID primitive.ObjectID, sessionID string, locked bool) (*domain.GeneratedPlan, error) {
	return s.mutatePlan(ctx, coachID, planID, func(plan *domain.GeneratedPlan) error {
		session, _ := plan.SessionByID(sessionID)
		if session == nil {
			return fmt.Errorf("session %s not found in plan", sessionID)
		}
		session.Locked = locked
		return nil
	})
}

// ListProposals returns a plan's proposals, newest first.
func (s *plannerService) ListProposals(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error) {
	if _, err := s.coachPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}
	return s.proposalRepo.GetByPlanID(ctx, planID)
}

// ListAuditEntries returns a plan's applied-change audit records in apply order.
func (s *plannerService) ListAuditEntries(ctx context.Context, coachID, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error) {
	if _, err := s.coachPlan(ctx, coachID, planID); err != nil {
		return nil, err
	}
	return s.auditRepo.GetByPlanID(ctx, planID)
}

// ExportAuditTrail serializes the plan's audit trail to JSON, uploads it to
// object storage and returns a presigned download URL.
func (s *plannerService) ExportAuditTrail(ctx context.Context, coachID, planID primitive.ObjectID) (string, error) {
	if _, err := s.coachPlan(ctx, coachID, planID); err != nil {
		return "", err
	}

	audits, err := s.auditRepo.GetByPlanID(ctx, planID)
	if err != nil {
		return "", err
	}

	export := struct {
		PlanID     string                   `json:"planId"`
		ExportedAt time.Time                `json:"exportedAt"`
		Entries    []domain.PlanChangeAudit `json:"entries"`
	}{
		PlanID:     planID.Hex(),
		ExportedAt: s.now(),
		Entries:    audits,
	}
	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("audit/%s/%s.json", planID.Hex(), s.now().Format("20060102T150405Z"))
	if err := s.objectStore.PutObject(ctx, objectKey, "application/json", body); err != nil {
		return "", err
	}

	url, err := s.objectStore.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", err
	}

	s.logger.Info("exported audit trail",
		zap.String("planId", planID.Hex()),
		zap.String("key", objectKey),
		zap.Int("entries", len(audits)),
	)
	return url, nil
}

// coachPlan loads a plan and verifies the coach owns it.
func (s *plannerService) coachPlan(ctx context.Context, coachID, planID primitive.ObjectID) (*domain.GeneratedPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.CoachID != coachID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

// mutatePlan applies an in-place edit under the plan version guard: the
// edit runs on a fresh snapshot, version and hash are recomputed, and the
// replace only wins if nobody else changed the plan in between.
func (s *plannerService) mutatePlan(ctx context.Context, coachID, planID primitive.ObjectID, edit func(*domain.GeneratedPlan) error) (*domain.GeneratedPlan, error) {
	plan, err := s.coachPlan(ctx, coachID, planID)
	if err != nil {
		return nil, err
	}

	updated := plan.Clone()
	if err := edit(updated); err != nil {
		return nil, err
	}
	updated.Version = plan.Version + 1
	updated.UpdatedAt = s.now()

	hash, err := planner.ComputeStableHash(updated.Projection())
	if err != nil {
		return nil, err
	}
	updated.Hash = hash

	if err := s.planRepo.ReplaceIfVersion(ctx, updated, plan.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrPlanVersionConflict
		}
		return nil, err
	}
	return updated, nil
}

// normalizeTriggerTypes dedupes and sorts the trigger types so identical
// trigger sets always produce the same engine input.
func normalizeTriggerTypes(triggers []domain.AdaptationTrigger) []domain.TriggerType {
	seen := make(map[domain.TriggerType]bool)
	var types []domain.TriggerType
	for _, tr := range triggers {
		if !seen[tr.Type] {
			seen[tr.Type] = true
			types = append(types, tr.Type)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

package planner

import (
	"fmt"
	"math"
	"time"

	"alcyxob/tricoach/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplyInput carries an approved proposal together with a fresh, consistent
// plan snapshot (including lock state) read at approval time. The caller is
// responsible for making read-check-write atomic at the storage layer.
type ApplyInput struct {
	Proposal domain.PlanChangeProposal
	Plan     *domain.GeneratedPlan
	Actor    domain.ActorType
	ActorID  *primitive.ObjectID
	Now      time.Time
}

// ApplyResult is the new plan state plus the single audit record describing
// what was applied.
type ApplyResult struct {
	UpdatedPlan *domain.GeneratedPlan
	Audit       domain.PlanChangeAudit
}

// ApproveProposal applies a safety-rewritten diff to the plan snapshot
// under optimistic concurrency. Any session or week targeted by the diff
// that has become locked since proposal creation is a *ConflictError*, the
// whole apply is rejected and the snapshot is left untouched. Re-approving
// an already-APPLIED proposal is rejected, never reapplied.
//
// Inconsistent references (a diff op naming a session or week the plan does
// not have) raise a validation error rather than being skipped.
func ApproveProposal(in ApplyInput) (*ApplyResult, error) {
	switch in.Proposal.Status {
	case domain.ProposalProposed:
	case domain.ProposalApplied:
		return nil, ErrProposalAlreadyApplied
	default:
		return nil, ErrProposalNotApprovable
	}
	if in.Plan == nil {
		return nil, validationErr("plan", "plan snapshot is required")
	}
	if !in.Proposal.PlanID.IsZero() && !in.Plan.ID.IsZero() && in.Proposal.PlanID != in.Plan.ID {
		return nil, validationErr("proposal.planId", "proposal does not target this plan")
	}

	// Re-validate every target before touching anything: status guard,
	// reference consistency, then locks. No partial application.
	for _, op := range in.Proposal.Diff {
		if err := checkOp(op, in.Plan); err != nil {
			return nil, err
		}
	}

	updated := in.Plan.Clone()
	for _, op := range in.Proposal.Diff {
		applyOp(op, updated)
	}
	for i := range updated.Weeks {
		recomputeWeekTotal(&updated.Weeks[i])
	}
	updated.Version = in.Plan.Version + 1
	updated.UpdatedAt = in.Now

	hash, err := ComputeStableHash(updated.Projection())
	if err != nil {
		return nil, err
	}
	updated.Hash = hash

	audit := domain.PlanChangeAudit{
		ProposalID:  in.Proposal.ID,
		PlanID:      in.Plan.ID,
		Actor:       in.Actor,
		ActorID:     in.ActorID,
		AppliedDiff: in.Proposal.Diff,
		DroppedOps:  in.Proposal.DroppedOps,
		PlanHash:    hash,
		AppliedAt:   in.Now,
	}
	return &ApplyResult{UpdatedPlan: updated, Audit: audit}, nil
}

func checkOp(op domain.DiffOp, plan *domain.GeneratedPlan) error {
	switch op.Op {
	case domain.DiffOpUpdateSession, domain.DiffOpSwapSessionType:
		s, w := plan.SessionByID(op.SessionID)
		if s == nil {
			return validationErr("diff.sessionId", fmt.Sprintf("session %s not found in plan", op.SessionID))
		}
		if w.Locked {
			return &ConflictError{Scope: ConflictScopeWeek, WeekIndex: w.WeekIndex}
		}
		if s.Locked {
			return &ConflictError{Scope: ConflictScopeSession, SessionID: s.ID, WeekIndex: w.WeekIndex}
		}
		if op.Op == domain.DiffOpUpdateSession && op.Patch == nil {
			return validationErr("diff.patch", "UPDATE_SESSION requires a patch")
		}
		return nil

	case domain.DiffOpAdjustWeekVolume:
		if op.WeekIndex == nil {
			return validationErr("diff.weekIndex", "ADJUST_WEEK_VOLUME requires a week index")
		}
		w := plan.WeekByIndex(*op.WeekIndex)
		if w == nil {
			return validationErr("diff.weekIndex", fmt.Sprintf("week %d not found in plan", *op.WeekIndex))
		}
		if w.Locked {
			return &ConflictError{Scope: ConflictScopeWeek, WeekIndex: w.WeekIndex}
		}
		return nil

	case domain.DiffOpRemoveSession:
		// The mandatory safety rewrite strips removals; one reaching apply
		// means the diff bypassed it.
		return validationErr("diff.op", "REMOVE_SESSION ops are never auto-applied")

	default:
		return validationErr("diff.op", fmt.Sprintf("unrecognized diff op %q", op.Op))
	}
}

func applyOp(op domain.DiffOp, plan *domain.GeneratedPlan) {
	switch op.Op {
	case domain.DiffOpUpdateSession:
		s, _ := plan.SessionByID(op.SessionID)
		if op.Patch.Type != nil {
			s.Type = *op.Patch.Type
		}
		if op.Patch.DurationMin != nil {
			s.DurationMin = *op.Patch.DurationMin
		}
		if op.Patch.Notes != nil {
			s.Notes = *op.Patch.Notes
		}

	case domain.DiffOpSwapSessionType:
		s, _ := plan.SessionByID(op.SessionID)
		s.Type = op.ToType

	case domain.DiffOpAdjustWeekVolume:
		w := plan.WeekByIndex(*op.WeekIndex)
		ratio := 1 + op.PctDelta/100
		for i := range w.Sessions {
			if w.Sessions[i].Locked {
				continue // a session lock blocks that session only
			}
			w.Sessions[i].DurationMin = int(math.Round(float64(w.Sessions[i].DurationMin) * ratio))
		}
	}
}

func recomputeWeekTotal(w *domain.PlanWeek) {
	total := 0
	for i := range w.Sessions {
		total += w.Sessions[i].DurationMin
	}
	w.TotalMinutes = total
}

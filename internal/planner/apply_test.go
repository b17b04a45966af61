package planner

import (
	"errors"
	"testing"
	"time"

	"alcyxob/tricoach/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var applyNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func planSnapshot(t *testing.T) *domain.GeneratedPlan {
	t.Helper()
	plan := &domain.GeneratedPlan{
		ID:      primitive.NewObjectID(),
		Setup:   exampleSetup(),
		Weeks:   twoWeekDraft().Weeks,
		Version: 3,
	}
	hash, err := ComputeStableHash(plan.Projection())
	require.NoError(t, err)
	plan.Hash = hash
	return plan
}

func proposalFor(plan *domain.GeneratedPlan, diff []domain.DiffOp) domain.PlanChangeProposal {
	return domain.PlanChangeProposal{
		ID:          primitive.NewObjectID(),
		PlanID:      plan.ID,
		Diff:        diff,
		Status:      domain.ProposalProposed,
		PlanVersion: plan.Version,
	}
}

func TestApproveProposal_AppliesDiffAndBumpsVersion(t *testing.T) {
	plan := planSnapshot(t)
	coachID := primitive.NewObjectID()
	note := "shortened after missed key sessions"
	diff := []domain.DiffOp{
		{Op: domain.DiffOpSwapSessionType, SessionID: "w0-thr", ToType: domain.SessionRecovery},
		{Op: domain.DiffOpUpdateSession, SessionID: "w1-tempo", Patch: &domain.SessionPatch{DurationMin: intPtr(40), Notes: &note}},
		{Op: domain.DiffOpAdjustWeekVolume, WeekIndex: weekPtr(1), PctDelta: -10},
	}

	res, err := ApproveProposal(ApplyInput{
		Proposal: proposalFor(plan, diff),
		Plan:     plan,
		Actor:    domain.ActorCoach,
		ActorID:  &coachID,
		Now:      applyNow,
	})
	require.NoError(t, err)

	updated := res.UpdatedPlan
	s, _ := updated.SessionByID("w0-thr")
	assert.Equal(t, domain.SessionRecovery, s.Type)

	s, w := updated.SessionByID("w1-tempo")
	// Patched to 40, then the -10% week cut lands on top: 40 * 0.9 = 36.
	assert.Equal(t, 36, s.DurationMin)
	assert.Equal(t, note, s.Notes)
	assert.Equal(t, 36+90, w.TotalMinutes, "week totals recomputed after apply")

	assert.Equal(t, int64(4), updated.Version)
	assert.Equal(t, applyNow, updated.UpdatedAt)
	assert.NotEqual(t, plan.Hash, updated.Hash)

	// Audit record mirrors what was applied.
	assert.Equal(t, plan.ID, res.Audit.PlanID)
	assert.Equal(t, domain.ActorCoach, res.Audit.Actor)
	assert.Equal(t, &coachID, res.Audit.ActorID)
	assert.Equal(t, diff, res.Audit.AppliedDiff)
	assert.Equal(t, updated.Hash, res.Audit.PlanHash)
	assert.Equal(t, applyNow, res.Audit.AppliedAt)
}

func TestApproveProposal_SnapshotUntouched(t *testing.T) {
	plan := planSnapshot(t)
	before := plan.Clone()

	_, err := ApproveProposal(ApplyInput{
		Proposal: proposalFor(plan, []domain.DiffOp{
			{Op: domain.DiffOpSwapSessionType, SessionID: "w0-thr", ToType: domain.SessionRecovery},
		}),
		Plan: plan,
		Now:  applyNow,
	})
	require.NoError(t, err)
	if diff := cmp.Diff(before, plan); diff != "" {
		t.Fatalf("input snapshot mutated:\n%s", diff)
	}
}

func TestApproveProposal_IdenticalDiffYieldsIdenticalPlanHash(t *testing.T) {
	diff := []domain.DiffOp{
		{Op: domain.DiffOpAdjustWeekVolume, WeekIndex: weekPtr(0), PctDelta: -10},
	}
	p1 := planSnapshot(t)
	p2 := planSnapshot(t)
	p2.ID = p1.ID

	r1, err := ApproveProposal(ApplyInput{Proposal: proposalFor(p1, diff), Plan: p1, Now: applyNow})
	require.NoError(t, err)
	r2, err := ApproveProposal(ApplyInput{Proposal: proposalFor(p2, diff), Plan: p2, Now: applyNow})
	require.NoError(t, err)

	assert.Equal(t, r1.UpdatedPlan.Hash, r2.UpdatedPlan.Hash, "same diff on the same schedule must produce the same plan hash")
	if diffStr := cmp.Diff(r1.UpdatedPlan.Projection(), r2.UpdatedPlan.Projection()); diffStr != "" {
		t.Fatalf("projection mismatch:\n%s", diffStr)
	}
}

func TestApproveProposal_StatusGuards(t *testing.T) {
	plan := planSnapshot(t)

	p := proposalFor(plan, nil)
	p.Status = domain.ProposalApplied
	_, err := ApproveProposal(ApplyInput{Proposal: p, Plan: plan, Now: applyNow})
	assert.ErrorIs(t, err, ErrProposalAlreadyApplied)

	p.Status = domain.ProposalRejected
	_, err = ApproveProposal(ApplyInput{Proposal: p, Plan: plan, Now: applyNow})
	assert.ErrorIs(t, err, ErrProposalNotApprovable)
}

func TestApproveProposal_LockConflicts(t *testing.T) {
	t.Run("session locked since proposal", func(t *testing.T) {
		plan := planSnapshot(t)
		plan.Weeks[0].Sessions[0].Locked = true

		_, err := ApproveProposal(ApplyInput{
			Proposal: proposalFor(plan, []domain.DiffOp{
				{Op: domain.DiffOpSwapSessionType, SessionID: "w0-thr", ToType: domain.SessionRecovery},
			}),
			Plan: plan,
			Now:  applyNow,
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ConflictScopeSession, conflict.Scope)
		assert.Equal(t, "w0-thr", conflict.SessionID)
	})

	t.Run("week locked since proposal", func(t *testing.T) {
		plan := planSnapshot(t)
		plan.Weeks[1].Locked = true

		_, err := ApproveProposal(ApplyInput{
			Proposal: proposalFor(plan, []domain.DiffOp{
				{Op: domain.DiffOpAdjustWeekVolume, WeekIndex: weekPtr(1), PctDelta: -10},
			}),
			Plan: plan,
			Now:  applyNow,
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ConflictScopeWeek, conflict.Scope)
		assert.Equal(t, 1, conflict.WeekIndex)
	})

	t.Run("week lock shadows session ops", func(t *testing.T) {
		plan := planSnapshot(t)
		plan.Weeks[0].Locked = true

		_, err := ApproveProposal(ApplyInput{
			Proposal: proposalFor(plan, []domain.DiffOp{
				{Op: domain.DiffOpUpdateSession, SessionID: "w0-rec", Patch: &domain.SessionPatch{DurationMin: intPtr(25)}},
			}),
			Plan: plan,
			Now:  applyNow,
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, ConflictScopeWeek, conflict.Scope)
	})

	t.Run("no partial application on conflict", func(t *testing.T) {
		plan := planSnapshot(t)
		plan.Weeks[1].Sessions[0].Locked = true
		before := plan.Clone()

		_, err := ApproveProposal(ApplyInput{
			Proposal: proposalFor(plan, []domain.DiffOp{
				{Op: domain.DiffOpSwapSessionType, SessionID: "w0-thr", ToType: domain.SessionRecovery},
				{Op: domain.DiffOpSwapSessionType, SessionID: "w1-tempo", ToType: domain.SessionEndurance},
			}),
			Plan: plan,
			Now:  applyNow,
		})
		require.Error(t, err)
		if diff := cmp.Diff(before, plan); diff != "" {
			t.Fatalf("plan touched despite conflict:\n%s", diff)
		}
	})
}

func TestApproveProposal_VolumeOpSkipsLockedSessions(t *testing.T) {
	plan := planSnapshot(t)
	plan.Weeks[0].Sessions[2].Locked = true // w0-rec, 30 min

	res, err := ApproveProposal(ApplyInput{
		Proposal: proposalFor(plan, []domain.DiffOp{
			{Op: domain.DiffOpAdjustWeekVolume, WeekIndex: weekPtr(0), PctDelta: -10},
		}),
		Plan: plan,
		Now:  applyNow,
	})
	require.NoError(t, err)

	s, _ := res.UpdatedPlan.SessionByID("w0-rec")
	assert.Equal(t, 30, s.DurationMin, "locked session keeps its duration")
	s, _ = res.UpdatedPlan.SessionByID("w0-thr")
	assert.Equal(t, 54, s.DurationMin)
	s, _ = res.UpdatedPlan.SessionByID("w0-long")
	assert.Equal(t, 81, s.DurationMin)
}

func TestApproveProposal_ValidationFailures(t *testing.T) {
	plan := planSnapshot(t)

	cases := []struct {
		name string
		diff []domain.DiffOp
	}{
		{"unknown session", []domain.DiffOp{{Op: domain.DiffOpSwapSessionType, SessionID: "ghost", ToType: domain.SessionRecovery}}},
		{"unknown week", []domain.DiffOp{{Op: domain.DiffOpAdjustWeekVolume, WeekIndex: weekPtr(42), PctDelta: -10}}},
		{"missing week index", []domain.DiffOp{{Op: domain.DiffOpAdjustWeekVolume, PctDelta: -10}}},
		{"update without patch", []domain.DiffOp{{Op: domain.DiffOpUpdateSession, SessionID: "w0-rec"}}},
		{"remove op reached apply", []domain.DiffOp{{Op: domain.DiffOpRemoveSession, SessionID: "w0-rec"}}},
		{"unknown op kind", []domain.DiffOp{{Op: "BOGUS", SessionID: "w0-rec"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApproveProposal(ApplyInput{Proposal: proposalFor(plan, tc.diff), Plan: plan, Now: applyNow})
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "want validation error, got %v", err)
		})
	}

	p := proposalFor(plan, nil)
	p.PlanID = primitive.NewObjectID()
	_, err := ApproveProposal(ApplyInput{Proposal: p, Plan: plan, Now: applyNow})
	require.Error(t, err, "proposal bound to another plan")
}

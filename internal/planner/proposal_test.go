package planner

import (
	"testing"

	"alcyxob/tricoach/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoWeekDraft builds a small schedule with one threshold, one tempo, one
// long endurance and one recovery session spread over two weeks.
func twoWeekDraft() DraftState {
	return DraftState{Weeks: []domain.PlanWeek{
		{
			WeekIndex:    0,
			TotalMinutes: 180,
			Sessions: []domain.PlanSession{
				{ID: "w0-thr", WeekIndex: 0, Ordinal: 0, Type: domain.SessionThreshold, Discipline: domain.DisciplineBike, DurationMin: 60},
				{ID: "w0-long", WeekIndex: 0, Ordinal: 1, Type: domain.SessionEndurance, Discipline: domain.DisciplineBike, DurationMin: 90, Notes: "long session"},
				{ID: "w0-rec", WeekIndex: 0, Ordinal: 2, Type: domain.SessionRecovery, Discipline: domain.DisciplineSwim, DurationMin: 30},
			},
		},
		{
			WeekIndex:    1,
			TotalMinutes: 150,
			Sessions: []domain.PlanSession{
				{ID: "w1-tempo", WeekIndex: 1, Ordinal: 0, Type: domain.SessionTempo, Discipline: domain.DisciplineRun, DurationMin: 50},
				{ID: "w1-end", WeekIndex: 1, Ordinal: 1, Type: domain.SessionEndurance, Discipline: domain.DisciplineSwim, DurationMin: 100},
			},
		},
	}}
}

func propose(t *testing.T, types []domain.TriggerType, draft DraftState) *ProposalResult {
	t.Helper()
	res, err := GenerateProposal(ProposalInput{TriggerTypes: types, Draft: draft}, DefaultPolicy())
	require.NoError(t, err)
	return res
}

func TestGenerateProposal_Soreness(t *testing.T) {
	res := propose(t, []domain.TriggerType{domain.TriggerSoreness}, twoWeekDraft())

	require.Len(t, res.Diff, 2)
	assert.Equal(t, domain.DiffOpSwapSessionType, res.Diff[0].Op)
	assert.Equal(t, "w0-thr", res.Diff[0].SessionID, "first intensity session in schedule order")
	assert.Equal(t, domain.SessionRecovery, res.Diff[0].ToType)

	assert.Equal(t, domain.DiffOpAdjustWeekVolume, res.Diff[1].Op)
	require.NotNil(t, res.Diff[1].WeekIndex)
	assert.Equal(t, 1, *res.Diff[1].WeekIndex, "cut lands on the following week")
	assert.Equal(t, -10.0, res.Diff[1].PctDelta)
}

func TestGenerateProposal_TooHardStepsDown(t *testing.T) {
	res := propose(t, []domain.TriggerType{domain.TriggerTooHard}, twoWeekDraft())

	require.NotEmpty(t, res.Diff)
	assert.Equal(t, "w0-thr", res.Diff[0].SessionID)
	assert.Equal(t, domain.SessionTempo, res.Diff[0].ToType, "threshold steps down to tempo")

	// With no threshold session left the tempo session steps to endurance.
	draft := twoWeekDraft()
	draft.Weeks[0].Sessions[0].Type = domain.SessionEndurance
	res = propose(t, []domain.TriggerType{domain.TriggerTooHard}, draft)
	require.NotEmpty(t, res.Diff)
	assert.Equal(t, "w1-tempo", res.Diff[0].SessionID)
	assert.Equal(t, domain.SessionEndurance, res.Diff[0].ToType)
}

func TestGenerateProposal_MissedKeyShortensTwoKeySessions(t *testing.T) {
	res := propose(t, []domain.TriggerType{domain.TriggerMissedKey}, twoWeekDraft())

	require.Len(t, res.Diff, 2)
	assert.Equal(t, "w0-thr", res.Diff[0].SessionID)
	assert.Equal(t, "w1-tempo", res.Diff[1].SessionID)
	for _, op := range res.Diff {
		assert.Equal(t, domain.DiffOpUpdateSession, op.Op)
		require.NotNil(t, op.Patch)
		require.NotNil(t, op.Patch.DurationMin)
	}
	// 60 * 0.85 = 51 -> 50 on the 5-minute grid; 50 * 0.85 = 42.5 -> 40.
	assert.Equal(t, 50, *res.Diff[0].Patch.DurationMin)
	assert.Equal(t, 40, *res.Diff[1].Patch.DurationMin)
}

func TestGenerateProposal_HighCompliance(t *testing.T) {
	res := propose(t, []domain.TriggerType{domain.TriggerHighCompliance}, twoWeekDraft())

	require.Len(t, res.Diff, 2)
	assert.Equal(t, domain.DiffOpUpdateSession, res.Diff[0].Op)
	assert.Equal(t, "w0-long", res.Diff[0].SessionID)
	require.NotNil(t, res.Diff[0].Patch.DurationMin)
	// 90 * 1.10 = 99 -> 95 on the 5-minute grid.
	assert.Equal(t, 95, *res.Diff[0].Patch.DurationMin)

	assert.Equal(t, domain.DiffOpAdjustWeekVolume, res.Diff[1].Op)
	assert.Equal(t, 1, *res.Diff[1].WeekIndex)
	assert.Equal(t, 8.0, res.Diff[1].PctDelta)
}

func TestGenerateProposal_HighComplianceFallbackWithoutLongSession(t *testing.T) {
	draft := twoWeekDraft()
	draft.Weeks[0].Sessions[1].Notes = ""
	res := propose(t, []domain.TriggerType{domain.TriggerHighCompliance}, draft)

	require.Len(t, res.Diff, 1)
	assert.Equal(t, domain.DiffOpAdjustWeekVolume, res.Diff[0].Op)
	assert.Equal(t, 0, *res.Diff[0].WeekIndex, "earliest unlocked week gets the boost")
}

func TestGenerateProposal_FromWeekSkipsElapsedWeeks(t *testing.T) {
	draft := twoWeekDraft()
	draft.FromWeek = 1

	res := propose(t, []domain.TriggerType{domain.TriggerSoreness}, draft)
	require.Len(t, res.Diff, 1)
	assert.Equal(t, domain.DiffOpSwapSessionType, res.Diff[0].Op)
	assert.Equal(t, "w1-tempo", res.Diff[0].SessionID, "week 0 has elapsed, target the next intensity session")
	assert.Equal(t, domain.SessionRecovery, res.Diff[0].ToType)

	res = propose(t, []domain.TriggerType{domain.TriggerMissedKey}, draft)
	require.Len(t, res.Diff, 1, "only one key session remains in reach")
	assert.Equal(t, "w1-tempo", res.Diff[0].SessionID)
	require.NotNil(t, res.Diff[0].Patch.DurationMin)
	assert.Equal(t, 40, *res.Diff[0].Patch.DurationMin)

	// The week-0 long session is out of reach, so the compliance boost
	// falls back to the earliest week that can still change.
	res = propose(t, []domain.TriggerType{domain.TriggerHighCompliance}, draft)
	require.Len(t, res.Diff, 1)
	assert.Equal(t, domain.DiffOpAdjustWeekVolume, res.Diff[0].Op)
	require.NotNil(t, res.Diff[0].WeekIndex)
	assert.Equal(t, 1, *res.Diff[0].WeekIndex)
}

func TestGenerateProposal_ProtectivePrecedence(t *testing.T) {
	res := propose(t, []domain.TriggerType{domain.TriggerHighCompliance, domain.TriggerSoreness}, twoWeekDraft())

	require.NotEmpty(t, res.Diff)
	assert.Equal(t, domain.DiffOpSwapSessionType, res.Diff[0].Op, "protective edit comes first")
	assert.Equal(t, domain.SessionRecovery, res.Diff[0].ToType)

	// The soreness cut already targeted week 1, so the compliance boost must
	// not stack another volume op onto it.
	volumeOps := 0
	for _, op := range res.Diff {
		if op.Op == domain.DiffOpAdjustWeekVolume {
			volumeOps++
			assert.Negative(t, op.PctDelta, "protective cut wins the contested week")
		}
	}
	assert.Equal(t, 1, volumeOps)
}

func TestGenerateProposal_SkipsLockedTargets(t *testing.T) {
	draft := twoWeekDraft()
	draft.Weeks[0].Sessions[0].Locked = true
	res := propose(t, []domain.TriggerType{domain.TriggerSoreness}, draft)

	require.NotEmpty(t, res.Diff)
	assert.Equal(t, "w1-tempo", res.Diff[0].SessionID, "locked session is skipped")

	draft = twoWeekDraft()
	draft.Weeks[0].Locked = true
	res = propose(t, []domain.TriggerType{domain.TriggerSoreness}, draft)
	require.NotEmpty(t, res.Diff)
	assert.Equal(t, "w1-tempo", res.Diff[0].SessionID, "locked week is skipped whole")
}

func TestGenerateProposal_EmptyDiffWhenNothingApplies(t *testing.T) {
	draft := DraftState{Weeks: []domain.PlanWeek{{
		WeekIndex: 0,
		Locked:    true,
		Sessions:  []domain.PlanSession{{ID: "s", WeekIndex: 0, Type: domain.SessionThreshold, DurationMin: 60}},
	}}}
	res := propose(t, []domain.TriggerType{domain.TriggerSoreness}, draft)

	assert.NotNil(t, res.Diff)
	assert.Empty(t, res.Diff)
	assert.NotEmpty(t, res.DiffHash, "an empty diff still hashes")
}

func TestGenerateProposal_Deterministic(t *testing.T) {
	types := []domain.TriggerType{domain.TriggerSoreness, domain.TriggerMissedKey, domain.TriggerHighCompliance}
	r1 := propose(t, types, twoWeekDraft())
	r2 := propose(t, types, twoWeekDraft())

	assert.Equal(t, r1.DiffHash, r2.DiffHash)
	if diff := cmp.Diff(r1.Diff, r2.Diff); diff != "" {
		t.Fatalf("diff mismatch across identical runs:\n%s", diff)
	}

	// Trigger type multiplicity and order must not matter.
	r3 := propose(t, []domain.TriggerType{domain.TriggerHighCompliance, domain.TriggerMissedKey, domain.TriggerSoreness, domain.TriggerSoreness}, twoWeekDraft())
	assert.Equal(t, r1.DiffHash, r3.DiffHash)
}

func TestGenerateProposal_Validation(t *testing.T) {
	_, err := GenerateProposal(ProposalInput{Draft: twoWeekDraft()}, DefaultPolicy())
	require.Error(t, err, "empty trigger set")

	_, err = GenerateProposal(ProposalInput{
		TriggerTypes: []domain.TriggerType{"OVERTRAINED"},
		Draft:        twoWeekDraft(),
	}, DefaultPolicy())
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

package planner

import (
	"testing"
	"time"

	"alcyxob/tricoach/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var triggerNow = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

func fb(id byte, age time.Duration, mutate func(*domain.FeedbackRecord)) domain.FeedbackRecord {
	var oid primitive.ObjectID
	oid[11] = id
	r := domain.FeedbackRecord{
		ID:          oid,
		SessionType: domain.SessionEndurance,
		Status:      domain.CompletionCompleted,
		RecordedAt:  triggerNow.Add(-age),
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func act(id byte, age time.Duration, pain bool) domain.ActivityRecord {
	var oid primitive.ObjectID
	oid[11] = id
	return domain.ActivityRecord{
		ID:         oid,
		Discipline: domain.DisciplineRun,
		PainFlag:   pain,
		RecordedAt: triggerNow.Add(-age),
	}
}

func deriveWith(t *testing.T, feedback []domain.FeedbackRecord, activities []domain.ActivityRecord) []domain.AdaptationTrigger {
	t.Helper()
	triggers, err := DeriveTriggers(TriggerInput{
		Now:        triggerNow,
		WindowDays: 10,
		Feedback:   feedback,
		Activities: activities,
	}, DefaultPolicy())
	require.NoError(t, err)
	return triggers
}

func triggerTypes(triggers []domain.AdaptationTrigger) []domain.TriggerType {
	out := make([]domain.TriggerType, 0, len(triggers))
	for _, tr := range triggers {
		out = append(out, tr.Type)
	}
	return out
}

func TestDeriveTriggers_Soreness(t *testing.T) {
	t.Run("pain-flagged activity", func(t *testing.T) {
		triggers := deriveWith(t, nil, []domain.ActivityRecord{act(1, 24*time.Hour, true)})
		require.Len(t, triggers, 1)
		assert.Equal(t, domain.TriggerSoreness, triggers[0].Type)
		assert.Equal(t, []string{act(1, 0, true).ID.Hex()}, triggers[0].EvidenceIDs)
	})

	t.Run("unacknowledged soreness feedback", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{
			fb(1, 24*time.Hour, func(r *domain.FeedbackRecord) { r.SorenessFlag = true }),
		}, nil)
		assert.Contains(t, triggerTypes(triggers), domain.TriggerSoreness)
	})

	t.Run("acknowledged soreness does not re-trigger", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{
			fb(1, 24*time.Hour, func(r *domain.FeedbackRecord) { r.SorenessFlag = true; r.SorenessAck = true }),
		}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerSoreness)
	})
}

func TestDeriveTriggers_TooHard(t *testing.T) {
	hard := func(id byte) domain.FeedbackRecord {
		return fb(id, 24*time.Hour, func(r *domain.FeedbackRecord) { r.Feel = domain.FeelTooHard })
	}
	highEffort := func(id byte) domain.FeedbackRecord {
		return fb(id, 48*time.Hour, func(r *domain.FeedbackRecord) { e := 9; r.Effort = &e })
	}

	t.Run("single signal is insufficient", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{hard(1)}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerTooHard)
	})

	t.Run("two corroborating signals emit", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{hard(1), highEffort(2)}, nil)
		require.Contains(t, triggerTypes(triggers), domain.TriggerTooHard)
		for _, tr := range triggers {
			if tr.Type == domain.TriggerTooHard {
				assert.Len(t, tr.EvidenceIDs, 2)
			}
		}
	})

	t.Run("moderate effort does not count", func(t *testing.T) {
		mild := fb(3, 24*time.Hour, func(r *domain.FeedbackRecord) { e := 6; r.Effort = &e })
		triggers := deriveWith(t, []domain.FeedbackRecord{hard(1), mild}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerTooHard)
	})
}

func TestDeriveTriggers_MissedKey(t *testing.T) {
	skippedKey := func(id byte) domain.FeedbackRecord {
		return fb(id, 48*time.Hour, func(r *domain.FeedbackRecord) {
			r.SessionType = domain.SessionTempo
			r.Status = domain.CompletionSkipped
		})
	}

	t.Run("two skipped key sessions emit", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{skippedKey(1), skippedKey(2)}, nil)
		require.Contains(t, triggerTypes(triggers), domain.TriggerMissedKey)
	})

	t.Run("single opportunity is below the sample floor", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{skippedKey(1)}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerMissedKey)
	})

	t.Run("completed key sessions keep the rate below threshold", func(t *testing.T) {
		completedKey := func(id byte) domain.FeedbackRecord {
			return fb(id, 24*time.Hour, func(r *domain.FeedbackRecord) { r.SessionType = domain.SessionThreshold })
		}
		triggers := deriveWith(t, []domain.FeedbackRecord{skippedKey(1), completedKey(2), completedKey(3)}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerMissedKey)
	})

	t.Run("non-key skips are ignored", func(t *testing.T) {
		skippedEasy := func(id byte) domain.FeedbackRecord {
			return fb(id, 24*time.Hour, func(r *domain.FeedbackRecord) { r.Status = domain.CompletionSkipped })
		}
		triggers := deriveWith(t, []domain.FeedbackRecord{skippedEasy(1), skippedEasy(2), skippedEasy(3)}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerMissedKey)
	})
}

func TestDeriveTriggers_HighComplianceGating(t *testing.T) {
	completed := func(id byte) domain.FeedbackRecord { return fb(id, 24*time.Hour, nil) }

	t.Run("below minimum sample never emits", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{completed(1), completed(2)}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerHighCompliance)
	})

	t.Run("four completed records emit", func(t *testing.T) {
		triggers := deriveWith(t, []domain.FeedbackRecord{completed(1), completed(2), completed(3), completed(4)}, nil)
		require.Contains(t, triggerTypes(triggers), domain.TriggerHighCompliance)
		for _, tr := range triggers {
			if tr.Type == domain.TriggerHighCompliance {
				assert.Len(t, tr.EvidenceIDs, 4)
			}
		}
	})

	t.Run("low completion rate does not emit", func(t *testing.T) {
		skipped := func(id byte) domain.FeedbackRecord {
			return fb(id, 24*time.Hour, func(r *domain.FeedbackRecord) { r.Status = domain.CompletionSkipped })
		}
		triggers := deriveWith(t, []domain.FeedbackRecord{completed(1), completed(2), completed(3), skipped(4), skipped(5), skipped(6)}, nil)
		assert.NotContains(t, triggerTypes(triggers), domain.TriggerHighCompliance)
	})
}

func TestDeriveTriggers_WindowBoundaries(t *testing.T) {
	inside := act(1, 10*24*time.Hour, true)              // exactly at the window edge
	outside := act(2, 10*24*time.Hour+time.Minute, true) // just past it

	triggers := deriveWith(t, nil, []domain.ActivityRecord{inside, outside})
	require.Len(t, triggers, 1)
	assert.Equal(t, []string{inside.ID.Hex()}, triggers[0].EvidenceIDs, "only in-window evidence counts")
}

func TestDeriveTriggers_DeterministicOrderAndStamps(t *testing.T) {
	feedback := []domain.FeedbackRecord{
		fb(1, 24*time.Hour, nil),
		fb(2, 24*time.Hour, nil),
		fb(3, 24*time.Hour, nil),
		fb(4, 24*time.Hour, func(r *domain.FeedbackRecord) { r.SorenessFlag = true }),
	}
	t1 := deriveWith(t, feedback, nil)
	t2 := deriveWith(t, feedback, nil)
	require.Equal(t, t1, t2, "identical inputs must derive identical triggers")

	require.NotEmpty(t, t1)
	for _, tr := range t1 {
		assert.Equal(t, triggerNow, tr.GeneratedAt)
		assert.Equal(t, triggerNow, tr.WindowEnd)
		assert.Equal(t, triggerNow.Add(-10*24*time.Hour), tr.WindowStart)
	}
}

func TestDeriveTriggers_Validation(t *testing.T) {
	_, err := DeriveTriggers(TriggerInput{WindowDays: 10}, DefaultPolicy())
	assert.Error(t, err, "zero now")

	_, err = DeriveTriggers(TriggerInput{Now: triggerNow, WindowDays: 0}, DefaultPolicy())
	assert.Error(t, err, "zero window")

	_, err = DeriveTriggers(TriggerInput{
		Now:        triggerNow,
		WindowDays: 10,
		Feedback:   []domain.FeedbackRecord{fb(1, time.Hour, func(r *domain.FeedbackRecord) { r.Status = "DONE" })},
	}, DefaultPolicy())
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

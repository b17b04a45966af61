package planner

import (
	"fmt"
	"sort"
	"time"

	"alcyxob/tricoach/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerInput is the windowed snapshot the derivation engine scans.
// PlanID/AthleteID are stamped onto emitted triggers; the engine itself
// performs no lookups.
type TriggerInput struct {
	Now        time.Time
	WindowDays int
	PlanID     primitive.ObjectID
	AthleteID  primitive.ObjectID
	Feedback   []domain.FeedbackRecord
	Activities []domain.ActivityRecord
}

// DeriveTriggers scans feedback and completed-activity signals within
// [now - windowDays, now] and emits typed adaptation triggers, each with
// the evidence record ids that justified it. Pure and deterministic given
// identical inputs; emitted triggers are ordered by type.
func DeriveTriggers(in TriggerInput, pol Policy) ([]domain.AdaptationTrigger, error) {
	if in.Now.IsZero() {
		return nil, validationErr("now", "reference time is required")
	}
	if in.WindowDays < 1 {
		return nil, validationErr("windowDays", "must be at least 1")
	}
	for _, f := range in.Feedback {
		if !f.Status.Valid() {
			return nil, validationErr("feedback.status", fmt.Sprintf("unrecognized completion status %q on record %s", f.Status, f.ID.Hex()))
		}
	}

	windowStart := in.Now.Add(-time.Duration(in.WindowDays) * 24 * time.Hour)
	feedback := windowedFeedback(in.Feedback, windowStart, in.Now)
	activities := windowedActivities(in.Activities, windowStart, in.Now)

	var triggers []domain.AdaptationTrigger
	emit := func(t domain.TriggerType, evidence []string) {
		sort.Strings(evidence)
		triggers = append(triggers, domain.AdaptationTrigger{
			PlanID:      in.PlanID,
			AthleteID:   in.AthleteID,
			Type:        t,
			WindowStart: windowStart,
			WindowEnd:   in.Now,
			EvidenceIDs: evidence,
			GeneratedAt: in.Now,
		})
	}

	if ev := sorenessEvidence(feedback, activities); len(ev) > 0 {
		emit(domain.TriggerSoreness, ev)
	}
	if ev := tooHardEvidence(feedback, pol); len(ev) >= pol.TooHardMinSignals {
		emit(domain.TriggerTooHard, ev)
	}
	if ev, ok := missedKeyEvidence(feedback, pol); ok {
		emit(domain.TriggerMissedKey, ev)
	}
	if ev, ok := highComplianceEvidence(feedback, pol); ok {
		emit(domain.TriggerHighCompliance, ev)
	}

	sort.Slice(triggers, func(i, j int) bool { return triggers[i].Type < triggers[j].Type })
	return triggers, nil
}

func windowedFeedback(records []domain.FeedbackRecord, start, end time.Time) []domain.FeedbackRecord {
	var out []domain.FeedbackRecord
	for _, r := range records {
		if !r.RecordedAt.Before(start) && !r.RecordedAt.After(end) {
			out = append(out, r)
		}
	}
	return out
}

func windowedActivities(records []domain.ActivityRecord, start, end time.Time) []domain.ActivityRecord {
	var out []domain.ActivityRecord
	for _, r := range records {
		if !r.RecordedAt.Before(start) && !r.RecordedAt.After(end) {
			out = append(out, r)
		}
	}
	return out
}

// sorenessEvidence collects pain-flagged activities and unacknowledged
// soreness feedback. Acknowledged soreness reports do not re-trigger.
func sorenessEvidence(feedback []domain.FeedbackRecord, activities []domain.ActivityRecord) []string {
	var ev []string
	for _, a := range activities {
		if a.PainFlag {
			ev = append(ev, a.ID.Hex())
		}
	}
	for _, f := range feedback {
		if f.SorenessFlag && !f.SorenessAck {
			ev = append(ev, f.ID.Hex())
		}
	}
	return ev
}

// tooHardEvidence collects high-perceived-effort signals: a "too hard"
// feel rating or a numeric effort at or above the policy floor. A single
// data point is never enough; the caller enforces the minimum cluster size.
func tooHardEvidence(feedback []domain.FeedbackRecord, pol Policy) []string {
	var ev []string
	for _, f := range feedback {
		if f.Feel == domain.FeelTooHard || (f.Effort != nil && *f.Effort >= pol.TooHardEffortFloor) {
			ev = append(ev, f.ID.Hex())
		}
	}
	return ev
}

// missedKeyEvidence checks the skip/partial rate on key session types.
// Requires a minimum number of key-session opportunities in the window so
// tiny samples never trigger.
func missedKeyEvidence(feedback []domain.FeedbackRecord, pol Policy) ([]string, bool) {
	var opportunities int
	var missed []string
	for _, f := range feedback {
		if !f.SessionType.IsKeySession() {
			continue
		}
		opportunities++
		if f.Status == domain.CompletionSkipped || f.Status == domain.CompletionPartial {
			missed = append(missed, f.ID.Hex())
		}
	}
	if opportunities < pol.MissedKeyMinOpportunities {
		return nil, false
	}
	if float64(len(missed))/float64(opportunities) <= pol.MissedKeyRateThreshold {
		return nil, false
	}
	return missed, true
}

// highComplianceEvidence requires a minimum sample of completed-or-partial
// records before it can ever fire, then checks the completion rate across
// all windowed feedback.
func highComplianceEvidence(feedback []domain.FeedbackRecord, pol Policy) ([]string, bool) {
	var qualifying []string
	var completed int
	for _, f := range feedback {
		if f.Status == domain.CompletionCompleted || f.Status == domain.CompletionPartial {
			qualifying = append(qualifying, f.ID.Hex())
		}
		if f.Status == domain.CompletionCompleted {
			completed++
		}
	}
	if len(qualifying) < pol.HighComplianceMinSamples {
		return nil, false
	}
	if float64(completed)/float64(len(feedback)) < pol.HighComplianceRateThreshold {
		return nil, false
	}
	return qualifying, true
}

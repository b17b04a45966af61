package planner

import (
	"time"

	"alcyxob/tricoach/internal/domain"
)

// SafetyInput is everything the rewrite needs: the setup (for the week-start
// convention and start date), the current schedule with lock state, the raw
// diff, and the trigger types that motivated it.
type SafetyInput struct {
	Setup        domain.PlanSetup
	Now          time.Time
	Weeks        []domain.PlanWeek
	Diff         []domain.DiffOp
	TriggerTypes []domain.TriggerType
}

// SafetyResult is the sanitized diff plus how many ops were dropped
// outright. DroppedOps > 0 is a normal, reportable outcome, not an error.
type SafetyResult struct {
	Diff       []domain.DiffOp
	DroppedOps int
}

// RewriteForSafeApply is the mandatory sanitization pass every diff goes
// through before it may be persisted or applied, regardless of which engine
// produced it. It never returns an error: unsafe or unresolvable ops are
// dropped, out-of-bound magnitudes are clamped, and escalating type changes
// are forced to the safe direction when a protective trigger is present.
//
// Enforced invariants:
//   - no REMOVE_SESSION survives (session removal is never auto-applied)
//   - no op targets a week earlier than the current week
//   - no op targets a locked session or a session in a locked week
//   - ADJUST_WEEK_VOLUME deltas stay within the policy bounds
//   - UPDATE_SESSION duration increases stay within the policy cap
//   - under a protective trigger, no type change escalates intensity
func RewriteForSafeApply(in SafetyInput, pol Policy) SafetyResult {
	protective := false
	for _, t := range in.TriggerTypes {
		if t.IsProtective() {
			protective = true
			break
		}
	}
	currentWeek := CurrentWeekIndex(in.Setup, in.Now)

	out := SafetyResult{Diff: []domain.DiffOp{}}
	for _, op := range in.Diff {
		rewritten, keep := rewriteOp(op, in.Weeks, currentWeek, protective, pol)
		if !keep {
			out.DroppedOps++
			continue
		}
		out.Diff = append(out.Diff, rewritten)
	}
	return out
}

// CurrentWeekIndex computes how many whole plan weeks have elapsed since
// the setup start date. Negative before the plan starts, so nothing counts
// as past. Callers building proposals use it to scope the draft to weeks
// that can still change.
func CurrentWeekIndex(setup domain.PlanSetup, now time.Time) int {
	days := int(now.Sub(setup.StartDate).Hours() / 24)
	if days < 0 {
		return -((-days)/7 + 1)
	}
	return days / 7
}

func rewriteOp(op domain.DiffOp, weeks []domain.PlanWeek, currentWeek int, protective bool, pol Policy) (domain.DiffOp, bool) {
	switch op.Op {
	case domain.DiffOpRemoveSession:
		return op, false

	case domain.DiffOpAdjustWeekVolume:
		if op.WeekIndex == nil {
			return op, false
		}
		week := findWeek(weeks, *op.WeekIndex)
		if week == nil || week.Locked || week.WeekIndex < currentWeek {
			return op, false
		}
		if op.PctDelta > pol.VolumeDeltaMaxPct {
			op.PctDelta = pol.VolumeDeltaMaxPct
		}
		if op.PctDelta < pol.VolumeDeltaMinPct {
			op.PctDelta = pol.VolumeDeltaMinPct
		}
		return op, true

	case domain.DiffOpSwapSessionType:
		s, w := findSession(weeks, op.SessionID)
		if s == nil || s.Locked || w.Locked || w.WeekIndex < currentWeek {
			return op, false
		}
		if !op.ToType.Valid() {
			return op, false
		}
		if protective && op.ToType.IntensityRank() > s.Type.IntensityRank() {
			// Escalation under a protective trigger is rewritten to the
			// safe direction, not applied as proposed.
			op.ToType = domain.SessionRecovery
		}
		return op, true

	case domain.DiffOpUpdateSession:
		s, w := findSession(weeks, op.SessionID)
		if s == nil || s.Locked || w.Locked || w.WeekIndex < currentWeek {
			return op, false
		}
		if op.Patch == nil {
			return op, false
		}
		patch := *op.Patch // copy so the input diff is never mutated
		if patch.DurationMin != nil {
			capped := int(float64(s.DurationMin) * (1 + pol.DurationIncreaseCapPct/100))
			dur := *patch.DurationMin
			if dur > capped {
				dur = capped
			}
			if dur < pol.MinSessionMinutes {
				dur = pol.MinSessionMinutes
			}
			patch.DurationMin = &dur
		}
		if patch.Type != nil {
			if !patch.Type.Valid() {
				patch.Type = nil
			} else if protective && patch.Type.IntensityRank() > s.Type.IntensityRank() {
				safe := domain.SessionRecovery
				patch.Type = &safe
			}
		}
		if patch.Type == nil && patch.DurationMin == nil && patch.Notes == nil {
			return op, false
		}
		op.Patch = &patch
		return op, true

	default:
		// Unknown op kinds are dropped, never silently passed through.
		return op, false
	}
}

func findWeek(weeks []domain.PlanWeek, idx int) *domain.PlanWeek {
	for i := range weeks {
		if weeks[i].WeekIndex == idx {
			return &weeks[i]
		}
	}
	return nil
}

func findSession(weeks []domain.PlanWeek, id string) (*domain.PlanSession, *domain.PlanWeek) {
	for i := range weeks {
		for j := range weeks[i].Sessions {
			if weeks[i].Sessions[j].ID == id {
				return &weeks[i].Sessions[j], &weeks[i]
			}
		}
	}
	return nil, nil
}

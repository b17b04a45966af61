package planner

import (
	"fmt"
	"sort"

	"alcyxob/tricoach/internal/domain"
)

// DraftState is the current schedule a proposal is computed against,
// including lock flags. FromWeek is the first week index that may still be
// edited; weeks before it have already elapsed and are never targeted.
type DraftState struct {
	Weeks    []domain.PlanWeek `json:"weeks"`
	FromWeek int               `json:"fromWeek"`
}

// ProposalInput couples a normalized trigger-type set with the draft state.
type ProposalInput struct {
	TriggerTypes []domain.TriggerType `json:"triggerTypes"`
	Draft        DraftState           `json:"draft"`
}

// ProposalResult is an ordered diff plus its stable hash, used to verify
// that two runs over identical input proposed the same edit.
type ProposalResult struct {
	Diff     []domain.DiffOp `json:"diff"`
	DiffHash string          `json:"diffHash"`
}

// Trigger types are processed in fixed precedence, protective first, so the
// resulting diff order is deterministic.
var triggerPrecedence = []domain.TriggerType{
	domain.TriggerSoreness,
	domain.TriggerTooHard,
	domain.TriggerMissedKey,
	domain.TriggerHighCompliance,
}

// GenerateProposal maps a trigger-type set onto a fixed diff policy over the
// draft. Deterministic: identical trigger set and draft always yield an
// identical diff and hash. Locked sessions and weeks are never targeted.
func GenerateProposal(in ProposalInput, pol Policy) (*ProposalResult, error) {
	if len(in.TriggerTypes) == 0 {
		return nil, validationErr("triggerTypes", "at least one trigger type is required")
	}
	present := make(map[domain.TriggerType]bool)
	for _, t := range in.TriggerTypes {
		if !t.Valid() {
			return nil, validationErr("triggerTypes", fmt.Sprintf("unrecognized trigger type %q", t))
		}
		present[t] = true
	}

	b := &diffBuilder{
		weeks:          in.Draft.Weeks,
		fromWeek:       in.Draft.FromWeek,
		pol:            pol,
		touchedWeeks:   make(map[int]bool),
		touchedTargets: make(map[string]bool),
	}
	for _, t := range triggerPrecedence {
		if !present[t] {
			continue
		}
		switch t {
		case domain.TriggerSoreness:
			b.proposeSoreness()
		case domain.TriggerTooHard:
			b.proposeTooHard()
		case domain.TriggerMissedKey:
			b.proposeMissedKey()
		case domain.TriggerHighCompliance:
			b.proposeHighCompliance()
		}
	}

	diff := b.ops
	if diff == nil {
		diff = []domain.DiffOp{}
	}
	hash, err := ComputeStableHash(diff)
	if err != nil {
		return nil, err
	}
	return &ProposalResult{Diff: diff, DiffHash: hash}, nil
}

// diffBuilder accumulates ops while tracking which sessions and weeks have
// already been targeted, so overlapping trigger policies do not stack edits
// onto the same target.
type diffBuilder struct {
	weeks          []domain.PlanWeek
	fromWeek       int
	pol            Policy
	ops            []domain.DiffOp
	touchedWeeks   map[int]bool
	touchedTargets map[string]bool
}

// nextUnlockedSession scans in (weekIndex, ordinal) order for the first
// untouched, unlocked session matching pred. Locked weeks and weeks before
// fromWeek are skipped whole.
func (b *diffBuilder) nextUnlockedSession(pred func(domain.PlanSession) bool) *domain.PlanSession {
	for i := range b.weeks {
		if b.weeks[i].Locked || b.weeks[i].WeekIndex < b.fromWeek {
			continue
		}
		for j := range b.weeks[i].Sessions {
			s := &b.weeks[i].Sessions[j]
			if s.Locked || b.touchedTargets[s.ID] {
				continue
			}
			if pred(*s) {
				return s
			}
		}
	}
	return nil
}

func (b *diffBuilder) weekUnlocked(idx int) bool {
	if idx < b.fromWeek {
		return false
	}
	for i := range b.weeks {
		if b.weeks[i].WeekIndex == idx {
			return !b.weeks[i].Locked
		}
	}
	return false
}

func (b *diffBuilder) addVolumeOp(weekIndex int, pct float64, reason string) {
	if b.touchedWeeks[weekIndex] || !b.weekUnlocked(weekIndex) {
		return
	}
	idx := weekIndex
	b.ops = append(b.ops, domain.DiffOp{
		Op:        domain.DiffOpAdjustWeekVolume,
		WeekIndex: &idx,
		PctDelta:  pct,
		Reason:    reason,
	})
	b.touchedWeeks[weekIndex] = true
}

// proposeSoreness converts the next intensity session to recovery and cuts
// the following week's volume.
func (b *diffBuilder) proposeSoreness() {
	s := b.nextUnlockedSession(func(s domain.PlanSession) bool { return s.Type.IsHighIntensity() })
	if s == nil {
		return
	}
	b.ops = append(b.ops, domain.DiffOp{
		Op:        domain.DiffOpSwapSessionType,
		SessionID: s.ID,
		ToType:    domain.SessionRecovery,
		Reason:    "soreness reported: convert next intensity session to recovery",
	})
	b.touchedTargets[s.ID] = true
	b.addVolumeOp(s.WeekIndex+1, b.pol.SorenessVolumeCutPct, "soreness reported: reduce following week volume")
}

// proposeTooHard de-escalates the next intensity session one step and cuts
// its week's volume.
func (b *diffBuilder) proposeTooHard() {
	s := b.nextUnlockedSession(func(s domain.PlanSession) bool { return s.Type == domain.SessionThreshold })
	to := domain.SessionTempo
	if s == nil {
		s = b.nextUnlockedSession(func(s domain.PlanSession) bool { return s.Type == domain.SessionTempo })
		to = domain.SessionEndurance
	}
	if s == nil {
		return
	}
	b.ops = append(b.ops, domain.DiffOp{
		Op:        domain.DiffOpSwapSessionType,
		SessionID: s.ID,
		ToType:    to,
		Reason:    "sustained high effort: step intensity down",
	})
	b.touchedTargets[s.ID] = true
	b.addVolumeOp(s.WeekIndex, b.pol.TooHardVolumeCutPct, "sustained high effort: reduce week volume")
}

// proposeMissedKey shortens the next two key sessions so they become
// completable again.
func (b *diffBuilder) proposeMissedKey() {
	for n := 0; n < 2; n++ {
		s := b.nextUnlockedSession(func(s domain.PlanSession) bool { return s.Type.IsKeySession() })
		if s == nil {
			return
		}
		newDur := floor5(int(float64(s.DurationMin) * (1 + b.pol.MissedKeyDurationCutPct/100)))
		if newDur < b.pol.MinSessionMinutes {
			newDur = b.pol.MinSessionMinutes
		}
		dur := newDur
		note := "shortened after missed key sessions"
		b.ops = append(b.ops, domain.DiffOp{
			Op:        domain.DiffOpUpdateSession,
			SessionID: s.ID,
			Patch:     &domain.SessionPatch{DurationMin: &dur, Notes: &note},
			Reason:    "key sessions being missed: reduce their duration",
		})
		b.touchedTargets[s.ID] = true
	}
}

// proposeHighCompliance nudges the next week's volume up and extends its
// long session.
func (b *diffBuilder) proposeHighCompliance() {
	long := b.nextUnlockedSession(func(s domain.PlanSession) bool {
		return s.Type == domain.SessionEndurance && s.Notes == "long session"
	})
	if long != nil {
		newDur := floor5(int(float64(long.DurationMin) * (1 + b.pol.HighComplianceLongBoostPct/100)))
		dur := newDur
		b.ops = append(b.ops, domain.DiffOp{
			Op:        domain.DiffOpUpdateSession,
			SessionID: long.ID,
			Patch:     &domain.SessionPatch{DurationMin: &dur},
			Reason:    "high compliance: extend long session",
		})
		b.touchedTargets[long.ID] = true
		b.addVolumeOp(long.WeekIndex+1, b.pol.HighComplianceVolumeBoostPct, "high compliance: increase following week volume")
		return
	}
	// No long session to extend: boost the earliest unlocked week instead.
	idxs := make([]int, 0, len(b.weeks))
	for i := range b.weeks {
		idxs = append(idxs, b.weeks[i].WeekIndex)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		if b.weekUnlocked(idx) && !b.touchedWeeks[idx] {
			b.addVolumeOp(idx, b.pol.HighComplianceVolumeBoostPct, "high compliance: increase week volume")
			return
		}
	}
}

package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanSession is a single scheduled session within a plan week.
// Its ID is stable across edits; (WeekIndex, Ordinal) defines the
// within-week ordering and is collision-free at generation time.
type PlanSession struct {
	ID          string       `bson:"id" json:"id"` // Deterministic UUID, stable for the life of the plan
	WeekIndex   int          `bson:"weekIndex" json:"weekIndex"`
	Ordinal     int          `bson:"ordinal" json:"ordinal"`
	Day         time.Weekday `bson:"day" json:"day"`
	Discipline  Discipline   `bson:"discipline" json:"discipline"`
	Type        SessionType  `bson:"type" json:"type"`
	DurationMin int          `bson:"durationMin" json:"durationMin"`
	Notes       string       `bson:"notes,omitempty" json:"notes,omitempty"`
	Locked      bool         `bson:"locked" json:"locked"`
}

// PlanWeek groups the sessions of one plan week.
// A locked week locks all of its sessions transitively.
type PlanWeek struct {
	WeekIndex    int           `bson:"weekIndex" json:"weekIndex"`
	Locked       bool          `bson:"locked" json:"locked"`
	TotalMinutes int           `bson:"totalMinutes" json:"totalMinutes"`
	Sessions     []PlanSession `bson:"sessions" json:"sessions"`
}

// GeneratedPlan is the multi-week training schedule under edit.
// Version backs optimistic concurrency at the persistence layer: every
// applied proposal bumps it, and a stale replace is rejected.
type GeneratedPlan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID   primitive.ObjectID `bson:"coachId" json:"coachId"`
	AthleteID primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Setup     PlanSetup          `bson:"setup" json:"setup"`
	Weeks     []PlanWeek         `bson:"weeks" json:"weeks"`
	Hash      string             `bson:"hash" json:"hash"` // Stable hash of the schedule projection
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WeekByIndex returns a pointer into Weeks for the given index, or nil.
func (p *GeneratedPlan) WeekByIndex(idx int) *PlanWeek {
	for i := range p.Weeks {
		if p.Weeks[i].WeekIndex == idx {
			return &p.Weeks[i]
		}
	}
	return nil
}

// SessionByID locates a session and its containing week, or (nil, nil).
func (p *GeneratedPlan) SessionByID(id string) (*PlanSession, *PlanWeek) {
	for i := range p.Weeks {
		for j := range p.Weeks[i].Sessions {
			if p.Weeks[i].Sessions[j].ID == id {
				return &p.Weeks[i].Sessions[j], &p.Weeks[i]
			}
		}
	}
	return nil, nil
}

// IsSessionLocked reports whether the session itself or its week is locked.
func (p *GeneratedPlan) IsSessionLocked(id string) bool {
	s, w := p.SessionByID(id)
	if s == nil {
		return false
	}
	return s.Locked || w.Locked
}

// AllSessions returns every session in (weekIndex, ordinal) order.
func (p *GeneratedPlan) AllSessions() []PlanSession {
	var out []PlanSession
	for i := range p.Weeks {
		out = append(out, p.Weeks[i].Sessions...)
	}
	return out
}

// Clone deep-copies the plan so callers can mutate a candidate state
// without touching the snapshot they were handed.
func (p *GeneratedPlan) Clone() *GeneratedPlan {
	cp := *p
	cp.Setup.AvailabilityDays = append([]time.Weekday(nil), p.Setup.AvailabilityDays...)
	cp.Weeks = make([]PlanWeek, len(p.Weeks))
	for i := range p.Weeks {
		cp.Weeks[i] = p.Weeks[i]
		cp.Weeks[i].Sessions = append([]PlanSession(nil), p.Weeks[i].Sessions...)
	}
	return &cp
}

// ScheduleProjection is the hashable view of a plan: the schedule itself,
// stripped of storage identity and timestamps. Two generation runs over the
// same setup must produce identical projections.
type ScheduleProjection struct {
	Weeks []PlanWeek `json:"weeks"`
}

// Projection returns the hashable schedule view of the plan.
func (p *GeneratedPlan) Projection() ScheduleProjection {
	return ScheduleProjection{Weeks: p.Weeks}
}

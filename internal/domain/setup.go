package domain

import "time"

// Discipline identifies the sport of a session.
type Discipline string

const (
	DisciplineSwim Discipline = "swim"
	DisciplineBike Discipline = "bike"
	DisciplineRun  Discipline = "run"
)

// Valid reports whether the discipline is one of the known sports.
func (d Discipline) Valid() bool {
	return d == DisciplineSwim || d == DisciplineBike || d == DisciplineRun
}

// Emphasis selects how weekly volume is weighted across disciplines.
type Emphasis string

const (
	EmphasisBalanced Emphasis = "balanced"
	EmphasisSwim     Emphasis = "swim"
	EmphasisBike     Emphasis = "bike"
	EmphasisRun      Emphasis = "run"
)

// RiskTolerance controls how aggressively intensity is scheduled.
type RiskTolerance string

const (
	RiskLow  RiskTolerance = "low"
	RiskMed  RiskTolerance = "med"
	RiskHigh RiskTolerance = "high"
)

// SessionType classifies a planned session by its training purpose.
type SessionType string

const (
	SessionRecovery  SessionType = "recovery"
	SessionEndurance SessionType = "endurance"
	SessionTempo     SessionType = "tempo"
	SessionThreshold SessionType = "threshold"
)

// IntensityRank orders session types from least to most intense.
// Used by the safety rewrite to detect escalation.
func (t SessionType) IntensityRank() int {
	switch t {
	case SessionRecovery:
		return 0
	case SessionEndurance:
		return 1
	case SessionTempo:
		return 2
	case SessionThreshold:
		return 3
	default:
		return -1
	}
}

// IsHighIntensity reports whether the type counts against the
// intensity-days-per-week cap.
func (t SessionType) IsHighIntensity() bool {
	return t == SessionTempo || t == SessionThreshold
}

// IsKeySession reports whether the type is load-bearing for progression.
// Completion rate on key sessions is tracked by the trigger engine.
func (t SessionType) IsKeySession() bool {
	return t == SessionTempo || t == SessionThreshold
}

// Valid reports whether the type is one of the known session types.
func (t SessionType) Valid() bool {
	return t.IntensityRank() >= 0
}

// PlanSetup captures the athlete constraints a plan is generated from.
// Immutable once generation begins; the generator treats it as read-only.
type PlanSetup struct {
	StartDate        time.Time      `bson:"startDate" json:"startDate"` // First day of week 0
	EventDate        time.Time      `bson:"eventDate" json:"eventDate"`
	WeeksToEvent     int            `bson:"weeksToEvent" json:"weeksToEvent"`
	WeekStart        time.Weekday   `bson:"weekStart" json:"weekStart"` // Which weekday begins a plan week
	AvailabilityDays []time.Weekday `bson:"availabilityDays" json:"availabilityDays"`
	WeeklyMinutes    int            `bson:"weeklyMinutes" json:"weeklyMinutes"`
	Emphasis         Emphasis       `bson:"emphasis" json:"emphasis"`
	RiskTolerance    RiskTolerance  `bson:"riskTolerance" json:"riskTolerance"`
	MaxIntensityDays int            `bson:"maxIntensityDays" json:"maxIntensityDays"`
	MaxDoubles       int            `bson:"maxDoubles" json:"maxDoubles"` // Days per week allowed to carry two sessions
	LongSessionDay   time.Weekday   `bson:"longSessionDay" json:"longSessionDay"`
}

// DayOffset returns the position of a weekday within the plan week,
// relative to the configured week-start convention (0..6).
func (s PlanSetup) DayOffset(d time.Weekday) int {
	return (int(d) - int(s.WeekStart) + 7) % 7
}

// HasAvailability reports whether the given weekday is schedulable.
func (s PlanSetup) HasAvailability(d time.Weekday) bool {
	for _, a := range s.AvailabilityDays {
		if a == d {
			return true
		}
	}
	return false
}

package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TriggerType classifies an adaptation trigger.
type TriggerType string

const (
	TriggerSoreness       TriggerType = "SORENESS"
	TriggerTooHard        TriggerType = "TOO_HARD"
	TriggerMissedKey      TriggerType = "MISSED_KEY"
	TriggerHighCompliance TriggerType = "HIGH_COMPLIANCE"
)

// Valid reports whether the type is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerSoreness, TriggerTooHard, TriggerMissedKey, TriggerHighCompliance:
		return true
	}
	return false
}

// IsProtective reports whether the trigger indicates the athlete needs
// protecting from load. Protective triggers block intensity escalation
// in the safety rewrite.
func (t TriggerType) IsProtective() bool {
	return t == TriggerSoreness || t == TriggerTooHard
}

// AdaptationTrigger is a typed evidence record derived from windowed
// feedback/activity signals. Never mutated after creation; proposals
// reference triggers by id.
type AdaptationTrigger struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID      primitive.ObjectID `bson:"planId" json:"planId"`
	AthleteID   primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	Type        TriggerType        `bson:"type" json:"type"`
	WindowStart time.Time          `bson:"windowStart" json:"windowStart"`
	WindowEnd   time.Time          `bson:"windowEnd" json:"windowEnd"`
	EvidenceIDs []string           `bson:"evidenceIds" json:"evidenceIds"` // Source feedback/activity record ids, sorted
	GeneratedAt time.Time          `bson:"generatedAt" json:"generatedAt"`
}

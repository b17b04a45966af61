package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletionStatus tracks how a planned session ended up.
type CompletionStatus string

const (
	CompletionCompleted CompletionStatus = "COMPLETED"
	CompletionPartial   CompletionStatus = "PARTIAL"
	CompletionSkipped   CompletionStatus = "SKIPPED"
)

// Valid reports whether the status is one of the known completion states.
func (s CompletionStatus) Valid() bool {
	return s == CompletionCompleted || s == CompletionPartial || s == CompletionSkipped
}

// FeelRating is the athlete's subjective read on a session.
type FeelRating string

const (
	FeelEasy    FeelRating = "easy"
	FeelOK      FeelRating = "ok"
	FeelHard    FeelRating = "hard"
	FeelTooHard FeelRating = "too_hard"
)

// FeedbackRecord is one athlete feedback entry against a planned session.
// These accumulate externally and are scanned in a time window by the
// trigger derivation engine.
type FeedbackRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID    primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	PlanID       primitive.ObjectID `bson:"planId" json:"planId"`
	SessionID    string             `bson:"sessionId" json:"sessionId"`
	SessionType  SessionType        `bson:"sessionType" json:"sessionType"` // Denormalized from the plan at submit time
	Status       CompletionStatus   `bson:"status" json:"status"`
	Feel         FeelRating         `bson:"feel,omitempty" json:"feel,omitempty"`
	Effort       *int               `bson:"effort,omitempty" json:"effort,omitempty"` // RPE 1..10
	SorenessFlag bool               `bson:"sorenessFlag" json:"sorenessFlag"`
	SorenessAck  bool               `bson:"sorenessAck" json:"sorenessAck"` // Coach has acknowledged the soreness report
	Comment      string             `bson:"comment,omitempty" json:"comment,omitempty"`
	RecordedAt   time.Time          `bson:"recordedAt" json:"recordedAt"`
}

// ActivityRecord is one completed-activity entry supplied by the ingestion
// pipeline. Only the fields the trigger engine reads are modeled here.
type ActivityRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AthleteID   primitive.ObjectID `bson:"athleteId" json:"athleteId"`
	PlanID      primitive.ObjectID `bson:"planId" json:"planId"`
	SessionID   string             `bson:"sessionId,omitempty" json:"sessionId,omitempty"` // Optional link to a planned session
	Discipline  Discipline         `bson:"discipline" json:"discipline"`
	DurationMin int                `bson:"durationMin" json:"durationMin"`
	PainFlag    bool               `bson:"painFlag" json:"painFlag"`
	RecordedAt  time.Time          `bson:"recordedAt" json:"recordedAt"`
}

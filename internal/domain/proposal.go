package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DiffOpKind discriminates the closed set of plan mutation instructions.
// The rewrite and apply engines switch exhaustively over these; an unknown
// kind is an error, never a silent skip.
type DiffOpKind string

const (
	DiffOpUpdateSession    DiffOpKind = "UPDATE_SESSION"
	DiffOpSwapSessionType  DiffOpKind = "SWAP_SESSION_TYPE"
	DiffOpAdjustWeekVolume DiffOpKind = "ADJUST_WEEK_VOLUME"
	DiffOpRemoveSession    DiffOpKind = "REMOVE_SESSION"
)

// Valid reports whether the kind is one of the known diff op kinds.
func (k DiffOpKind) Valid() bool {
	switch k {
	case DiffOpUpdateSession, DiffOpSwapSessionType, DiffOpAdjustWeekVolume, DiffOpRemoveSession:
		return true
	}
	return false
}

// SessionPatch is the payload of an UPDATE_SESSION op. Nil fields are
// left untouched.
type SessionPatch struct {
	Type        *SessionType `bson:"type,omitempty" json:"type,omitempty"`
	DurationMin *int         `bson:"durationMin,omitempty" json:"durationMin,omitempty"`
	Notes       *string      `bson:"notes,omitempty" json:"notes,omitempty"`
}

// DiffOp is one atomic plan mutation instruction. Which fields are
// meaningful depends on Op:
//
//	UPDATE_SESSION     SessionID + Patch
//	SWAP_SESSION_TYPE  SessionID + ToType
//	ADJUST_WEEK_VOLUME WeekIndex + PctDelta
//	REMOVE_SESSION     SessionID
type DiffOp struct {
	Op        DiffOpKind    `bson:"op" json:"op"`
	SessionID string        `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	WeekIndex *int          `bson:"weekIndex,omitempty" json:"weekIndex,omitempty"`
	ToType    SessionType   `bson:"toType,omitempty" json:"toType,omitempty"`
	PctDelta  float64       `bson:"pctDelta,omitempty" json:"pctDelta,omitempty"`
	Patch     *SessionPatch `bson:"patch,omitempty" json:"patch,omitempty"`
	Reason    string        `bson:"reason,omitempty" json:"reason,omitempty"`
}

// ProposalStatus tracks the proposal lifecycle. APPLIED is terminal.
type ProposalStatus string

const (
	ProposalProposed ProposalStatus = "PROPOSED"
	ProposalApplied  ProposalStatus = "APPLIED"
	ProposalRejected ProposalStatus = "REJECTED"
)

// PlanChangeProposal is an ordered, hashable list of diff ops representing
// a candidate plan edit. Created once per trigger-set+plan combination and
// never edited after creation beyond its status.
type PlanChangeProposal struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	PlanID       primitive.ObjectID   `bson:"planId" json:"planId"`
	TriggerIDs   []primitive.ObjectID `bson:"triggerIds" json:"triggerIds"`
	TriggerTypes []TriggerType        `bson:"triggerTypes" json:"triggerTypes"` // Normalized: deduped, sorted
	Diff         []DiffOp             `bson:"diff" json:"diff"`                 // Post-safety-rewrite
	DiffHash     string               `bson:"diffHash" json:"diffHash"`
	DroppedOps   int                  `bson:"droppedOps" json:"droppedOps"`   // Ops removed by the safety rewrite
	Engine       string               `bson:"engine" json:"engine"`           // Which proposal engine produced the diff
	PlanVersion  int64                `bson:"planVersion" json:"planVersion"` // Plan version the diff was computed against
	Status       ProposalStatus       `bson:"status" json:"status"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActorType identifies who approved an applied proposal.
type ActorType string

const (
	ActorCoach  ActorType = "COACH"
	ActorSystem ActorType = "SYSTEM"
)

// PlanChangeAudit is the append-only record of an applied proposal: the
// diff actually merged into the plan (post-safety-rewrite), who approved
// it, and when. Write-once; never updated or deleted.
type PlanChangeAudit struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ProposalID  primitive.ObjectID  `bson:"proposalId" json:"proposalId"`
	PlanID      primitive.ObjectID  `bson:"planId" json:"planId"`
	Actor       ActorType           `bson:"actor" json:"actor"`
	ActorID     *primitive.ObjectID `bson:"actorId,omitempty" json:"actorId,omitempty"` // Coach user id; nil for SYSTEM
	AppliedDiff []DiffOp            `bson:"appliedDiff" json:"appliedDiff"`
	DroppedOps  int                 `bson:"droppedOps" json:"droppedOps"`
	PlanHash    string              `bson:"planHash" json:"planHash"` // Stable hash of the plan after apply
	AppliedAt   time.Time           `bson:"appliedAt" json:"appliedAt"`
}

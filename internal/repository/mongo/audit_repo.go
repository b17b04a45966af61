package mongo

import (
	"context"
	"errors"

	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollectionName = "plan_change_audits"

// mongoAuditRepository implements the repository.AuditRepository interface using MongoDB.
// The collection is append-only; there is deliberately no update or delete.
type mongoAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoAuditRepository creates a new instance of mongoAuditRepository.
func NewMongoAuditRepository(db *mongo.Database) repository.AuditRepository {
	return &mongoAuditRepository{
		collection: db.Collection(auditCollectionName),
	}
}

// Create inserts a new audit record.
func (r *mongoAuditRepository) Create(ctx context.Context, audit *domain.PlanChangeAudit) (primitive.ObjectID, error) {
	if audit.PlanID.IsZero() || audit.ProposalID.IsZero() {
		return primitive.NilObjectID, errors.New("audit plan id and proposal id are required")
	}

	audit.ID = primitive.NewObjectID()

	result, err := r.collection.InsertOne(ctx, audit)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByPlanID retrieves the full audit trail for a plan in apply order.
func (r *mongoAuditRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeAudit, error) {
	filter := bson.M{"planId": planID}
	opts := options.Find().SetSort(bson.D{{Key: "appliedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var audits []domain.PlanChangeAudit
	if err = cursor.All(ctx, &audits); err != nil {
		return nil, err
	}
	return audits, nil
}

// EnsureAuditIndexes creates necessary indexes for the audit collection.
func EnsureAuditIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "appliedAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "proposalId", Value: 1}},
		},
	}
	_, err := db.Collection(auditCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}

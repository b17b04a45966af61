package mongo

import (
	"context"
	"errors"
	"time"

	"alcyxob/tricoach/internal/domain"
	"alcyxob/tricoach/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const proposalCollectionName = "proposals"

// mongoProposalRepository implements the repository.ProposalRepository interface using MongoDB.
type mongoProposalRepository struct {
	collection *mongo.Collection
}

// NewMongoProposalRepository creates a new instance of mongoProposalRepository.
func NewMongoProposalRepository(db *mongo.Database) repository.ProposalRepository {
	return &mongoProposalRepository{
		collection: db.Collection(proposalCollectionName),
	}
}

// Create inserts a new proposal. The diff stored here has already been
// through the safety rewrite.
func (r *mongoProposalRepository) Create(ctx context.Context, proposal *domain.PlanChangeProposal) (primitive.ObjectID, error) {
	if proposal.PlanID.IsZero() {
		return primitive.NilObjectID, errors.New("proposal plan id is required")
	}
	if proposal.Status == "" {
		proposal.Status = domain.ProposalProposed
	}

	proposal.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	proposal.CreatedAt = now
	proposal.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, proposal)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a proposal by its MongoDB ObjectID.
func (r *mongoProposalRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanChangeProposal, error) {
	var proposal domain.PlanChangeProposal
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&proposal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

// GetByPlanID retrieves all proposals for a plan, newest first.
func (r *mongoProposalRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanChangeProposal, error) {
	filter := bson.M{"planId": planID}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var proposals []domain.PlanChangeProposal
	if err = cursor.All(ctx, &proposals); err != nil {
		return nil, err
	}
	return proposals, nil
}

// UpdateStatus transitions a proposal from one status to another. The `from`
// status in the filter guards against double transitions: approving an
// already-applied proposal matches nothing and returns ErrUpdateFailed.
func (r *mongoProposalRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.ProposalStatus) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{
		"$set": bson.M{
			"status":    to,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing proposal from a wrong current status.
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrUpdateFailed
	}

	return nil
}

// EnsureProposalIndexes creates necessary indexes for the proposals collection.
func EnsureProposalIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}
	_, err := db.Collection(proposalCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}

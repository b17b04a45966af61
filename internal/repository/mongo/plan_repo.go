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

const planCollectionName = "plans"

// mongoPlanRepository implements the repository.PlanRepository interface using MongoDB.
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new instance of mongoPlanRepository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a newly generated plan.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.GeneratedPlan) (primitive.ObjectID, error) {
	if plan.CoachID.IsZero() || plan.AthleteID.IsZero() {
		return primitive.NilObjectID, errors.New("plan coach id and athlete id are required")
	}
	if plan.Hash == "" {
		return primitive.NilObjectID, errors.New("plan hash is required")
	}

	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.Version == 0 {
		plan.Version = 1
	}

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a plan by its MongoDB ObjectID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.GeneratedPlan, error) {
	var plan domain.GeneratedPlan
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetLatestByAthleteID retrieves the most recently created plan for an athlete.
func (r *mongoPlanRepository) GetLatestByAthleteID(ctx context.Context, athleteID primitive.ObjectID) (*domain.GeneratedPlan, error) {
	var plan domain.GeneratedPlan
	filter := bson.M{"athleteId": athleteID}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	err := r.collection.FindOne(ctx, filter, opts).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByCoachID retrieves all plans created by a specific coach.
func (r *mongoPlanRepository) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.GeneratedPlan, error) {
	filter := bson.M{"coachId": coachID}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.GeneratedPlan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// ReplaceIfVersion replaces the stored plan document only when its version
// still matches expectedVersion. The version check in the filter makes the
// read-check-write cycle atomic: a concurrent apply or lock toggle bumps the
// version, the filter no longer matches, and the caller gets
// ErrVersionConflict instead of silently overwriting.
func (r *mongoPlanRepository) ReplaceIfVersion(ctx context.Context, plan *domain.GeneratedPlan, expectedVersion int64) error {
	if plan.ID.IsZero() {
		return errors.New("plan id is required for replace")
	}

	filter := bson.M{"_id": plan.ID, "version": expectedVersion}

	result, err := r.collection.ReplaceOne(ctx, filter, plan)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing plan from a stale version.
		if _, getErr := r.GetByID(ctx, plan.ID); errors.Is(getErr, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	return nil
}

// EnsurePlanIndexes creates necessary indexes for the plans collection.
func EnsurePlanIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "athleteId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "coachId", Value: 1}},
		},
	}
	_, err := db.Collection(planCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}

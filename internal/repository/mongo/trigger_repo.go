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

const triggerCollectionName = "triggers"

// mongoTriggerRepository implements the repository.TriggerRepository interface using MongoDB.
type mongoTriggerRepository struct {
	collection *mongo.Collection
}

// NewMongoTriggerRepository creates a new instance of mongoTriggerRepository.
func NewMongoTriggerRepository(db *mongo.Database) repository.TriggerRepository {
	return &mongoTriggerRepository{
		collection: db.Collection(triggerCollectionName),
	}
}

// CreateMany inserts a batch of derived triggers and returns their new IDs
// in input order. An empty batch is a no-op.
func (r *mongoTriggerRepository) CreateMany(ctx context.Context, triggers []domain.AdaptationTrigger) ([]primitive.ObjectID, error) {
	if len(triggers) == 0 {
		return []primitive.ObjectID{}, nil
	}

	docs := make([]interface{}, 0, len(triggers))
	ids := make([]primitive.ObjectID, 0, len(triggers))
	for i := range triggers {
		triggers[i].ID = primitive.NewObjectID()
		ids = append(ids, triggers[i].ID)
		docs = append(docs, triggers[i])
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetByPlanID retrieves all triggers derived for a plan, newest first.
func (r *mongoTriggerRepository) GetByPlanID(ctx context.Context, planID primitive.ObjectID) ([]domain.AdaptationTrigger, error) {
	filter := bson.M{"planId": planID}
	opts := options.Find().SetSort(bson.D{{Key: "generatedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var triggers []domain.AdaptationTrigger
	if err = cursor.All(ctx, &triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

// GetByIDs retrieves the triggers with the given IDs. Missing IDs are an
// error: a proposal must never reference triggers that do not exist.
func (r *mongoTriggerRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.AdaptationTrigger, error) {
	if len(ids) == 0 {
		return []domain.AdaptationTrigger{}, nil
	}

	filter := bson.M{"_id": bson.M{"$in": ids}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var triggers []domain.AdaptationTrigger
	if err = cursor.All(ctx, &triggers); err != nil {
		return nil, err
	}
	if len(triggers) != len(ids) {
		return nil, errors.New("one or more triggers not found")
	}
	return triggers, nil
}

// EnsureTriggerIndexes creates necessary indexes for the triggers collection.
func EnsureTriggerIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "generatedAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "athleteId", Value: 1}},
		},
	}
	_, err := db.Collection(triggerCollectionName).Indexes().CreateMany(ctx, indexes)
	return err
}

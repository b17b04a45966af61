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

const (
	feedbackCollectionName = "feedback"
	activityCollectionName = "activities"
)

// mongoFeedbackRepository implements the repository.FeedbackRepository
// interface using MongoDB. Feedback and activities live in separate
// collections but share one repository since the trigger engine always
// reads them together.
type mongoFeedbackRepository struct {
	feedback   *mongo.Collection
	activities *mongo.Collection
}

// NewMongoFeedbackRepository creates a new instance of mongoFeedbackRepository.
func NewMongoFeedbackRepository(db *mongo.Database) repository.FeedbackRepository {
	return &mongoFeedbackRepository{
		feedback:   db.Collection(feedbackCollectionName),
		activities: db.Collection(activityCollectionName),
	}
}

// CreateFeedback inserts a new athlete feedback record.
func (r *mongoFeedbackRepository) CreateFeedback(ctx context.Context, record *domain.FeedbackRecord) (primitive.ObjectID, error) {
	if record.AthleteID.IsZero() || record.PlanID.IsZero() || record.SessionID == "" {
		return primitive.NilObjectID, errors.New("feedback athlete id, plan id and session id are required")
	}
	if !record.Status.Valid() {
		return primitive.NilObjectID, errors.New("feedback completion status is invalid")
	}

	record.ID = primitive.NewObjectID()
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	result, err := r.feedback.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// CreateActivity inserts a new completed-activity record.
func (r *mongoFeedbackRepository) CreateActivity(ctx context.Context, record *domain.ActivityRecord) (primitive.ObjectID, error) {
	if record.AthleteID.IsZero() || record.PlanID.IsZero() {
		return primitive.NilObjectID, errors.New("activity athlete id and plan id are required")
	}

	record.ID = primitive.NewObjectID()
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	result, err := r.activities.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetFeedbackSince retrieves feedback for a plan recorded at or after
// `since`, oldest first.
func (r *mongoFeedbackRepository) GetFeedbackSince(ctx context.Context, planID primitive.ObjectID, since time.Time) ([]domain.FeedbackRecord, error) {
	filter := bson.M{
		"planId":     planID,
		"recordedAt": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})

	cursor, err := r.feedback.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.FeedbackRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetActivitiesSince retrieves activities for a plan recorded at or after
// `since`, oldest first.
func (r *mongoFeedbackRepository) GetActivitiesSince(ctx context.Context, planID primitive.ObjectID, since time.Time) ([]domain.ActivityRecord, error) {
	filter := bson.M{
		"planId":     planID,
		"recordedAt": bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})

	cursor, err := r.activities.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.ActivityRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// AcknowledgeSoreness marks a soreness report as seen by the coach so it
// stops generating new triggers.
func (r *mongoFeedbackRepository) AcknowledgeSoreness(ctx context.Context, feedbackID primitive.ObjectID) error {
	filter := bson.M{"_id": feedbackID, "sorenessFlag": true}
	update := bson.M{"$set": bson.M{"sorenessAck": true}}

	result, err := r.feedback.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureFeedbackIndexes creates necessary indexes for the feedback and
// activities collections.
func EnsureFeedbackIndexes(ctx context.Context, db *mongo.Database) error {
	feedbackIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "recordedAt", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "athleteId", Value: 1}},
		},
	}
	if _, err := db.Collection(feedbackCollectionName).Indexes().CreateMany(ctx, feedbackIndexes); err != nil {
		return err
	}

	activityIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "recordedAt", Value: 1}},
		},
	}
	_, err := db.Collection(activityCollectionName).Indexes().CreateMany(ctx, activityIndexes)
	return err
}

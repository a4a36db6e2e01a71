package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assessment-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type AttemptRepository struct {
	Col *mongo.Collection
}

func NewAttemptRepository(db *mongo.Database) *AttemptRepository {
	return &AttemptRepository{Col: db.Collection("attempts")}
}

// InitializeIndexes creates the partial unique index that allows only one
// in_progress attempt per (user, question set).
func (r *AttemptRepository) InitializeIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "question_set_id", Value: 1},
			},
			Options: options.Index().
				SetName("one_active_attempt").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.AttemptInProgress}),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "expires_at", Value: 1},
			},
		},
	}
	if _, err := r.Col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create attempt indexes: %w", err)
	}
	return nil
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	_, err := r.Col.InsertOne(ctx, attempt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrActiveAttemptExists
		}
		return err
	}
	return nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&attempt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if attempt.Answers == nil {
		attempt.Answers = map[string]models.AnswerRecord{}
	}
	return &attempt, nil
}

func (r *AttemptRepository) FindActive(ctx context.Context, userID, questionSetID string) (*models.Attempt, error) {
	filter := bson.M{
		"user_id":         userID,
		"question_set_id": questionSetID,
		"status":          models.AttemptInProgress,
	}
	var attempt models.Attempt
	if err := r.Col.FindOne(ctx, filter).Decode(&attempt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if attempt.Answers == nil {
		attempt.Answers = map[string]models.AnswerRecord{}
	}
	return &attempt, nil
}

// Update applies patch only if the stored version equals expectedVersion.
func (r *AttemptRepository) Update(ctx context.Context, id string, expectedVersion int64, patch models.AttemptPatch) error {
	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.EndTime != nil {
		set["end_time"] = *patch.EndTime
	}
	if patch.EndReason != nil {
		set["end_reason"] = *patch.EndReason
	}
	if patch.Score != nil {
		set["score"] = *patch.Score
	}
	if patch.CorrectCount != nil {
		set["correct_count"] = *patch.CorrectCount
	}
	if patch.PointsEarned != nil {
		set["points_earned"] = *patch.PointsEarned
	}
	if patch.Passed != nil {
		set["passed"] = *patch.Passed
	}
	if patch.Answer != nil {
		set["answers."+patch.Answer.QuestionID] = *patch.Answer
	}

	update := bson.M{"$inc": bson.M{"version": 1}}
	if len(set) > 0 {
		update["$set"] = set
	}

	res, err := r.Col.UpdateOne(ctx, bson.M{"_id": id, "version": expectedVersion}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.Col.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *AttemptRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Attempt, error) {
	filter := bson.M{
		"status":     models.AttemptInProgress,
		"expires_at": bson.M{"$lte": now},
	}
	cur, err := r.Col.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var attempts []models.Attempt
	for cur.Next(ctx) {
		var a models.Attempt
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, cur.Err()
}

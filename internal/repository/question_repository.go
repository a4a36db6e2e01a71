package repository

import (
	"context"
	"errors"
	"fmt"

	"assessment-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type QuestionRepository struct {
	Col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	return &QuestionRepository{Col: db.Collection("questions")}
}

func (r *QuestionRepository) InitializeIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "difficulty", Value: 1},
				{Key: "topic_id", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "tag_ids", Value: 1},
			},
		},
	}
	if _, err := r.Col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create question indexes: %w", err)
	}
	return nil
}

func filterDocument(filter models.QuestionFilter) bson.M {
	doc := bson.M{"active": true}
	if filter.Difficulty != "" {
		doc["difficulty"] = filter.Difficulty
	}
	if len(filter.TopicIDs) > 0 {
		doc["topic_id"] = bson.M{"$in": filter.TopicIDs}
	}
	if len(filter.TagIDs) > 0 {
		doc["tag_ids"] = bson.M{"$in": filter.TagIDs}
	}
	return doc
}

func (r *QuestionRepository) FindActive(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	return r.find(ctx, filterDocument(filter))
}

func (r *QuestionRepository) CountActiveByDifficulty(ctx context.Context, filter models.QuestionFilter) (map[models.Difficulty]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filterDocument(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$difficulty"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	counts := make(map[models.Difficulty]int, len(models.Difficulties))
	for _, d := range models.Difficulties {
		counts[d] = 0
	}
	for cur.Next(ctx) {
		var row struct {
			Difficulty models.Difficulty `bson:"_id"`
			Count      int               `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Difficulty] = row.Count
	}
	return counts, cur.Err()
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var question models.Question
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&question)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *QuestionRepository) Create(ctx context.Context, question *models.Question) error {
	_, err := r.Col.InsertOne(ctx, question)
	return err
}

// IncrementStats applies all deltas as server-side $inc operations.
func (r *QuestionRepository) IncrementStats(ctx context.Context, deltas []models.StatDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(deltas))
	for _, d := range deltas {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": d.QuestionID}).
			SetUpdate(bson.M{"$inc": bson.M{
				"stats.times_used":    d.TimesUsed,
				"stats.times_correct": d.TimesCorrect,
			}}))
	}
	_, err := r.Col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to increment question stats: %w", err)
	}
	return nil
}

func (r *QuestionRepository) find(ctx context.Context, filter bson.M) ([]models.Question, error) {
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var questions []models.Question
	for cur.Next(ctx) {
		var q models.Question
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, cur.Err()
}

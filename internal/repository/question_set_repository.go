package repository

import (
	"context"
	"errors"

	"assessment-service/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type QuestionSetRepository struct {
	Col *mongo.Collection
}

func NewQuestionSetRepository(db *mongo.Database) *QuestionSetRepository {
	return &QuestionSetRepository{Col: db.Collection("question_sets")}
}

func (r *QuestionSetRepository) FindByID(ctx context.Context, id string) (*models.QuestionSet, error) {
	var set models.QuestionSet
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &set, nil
}

func (r *QuestionSetRepository) Create(ctx context.Context, set *models.QuestionSet) error {
	_, err := r.Col.InsertOne(ctx, set)
	return err
}

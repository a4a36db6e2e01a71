package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// NewMongoStores builds the mongo-backed stores and makes sure their indexes exist.
func NewMongoStores(ctx context.Context, client *mongo.Client, database string) (*Stores, error) {
	db := client.Database(database)

	questions := NewQuestionRepository(db)
	if err := questions.InitializeIndexes(ctx); err != nil {
		return nil, err
	}
	attempts := NewAttemptRepository(db)
	if err := attempts.InitializeIndexes(ctx); err != nil {
		return nil, err
	}

	return &Stores{
		Questions:    questions,
		QuestionSets: NewQuestionSetRepository(db),
		Attempts:     attempts,
		Close:        client.Disconnect,
	}, nil
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
	"assessment-service/internal/repository/memory"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// unreachableRedis points at a closed port so every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCacheFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewQuestionSetStore()
	c := NewQuestionSetCache(store, unreachableRedis(t), time.Minute, zap.NewNop())

	set := &models.QuestionSet{
		ID:    "set-1",
		Kind:  models.SetKindPractice,
		Items: []models.SetItem{{QuestionID: "q1", Difficulty: models.DifficultyEasy, Points: 1}},
	}
	if err := c.Create(ctx, set); err != nil {
		t.Fatalf("Expected create to succeed without redis, got %v", err)
	}

	got, err := c.FindByID(ctx, "set-1")
	if err != nil {
		t.Fatalf("Expected read-through to the store, got %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].QuestionID != "q1" {
		t.Errorf("Unexpected set %+v", got)
	}

	if _, err := c.FindByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "assessment:questionset:"

// QuestionSetCache is a read-through redis cache in front of a question set
// store. Sets are immutable once assembled, so entries are never
// invalidated, only expired. Redis failures fall back to the store.
type QuestionSetCache struct {
	next   repository.QuestionSetStore
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewQuestionSetCache(next repository.QuestionSetStore, client *redis.Client, ttl time.Duration, log *zap.Logger) *QuestionSetCache {
	return &QuestionSetCache{next: next, client: client, ttl: ttl, log: log}
}

func (c *QuestionSetCache) Create(ctx context.Context, set *models.QuestionSet) error {
	if err := c.next.Create(ctx, set); err != nil {
		return err
	}
	c.store(ctx, set)
	return nil
}

func (c *QuestionSetCache) FindByID(ctx context.Context, id string) (*models.QuestionSet, error) {
	raw, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	switch {
	case err == nil:
		var set models.QuestionSet
		if uerr := json.Unmarshal(raw, &set); uerr == nil {
			return &set, nil
		}
		c.log.Warn("discarding unreadable cached question set", zap.String("id", id))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("question set cache read failed", zap.String("id", id), zap.Error(err))
	}

	set, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, set)
	return set, nil
}

func (c *QuestionSetCache) store(ctx context.Context, set *models.QuestionSet) {
	val, err := json.Marshal(set)
	if err != nil {
		c.log.Warn("failed to encode question set for cache", zap.String("id", set.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, keyPrefix+set.ID, val, c.ttl).Err(); err != nil {
		c.log.Warn("question set cache write failed", zap.String("id", set.ID), zap.Error(fmt.Errorf("set: %w", err)))
	}
}

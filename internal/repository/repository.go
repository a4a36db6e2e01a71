package repository

import (
	"context"
	"errors"
	"time"

	"assessment-service/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrActiveAttemptExists is returned by AttemptStore.Create when the
	// (user, question set) pair already has an in_progress attempt.
	ErrActiveAttemptExists = errors.New("active attempt already exists")
	// ErrVersionConflict is returned by AttemptStore.Update when the stored
	// version no longer equals the expected one.
	ErrVersionConflict = errors.New("version conflict")
)

type QuestionStore interface {
	FindActive(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	CountActiveByDifficulty(ctx context.Context, filter models.QuestionFilter) (map[models.Difficulty]int, error)
	FindByID(ctx context.Context, id string) (*models.Question, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	IncrementStats(ctx context.Context, deltas []models.StatDelta) error
}

type QuestionSetStore interface {
	Create(ctx context.Context, set *models.QuestionSet) error
	FindByID(ctx context.Context, id string) (*models.QuestionSet, error)
}

type AttemptStore interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	FindByID(ctx context.Context, id string) (*models.Attempt, error)
	// FindActive returns the in_progress attempt of (user, question set), or
	// ErrNotFound when there is none.
	FindActive(ctx context.Context, userID, questionSetID string) (*models.Attempt, error)
	Update(ctx context.Context, id string, expectedVersion int64, patch models.AttemptPatch) error
	FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Attempt, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Questions    QuestionStore
	QuestionSets QuestionSetStore
	Attempts     AttemptStore
	Close        func(ctx context.Context) error
}

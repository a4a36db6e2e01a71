package selection

import (
	"context"
	"fmt"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"

	"golang.org/x/sync/errgroup"
)

// PoolManager reads the active question pool for the selector.
type PoolManager struct {
	questions repository.QuestionStore
}

// NewPoolManager creates a new pool manager
func NewPoolManager(questions repository.QuestionStore) *PoolManager {
	return &PoolManager{questions: questions}
}

// TierPools fetches the pool of every tier with a positive target
// concurrently. Tiers with a zero target are not queried.
func (pm *PoolManager) TierPools(
	ctx context.Context,
	filter models.QuestionFilter,
	targets map[models.Difficulty]int,
) (map[models.Difficulty][]models.Question, error) {
	pools := make([][]models.Question, len(models.Difficulties))

	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range models.Difficulties {
		if targets[tier] <= 0 {
			continue
		}
		i, tier := i, tier
		g.Go(func() error {
			f := filter
			f.Difficulty = tier
			questions, err := pm.questions.FindActive(gctx, f)
			if err != nil {
				return fmt.Errorf("failed to get %s questions: %w", tier, err)
			}
			pools[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[models.Difficulty][]models.Question, len(models.Difficulties))
	for i, tier := range models.Difficulties {
		if pools[i] != nil {
			result[tier] = pools[i]
		}
	}
	return result, nil
}

// Pool fetches every active question matching filter.
func (pm *PoolManager) Pool(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	questions, err := pm.questions.FindActive(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// Summary counts the active pool per tier so a caller can relax constraints
// before assembling.
func (pm *PoolManager) Summary(ctx context.Context, filter models.QuestionFilter) (*PoolSummary, error) {
	counts, err := pm.questions.CountActiveByDifficulty(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}
	summary := &PoolSummary{
		Filter:       filter,
		ByDifficulty: make(map[models.Difficulty]int, len(models.Difficulties)),
	}
	for _, tier := range models.Difficulties {
		summary.ByDifficulty[tier] = counts[tier]
		summary.Total += counts[tier]
	}
	return summary, nil
}

// Package stats folds completed attempts into the per-question usage and
// correctness counters the selector and recommendation features read.
package stats

import (
	"context"
	"fmt"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"

	"go.uber.org/zap"
)

type Recorder interface {
	Record(ctx context.Context, attempt *models.Attempt) error
}

// Aggregator turns an attempt's answer records into atomic counter
// increments. It does not deduplicate: the caller invokes it once per
// completed attempt.
type Aggregator struct {
	questions repository.QuestionStore
	log       *zap.Logger
}

func NewAggregator(questions repository.QuestionStore, log *zap.Logger) *Aggregator {
	return &Aggregator{questions: questions, log: log}
}

// Record applies the deltas of a completed attempt. Attempts in any other
// state are rejected.
func (a *Aggregator) Record(ctx context.Context, attempt *models.Attempt) error {
	if attempt.Status != models.AttemptCompleted {
		return fmt.Errorf("stats: attempt %s is %s, not completed", attempt.ID, attempt.Status)
	}
	deltas := Deltas(attempt)
	if len(deltas) == 0 {
		return nil
	}
	if err := a.questions.IncrementStats(ctx, deltas); err != nil {
		return fmt.Errorf("stats: increment for attempt %s: %w", attempt.ID, err)
	}
	a.log.Debug("question stats updated",
		zap.String("attempt_id", attempt.ID),
		zap.Int("questions", len(deltas)))
	return nil
}

// Deltas lists one increment per answered question of the snapshot, in
// snapshot order. Unanswered questions are not counted as used.
func Deltas(attempt *models.Attempt) []models.StatDelta {
	deltas := make([]models.StatDelta, 0, len(attempt.Answers))
	for _, item := range attempt.Items {
		ans, ok := attempt.Answers[item.QuestionID]
		if !ok {
			continue
		}
		d := models.StatDelta{QuestionID: item.QuestionID, TimesUsed: 1}
		if ans.IsCorrect {
			d.TimesCorrect = 1
		}
		deltas = append(deltas, d)
	}
	return deltas
}

package service

import (
	"context"
	"errors"

	"assessment-service/internal/apperror"
	"assessment-service/internal/event"
	"assessment-service/internal/metrics"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"
	"assessment-service/internal/selection"

	"go.uber.org/zap"
)

var ErrExamNotFound = apperror.New(apperror.KindNotFound, "question_set_not_found", "question set not found")

// ExamService assembles question sets with the selector and persists them.
type ExamService struct {
	selector *selection.Selector
	sets     repository.QuestionSetStore
	events   event.Publisher
	log      *zap.Logger
}

func NewExamService(
	selector *selection.Selector,
	sets repository.QuestionSetStore,
	events event.Publisher,
	log *zap.Logger,
) *ExamService {
	return &ExamService{selector: selector, sets: sets, events: events, log: log}
}

func (s *ExamService) Assemble(ctx context.Context, req selection.Request) (*models.QuestionSet, error) {
	set, err := s.selector.Assemble(ctx, req)
	if err != nil {
		metrics.AssembleFailures.WithLabelValues(apperror.CodeOf(err)).Inc()
		s.log.Info("assemble rejected", zap.String("code", apperror.CodeOf(err)), zap.Error(err))
		return nil, err
	}

	if err := s.sets.Create(ctx, set); err != nil {
		return nil, apperror.Internal("assemble", err)
	}

	metrics.QuestionSetsAssembled.WithLabelValues(string(set.Kind)).Inc()
	s.log.Info("question set assembled",
		zap.String("question_set_id", set.ID),
		zap.Int("questions", len(set.Items)),
		zap.Int("total_points", set.TotalPoints))

	tiers := make(map[string]int, len(set.Generation.TierCounts))
	for tier, n := range set.Generation.TierCounts {
		tiers[string(tier)] = n
	}
	payload := event.QuestionSetPayload{
		QuestionSetID: set.ID,
		Kind:          string(set.Kind),
		QuestionCount: len(set.Items),
		TotalPoints:   set.TotalPoints,
		TierCounts:    tiers,
		CreatedBy:     set.CreatedBy,
	}
	if err := s.events.Publish(ctx, event.New(event.QuestionSetAssembled, payload)); err != nil {
		s.log.Warn("failed to publish event", zap.String("event", event.QuestionSetAssembled), zap.Error(err))
	}
	return set, nil
}

func (s *ExamService) GetExam(ctx context.Context, id string) (*models.QuestionSet, error) {
	set, err := s.sets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound.With("get_exam", id)
		}
		return nil, apperror.Internal("get_exam", err)
	}
	return set, nil
}

func (s *ExamService) Pool(ctx context.Context, filter models.QuestionFilter) (*selection.PoolSummary, error) {
	return s.selector.Inspect(ctx, filter)
}

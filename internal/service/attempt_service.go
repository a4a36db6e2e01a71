package service

import (
	"context"
	"errors"

	"assessment-service/internal/apperror"
	"assessment-service/internal/attempt"
	"assessment-service/internal/repository"
)

// AttemptService scopes the attempt engine to the calling user. An attempt
// owned by someone else is reported as not found.
type AttemptService struct {
	engine   attempt.Engine
	attempts repository.AttemptStore
}

func NewAttemptService(engine attempt.Engine, attempts repository.AttemptStore) *AttemptService {
	return &AttemptService{engine: engine, attempts: attempts}
}

func (s *AttemptService) Start(ctx context.Context, userID, questionSetID string) (*attempt.View, error) {
	return s.engine.Start(ctx, userID, questionSetID)
}

func (s *AttemptService) Get(ctx context.Context, userID, attemptID string) (*attempt.View, error) {
	if err := s.authorize(ctx, "get", userID, attemptID); err != nil {
		return nil, err
	}
	return s.engine.Get(ctx, attemptID)
}

func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, attemptID, questionID, label string) (*attempt.SubmitResult, error) {
	if err := s.authorize(ctx, "submit_answer", userID, attemptID); err != nil {
		return nil, err
	}
	return s.engine.SubmitAnswer(ctx, attemptID, questionID, label)
}

func (s *AttemptService) Complete(ctx context.Context, userID, attemptID string) (*attempt.View, error) {
	if err := s.authorize(ctx, "complete", userID, attemptID); err != nil {
		return nil, err
	}
	return s.engine.Complete(ctx, attemptID)
}

func (s *AttemptService) Abandon(ctx context.Context, userID, attemptID string) (*attempt.View, error) {
	if err := s.authorize(ctx, "abandon", userID, attemptID); err != nil {
		return nil, err
	}
	return s.engine.Abandon(ctx, attemptID, "")
}

func (s *AttemptService) authorize(ctx context.Context, op, userID, attemptID string) error {
	a, err := s.attempts.FindByID(ctx, attemptID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return attempt.ErrAttemptNotFound.With(op, attemptID)
	case err != nil:
		return apperror.Internal(op, err)
	case a.UserID != userID:
		return attempt.ErrAttemptNotFound.With(op, attemptID)
	}
	return nil
}

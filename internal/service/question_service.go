package service

import (
	"context"
	"errors"

	"assessment-service/internal/apperror"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrQuestionNotFound = apperror.New(apperror.KindNotFound, "question_not_found", "question not found")
	ErrInvalidQuestion  = apperror.New(apperror.KindValidation, "invalid_question", "invalid question")
)

type QuestionService struct {
	Repo repository.QuestionStore
}

func NewQuestionService(repo repository.QuestionStore) *QuestionService {
	return &QuestionService{Repo: repo}
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestionNotFound.With("get_question", id)
		}
		return nil, apperror.Internal("get_question", err)
	}
	return q, nil
}

// CreateQuestion authors a new active question. Usage counters always start at zero.
func (s *QuestionService) CreateQuestion(ctx context.Context, question *models.Question) error {
	const op = "create_question"
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	if question.Points == 0 {
		question.Points = 1
	}
	question.Active = true
	question.Stats = models.QuestionStats{}

	if err := question.Validate(); err != nil {
		return ErrInvalidQuestion.With(op, err.Error())
	}
	if err := s.Repo.Create(ctx, question); err != nil {
		return apperror.Internal(op, err)
	}
	return nil
}

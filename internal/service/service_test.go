package service

import (
	"context"
	"errors"
	"testing"

	"assessment-service/internal/apperror"
	"assessment-service/internal/attempt"
	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/repository/memory"
	"assessment-service/internal/repository/storetest"
	"assessment-service/internal/selection"
	"assessment-service/internal/stats"

	"go.uber.org/zap"
)

func TestCreateQuestion(t *testing.T) {
	svc := NewQuestionService(memory.NewQuestionStore())
	ctx := context.Background()

	q := storetest.Question("", models.DifficultyHard, "algebra")
	q.Active = false
	q.Stats = models.QuestionStats{TimesUsed: 9}
	if err := svc.CreateQuestion(ctx, &q); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	if q.ID == "" || !q.Active || q.Stats.TimesUsed != 0 {
		t.Errorf("Expected id, active flag and zeroed stats, got %+v", q)
	}

	bad := storetest.Question("", models.DifficultyHard, "algebra")
	bad.CorrectAnswer = "Z"
	err := svc.CreateQuestion(ctx, &bad)
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("Expected a validation error, got %v", err)
	}

	if _, err := svc.GetQuestion(ctx, "missing"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("Expected ErrQuestionNotFound, got %v", err)
	}
}

func TestExamAssembleAndAttemptFlow(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	for _, q := range []models.Question{
		storetest.Question("e1", models.DifficultyEasy, "algebra"),
		storetest.Question("e2", models.DifficultyEasy, "algebra"),
		storetest.Question("h1", models.DifficultyHard, "algebra"),
	} {
		q := q
		if err := stores.Questions.Create(ctx, &q); err != nil {
			t.Fatal(err)
		}
	}
	events := &event.Recorder{}
	exams := NewExamService(selection.NewSelector(stores.Questions, selection.DefaultConfig()), stores.QuestionSets, events, zap.NewNop())

	set, err := exams.Assemble(ctx, selection.Request{
		Title:         "warmup",
		Kind:          models.SetKindQuiz,
		QuestionCount: 3,
		Distribution:  &models.Distribution{Easy: 67, Hard: 33},
		PointsPolicy:  models.PointsByDifficulty,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if set.TotalPoints != 1+1+3 {
		t.Errorf("Expected 5 points, got %d", set.TotalPoints)
	}
	if got, err := exams.GetExam(ctx, set.ID); err != nil || got.ID != set.ID {
		t.Fatalf("Expected the set to be persisted, got %v", err)
	}
	if n := len(events.Events(event.QuestionSetAssembled)); n != 1 {
		t.Errorf("Expected one assembled event, got %d", n)
	}
	if _, err := exams.GetExam(ctx, "missing"); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("Expected ErrExamNotFound, got %v", err)
	}

	tracker := attempt.NewTracker(stores, stats.NewAggregator(stores.Questions, zap.NewNop()), events, zap.NewNop(), attempt.DefaultConfig())
	attempts := NewAttemptService(tracker, stores.Attempts)

	v, err := attempts.Start(ctx, "alice", set.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := attempts.Get(ctx, "mallory", v.ID); !errors.Is(err, attempt.ErrAttemptNotFound) {
		t.Errorf("Expected other users to get not found, got %v", err)
	}
	if _, err := attempts.SubmitAnswer(ctx, "mallory", v.ID, "e1", "A"); !errors.Is(err, attempt.ErrAttemptNotFound) {
		t.Errorf("Expected other users to get not found, got %v", err)
	}
	for _, q := range v.Questions {
		if _, err := attempts.SubmitAnswer(ctx, "alice", v.ID, q.ID, "A"); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
	}
	done, err := attempts.Complete(ctx, "alice", v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *done.Score != 100 || done.PointsEarned != 5 {
		t.Errorf("Expected a perfect score worth 5 points, got %d and %d", *done.Score, done.PointsEarned)
	}
	if _, err := attempts.Abandon(ctx, "alice", v.ID); !errors.Is(err, attempt.ErrAttemptNotActive) {
		t.Errorf("Expected ErrAttemptNotActive, got %v", err)
	}
}

func TestAssembleRejectionIsReported(t *testing.T) {
	stores := memory.NewStores()
	exams := NewExamService(selection.NewSelector(stores.Questions, selection.DefaultConfig()), stores.QuestionSets, &event.Recorder{}, zap.NewNop())
	_, err := exams.Assemble(context.Background(), selection.Request{
		QuestionCount: 1,
		Difficulty:    models.DifficultyEasy,
		Distribution:  &models.Distribution{Easy: 100},
	})
	if apperror.KindOf(err) != apperror.KindConfiguration {
		t.Errorf("Expected a configuration error, got %v", err)
	}
}

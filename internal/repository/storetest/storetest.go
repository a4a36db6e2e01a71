// Package storetest holds the behaviour every repository backend must share.
// Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

// Factory returns a fresh, empty backend.
type Factory func(t *testing.T) *repository.Stores

func Run(t *testing.T, newStores Factory) {
	t.Run("QuestionPoolFilters", func(t *testing.T) { testQuestionPool(t, newStores(t)) })
	t.Run("IncrementStats", func(t *testing.T) { testIncrementStats(t, newStores(t)) })
	t.Run("QuestionSetRoundTrip", func(t *testing.T) { testQuestionSet(t, newStores(t)) })
	t.Run("SingleActiveAttempt", func(t *testing.T) { testSingleActive(t, newStores(t)) })
	t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, newStores(t)) })
	t.Run("VersionedUpdate", func(t *testing.T) { testVersionedUpdate(t, newStores(t)) })
	t.Run("FindExpired", func(t *testing.T) { testFindExpired(t, newStores(t)) })
	t.Run("FindActive", func(t *testing.T) { testFindActive(t, newStores(t)) })
}

func Question(id string, d models.Difficulty, topic string, tags ...string) models.Question {
	return models.Question{
		ID:            id,
		Content:       "question " + id,
		Options:       []models.Option{{Label: "A", Text: "first"}, {Label: "B", Text: "second"}},
		CorrectAnswer: "A",
		Difficulty:    d,
		Points:        1,
		TopicID:       topic,
		TagIDs:        tags,
		Active:        true,
	}
}

func newAttempt(id, user, set string) *models.Attempt {
	return &models.Attempt{
		ID:             id,
		UserID:         user,
		QuestionSetID:  set,
		Kind:           models.SetKindQuiz,
		Items:          []models.SetItem{{QuestionID: "q1", Difficulty: models.DifficultyEasy, Points: 1}},
		Status:         models.AttemptInProgress,
		StartTime:      time.Now().UTC(),
		Answers:        map[string]models.AnswerRecord{},
		TotalQuestions: 1,
		PointsPossible: 1,
	}
}

func testQuestionPool(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	retired := Question("q4", models.DifficultyEasy, "algebra")
	retired.Active = false
	for _, q := range []models.Question{
		Question("q1", models.DifficultyEasy, "algebra", "linear"),
		Question("q2", models.DifficultyHard, "algebra", "quadratic"),
		Question("q3", models.DifficultyEasy, "geometry", "linear"),
		retired,
	} {
		q := q
		if err := s.Questions.Create(ctx, &q); err != nil {
			t.Fatalf("Create(%s): %v", q.ID, err)
		}
	}

	testCases := []struct {
		name   string
		filter models.QuestionFilter
		want   []string
	}{
		{"all active", models.QuestionFilter{}, []string{"q1", "q2", "q3"}},
		{"by topic", models.QuestionFilter{TopicIDs: []string{"algebra"}}, []string{"q1", "q2"}},
		{"by tag", models.QuestionFilter{TagIDs: []string{"linear"}}, []string{"q1", "q3"}},
		{"by difficulty", models.QuestionFilter{Difficulty: models.DifficultyEasy}, []string{"q1", "q3"}},
		{"combined", models.QuestionFilter{TopicIDs: []string{"algebra"}, Difficulty: models.DifficultyEasy}, []string{"q1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Questions.FindActive(ctx, tc.filter)
			if err != nil {
				t.Fatalf("FindActive: %v", err)
			}
			if ids := idsOf(got); fmt.Sprint(ids) != fmt.Sprint(tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, ids)
			}
		})
	}

	counts, err := s.Questions.CountActiveByDifficulty(ctx, models.QuestionFilter{})
	if err != nil {
		t.Fatalf("CountActiveByDifficulty: %v", err)
	}
	if counts[models.DifficultyEasy] != 2 || counts[models.DifficultyMedium] != 0 || counts[models.DifficultyHard] != 1 {
		t.Errorf("Unexpected counts %v", counts)
	}

	q, err := s.Questions.FindByID(ctx, "q1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(q.TagIDs) != 1 || q.TagIDs[0] != "linear" || len(q.Options) != 2 {
		t.Errorf("Question not round-tripped: %+v", q)
	}
	if _, err := s.Questions.FindByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	byIDs, err := s.Questions.FindByIDs(ctx, []string{"q2", "q3", "missing"})
	if err != nil {
		t.Fatalf("FindByIDs: %v", err)
	}
	if len(byIDs) != 2 {
		t.Errorf("Expected 2 questions, got %d", len(byIDs))
	}
}

func testIncrementStats(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	q := Question("q1", models.DifficultyMedium, "t")
	if err := s.Questions.Create(ctx, &q); err != nil {
		t.Fatal(err)
	}
	deltas := []models.StatDelta{{QuestionID: "q1", TimesUsed: 1, TimesCorrect: 1}}
	if err := s.Questions.IncrementStats(ctx, deltas); err != nil {
		t.Fatal(err)
	}
	deltas[0].TimesCorrect = 0
	if err := s.Questions.IncrementStats(ctx, deltas); err != nil {
		t.Fatal(err)
	}
	got, err := s.Questions.FindByID(ctx, "q1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Stats.TimesUsed != 2 || got.Stats.TimesCorrect != 1 {
		t.Errorf("Expected stats {2 1}, got %+v", got.Stats)
	}
}

func testQuestionSet(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	passing := 70
	set := &models.QuestionSet{
		ID:    "set-1",
		Title: "Algebra midterm",
		Kind:  models.SetKindQuiz,
		Items: []models.SetItem{
			{QuestionID: "q2", Difficulty: models.DifficultyHard, Points: 3},
			{QuestionID: "q1", Difficulty: models.DifficultyEasy, Points: 1},
		},
		TotalPoints:      4,
		TimeLimitSeconds: 600,
		PassingScore:     &passing,
		Generation: &models.GenerationParams{
			QuestionCount: 2,
			PointsPolicy:  models.PointsByDifficulty,
			Distribution:  &models.Distribution{Easy: 50, Hard: 50},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.QuestionSets.Create(ctx, set); err != nil {
		t.Fatal(err)
	}
	got, err := s.QuestionSets.FindByID(ctx, "set-1")
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got.QuestionIDs()) != "[q2 q1]" {
		t.Errorf("Expected item order preserved, got %v", got.QuestionIDs())
	}
	if got.PassingScore == nil || *got.PassingScore != 70 {
		t.Errorf("Expected passing score 70, got %v", got.PassingScore)
	}
	if got.Generation == nil || got.Generation.Distribution == nil || got.Generation.Distribution.Hard != 50 {
		t.Errorf("Expected generation params to round-trip, got %+v", got.Generation)
	}
	if _, err := s.QuestionSets.FindByID(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testSingleActive(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	if err := s.Attempts.Create(ctx, newAttempt("a1", "u1", "s1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Attempts.Create(ctx, newAttempt("a2", "u1", "s1")); !errors.Is(err, repository.ErrActiveAttemptExists) {
		t.Fatalf("Expected ErrActiveAttemptExists, got %v", err)
	}
	// Other users and other sets are independent.
	if err := s.Attempts.Create(ctx, newAttempt("a3", "u2", "s1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Attempts.Create(ctx, newAttempt("a4", "u1", "s2")); err != nil {
		t.Fatal(err)
	}

	status := models.AttemptAbandoned
	if err := s.Attempts.Update(ctx, "a1", 0, models.AttemptPatch{Status: &status}); err != nil {
		t.Fatal(err)
	}
	if err := s.Attempts.Create(ctx, newAttempt("a5", "u1", "s1")); err != nil {
		t.Errorf("Expected a new attempt once the old one is terminal, got %v", err)
	}
}

func testConcurrentCreate(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Attempts.Create(ctx, newAttempt(fmt.Sprintf("a%d", i), "u1", "s1"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, repository.ErrActiveAttemptExists):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Errorf("Expected exactly one attempt to be created, got %d", created)
	}
}

func testVersionedUpdate(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	if err := s.Attempts.Create(ctx, newAttempt("a1", "u1", "s1")); err != nil {
		t.Fatal(err)
	}
	first := models.AnswerRecord{QuestionID: "q1", SelectedLabel: "B", SubmittedAt: time.Now().UTC()}
	if err := s.Attempts.Update(ctx, "a1", 0, models.AttemptPatch{Answer: &first}); err != nil {
		t.Fatal(err)
	}
	second := models.AnswerRecord{QuestionID: "q1", SelectedLabel: "A", IsCorrect: true, SubmittedAt: time.Now().UTC()}
	if err := s.Attempts.Update(ctx, "a1", 0, models.AttemptPatch{Answer: &second}); !errors.Is(err, repository.ErrVersionConflict) {
		t.Fatalf("Expected ErrVersionConflict for a stale version, got %v", err)
	}
	if err := s.Attempts.Update(ctx, "a1", 1, models.AttemptPatch{Answer: &second}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Attempts.FindByID(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 2 {
		t.Errorf("Expected version 2, got %d", got.Version)
	}
	if len(got.Answers) != 1 || got.Answers["q1"].SelectedLabel != "A" || !got.Answers["q1"].IsCorrect {
		t.Errorf("Expected the answer to be overwritten, got %+v", got.Answers)
	}

	status := models.AttemptCompleted
	score, correct := 100, 1
	end := time.Now().UTC()
	if err := s.Attempts.Update(ctx, "a1", 2, models.AttemptPatch{Status: &status, Score: &score, CorrectCount: &correct, EndTime: &end}); err != nil {
		t.Fatal(err)
	}
	got, err = s.Attempts.FindByID(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.AttemptCompleted || got.Score == nil || *got.Score != 100 || got.EndTime == nil {
		t.Errorf("Expected completed attempt with score, got %+v", got)
	}

	if err := s.Attempts.Update(ctx, "missing", 0, models.AttemptPatch{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testFindExpired(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired := newAttempt("a1", "u1", "s1")
	expired.ExpiresAt = &past
	live := newAttempt("a2", "u2", "s1")
	live.ExpiresAt = &future
	untimed := newAttempt("a3", "u3", "s1")
	for _, a := range []*models.Attempt{expired, live, untimed} {
		if err := s.Attempts.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Attempts.FindExpired(ctx, now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("Expected only a1 to be expired, got %v", attemptIDs(got))
	}
}

func testFindActive(t *testing.T, s *repository.Stores) {
	ctx := context.Background()
	if _, err := s.Attempts.FindActive(ctx, "u1", "s1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before any attempt, got %v", err)
	}

	for _, a := range []*models.Attempt{newAttempt("a1", "u1", "s1"), newAttempt("a2", "u2", "s1"), newAttempt("a3", "u1", "s2")} {
		if err := s.Attempts.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	answer := models.AnswerRecord{QuestionID: "q1", SelectedLabel: "A", IsCorrect: true, SubmittedAt: time.Now().UTC()}
	if err := s.Attempts.Update(ctx, "a1", 0, models.AttemptPatch{Answer: &answer}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Attempts.FindActive(ctx, "u1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "a1" || got.Version != 1 || got.Answers["q1"].SelectedLabel != "A" {
		t.Errorf("Expected a1 with its answer at version 1, got %+v", got)
	}

	status := models.AttemptCompleted
	if err := s.Attempts.Update(ctx, "a1", 1, models.AttemptPatch{Status: &status}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Attempts.FindActive(ctx, "u1", "s1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected terminal attempts to be ignored, got %v", err)
	}
}

func idsOf(questions []models.Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	// Backends may return the pool in any order.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

func attemptIDs(attempts []models.Attempt) []string {
	ids := make([]string, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	return ids
}

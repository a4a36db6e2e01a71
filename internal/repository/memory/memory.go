// Package memory keeps every store in process maps. It backs local runs
// without infrastructure and the engine's tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]models.Question
}

func NewQuestionStore(questions ...models.Question) *QuestionStore {
	s := &QuestionStore{questions: make(map[string]models.Question)}
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return s
}

func (s *QuestionStore) FindActive(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Question
	for _, q := range s.questions {
		if filter.Matches(&q) {
			out = append(out, q)
		}
	}
	// Map iteration is random; keep results stable for callers.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QuestionStore) CountActiveByDifficulty(ctx context.Context, filter models.QuestionFilter) (map[models.Difficulty]int, error) {
	questions, err := s.FindActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	counts := make(map[models.Difficulty]int, len(models.Difficulties))
	for _, d := range models.Difficulties {
		counts[d] = 0
	}
	for _, q := range questions {
		counts[q.Difficulty]++
	}
	return counts, nil
}

func (s *QuestionStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (s *QuestionStore) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Question
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *QuestionStore) Create(ctx context.Context, question *models.Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = *question
	return nil
}

func (s *QuestionStore) IncrementStats(ctx context.Context, deltas []models.StatDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range deltas {
		q, ok := s.questions[d.QuestionID]
		if !ok {
			continue
		}
		q.Stats.TimesUsed += d.TimesUsed
		q.Stats.TimesCorrect += d.TimesCorrect
		s.questions[d.QuestionID] = q
	}
	return nil
}

type QuestionSetStore struct {
	mu   sync.RWMutex
	sets map[string]models.QuestionSet
}

func NewQuestionSetStore() *QuestionSetStore {
	return &QuestionSetStore{sets: make(map[string]models.QuestionSet)}
}

func (s *QuestionSetStore) Create(ctx context.Context, set *models.QuestionSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *set
	c.Items = append([]models.SetItem(nil), set.Items...)
	s.sets[set.ID] = c
	return nil
}

func (s *QuestionSetStore) FindByID(ctx context.Context, id string) (*models.QuestionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	set.Items = append([]models.SetItem(nil), set.Items...)
	return &set, nil
}

// AttemptStore enforces the single-active-attempt constraint under its mutex,
// the same guarantee the SQL and mongo stores get from a partial unique index.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]*models.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]*models.Attempt)}
}

func (s *AttemptStore) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt.Status == models.AttemptInProgress {
		for _, a := range s.attempts {
			if a.Status == models.AttemptInProgress &&
				a.UserID == attempt.UserID &&
				a.QuestionSetID == attempt.QuestionSetID {
				return repository.ErrActiveAttemptExists
			}
		}
	}
	s.attempts[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *AttemptStore) FindActive(ctx context.Context, userID, questionSetID string) (*models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.Status == models.AttemptInProgress && a.UserID == userID && a.QuestionSetID == questionSetID {
			return a.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *AttemptStore) Update(ctx context.Context, id string, expectedVersion int64, patch models.AttemptPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	patch.Apply(a)
	return nil
}

func (s *AttemptStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Attempt
	for _, a := range s.attempts {
		if a.Status == models.AttemptInProgress && a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
			out = append(out, *a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NewStores returns an empty in-memory backend.
func NewStores() *repository.Stores {
	return &repository.Stores{
		Questions:    NewQuestionStore(),
		QuestionSets: NewQuestionSetStore(),
		Attempts:     NewAttemptStore(),
		Close:        func(context.Context) error { return nil },
	}
}

package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assessment-service/internal/apperror"
	"assessment-service/internal/event"
	"assessment-service/internal/metrics"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"
	"assessment-service/internal/stats"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tracker runs the attempt state machine for practice and quiz attempts
// alike. Every transition is a single versioned write; a writer that loses
// the race re-reads the attempt and re-validates.
type Tracker struct {
	attempts  repository.AttemptStore
	sets      repository.QuestionSetStore
	questions repository.QuestionStore
	stats     stats.Recorder
	events    event.Publisher
	log       *zap.Logger
	cfg       Config
	now       func() time.Time
}

func NewTracker(
	stores *repository.Stores,
	recorder stats.Recorder,
	events event.Publisher,
	log *zap.Logger,
	cfg Config,
) *Tracker {
	if cfg.CASRetries < 1 {
		cfg.CASRetries = 1
	}
	return &Tracker{
		attempts:  stores.Attempts,
		sets:      stores.QuestionSets,
		questions: stores.Questions,
		stats:     recorder,
		events:    events,
		log:       log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Start(ctx context.Context, userID, questionSetID string) (*View, error) {
	const op = "start"

	set, err := t.sets.FindByID(ctx, questionSetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestionSetNotFound.With(op, questionSetID)
		}
		return nil, apperror.Internal(op, err)
	}
	questions, err := t.snapshotQuestions(ctx, set.Items)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}

	now := t.now().UTC()
	a := &models.Attempt{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuestionSetID:  set.ID,
		Kind:           set.Kind,
		Items:          append([]models.SetItem(nil), set.Items...),
		Status:         models.AttemptInProgress,
		StartTime:      now,
		Answers:        map[string]models.AnswerRecord{},
		TotalQuestions: len(set.Items),
		PointsPossible: set.SumPoints(),
	}
	if set.Kind == models.SetKindQuiz {
		a.PassingScore = set.PassingScore
		limit := time.Duration(set.TimeLimitSeconds) * time.Second
		if limit <= 0 {
			limit = t.cfg.DefaultTimeLimit
		}
		if limit > 0 {
			expires := now.Add(limit)
			a.ExpiresAt = &expires
		}
	}

	if err := t.attempts.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrActiveAttemptExists) {
			return nil, t.alreadyActive(ctx, op, userID, questionSetID)
		}
		return nil, apperror.Internal(op, err)
	}

	metrics.AttemptTransitions.WithLabelValues(string(models.AttemptInProgress), "").Inc()
	t.log.Info("attempt started",
		zap.String("attempt_id", a.ID),
		zap.String("user_id", userID),
		zap.String("question_set_id", set.ID),
		zap.String("kind", string(a.Kind)))
	t.publish(ctx, event.AttemptStarted, a, "")

	return buildView(a, questions), nil
}

func (t *Tracker) SubmitAnswer(ctx context.Context, attemptID, questionID, selectedLabel string) (*SubmitResult, error) {
	const op = "submit_answer"

	var question *models.Question
	for try := 0; try < t.cfg.CASRetries; try++ {
		a, err := t.load(ctx, op, attemptID)
		if err != nil {
			return nil, err
		}
		if a.Status != models.AttemptInProgress {
			return nil, ErrAttemptNotActive.With(op, string(a.Status))
		}
		if !a.HasQuestion(questionID) {
			return nil, ErrQuestionNotInAttempt.With(op, questionID)
		}
		if question == nil {
			question, err = t.questions.FindByID(ctx, questionID)
			if err != nil {
				return nil, apperror.Internal(op, fmt.Errorf("load question %s: %w", questionID, err))
			}
			if !question.HasOption(selectedLabel) {
				return nil, ErrUnknownOption.With(op, selectedLabel)
			}
		}

		record := models.AnswerRecord{
			QuestionID:    questionID,
			SelectedLabel: selectedLabel,
			IsCorrect:     selectedLabel == question.CorrectAnswer,
			SubmittedAt:   t.now().UTC(),
		}
		err = t.attempts.Update(ctx, attemptID, a.Version, models.AttemptPatch{Answer: &record})
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			continue
		}
		if err != nil {
			return nil, t.storeError(op, attemptID, err)
		}

		result := &SubmitResult{
			AttemptID:     attemptID,
			QuestionID:    questionID,
			SelectedLabel: selectedLabel,
			Accepted:      true,
		}
		if a.Kind == models.SetKindPractice {
			correct := record.IsCorrect
			result.IsCorrect = &correct
			result.CorrectAnswer = question.CorrectAnswer
			result.Explanation = question.Explanation
		}
		return result, nil
	}
	return nil, ErrContention.With(op, attemptID)
}

// Complete scores the attempt exactly once. Calling it again on a completed
// attempt returns the stored result without side effects.
func (t *Tracker) Complete(ctx context.Context, attemptID string) (*View, error) {
	const op = "complete"

	for try := 0; try < t.cfg.CASRetries; try++ {
		a, err := t.load(ctx, op, attemptID)
		if err != nil {
			return nil, err
		}
		switch a.Status {
		case models.AttemptCompleted:
			return t.view(ctx, op, a)
		case models.AttemptAbandoned:
			return nil, ErrAttemptNotActive.With(op, string(a.Status))
		}

		end := t.now().UTC()
		// Never score past the limit, even if the deadline check ran just before it.
		if a.Expired(end) {
			return nil, ErrAttemptExpired.With(op, a.ExpiresAt.Format(time.RFC3339))
		}
		out := Evaluate(a)
		status := models.AttemptCompleted
		reason := models.EndReasonCompleted
		patch := models.AttemptPatch{
			Status:       &status,
			EndTime:      &end,
			EndReason:    &reason,
			Score:        &out.Score,
			CorrectCount: &out.CorrectCount,
			PointsEarned: &out.PointsEarned,
			Passed:       out.Passed,
		}
		err = t.attempts.Update(ctx, attemptID, a.Version, patch)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			continue
		}
		if err != nil {
			return nil, t.storeError(op, attemptID, err)
		}
		patch.Apply(a)

		// The transition is committed; what follows must not be undone by the
		// caller going away.
		bg := context.WithoutCancel(ctx)
		if err := t.stats.Record(bg, a); err != nil {
			metrics.StatsFailures.Inc()
			t.log.Error("failed to record question stats",
				zap.String("attempt_id", a.ID), zap.Error(err))
		}
		metrics.AttemptTransitions.WithLabelValues(string(status), reason).Inc()
		metrics.AttemptScores.Observe(float64(out.Score))
		t.log.Info("attempt completed",
			zap.String("attempt_id", a.ID),
			zap.Int("score", out.Score),
			zap.Int("correct", out.CorrectCount),
			zap.Int("total", out.TotalQuestions))
		t.publish(bg, event.AttemptCompleted, a, reason)

		return t.view(bg, op, a)
	}
	return nil, ErrContention.With(op, attemptID)
}

// Abandon ends an in-progress attempt without a score. reason is recorded
// as the end reason, manual when empty.
func (t *Tracker) Abandon(ctx context.Context, attemptID, reason string) (*View, error) {
	const op = "abandon"
	if reason == "" {
		reason = models.EndReasonManual
	}

	for try := 0; try < t.cfg.CASRetries; try++ {
		a, err := t.load(ctx, op, attemptID)
		if err != nil {
			return nil, err
		}
		if a.Status != models.AttemptInProgress {
			return nil, ErrAttemptNotActive.With(op, string(a.Status))
		}

		end := t.now().UTC()
		status := models.AttemptAbandoned
		patch := models.AttemptPatch{Status: &status, EndTime: &end, EndReason: &reason}
		err = t.attempts.Update(ctx, attemptID, a.Version, patch)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			continue
		}
		if err != nil {
			return nil, t.storeError(op, attemptID, err)
		}
		patch.Apply(a)

		bg := context.WithoutCancel(ctx)
		metrics.AttemptTransitions.WithLabelValues(string(status), reason).Inc()
		t.log.Info("attempt abandoned",
			zap.String("attempt_id", a.ID),
			zap.String("reason", reason))
		t.publish(bg, event.AttemptAbandoned, a, reason)

		return t.view(bg, op, a)
	}
	return nil, ErrContention.With(op, attemptID)
}

func (t *Tracker) Get(ctx context.Context, attemptID string) (*View, error) {
	const op = "get"
	a, err := t.load(ctx, op, attemptID)
	if err != nil {
		return nil, err
	}
	return t.view(ctx, op, a)
}

// alreadyActive names the attempt holding the (user, set) slot so the caller
// can resume it. The set id stands in when that attempt ended meanwhile.
func (t *Tracker) alreadyActive(ctx context.Context, op, userID, questionSetID string) error {
	existing, err := t.attempts.FindActive(ctx, userID, questionSetID)
	if err != nil {
		return ErrAttemptAlreadyActive.With(op, questionSetID)
	}
	return ErrAttemptAlreadyActive.With(op, existing.ID)
}

func (t *Tracker) load(ctx context.Context, op, attemptID string) (*models.Attempt, error) {
	a, err := t.attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, t.storeError(op, attemptID, err)
	}
	return a, nil
}

func (t *Tracker) storeError(op, attemptID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrAttemptNotFound.With(op, attemptID)
	}
	return apperror.Internal(op, err)
}

func (t *Tracker) view(ctx context.Context, op string, a *models.Attempt) (*View, error) {
	questions, err := t.snapshotQuestions(ctx, a.Items)
	if err != nil {
		return nil, apperror.Internal(op, err)
	}
	return buildView(a, questions), nil
}

// snapshotQuestions loads the questions of items keyed by id.
func (t *Tracker) snapshotQuestions(ctx context.Context, items []models.SetItem) (map[string]*models.Question, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.QuestionID
	}
	found, err := t.questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[string]*models.Question, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		if byID[id] == nil {
			return nil, fmt.Errorf("question %s referenced by the set is missing", id)
		}
	}
	return byID, nil
}

func (t *Tracker) publish(ctx context.Context, eventType string, a *models.Attempt, reason string) {
	payload := event.AttemptPayload{
		AttemptID:     a.ID,
		UserID:        a.UserID,
		QuestionSetID: a.QuestionSetID,
		Kind:          string(a.Kind),
		Reason:        reason,
		Score:         a.Score,
		CorrectCount:  a.CorrectCount,
		Total:         a.TotalQuestions,
		Passed:        a.Passed,
	}
	if err := t.events.Publish(ctx, event.New(eventType, payload)); err != nil {
		t.log.Warn("failed to publish event",
			zap.String("event", eventType),
			zap.String("attempt_id", a.ID),
			zap.Error(err))
	}
}

func buildView(a *models.Attempt, questions map[string]*models.Question) *View {
	reveal := a.Status.Terminal()
	v := &View{
		ID:             a.ID,
		UserID:         a.UserID,
		QuestionSetID:  a.QuestionSetID,
		Kind:           a.Kind,
		Status:         a.Status,
		StartTime:      a.StartTime,
		EndTime:        a.EndTime,
		ExpiresAt:      a.ExpiresAt,
		EndReason:      a.EndReason,
		Score:          a.Score,
		CorrectCount:   a.CorrectCount,
		TotalQuestions: a.TotalQuestions,
		PointsEarned:   a.PointsEarned,
		PointsPossible: a.PointsPossible,
		PassingScore:   a.PassingScore,
		Passed:         a.Passed,
		Questions:      make([]QuestionView, 0, len(a.Items)),
		Answers:        make([]AnswerView, 0, len(a.Answers)),
	}
	for _, item := range a.Items {
		q := questions[item.QuestionID]
		qv := QuestionView{PublicQuestion: q.Public(item.Points)}
		if reveal {
			qv.CorrectAnswer = q.CorrectAnswer
			qv.Explanation = q.Explanation
		}
		v.Questions = append(v.Questions, qv)

		ans, ok := a.Answers[item.QuestionID]
		if !ok {
			continue
		}
		av := AnswerView{QuestionID: ans.QuestionID, SelectedLabel: ans.SelectedLabel, SubmittedAt: ans.SubmittedAt}
		if reveal || a.Kind == models.SetKindPractice {
			correct := ans.IsCorrect
			av.IsCorrect = &correct
		}
		v.Answers = append(v.Answers, av)
	}
	return v
}

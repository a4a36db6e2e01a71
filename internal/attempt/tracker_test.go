package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"assessment-service/internal/apperror"
	"assessment-service/internal/event"
	"assessment-service/internal/models"
	"assessment-service/internal/repository"
	"assessment-service/internal/repository/memory"
	"assessment-service/internal/stats"

	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingRecorder struct {
	inner stats.Recorder
	calls int32
}

func (r *countingRecorder) Record(ctx context.Context, a *models.Attempt) error {
	atomic.AddInt32(&r.calls, 1)
	return r.inner.Record(ctx, a)
}

type fixture struct {
	stores  *repository.Stores
	tracker *Tracker
	stats   *countingRecorder
	events  *event.Recorder
	clock   *fakeClock
}

type setOptions struct {
	kind         models.SetKind
	questions    int
	timeLimit    int
	passingScore *int
}

// newFixture seeds questions q1..qN whose correct answer is "A" and a set
// "set-1" containing all of them.
func newFixture(t *testing.T, opts setOptions) *fixture {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()

	set := &models.QuestionSet{
		ID:               "set-1",
		Kind:             opts.kind,
		TimeLimitSeconds: opts.timeLimit,
		PassingScore:     opts.passingScore,
		CreatedAt:        time.Now().UTC(),
	}
	for i := 1; i <= opts.questions; i++ {
		q := models.Question{
			ID:            fmt.Sprintf("q%d", i),
			Content:       fmt.Sprintf("question %d", i),
			Options:       []models.Option{{Label: "A", Text: "right"}, {Label: "B", Text: "wrong"}},
			CorrectAnswer: "A",
			Explanation:   "because",
			Difficulty:    models.DifficultyEasy,
			Points:        1,
			TopicID:       "t",
			Active:        true,
		}
		if err := stores.Questions.Create(ctx, &q); err != nil {
			t.Fatal(err)
		}
		set.Items = append(set.Items, models.SetItem{QuestionID: q.ID, Difficulty: q.Difficulty, Points: i})
	}
	set.TotalPoints = set.SumPoints()
	if err := stores.QuestionSets.Create(ctx, set); err != nil {
		t.Fatal(err)
	}

	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	counter := &countingRecorder{inner: stats.NewAggregator(stores.Questions, zap.NewNop())}
	events := &event.Recorder{}
	tracker := NewTracker(stores, counter, events, zap.NewNop(), Config{CASRetries: 1000}).WithClock(clock.Now)

	return &fixture{stores: stores, tracker: tracker, stats: counter, events: events, clock: clock}
}

func (f *fixture) start(t *testing.T, user string) *View {
	t.Helper()
	v, err := f.tracker.Start(context.Background(), user, "set-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return v
}

func (f *fixture) submit(t *testing.T, attemptID, questionID, label string) *SubmitResult {
	t.Helper()
	res, err := f.tracker.SubmitAnswer(context.Background(), attemptID, questionID, label)
	if err != nil {
		t.Fatalf("SubmitAnswer(%s, %s): %v", questionID, label, err)
	}
	return res
}

func TestCompleteScoring(t *testing.T) {
	testCases := []struct {
		name        string
		questions   int
		answers     map[string]string
		wantCorrect int
		wantScore   int
	}{
		{"three of five", 5, map[string]string{"q1": "A", "q2": "A", "q3": "A", "q4": "B"}, 3, 60},
		{"unanswered count as wrong", 4, map[string]string{"q1": "A", "q2": "B"}, 1, 25},
		{"nothing answered", 3, nil, 0, 0},
		{"all correct", 2, map[string]string{"q1": "A", "q2": "A"}, 2, 100},
		{"rounds half up", 8, map[string]string{"q1": "A"}, 1, 13},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: tc.questions})
			v := f.start(t, "u1")
			for q, label := range tc.answers {
				f.submit(t, v.ID, q, label)
			}

			done, err := f.tracker.Complete(context.Background(), v.ID)
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if done.Status != models.AttemptCompleted {
				t.Errorf("Expected completed, got %s", done.Status)
			}
			if done.CorrectCount != tc.wantCorrect {
				t.Errorf("Expected %d correct, got %d", tc.wantCorrect, done.CorrectCount)
			}
			if done.Score == nil || *done.Score != tc.wantScore {
				t.Errorf("Expected score %d, got %v", tc.wantScore, done.Score)
			}
			if done.TotalQuestions != tc.questions {
				t.Errorf("Expected %d questions, got %d", tc.questions, done.TotalQuestions)
			}
			if done.EndTime == nil {
				t.Errorf("Expected end time to be set")
			}
		})
	}
}

func TestCompleteEmptySet(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindPractice})
	v := f.start(t, "u1")
	done, err := f.tracker.Complete(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Score == nil || *done.Score != 0 {
		t.Errorf("Expected score 0, got %v", done.Score)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 3})
	v := f.start(t, "u1")
	f.submit(t, v.ID, "q1", "A")

	first, err := f.tracker.Complete(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Minute)
	second, err := f.tracker.Complete(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("Expected the stored result, got %v", err)
	}

	if *first.Score != *second.Score || !first.EndTime.Equal(*second.EndTime) {
		t.Errorf("Expected unchanged result, got %v then %v", *first.Score, *second.Score)
	}
	if f.stats.calls != 1 {
		t.Errorf("Expected stats to be recorded once, got %d", f.stats.calls)
	}
	if n := len(f.events.Events(event.AttemptCompleted)); n != 1 {
		t.Errorf("Expected one completed event, got %d", n)
	}
	q, _ := f.stores.Questions.FindByID(context.Background(), "q1")
	if q.Stats.TimesUsed != 1 || q.Stats.TimesCorrect != 1 {
		t.Errorf("Expected q1 stats {1 1}, got %+v", q.Stats)
	}
}

func TestResubmitOverwrites(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2})
	v := f.start(t, "u1")
	f.submit(t, v.ID, "q1", "B")
	f.submit(t, v.ID, "q2", "A")
	f.submit(t, v.ID, "q1", "A")

	a, err := f.stores.Attempts.FindByID(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Answers) != 2 {
		t.Errorf("Expected 2 answer records, got %d", len(a.Answers))
	}
	if a.Answers["q2"].SelectedLabel != "A" {
		t.Errorf("Expected q2 untouched, got %+v", a.Answers["q2"])
	}

	done, err := f.tracker.Complete(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *done.Score != 100 {
		t.Errorf("Expected the latest submission to count, got score %d", *done.Score)
	}
}

func TestStartHidesAnswerKey(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 3})
	v := f.start(t, "u1")

	if v.Status != models.AttemptInProgress || v.Score != nil {
		t.Errorf("Expected a fresh in-progress attempt, got %+v", v)
	}
	if len(v.Questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(v.Questions))
	}
	for i, q := range v.Questions {
		if q.CorrectAnswer != "" || q.Explanation != "" {
			t.Errorf("Question %s leaks its answer key", q.ID)
		}
		if q.Points != i+1 {
			t.Errorf("Expected assigned points %d, got %d", i+1, q.Points)
		}
	}
	if v.PointsPossible != 6 {
		t.Errorf("Expected 6 possible points, got %d", v.PointsPossible)
	}

	f.submit(t, v.ID, "q1", "B")
	got, err := f.tracker.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Answers[0].IsCorrect != nil {
		t.Errorf("Expected quiz correctness to stay hidden while in progress")
	}

	done, err := f.tracker.Complete(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Questions[0].CorrectAnswer != "A" || done.Answers[0].IsCorrect == nil {
		t.Errorf("Expected the answer key once completed")
	}
}

func TestSubmitRevealsForPracticeOnly(t *testing.T) {
	testCases := []struct {
		kind   models.SetKind
		reveal bool
	}{
		{models.SetKindPractice, true},
		{models.SetKindQuiz, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.kind), func(t *testing.T) {
			f := newFixture(t, setOptions{kind: tc.kind, questions: 1})
			v := f.start(t, "u1")
			res := f.submit(t, v.ID, "q1", "B")
			if !res.Accepted {
				t.Errorf("Expected the answer to be accepted")
			}
			if got := res.IsCorrect != nil; got != tc.reveal {
				t.Errorf("Expected reveal=%v, got %v", tc.reveal, got)
			}
			if tc.reveal && (*res.IsCorrect || res.CorrectAnswer != "A") {
				t.Errorf("Expected an incorrect verdict with key A, got %+v", res)
			}
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2})
	v := f.start(t, "u1")
	ctx := context.Background()

	testCases := []struct {
		name      string
		attemptID string
		question  string
		label     string
		want      error
	}{
		{"question outside snapshot", v.ID, "q9", "A", ErrQuestionNotInAttempt},
		{"unknown label", v.ID, "q1", "Z", ErrUnknownOption},
		{"unknown attempt", "missing", "q1", "A", ErrAttemptNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tracker.SubmitAnswer(ctx, tc.attemptID, tc.question, tc.label)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := f.tracker.Start(ctx, "u1", "nope"); !errors.Is(err, ErrQuestionSetNotFound) {
		t.Errorf("Expected ErrQuestionSetNotFound, got %v", err)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2})
	ctx := context.Background()
	v := f.start(t, "u1")
	f.submit(t, v.ID, "q1", "A")

	abandoned, err := f.tracker.Abandon(ctx, v.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if abandoned.Status != models.AttemptAbandoned || abandoned.Score != nil || abandoned.EndReason != models.EndReasonManual {
		t.Errorf("Expected an unscored manual abandon, got %+v", abandoned)
	}

	if _, err := f.tracker.SubmitAnswer(ctx, v.ID, "q2", "A"); !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("Expected ErrAttemptNotActive on submit, got %v", err)
	}
	if _, err := f.tracker.Complete(ctx, v.ID); !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("Expected ErrAttemptNotActive on complete, got %v", err)
	}
	if _, err := f.tracker.Abandon(ctx, v.ID, ""); !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("Expected ErrAttemptNotActive on abandon, got %v", err)
	}
	if f.stats.calls != 0 {
		t.Errorf("Expected abandoned attempts to skip stats, got %d calls", f.stats.calls)
	}
	if n := len(f.events.Events(event.AttemptAbandoned)); n != 1 {
		t.Errorf("Expected one abandoned event, got %d", n)
	}

	// A new attempt may start once the previous one is terminal.
	f.start(t, "u1")
}

func TestConcurrentStart(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2})
	const callers = 10

	var wg sync.WaitGroup
	var started, conflicts int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tracker.Start(context.Background(), "u1", "set-1")
			switch {
			case err == nil:
				atomic.AddInt32(&started, 1)
			case errors.Is(err, ErrAttemptAlreadyActive):
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if started != 1 || conflicts != callers-1 {
		t.Errorf("Expected 1 start and %d conflicts, got %d and %d", callers-1, started, conflicts)
	}
}

func TestStartConflictNamesActiveAttempt(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2})
	first := f.start(t, "u1")

	_, err := f.tracker.Start(context.Background(), "u1", "set-1")
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || !errors.Is(err, ErrAttemptAlreadyActive) {
		t.Fatalf("Expected ErrAttemptAlreadyActive, got %v", err)
	}
	if appErr.Detail != first.ID {
		t.Errorf("Expected the conflict to name attempt %s, got %q", first.ID, appErr.Detail)
	}
}

func TestConcurrentSubmitAndComplete(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 20})
	v := f.start(t, "u1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.tracker.SubmitAnswer(ctx, v.ID, fmt.Sprintf("q%d", i), "A")
			if err != nil && !errors.Is(err, ErrAttemptNotActive) {
				t.Errorf("Unexpected submit error: %v", err)
			}
		}(i)
	}
	results := make([]*View, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.tracker.Complete(ctx, v.ID)
			if err != nil {
				t.Errorf("Unexpected complete error: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	stored, err := f.stores.Attempts.FindByID(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.AttemptCompleted {
		t.Fatalf("Expected completed, got %s", stored.Status)
	}
	if stored.CorrectCount != len(stored.Answers) {
		t.Errorf("Expected the score to cover exactly the recorded answers, got %d of %d", stored.CorrectCount, len(stored.Answers))
	}
	for _, res := range results {
		if res != nil && *res.Score != *stored.Score {
			t.Errorf("Expected every caller to see score %d, got %d", *stored.Score, *res.Score)
		}
	}
	if f.stats.calls != 1 {
		t.Errorf("Expected stats to be recorded once, got %d", f.stats.calls)
	}
}

func TestQuizPassingScore(t *testing.T) {
	passing := 50
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 4, passingScore: &passing})
	v := f.start(t, "u1")
	f.submit(t, v.ID, "q3", "A")
	f.submit(t, v.ID, "q4", "A")

	done, err := f.tracker.Complete(context.Background(), v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Passed == nil || !*done.Passed {
		t.Errorf("Expected a pass at 50%%, got %v", done.Passed)
	}
	if done.PointsEarned != 7 || done.PointsPossible != 10 {
		t.Errorf("Expected 7 of 10 points, got %d of %d", done.PointsEarned, done.PointsPossible)
	}
}

func TestPracticeIgnoresPassingScore(t *testing.T) {
	passing := 50
	f := newFixture(t, setOptions{kind: models.SetKindPractice, questions: 2, passingScore: &passing, timeLimit: 30})
	v := f.start(t, "u1")
	if v.ExpiresAt != nil || v.PassingScore != nil {
		t.Errorf("Expected practice attempts to be untimed without threshold, got %+v", v)
	}
}

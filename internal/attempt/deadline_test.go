package attempt

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-service/internal/apperror"
	"assessment-service/internal/event"
	"assessment-service/internal/models"

	"go.uber.org/zap"
)

func TestDeadlineForcesAbandon(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2, timeLimit: 60})
	engine := NewDeadline(f.tracker, f.stores.Attempts, f.clock.Now)
	ctx := context.Background()

	v, err := engine.Start(ctx, "u1", "set-1")
	if err != nil {
		t.Fatal(err)
	}
	if v.ExpiresAt == nil || !v.ExpiresAt.Equal(f.clock.Now().Add(time.Minute)) {
		t.Fatalf("Expected expiry one minute out, got %v", v.ExpiresAt)
	}

	if _, err := engine.SubmitAnswer(ctx, v.ID, "q1", "A"); err != nil {
		t.Fatalf("Expected submit within the limit, got %v", err)
	}

	f.clock.Advance(2 * time.Minute)
	if _, err := engine.SubmitAnswer(ctx, v.ID, "q2", "A"); !errors.Is(err, ErrAttemptExpired) {
		t.Fatalf("Expected ErrAttemptExpired, got %v", err)
	}

	got, err := engine.Get(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.AttemptAbandoned || got.EndReason != models.EndReasonTimeout || got.Score != nil {
		t.Errorf("Expected an unscored timeout abandon, got %+v", got)
	}
	if _, err := engine.Complete(ctx, v.ID); !errors.Is(err, ErrAttemptNotActive) {
		t.Errorf("Expected ErrAttemptNotActive after expiry, got %v", err)
	}
	if f.stats.calls != 0 {
		t.Errorf("Expected no stats for a timed-out attempt")
	}
	evts := f.events.Events(event.AttemptAbandoned)
	if len(evts) != 1 || evts[0].Payload.(event.AttemptPayload).Reason != models.EndReasonTimeout {
		t.Errorf("Expected one timeout abandon event, got %v", evts)
	}
}

func TestDeadlineStartReplacesExpiredAttempt(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2, timeLimit: 60})
	engine := NewDeadline(f.tracker, f.stores.Attempts, f.clock.Now)
	ctx := context.Background()

	first, err := engine.Start(ctx, "u1", "set-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Start(ctx, "u1", "set-1"); !errors.Is(err, ErrAttemptAlreadyActive) {
		t.Fatalf("Expected a live attempt to keep its slot, got %v", err)
	}

	f.clock.Advance(10 * time.Minute)
	second, err := engine.Start(ctx, "u1", "set-1")
	if err != nil {
		t.Fatalf("Expected the expired attempt to give way, got %v", err)
	}
	if second.ID == first.ID || second.Status != models.AttemptInProgress {
		t.Errorf("Expected a fresh in-progress attempt, got %+v", second)
	}

	old, err := f.tracker.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if old.Status != models.AttemptAbandoned || old.EndReason != models.EndReasonTimeout {
		t.Errorf("Expected the old attempt to be abandoned on timeout, got %s/%s", old.Status, old.EndReason)
	}
	if n := len(f.events.Events(event.AttemptAbandoned)); n != 1 {
		t.Errorf("Expected one abandon event, got %d", n)
	}
	if f.stats.calls != 0 {
		t.Errorf("Expected no stats for a timed-out attempt")
	}
}

func TestDeadlineCompleteAfterLimitPassesMidCall(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 2, timeLimit: 60})
	ctx := context.Background()

	v := f.start(t, "u1")
	if _, err := f.tracker.SubmitAnswer(ctx, v.ID, "q1", "A"); err != nil {
		t.Fatal(err)
	}

	// The decorator still sees the attempt within its limit; the tracker
	// reaches the scoring write after it.
	checkedAt := f.clock.Now()
	engine := NewDeadline(f.tracker, f.stores.Attempts, func() time.Time { return checkedAt })
	f.clock.Advance(61 * time.Second)

	if _, err := engine.Complete(ctx, v.ID); !errors.Is(err, ErrAttemptExpired) {
		t.Fatalf("Expected ErrAttemptExpired, got %v", err)
	}
	got, err := f.tracker.Get(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.AttemptAbandoned || got.EndReason != models.EndReasonTimeout || got.Score != nil {
		t.Errorf("Expected an unscored timeout abandon, got %+v", got)
	}
	if f.stats.calls != 0 {
		t.Errorf("Expected no stats for a timed-out attempt")
	}
}

func TestTrackerRefusesToScoreExpiredAttempt(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 1, timeLimit: 60})
	ctx := context.Background()

	v := f.start(t, "u1")
	f.clock.Advance(2 * time.Minute)
	_, err := f.tracker.Complete(ctx, v.ID)
	if !errors.Is(err, ErrAttemptExpired) {
		t.Fatalf("Expected ErrAttemptExpired, got %v", err)
	}
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("Expected a conflict, got %s", apperror.KindOf(err))
	}
	got, err := f.tracker.Get(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.AttemptInProgress || got.Score != nil {
		t.Errorf("Expected the attempt to be left unscored, got %+v", got)
	}
}

func TestDeadlineGetAbandonsOverdue(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 1, timeLimit: 10})
	engine := NewDeadline(f.tracker, f.stores.Attempts, f.clock.Now)
	ctx := context.Background()

	v, err := engine.Start(ctx, "u1", "set-1")
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Hour)
	got, err := engine.Get(ctx, v.ID)
	if err != nil {
		t.Fatalf("Expected Get to succeed, got %v", err)
	}
	if got.Status != models.AttemptAbandoned {
		t.Errorf("Expected overdue attempt to be abandoned on read, got %s", got.Status)
	}
}

func TestDeadlineLeavesCompletedAlone(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 1, timeLimit: 10})
	engine := NewDeadline(f.tracker, f.stores.Attempts, f.clock.Now)
	ctx := context.Background()

	v, _ := engine.Start(ctx, "u1", "set-1")
	first, err := engine.Complete(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Hour)
	second, err := engine.Complete(ctx, v.ID)
	if err != nil {
		t.Fatalf("Expected the stored result after the limit, got %v", err)
	}
	if *first.Score != *second.Score || second.Status != models.AttemptCompleted {
		t.Errorf("Expected an unchanged completed result, got %+v", second)
	}
}

func TestDefaultTimeLimit(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 1})
	f.tracker.cfg.DefaultTimeLimit = 15 * time.Minute
	v := f.start(t, "u1")
	if v.ExpiresAt == nil || !v.ExpiresAt.Equal(f.clock.Now().Add(15*time.Minute)) {
		t.Errorf("Expected the default limit to apply, got %v", v.ExpiresAt)
	}
}

func TestSweeper(t *testing.T) {
	f := newFixture(t, setOptions{kind: models.SetKindQuiz, questions: 1, timeLimit: 60})
	ctx := context.Background()

	f.start(t, "u1")
	f.start(t, "u2")
	f.clock.Advance(2 * time.Minute)
	live := f.start(t, "u3")

	sweeper := NewSweeper(f.tracker, f.stores.Attempts, SweeperConfig{Batch: 10, Workers: 2}, zap.NewNop())
	sweeper.now = f.clock.Now

	ended, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ended != 2 {
		t.Errorf("Expected 2 attempts abandoned, got %d", ended)
	}
	got, err := f.tracker.Get(ctx, live.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.AttemptInProgress {
		t.Errorf("Expected the live attempt to stay in progress, got %s", got.Status)
	}

	ended, err = sweeper.SweepOnce(ctx)
	if err != nil || ended != 0 {
		t.Errorf("Expected an idle second sweep, got %d, %v", ended, err)
	}
}

package attempt

import (
	"context"
	"errors"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

// Deadline enforces quiz time limits around an Engine. Any operation that
// touches an in-progress attempt past its expiry first abandons it with the
// timeout reason; writes then fail with ErrAttemptExpired.
type Deadline struct {
	Engine
	attempts repository.AttemptStore
	now      func() time.Time
}

func NewDeadline(inner Engine, attempts repository.AttemptStore, now func() time.Time) *Deadline {
	if now == nil {
		now = time.Now
	}
	return &Deadline{Engine: inner, attempts: attempts, now: now}
}

// Start frees the (user, set) slot when it is held by an attempt that ran out
// of time but has not been swept yet, then starts once more.
func (d *Deadline) Start(ctx context.Context, userID, questionSetID string) (*View, error) {
	v, err := d.Engine.Start(ctx, userID, questionSetID)
	if !errors.Is(err, ErrAttemptAlreadyActive) {
		return v, err
	}
	existing, ferr := d.attempts.FindActive(ctx, userID, questionSetID)
	if ferr != nil || !existing.Expired(d.now()) {
		return nil, err
	}
	if err := d.timeout(ctx, existing.ID); err != nil && !errors.Is(err, ErrAttemptNotActive) {
		return nil, err
	}
	return d.Engine.Start(ctx, userID, questionSetID)
}

func (d *Deadline) SubmitAnswer(ctx context.Context, attemptID, questionID, selectedLabel string) (*SubmitResult, error) {
	if err := d.enforce(ctx, "submit_answer", attemptID); err != nil {
		return nil, err
	}
	return d.Engine.SubmitAnswer(ctx, attemptID, questionID, selectedLabel)
}

func (d *Deadline) Complete(ctx context.Context, attemptID string) (*View, error) {
	if err := d.enforce(ctx, "complete", attemptID); err != nil {
		return nil, err
	}
	v, err := d.Engine.Complete(ctx, attemptID)
	if errors.Is(err, ErrAttemptExpired) {
		// The limit passed between the check above and the scoring write.
		if aerr := d.timeout(ctx, attemptID); aerr != nil && !errors.Is(aerr, ErrAttemptNotActive) {
			return nil, aerr
		}
	}
	return v, err
}

// Get abandons an overdue attempt before reading it, so readers never see a
// quiz running past its limit.
func (d *Deadline) Get(ctx context.Context, attemptID string) (*View, error) {
	if err := d.enforce(ctx, "get", attemptID); err != nil && !errors.Is(err, ErrAttemptExpired) {
		return nil, err
	}
	return d.Engine.Get(ctx, attemptID)
}

func (d *Deadline) enforce(ctx context.Context, op, attemptID string) error {
	a, err := d.attempts.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAttemptNotFound.With(op, attemptID)
		}
		// Let the wrapped engine report store failures.
		return nil
	}
	if a.Status != models.AttemptInProgress || !a.Expired(d.now()) {
		return nil
	}
	if err := d.timeout(ctx, attemptID); err != nil {
		if errors.Is(err, ErrAttemptNotActive) {
			// Someone else ended it first; the wrapped engine reports its state.
			return nil
		}
		return err
	}
	return ErrAttemptExpired.With(op, a.ExpiresAt.Format(time.RFC3339))
}

func (d *Deadline) timeout(ctx context.Context, attemptID string) error {
	_, err := d.Engine.Abandon(ctx, attemptID, models.EndReasonTimeout)
	return err
}

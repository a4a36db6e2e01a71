package attempt

import (
	"context"
	"time"

	"assessment-service/internal/models"
)

// Engine is the attempt lifecycle. The Tracker implements it and Deadline
// decorates it with time-limit enforcement.
type Engine interface {
	Start(ctx context.Context, userID, questionSetID string) (*View, error)
	SubmitAnswer(ctx context.Context, attemptID, questionID, selectedLabel string) (*SubmitResult, error)
	Complete(ctx context.Context, attemptID string) (*View, error)
	Abandon(ctx context.Context, attemptID, reason string) (*View, error)
	Get(ctx context.Context, attemptID string) (*View, error)
}

// Config holds the tracker tunables.
type Config struct {
	// CASRetries bounds how often a transition re-reads the attempt after a
	// version conflict.
	CASRetries int
	// DefaultTimeLimit applies to quiz attempts whose set has no limit. Zero
	// means untimed.
	DefaultTimeLimit time.Duration
}

func DefaultConfig() Config {
	return Config{CASRetries: 5}
}

// QuestionView is a snapshot question. The answer key and explanation are
// only filled once the attempt is terminal.
type QuestionView struct {
	models.PublicQuestion
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// AnswerView hides correctness of quiz answers while the attempt runs.
type AnswerView struct {
	QuestionID    string    `json:"question_id"`
	SelectedLabel string    `json:"selected_label"`
	IsCorrect     *bool     `json:"is_correct,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type View struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	QuestionSetID  string               `json:"question_set_id"`
	Kind           models.SetKind       `json:"kind"`
	Status         models.AttemptStatus `json:"status"`
	StartTime      time.Time            `json:"start_time"`
	EndTime        *time.Time           `json:"end_time,omitempty"`
	ExpiresAt      *time.Time           `json:"expires_at,omitempty"`
	EndReason      string               `json:"end_reason,omitempty"`
	Score          *int                 `json:"score,omitempty"`
	CorrectCount   int                  `json:"correct_count"`
	TotalQuestions int                  `json:"total_questions"`
	PointsEarned   int                  `json:"points_earned"`
	PointsPossible int                  `json:"points_possible"`
	PassingScore   *int                 `json:"passing_score,omitempty"`
	Passed         *bool                `json:"passed,omitempty"`
	Questions      []QuestionView       `json:"questions"`
	Answers        []AnswerView         `json:"answers"`
}

// SubmitResult acknowledges an answer. Practice attempts also learn whether
// it was right.
type SubmitResult struct {
	AttemptID     string `json:"attempt_id"`
	QuestionID    string `json:"question_id"`
	SelectedLabel string `json:"selected_label"`
	Accepted      bool   `json:"accepted"`
	IsCorrect     *bool  `json:"is_correct,omitempty"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

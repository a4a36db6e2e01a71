package models

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

func (s AttemptStatus) Terminal() bool {
	return s == AttemptCompleted || s == AttemptAbandoned
}

const (
	EndReasonCompleted = "completed"
	EndReasonManual    = "manual"
	EndReasonTimeout   = "timeout"
)

type AnswerRecord struct {
	QuestionID    string    `bson:"question_id" json:"question_id"`
	SelectedLabel string    `bson:"selected_label" json:"selected_label"`
	IsCorrect     bool      `bson:"is_correct" json:"is_correct"`
	SubmittedAt   time.Time `bson:"submitted_at" json:"submitted_at"`
}

type Attempt struct {
	ID             string                  `bson:"_id" json:"id"`
	UserID         string                  `bson:"user_id" json:"user_id"`
	QuestionSetID  string                  `bson:"question_set_id" json:"question_set_id"`
	Kind           SetKind                 `bson:"kind" json:"kind"`
	Items          []SetItem               `bson:"items" json:"items"`
	Status         AttemptStatus           `bson:"status" json:"status"`
	StartTime      time.Time               `bson:"start_time" json:"start_time"`
	EndTime        *time.Time              `bson:"end_time,omitempty" json:"end_time,omitempty"`
	ExpiresAt      *time.Time              `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	EndReason      string                  `bson:"end_reason,omitempty" json:"end_reason,omitempty"`
	Answers        map[string]AnswerRecord `bson:"answers" json:"answers"`
	Score          *int                    `bson:"score,omitempty" json:"score,omitempty"`
	CorrectCount   int                     `bson:"correct_count" json:"correct_count"`
	TotalQuestions int                     `bson:"total_questions" json:"total_questions"`
	PointsEarned   int                     `bson:"points_earned" json:"points_earned"`
	PointsPossible int                     `bson:"points_possible" json:"points_possible"`
	PassingScore   *int                    `bson:"passing_score,omitempty" json:"passing_score,omitempty"`
	Passed         *bool                   `bson:"passed,omitempty" json:"passed,omitempty"`
	Version        int64                   `bson:"version" json:"version"`
}

// HasQuestion reports whether questionID is part of the attempt's snapshot.
func (a *Attempt) HasQuestion(questionID string) bool {
	for _, it := range a.Items {
		if it.QuestionID == questionID {
			return true
		}
	}
	return false
}

func (a *Attempt) QuestionIDs() []string {
	ids := make([]string, len(a.Items))
	for i, it := range a.Items {
		ids[i] = it.QuestionID
	}
	return ids
}

// Expired reports whether the attempt has a deadline that is behind now.
func (a *Attempt) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

// Clone returns a deep copy.
func (a *Attempt) Clone() *Attempt {
	c := *a
	c.Items = append([]SetItem(nil), a.Items...)
	c.Answers = make(map[string]AnswerRecord, len(a.Answers))
	for k, v := range a.Answers {
		c.Answers[k] = v
	}
	if a.EndTime != nil {
		t := *a.EndTime
		c.EndTime = &t
	}
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	if a.Score != nil {
		s := *a.Score
		c.Score = &s
	}
	if a.PassingScore != nil {
		s := *a.PassingScore
		c.PassingScore = &s
	}
	if a.Passed != nil {
		b := *a.Passed
		c.Passed = &b
	}
	return &c
}

// AttemptPatch is applied atomically by the store when the stored version
// equals the expected one. Nil fields are left untouched.
type AttemptPatch struct {
	Status       *AttemptStatus
	EndTime      *time.Time
	EndReason    *string
	Score        *int
	CorrectCount *int
	PointsEarned *int
	Passed       *bool
	Answer       *AnswerRecord
}

// Apply mutates a in place and bumps its version. In-memory stores use it
// directly; other stores mirror the same field set.
func (p AttemptPatch) Apply(a *Attempt) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.EndTime != nil {
		t := *p.EndTime
		a.EndTime = &t
	}
	if p.EndReason != nil {
		a.EndReason = *p.EndReason
	}
	if p.Score != nil {
		s := *p.Score
		a.Score = &s
	}
	if p.CorrectCount != nil {
		a.CorrectCount = *p.CorrectCount
	}
	if p.PointsEarned != nil {
		a.PointsEarned = *p.PointsEarned
	}
	if p.Passed != nil {
		b := *p.Passed
		a.Passed = &b
	}
	if p.Answer != nil {
		if a.Answers == nil {
			a.Answers = make(map[string]AnswerRecord)
		}
		a.Answers[p.Answer.QuestionID] = *p.Answer
	}
	a.Version++
}

// StatDelta is one question's counter increment.
type StatDelta struct {
	QuestionID   string
	TimesUsed    int64
	TimesCorrect int64
}

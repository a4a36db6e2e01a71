package event

import "time"

const (
	AttemptStarted       = "attempt.started"
	AttemptCompleted     = "attempt.completed"
	AttemptAbandoned     = "attempt.abandoned"
	QuestionSetAssembled = "questionset.assembled"
)

// Event is the envelope published for every lifecycle change. The event type
// doubles as the routing key on the topic exchange.
type Event struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type AttemptPayload struct {
	AttemptID     string `json:"attempt_id"`
	UserID        string `json:"user_id"`
	QuestionSetID string `json:"question_set_id"`
	Kind          string `json:"kind"`
	Reason        string `json:"reason,omitempty"`
	Score         *int   `json:"score,omitempty"`
	CorrectCount  int    `json:"correct_count,omitempty"`
	Total         int    `json:"total_questions,omitempty"`
	Passed        *bool  `json:"passed,omitempty"`
}

type QuestionSetPayload struct {
	QuestionSetID string         `json:"question_set_id"`
	Kind          string         `json:"kind"`
	QuestionCount int            `json:"question_count"`
	TotalPoints   int            `json:"total_points"`
	TierCounts    map[string]int `json:"tier_counts,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
}

func New(eventType string, payload any) *Event {
	return &Event{EventType: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

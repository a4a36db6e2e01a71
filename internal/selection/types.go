package selection

import "assessment-service/internal/models"

// Request describes one question set to assemble.
type Request struct {
	Title     string         `json:"title"`
	Kind      models.SetKind `json:"kind"`
	CreatedBy string         `json:"-"`

	Filter        models.QuestionFilter `json:"filter"`
	QuestionCount int                   `json:"question_count"`

	// Difficulty and Distribution are mutually exclusive.
	Difficulty   models.Difficulty    `json:"difficulty,omitempty"`
	Distribution *models.Distribution `json:"distribution,omitempty"`

	PointsPolicy models.PointsPolicy `json:"points_policy"`
	TotalPoints  int                 `json:"total_points,omitempty"`

	// RandomizeQuestions defaults to true when nil.
	RandomizeQuestions *bool `json:"randomize_questions,omitempty"`

	TimeLimitSeconds int  `json:"time_limit_seconds,omitempty"`
	PassingScore     *int `json:"passing_score,omitempty"`
}

func (r *Request) randomize() bool {
	return r.RandomizeQuestions == nil || *r.RandomizeQuestions
}

// Config holds the selector tunables.
type Config struct {
	DefaultQuestions int
	MaxQuestions     int
	// Tolerance is how far a distribution may stray from 100, in percentage points.
	Tolerance float64
	Weights   map[models.Difficulty]int
}

// DefaultConfig returns the selector configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		DefaultQuestions: 10,
		MaxQuestions:     200,
		Tolerance:        1,
		Weights: map[models.Difficulty]int{
			models.DifficultyEasy:   1,
			models.DifficultyMedium: 2,
			models.DifficultyHard:   3,
		},
	}
}

// PoolSummary reports how many active questions match a filter, per tier.
type PoolSummary struct {
	Filter       models.QuestionFilter     `json:"filter"`
	Total        int                       `json:"total"`
	ByDifficulty map[models.Difficulty]int `json:"by_difficulty"`
}

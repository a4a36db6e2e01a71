package models

import "time"

type SetKind string

const (
	SetKindPractice SetKind = "practice"
	SetKindQuiz     SetKind = "quiz"
)

type PointsPolicy string

const (
	PointsEqual        PointsPolicy = "equal"
	PointsByDifficulty PointsPolicy = "byDifficulty"
)

// Distribution holds tier percentages. Nil means the policy is not a distribution.
type Distribution struct {
	Easy   float64 `bson:"easy" json:"easy"`
	Medium float64 `bson:"medium" json:"medium"`
	Hard   float64 `bson:"hard" json:"hard"`
}

func (d Distribution) Percent(t Difficulty) float64 {
	switch t {
	case DifficultyEasy:
		return d.Easy
	case DifficultyMedium:
		return d.Medium
	case DifficultyHard:
		return d.Hard
	}
	return 0
}

func (d Distribution) Sum() float64 {
	return d.Easy + d.Medium + d.Hard
}

// GenerationParams records how a question set was produced.
type GenerationParams struct {
	Filter             QuestionFilter     `bson:"filter" json:"filter"`
	QuestionCount      int                `bson:"question_count" json:"question_count"`
	Difficulty         Difficulty         `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	Distribution       *Distribution      `bson:"distribution,omitempty" json:"distribution,omitempty"`
	PointsPolicy       PointsPolicy       `bson:"points_policy" json:"points_policy"`
	TotalPoints        int                `bson:"total_points,omitempty" json:"total_points,omitempty"`
	RandomizeQuestions bool               `bson:"randomize_questions" json:"randomize_questions"`
	TierCounts         map[Difficulty]int `bson:"tier_counts,omitempty" json:"tier_counts,omitempty"`
}

type SetItem struct {
	QuestionID string     `bson:"question_id" json:"question_id"`
	Difficulty Difficulty `bson:"difficulty" json:"difficulty"`
	Points     int        `bson:"points" json:"points"`
}

type QuestionSet struct {
	ID               string            `bson:"_id" json:"id"`
	Title            string            `bson:"title" json:"title"`
	Kind             SetKind           `bson:"kind" json:"kind"`
	Items            []SetItem         `bson:"items" json:"items"`
	TotalPoints      int               `bson:"total_points" json:"total_points"`
	TimeLimitSeconds int               `bson:"time_limit_seconds,omitempty" json:"time_limit_seconds,omitempty"`
	PassingScore     *int              `bson:"passing_score,omitempty" json:"passing_score,omitempty"`
	Published        bool              `bson:"published" json:"published"`
	Generation       *GenerationParams `bson:"generation,omitempty" json:"generation,omitempty"`
	CreatedBy        string            `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
}

func (s *QuestionSet) QuestionIDs() []string {
	ids := make([]string, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.QuestionID
	}
	return ids
}

// SumPoints recomputes the total from the items.
func (s *QuestionSet) SumPoints() int {
	total := 0
	for _, it := range s.Items {
		total += it.Points
	}
	return total
}

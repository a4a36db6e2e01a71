package models

import "fmt"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the tiers from easiest to hardest. Tier iteration order
// everywhere in the engine follows this slice.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Rank orders tiers: easy=0, medium=1, hard=2. Unknown tiers sort last.
func (d Difficulty) Rank() int {
	for i, t := range Difficulties {
		if t == d {
			return i
		}
	}
	return len(Difficulties)
}

type Option struct {
	Label string `bson:"label" json:"label"`
	Text  string `bson:"text" json:"text"`
}

type QuestionStats struct {
	TimesUsed    int64 `bson:"times_used" json:"times_used"`
	TimesCorrect int64 `bson:"times_correct" json:"times_correct"`
}

// CorrectRate is the observed share of correct answers, 0 when never used.
func (s QuestionStats) CorrectRate() float64 {
	if s.TimesUsed == 0 {
		return 0
	}
	return float64(s.TimesCorrect) / float64(s.TimesUsed)
}

type Question struct {
	ID            string        `bson:"_id" json:"id"`
	Content       string        `bson:"content" json:"content"`
	Options       []Option      `bson:"options" json:"options"`
	CorrectAnswer string        `bson:"correct_answer" json:"correct_answer"`
	Explanation   string        `bson:"explanation" json:"explanation"`
	Difficulty    Difficulty    `bson:"difficulty" json:"difficulty"`
	Points        int           `bson:"points" json:"points"`
	TopicID       string        `bson:"topic_id" json:"topic_id"`
	TagIDs        []string      `bson:"tag_ids" json:"tag_ids"`
	Active        bool          `bson:"active" json:"active"`
	Stats         QuestionStats `bson:"stats" json:"stats"`
}

// HasOption reports whether label names one of the question's options.
func (q *Question) HasOption(label string) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}

// Validate checks the authoring invariants of a question.
func (q *Question) Validate() error {
	if q.Content == "" {
		return fmt.Errorf("question content is required")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question needs at least two options")
	}
	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if o.Label == "" {
			return fmt.Errorf("option label is required")
		}
		if seen[o.Label] {
			return fmt.Errorf("duplicate option label %q", o.Label)
		}
		seen[o.Label] = true
	}
	if !seen[q.CorrectAnswer] {
		return fmt.Errorf("correct answer %q is not an option label", q.CorrectAnswer)
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("unknown difficulty %q", q.Difficulty)
	}
	if q.Points < 1 {
		return fmt.Errorf("points must be at least 1")
	}
	return nil
}

// PublicQuestion is what an unterminated attempt may see: no answer key, no explanation.
type PublicQuestion struct {
	ID         string     `json:"id"`
	Content    string     `json:"content"`
	Options    []Option   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
	Points     int        `json:"points"`
}

func (q *Question) Public(points int) PublicQuestion {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return PublicQuestion{
		ID:         q.ID,
		Content:    q.Content,
		Options:    opts,
		Difficulty: q.Difficulty,
		Points:     points,
	}
}

// QuestionFilter selects the active question pool.
type QuestionFilter struct {
	TopicIDs   []string   `bson:"topic_ids,omitempty" json:"topic_ids,omitempty"`
	TagIDs     []string   `bson:"tag_ids,omitempty" json:"tag_ids,omitempty"`
	Difficulty Difficulty `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
}

// Matches applies the filter in memory; stores translate it into queries.
func (f QuestionFilter) Matches(q *Question) bool {
	if !q.Active {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if len(f.TopicIDs) > 0 && !contains(f.TopicIDs, q.TopicID) {
		return false
	}
	if len(f.TagIDs) > 0 {
		hit := false
		for _, t := range q.TagIDs {
			if contains(f.TagIDs, t) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

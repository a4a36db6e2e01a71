package attempt

import (
	"math"

	"assessment-service/internal/models"
)

// Outcome is the canonical result of an attempt, derived from its snapshot
// and answer records only.
type Outcome struct {
	CorrectCount   int
	TotalQuestions int
	Score          int
	PointsEarned   int
	PointsPossible int
	Passed         *bool
}

// Evaluate scores a over its fixed snapshot. Unanswered questions count as
// incorrect and stay in the denominator.
func Evaluate(a *models.Attempt) Outcome {
	out := Outcome{TotalQuestions: len(a.Items)}
	for _, item := range a.Items {
		out.PointsPossible += item.Points
		if ans, ok := a.Answers[item.QuestionID]; ok && ans.IsCorrect {
			out.CorrectCount++
			out.PointsEarned += item.Points
		}
	}
	out.Score = ScorePercent(out.CorrectCount, out.TotalQuestions)
	if a.PassingScore != nil {
		passed := out.Score >= *a.PassingScore
		out.Passed = &passed
	}
	return out
}

// ScorePercent is round(100 * correct / total), 0 for an empty set.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"assessment-service/internal/models"
)

type QuestionStore struct {
	db *sql.DB
}

const questionColumns = `id, content, options, correct_answer, explanation, difficulty, points, topic_id, active, times_used, times_correct`

func (s *QuestionStore) Create(ctx context.Context, q *models.Question) error {
	options, err := marshal(q.Options)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Content, options, q.CorrectAnswer, q.Explanation, string(q.Difficulty), q.Points,
		q.TopicID, boolInt(q.Active), q.Stats.TimesUsed, q.Stats.TimesCorrect)
	if err != nil {
		return err
	}
	for i, tag := range q.TagIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO question_tags (question_id, tag_id, position) VALUES (?, ?, ?)", q.ID, tag, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *QuestionStore) FindActive(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	where, args := poolWhere(filter)
	return s.query(ctx, `SELECT `+questionColumns+` FROM questions WHERE `+where+` ORDER BY id`, args...)
}

func (s *QuestionStore) CountActiveByDifficulty(ctx context.Context, filter models.QuestionFilter) (map[models.Difficulty]int, error) {
	where, args := poolWhere(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT difficulty, COUNT(*) FROM questions WHERE `+where+` GROUP BY difficulty`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Difficulty]int, len(models.Difficulties))
	for _, d := range models.Difficulties {
		counts[d] = 0
	}
	for rows.Next() {
		var d string
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		counts[models.Difficulty(d)] = n
	}
	return counts, rows.Err()
}

func (s *QuestionStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	questions, err := s.query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, notFound(sql.ErrNoRows)
	}
	return &questions[0], nil
}

func (s *QuestionStore) FindByIDs(ctx context.Context, ids []string) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id IN (`+placeholders(len(ids))+`)`, args...)
}

func (s *QuestionStore) IncrementStats(ctx context.Context, deltas []models.StatDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range deltas {
		_, err := tx.ExecContext(ctx,
			"UPDATE questions SET times_used = times_used + ?, times_correct = times_correct + ? WHERE id = ?",
			d.TimesUsed, d.TimesCorrect, d.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to increment stats for %s: %w", d.QuestionID, err)
		}
	}
	return tx.Commit()
}

func poolWhere(filter models.QuestionFilter) (string, []any) {
	clauses := []string{"active = 1"}
	var args []any
	if filter.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, string(filter.Difficulty))
	}
	if len(filter.TopicIDs) > 0 {
		clauses = append(clauses, "topic_id IN ("+placeholders(len(filter.TopicIDs))+")")
		for _, t := range filter.TopicIDs {
			args = append(args, t)
		}
	}
	if len(filter.TagIDs) > 0 {
		clauses = append(clauses, "id IN (SELECT question_id FROM question_tags WHERE tag_id IN ("+placeholders(len(filter.TagIDs))+"))")
		for _, t := range filter.TagIDs {
			args = append(args, t)
		}
	}
	return strings.Join(clauses, " AND "), args
}

func (s *QuestionStore) query(ctx context.Context, query string, args ...any) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var options, difficulty string
		var active int
		if err := rows.Scan(&q.ID, &q.Content, &options, &q.CorrectAnswer, &q.Explanation, &difficulty,
			&q.Points, &q.TopicID, &active, &q.Stats.TimesUsed, &q.Stats.TimesCorrect); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s: bad options: %w", q.ID, err)
		}
		q.Difficulty = models.Difficulty(difficulty)
		q.Active = active == 1
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range questions {
		tags, err := s.tags(ctx, questions[i].ID)
		if err != nil {
			return nil, err
		}
		questions[i].TagIDs = tags
	}
	return questions, nil
}

func (s *QuestionStore) tags(ctx context.Context, questionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tag_id FROM question_tags WHERE question_id = ? ORDER BY position", questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"assessment-service/internal/models"
	"assessment-service/internal/repository"
)

type AttemptStore struct {
	db *sql.DB
}

const attemptColumns = `id, user_id, question_set_id, kind, items, status, start_time, end_time, expires_at,
	end_reason, score, correct_count, total_questions, points_earned, points_possible, passing_score, passed, version`

func (s *AttemptStore) Create(ctx context.Context, a *models.Attempt) error {
	items, err := marshal(a.Items)
	if err != nil {
		return err
	}
	var passed any
	if a.Passed != nil {
		passed = boolInt(*a.Passed)
	}
	start := a.StartTime
	_, err = s.db.ExecContext(ctx, `INSERT INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.QuestionSetID, string(a.Kind), items, string(a.Status),
		toNanos(&start), toNanos(a.EndTime), toNanos(a.ExpiresAt), a.EndReason, nullInt(a.Score),
		a.CorrectCount, a.TotalQuestions, a.PointsEarned, a.PointsPossible, nullInt(a.PassingScore),
		passed, a.Version)
	if isActiveAttemptViolation(err) {
		return repository.ErrActiveAttemptExists
	}
	return err
}

func (s *AttemptStore) FindByID(ctx context.Context, id string) (*models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	attempts, err := scanAttempts(rows)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, repository.ErrNotFound
	}
	a := &attempts[0]
	if err := s.loadAnswers(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AttemptStore) FindActive(ctx context.Context, userID, questionSetID string) (*models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM attempts
		WHERE user_id = ? AND question_set_id = ? AND status = ? LIMIT 1`,
		userID, questionSetID, string(models.AttemptInProgress))
	if err != nil {
		return nil, err
	}
	attempts, err := scanAttempts(rows)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, repository.ErrNotFound
	}
	a := &attempts[0]
	if err := s.loadAnswers(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Update runs the version check, the column patch and the answer upsert in
// one transaction so a rejected patch leaves nothing behind.
func (s *AttemptStore) Update(ctx context.Context, id string, expectedVersion int64, patch models.AttemptPatch) error {
	sets := []string{"version = version + 1"}
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.EndTime != nil {
		sets = append(sets, "end_time = ?")
		args = append(args, toNanos(patch.EndTime))
	}
	if patch.EndReason != nil {
		sets = append(sets, "end_reason = ?")
		args = append(args, *patch.EndReason)
	}
	if patch.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *patch.Score)
	}
	if patch.CorrectCount != nil {
		sets = append(sets, "correct_count = ?")
		args = append(args, *patch.CorrectCount)
	}
	if patch.PointsEarned != nil {
		sets = append(sets, "points_earned = ?")
		args = append(args, *patch.PointsEarned)
	}
	if patch.Passed != nil {
		sets = append(sets, "passed = ?")
		args = append(args, boolInt(*patch.Passed))
	}
	args = append(args, id, expectedVersion)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE attempts SET `+strings.Join(sets, ", ")+` WHERE id = ? AND version = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts WHERE id = ?", id).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	if ans := patch.Answer; ans != nil {
		_, err := tx.ExecContext(ctx, `INSERT INTO attempt_answers (attempt_id, question_id, selected_label, is_correct, submitted_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(attempt_id, question_id) DO UPDATE SET
				selected_label = excluded.selected_label,
				is_correct = excluded.is_correct,
				submitted_at = excluded.submitted_at`,
			id, ans.QuestionID, ans.SelectedLabel, boolInt(ans.IsCorrect), ans.SubmittedAt.UnixNano())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *AttemptStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM attempts
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at LIMIT ?`, string(models.AttemptInProgress), now.UnixNano(), limit)
	if err != nil {
		return nil, err
	}
	attempts, err := scanAttempts(rows)
	if err != nil {
		return nil, err
	}
	for i := range attempts {
		if err := s.loadAnswers(ctx, &attempts[i]); err != nil {
			return nil, err
		}
	}
	return attempts, nil
}

func (s *AttemptStore) loadAnswers(ctx context.Context, a *models.Attempt) error {
	rows, err := s.db.QueryContext(ctx, `SELECT question_id, selected_label, is_correct, submitted_at
		FROM attempt_answers WHERE attempt_id = ?`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	a.Answers = make(map[string]models.AnswerRecord)
	for rows.Next() {
		var rec models.AnswerRecord
		var correct int
		var submitted int64
		if err := rows.Scan(&rec.QuestionID, &rec.SelectedLabel, &correct, &submitted); err != nil {
			return err
		}
		rec.IsCorrect = correct == 1
		rec.SubmittedAt = time.Unix(0, submitted).UTC()
		a.Answers[rec.QuestionID] = rec
	}
	return rows.Err()
}

// scanAttempts drains and closes rows before answers are loaded; the pool
// holds a single connection.
func scanAttempts(rows *sql.Rows) ([]models.Attempt, error) {
	defer rows.Close()
	var attempts []models.Attempt
	for rows.Next() {
		var a models.Attempt
		var kind, items, status string
		var start int64
		var end, expires, score, passing, passed sql.NullInt64
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionSetID, &kind, &items, &status, &start, &end, &expires,
			&a.EndReason, &score, &a.CorrectCount, &a.TotalQuestions, &a.PointsEarned, &a.PointsPossible,
			&passing, &passed, &a.Version); err != nil {
			return nil, err
		}
		a.Kind = models.SetKind(kind)
		a.Status = models.AttemptStatus(status)
		a.StartTime = time.Unix(0, start).UTC()
		a.EndTime = fromNanos(end)
		a.ExpiresAt = fromNanos(expires)
		a.Score = fromNullInt(score)
		a.PassingScore = fromNullInt(passing)
		if passed.Valid {
			b := passed.Int64 == 1
			a.Passed = &b
		}
		if err := json.Unmarshal([]byte(items), &a.Items); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

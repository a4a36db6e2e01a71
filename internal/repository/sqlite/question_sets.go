package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"assessment-service/internal/models"
)

type QuestionSetStore struct {
	db *sql.DB
}

func (s *QuestionSetStore) Create(ctx context.Context, set *models.QuestionSet) error {
	items, err := marshal(set.Items)
	if err != nil {
		return err
	}
	var generation any
	if set.Generation != nil {
		g, err := marshal(set.Generation)
		if err != nil {
			return err
		}
		generation = g
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO question_sets
		(id, title, kind, items, total_points, time_limit_seconds, passing_score, published, generation, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		set.ID, set.Title, string(set.Kind), items, set.TotalPoints, set.TimeLimitSeconds,
		nullInt(set.PassingScore), boolInt(set.Published), generation, set.CreatedBy, set.CreatedAt.UnixNano())
	return err
}

func (s *QuestionSetStore) FindByID(ctx context.Context, id string) (*models.QuestionSet, error) {
	var set models.QuestionSet
	var kind, items string
	var passing sql.NullInt64
	var published int
	var generation sql.NullString
	var createdAt int64

	err := s.db.QueryRowContext(ctx, `SELECT id, title, kind, items, total_points, time_limit_seconds,
		passing_score, published, generation, created_by, created_at FROM question_sets WHERE id = ?`, id).
		Scan(&set.ID, &set.Title, &kind, &items, &set.TotalPoints, &set.TimeLimitSeconds,
			&passing, &published, &generation, &set.CreatedBy, &createdAt)
	if err != nil {
		return nil, notFound(err)
	}

	set.Kind = models.SetKind(kind)
	set.PassingScore = fromNullInt(passing)
	set.Published = published == 1
	set.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(items), &set.Items); err != nil {
		return nil, err
	}
	if generation.Valid {
		set.Generation = &models.GenerationParams{}
		if err := json.Unmarshal([]byte(generation.String), set.Generation); err != nil {
			return nil, err
		}
	}
	return &set, nil
}

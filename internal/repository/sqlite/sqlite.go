// Package sqlite is the embedded SQL backend. It mirrors the mongo stores:
// a partial unique index guards the single active attempt and attempt
// updates are version-checked inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"assessment-service/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    options TEXT NOT NULL,
    correct_answer TEXT NOT NULL,
    explanation TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL,
    points INTEGER NOT NULL,
    topic_id TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    times_used INTEGER NOT NULL DEFAULT 0,
    times_correct INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_questions_pool ON questions(active, difficulty, topic_id);

CREATE TABLE IF NOT EXISTS question_tags (
    question_id TEXT NOT NULL,
    tag_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (question_id, tag_id),
    FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_question_tags_tag ON question_tags(tag_id);

CREATE TABLE IF NOT EXISTS question_sets (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    items TEXT NOT NULL,
    total_points INTEGER NOT NULL,
    time_limit_seconds INTEGER NOT NULL DEFAULT 0,
    passing_score INTEGER,
    published INTEGER NOT NULL DEFAULT 0,
    generation TEXT,
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    question_set_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    items TEXT NOT NULL,
    status TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    end_time INTEGER,
    expires_at INTEGER,
    end_reason TEXT NOT NULL DEFAULT '',
    score INTEGER,
    correct_count INTEGER NOT NULL DEFAULT 0,
    total_questions INTEGER NOT NULL,
    points_earned INTEGER NOT NULL DEFAULT 0,
    points_possible INTEGER NOT NULL DEFAULT 0,
    passing_score INTEGER,
    passed INTEGER,
    version INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS one_active_attempt
    ON attempts(user_id, question_set_id) WHERE status = 'in_progress';

CREATE INDEX IF NOT EXISTS idx_attempts_expiry ON attempts(status, expires_at);

CREATE TABLE IF NOT EXISTS attempt_answers (
    attempt_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    selected_label TEXT NOT NULL,
    is_correct INTEGER NOT NULL,
    submitted_at INTEGER NOT NULL,
    PRIMARY KEY (attempt_id, question_id),
    FOREIGN KEY (attempt_id) REFERENCES attempts(id)
);
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection serialises writers; sqlite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Stores exposes the backend through the repository interfaces.
func (s *SQLiteStore) Stores() *repository.Stores {
	return &repository.Stores{
		Questions:    &QuestionStore{db: s.db},
		QuestionSets: &QuestionSetStore{db: s.db},
		Attempts:     &AttemptStore{db: s.db},
		Close:        func(context.Context) error { return s.Close() },
	}
}

func toNanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func fromNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isActiveAttemptViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: attempts.user_id")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

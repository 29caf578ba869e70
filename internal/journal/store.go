// Package journal is a local SQLite outbox of answer saves the backend has
// not confirmed yet. It lets an attempt survive a crash or a dropped network
// between selecting an option and the save landing.
package journal

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const DefaultPath = "quiz-journal.db"

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pending_answers (
			attempt_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			option_id TEXT NOT NULL,
			recorded_at_unix INTEGER NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (attempt_id, question_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_answers_recorded ON pending_answers(attempt_id, recorded_at_unix);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

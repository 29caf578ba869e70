package journal

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrIncompleteEntry = errors.New("attempt, question and option ids are required")

type PendingAnswer struct {
	AttemptID  string
	QuestionID string
	OptionID   string
	RecordedAt time.Time
	LastError  string
}

// Record upserts the entry for (attempt, question). A later record replaces the
// option and error but keeps the original recorded time.
func (s *Store) Record(ctx context.Context, answer PendingAnswer) error {
	if strings.TrimSpace(answer.AttemptID) == "" || strings.TrimSpace(answer.QuestionID) == "" || strings.TrimSpace(answer.OptionID) == "" {
		return ErrIncompleteEntry
	}
	if answer.RecordedAt.IsZero() {
		answer.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO pending_answers (attempt_id, question_id, option_id, recorded_at_unix, last_error)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			option_id = excluded.option_id,
			last_error = excluded.last_error`,
		answer.AttemptID,
		answer.QuestionID,
		answer.OptionID,
		answer.RecordedAt.UnixNano(),
		answer.LastError,
	)
	return err
}

func (s *Store) Confirm(ctx context.Context, attemptID, questionID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM pending_answers WHERE attempt_id = ? AND question_id = ?`,
		attemptID,
		questionID,
	)
	return err
}

func (s *Store) Pending(ctx context.Context, attemptID string) ([]PendingAnswer, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT attempt_id, question_id, option_id, recorded_at_unix, last_error
		 FROM pending_answers
		 WHERE attempt_id = ?
		 ORDER BY recorded_at_unix ASC, question_id ASC`,
		attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PendingAnswer, 0)
	for rows.Next() {
		var (
			item       PendingAnswer
			recordedAt int64
		)
		if err := rows.Scan(&item.AttemptID, &item.QuestionID, &item.OptionID, &recordedAt, &item.LastError); err != nil {
			return nil, err
		}
		item.RecordedAt = time.Unix(0, recordedAt).UTC()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

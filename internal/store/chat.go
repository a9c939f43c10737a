package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/shared"
)

func scanTurns(rows *sql.Rows) ([]domain.Turn, error) {
	turns := []domain.Turn{}
	for rows.Next() {
		var turn domain.Turn
		var subject sql.NullString
		var createdAt int64
		if err := rows.Scan(&turn.ID, &turn.StudentID, &turn.Sender, &turn.Text, &subject, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		turn.Subject = subject.String
		turn.Timestamp = time.UnixMilli(createdAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}
	return turns, nil
}

// ListTurns returns a student's conversation, oldest first.
func (s *SQLiteStore) ListTurns(ctx context.Context, studentID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, sender, text, subject, created_at
		FROM chat_messages WHERE student_id = ?
		ORDER BY created_at, id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer closeRows(rows, "chat history")
	return scanTurns(rows)
}

// RecentTurns returns the latest limit turns, oldest first.
func (s *SQLiteStore) RecentTurns(ctx context.Context, studentID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return []domain.Turn{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, sender, text, subject, created_at FROM (
			SELECT id, student_id, sender, text, subject, created_at
			FROM chat_messages WHERE student_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at, id`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer closeRows(rows, "recent turns")
	return scanTurns(rows)
}

// AppendTurns stores turns in one transaction, retrying when the
// database is busy.
func (s *SQLiteStore) AppendTurns(ctx context.Context, turns ...*domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	return shared.RetryOnConflict(ctx, "append turns", func() error {
		return s.appendTurnsOnce(ctx, turns)
	})
}

func (s *SQLiteStore) appendTurnsOnce(ctx context.Context, turns []*domain.Turn) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_messages (student_id, sender, text, subject, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]int64, len(turns))
	for i, turn := range turns {
		if turn.Timestamp.IsZero() {
			turn.Timestamp = time.Now()
		}
		var subject any
		if turn.Subject != "" {
			subject = turn.Subject
		}
		result, execErr := stmt.ExecContext(ctx,
			turn.StudentID, string(turn.Sender), turn.Text, subject, turn.Timestamp.UnixMilli())
		if execErr != nil {
			return fmt.Errorf("insert chat message: %w", execErr)
		}
		if ids[i], err = result.LastInsertId(); err != nil {
			return fmt.Errorf("get chat message id: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	for i, turn := range turns {
		turn.ID = ids[i]
	}
	return nil
}

// ClearTurns deletes a student's conversation and returns the number of
// removed turns.
func (s *SQLiteStore) ClearTurns(ctx context.Context, studentID string) (int64, error) {
	var removed int64
	err := shared.RetryOnConflict(ctx, "clear chat history", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE student_id = ?`, studentID)
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	return removed, err
}

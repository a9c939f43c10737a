package store

import (
	"context"
	"fmt"

	"github.com/ashureev/tutorly/internal/domain"
)

// AddPerformance records scored data points in one transaction.
func (s *SQLiteStore) AddPerformance(ctx context.Context, entries []domain.PerformanceEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, e := range entries {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO subject_performance (student_id, subject, date, score) VALUES (?, ?, ?, ?)`,
			e.StudentID, e.Subject, e.Date, e.Score); err != nil {
			return fmt.Errorf("insert performance entry: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListPerformance returns a student's scores ordered by subject and date.
func (s *SQLiteStore) ListPerformance(ctx context.Context, studentID string) ([]domain.PerformanceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT student_id, subject, date, score FROM subject_performance
		WHERE student_id = ? ORDER BY subject, date, id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query performance: %w", err)
	}
	defer closeRows(rows, "performance")

	entries := []domain.PerformanceEntry{}
	for rows.Next() {
		var e domain.PerformanceEntry
		if err := rows.Scan(&e.StudentID, &e.Subject, &e.Date, &e.Score); err != nil {
			return nil, fmt.Errorf("scan performance row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance: %w", err)
	}
	return entries, nil
}

// GetProgress computes assignment, score and chat statistics for a student.
func (s *SQLiteStore) GetProgress(ctx context.Context, studentID string) (*domain.Progress, error) {
	progress := &domain.Progress{
		AssignmentStats:    []domain.StatusCount{},
		SubjectPerformance: []domain.SubjectStat{},
		ChatSubjects:       []domain.SubjectCount{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM assignments
		WHERE student_id = ? GROUP BY status ORDER BY status`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query assignment stats: %w", err)
	}
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			closeRows(rows, "assignment stats")
			return nil, fmt.Errorf("scan assignment stats: %w", err)
		}
		progress.AssignmentStats = append(progress.AssignmentStats, sc)
	}
	closeRows(rows, "assignment stats")
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignment stats: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT subject, AVG(score), COUNT(*) FROM assignments
		WHERE student_id = ? AND score IS NOT NULL
		GROUP BY subject ORDER BY subject`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query subject performance: %w", err)
	}
	for rows.Next() {
		var st domain.SubjectStat
		if err := rows.Scan(&st.Subject, &st.AvgScore, &st.TotalAssignments); err != nil {
			closeRows(rows, "subject performance")
			return nil, fmt.Errorf("scan subject performance: %w", err)
		}
		progress.SubjectPerformance = append(progress.SubjectPerformance, st)
	}
	closeRows(rows, "subject performance")
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject performance: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE student_id = ?`, studentID,
	).Scan(&progress.ChatActivity); err != nil {
		return nil, fmt.Errorf("count chat messages: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT subject, COUNT(*) FROM chat_messages
		WHERE student_id = ? AND sender = 'user' AND subject IS NOT NULL AND subject != ''
		GROUP BY subject ORDER BY COUNT(*) DESC, subject`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query chat subjects: %w", err)
	}
	for rows.Next() {
		var sc domain.SubjectCount
		if err := rows.Scan(&sc.Subject, &sc.Count); err != nil {
			closeRows(rows, "chat subjects")
			return nil, fmt.Errorf("scan chat subjects: %w", err)
		}
		progress.ChatSubjects = append(progress.ChatSubjects, sc)
	}
	closeRows(rows, "chat subjects")
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat subjects: %w", err)
	}

	return progress, nil
}

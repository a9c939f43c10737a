package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/tutorly/internal/domain"
)

const assignmentColumns = `id, student_id, title, subject, due_date, status, difficulty, score, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var a domain.Assignment
	var score sql.NullInt64
	var createdAt int64
	if err := row.Scan(&a.ID, &a.StudentID, &a.Title, &a.Subject, &a.DueDate,
		&a.Status, &a.Difficulty, &score, &createdAt); err != nil {
		return a, err
	}
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	a.CreatedAt = time.Unix(createdAt, 0)
	return a, nil
}

func nullableScore(score *int) any {
	if score == nil {
		return nil
	}
	return *score
}

// ListAssignments returns a student's assignments, latest due date first.
func (s *SQLiteStore) ListAssignments(ctx context.Context, studentID string) ([]domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE student_id = ? ORDER BY due_date DESC, id DESC`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer closeRows(rows, "assignments")

	assignments := []domain.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment row: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

// CreateAssignment inserts a new assignment and sets its ID.
func (s *SQLiteStore) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	if a.Status == "" {
		a.Status = domain.StatusPending
	}
	if a.Difficulty == "" {
		a.Difficulty = domain.DifficultyMedium
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO assignments (student_id, title, subject, due_date, status, difficulty, score, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		a.StudentID, a.Title, a.Subject, a.DueDate,
		a.Status, a.Difficulty, nullableScore(a.Score), a.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get assignment id: %w", err)
	}
	a.ID = id
	return nil
}

// UpdateAssignment applies the non-nil fields of patch.
func (s *SQLiteStore) UpdateAssignment(ctx context.Context, id int64, patch domain.AssignmentPatch) (*domain.Assignment, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("update assignment: empty patch")
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Subject != nil {
		add("subject", *patch.Subject)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Difficulty != nil {
		add("difficulty", *patch.Difficulty)
	}
	if patch.Score != nil {
		add("score", *patch.Score)
	}
	args = append(args, id)

	query := `UPDATE assignments SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	if err := checkAffected(result); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan assignment row: %w", err)
	}
	return &a, nil
}

// DeleteAssignment removes an assignment.
func (s *SQLiteStore) DeleteAssignment(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return checkAffected(result)
}

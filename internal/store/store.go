// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/ashureev/tutorly/internal/domain"
)

// ErrNotFound is returned when an update or delete targets a missing row.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for persisting Tutorly data.
type Repository interface {
	// GetStudent retrieves a student by ID. It returns nil, nil when the
	// student does not exist.
	GetStudent(ctx context.Context, studentID string) (*domain.Student, error)

	// UpsertStudent creates a student or updates their display name.
	UpsertStudent(ctx context.Context, student *domain.Student) error

	// ListStudents returns all students ordered by name.
	ListStudents(ctx context.Context) ([]domain.Student, error)

	// GetTeacher retrieves a teacher by ID, or nil, nil when missing.
	GetTeacher(ctx context.Context, teacherID string) (*domain.Teacher, error)

	// UpsertTeacher creates a teacher or updates their display name.
	UpsertTeacher(ctx context.Context, teacher *domain.Teacher) error

	// ListAssignments returns a student's assignments, latest due date first.
	ListAssignments(ctx context.Context, studentID string) ([]domain.Assignment, error)

	// CreateAssignment inserts a new assignment and sets its ID.
	CreateAssignment(ctx context.Context, a *domain.Assignment) error

	// UpdateAssignment applies a partial update and returns the updated row.
	UpdateAssignment(ctx context.Context, id int64, patch domain.AssignmentPatch) (*domain.Assignment, error)

	// DeleteAssignment removes an assignment.
	DeleteAssignment(ctx context.Context, id int64) error

	// ListTurns returns a student's full conversation in timestamp order.
	ListTurns(ctx context.Context, studentID string) ([]domain.Turn, error)

	// RecentTurns returns at most limit of the student's latest turns, in
	// timestamp order.
	RecentTurns(ctx context.Context, studentID string, limit int) ([]domain.Turn, error)

	// AppendTurns stores turns atomically and sets their IDs.
	AppendTurns(ctx context.Context, turns ...*domain.Turn) error

	// ClearTurns deletes a student's conversation.
	ClearTurns(ctx context.Context, studentID string) (int64, error)

	// AddPerformance records scored data points.
	AddPerformance(ctx context.Context, entries []domain.PerformanceEntry) error

	// ListPerformance returns a student's scores ordered by subject and date.
	ListPerformance(ctx context.Context, studentID string) ([]domain.PerformanceEntry, error)

	// ListCalendarEvents returns a teacher's events ordered by date.
	ListCalendarEvents(ctx context.Context, teacherID string) ([]domain.CalendarEvent, error)

	// CreateCalendarEvent inserts a new event and sets its ID.
	CreateCalendarEvent(ctx context.Context, event *domain.CalendarEvent) error

	// DeleteCalendarEvent removes one of a teacher's events.
	DeleteCalendarEvent(ctx context.Context, teacherID string, eventID int64) error

	// GetProgress computes the analytics summary for a student.
	GetProgress(ctx context.Context, studentID string) (*domain.Progress, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

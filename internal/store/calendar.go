package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/tutorly/internal/domain"
)

// ListCalendarEvents returns a teacher's events ordered by date.
func (s *SQLiteStore) ListCalendarEvents(ctx context.Context, teacherID string) ([]domain.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, teacher_id, title, date, description, subject, created_at
		FROM calendar_events WHERE teacher_id = ?
		ORDER BY date, id`, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer closeRows(rows, "calendar events")

	events := []domain.CalendarEvent{}
	for rows.Next() {
		var e domain.CalendarEvent
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TeacherID, &e.Title, &e.Date, &e.Description, &e.Subject, &createdAt); err != nil {
			return nil, fmt.Errorf("scan calendar event row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar events: %w", err)
	}
	return events, nil
}

// CreateCalendarEvent inserts a new event and sets its ID.
func (s *SQLiteStore) CreateCalendarEvent(ctx context.Context, event *domain.CalendarEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (teacher_id, title, date, description, subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.TeacherID, event.Title, event.Date, event.Description, event.Subject, event.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get calendar event id: %w", err)
	}
	event.ID = id
	return nil
}

// DeleteCalendarEvent removes one of a teacher's events. Events owned by
// other teachers are reported as missing.
func (s *SQLiteStore) DeleteCalendarEvent(ctx context.Context, teacherID string, eventID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM calendar_events WHERE id = ? AND teacher_id = ?`, eventID, teacherID)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return checkAffected(result)
}

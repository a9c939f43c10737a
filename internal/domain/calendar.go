package domain

import (
	"time"
)

// CalendarEvent is an entry on a teacher's calendar.
type CalendarEvent struct {
	ID          int64     `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

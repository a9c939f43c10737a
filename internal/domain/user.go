// Package domain contains core domain types for the Tutorly application.
package domain

import (
	"time"
)

// Student represents a learner known to the system.
type Student struct {
	StudentID string    `json:"studentId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Teacher represents a teacher account. Teachers own calendar events and
// may create assignments for any student.
type Teacher struct {
	TeacherID string    `json:"teacherId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

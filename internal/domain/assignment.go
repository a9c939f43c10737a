package domain

import (
	"time"
)

// Assignment statuses.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusOverdue    = "Overdue"
)

// Assignment difficulties.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// DateLayout is the calendar-date format used for due dates and events.
const DateLayout = "2006-01-02"

// Assignment is a piece of homework tracked for a student.
type Assignment struct {
	ID         int64     `json:"id"`
	StudentID  string    `json:"student_id"`
	Title      string    `json:"title"`
	Subject    string    `json:"subject"`
	DueDate    string    `json:"due_date"`
	Status     string    `json:"status"`
	Difficulty string    `json:"difficulty"`
	Score      *int      `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// AssignmentPatch carries a partial update. Nil fields are left untouched.
type AssignmentPatch struct {
	Title      *string
	Subject    *string
	DueDate    *string
	Status     *string
	Difficulty *string
	Score      *int
}

// IsEmpty returns true if the patch would not change anything.
func (p AssignmentPatch) IsEmpty() bool {
	return p.Title == nil && p.Subject == nil && p.DueDate == nil &&
		p.Status == nil && p.Difficulty == nil && p.Score == nil
}

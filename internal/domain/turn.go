package domain

import (
	"time"
)

// Sender identifies who authored a chat turn.
type Sender string

const (
	// SenderUser marks a turn written by the student.
	SenderUser Sender = "user"
	// SenderAI marks a turn produced by the tutor.
	SenderAI Sender = "ai"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Turn is one message in a student's conversation. Turns are immutable
// once stored and ordered by Timestamp.
type Turn struct {
	ID        int64     `json:"id,omitempty"`
	StudentID string    `json:"-"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Subject   string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

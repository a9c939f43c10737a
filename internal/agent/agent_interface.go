package agent

import (
	"context"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/tutor"
)

// Responder produces the tutor's reply to one message given the recent
// conversation. It must always return usable text.
type Responder interface {
	Respond(ctx context.Context, message string, history []domain.Turn, image *tutor.Image) tutor.Reply
}

// Ensure tutor.Tutor implements Responder.
var _ Responder = (*tutor.Tutor)(nil)

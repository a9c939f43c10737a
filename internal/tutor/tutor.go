package tutor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ashureev/tutorly/internal/domain"
)

// Observer receives the outcome of every reply.
type Observer interface {
	ObserveReply(subject string, source string, failure string)
}

// Tutor composes classification, prompt assembly, generation, fallback
// and sanitizing. It holds no mutable state and may be shared by any
// number of request handlers.
type Tutor struct {
	prompts   *PromptBuilder
	generator Generator
	fallbacks *FallbackStore
	observer  Observer
	logger    *slog.Logger
}

// Option configures a Tutor.
type Option func(*Tutor)

// WithObserver reports reply outcomes to o.
func WithObserver(o Observer) Option {
	return func(t *Tutor) {
		t.observer = o
	}
}

// WithLogger sets the logger used for generation failures.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tutor) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Tutor.
func New(prompts *PromptBuilder, generator Generator, fallbacks *FallbackStore, opts ...Option) *Tutor {
	t := &Tutor{
		prompts:   prompts,
		generator: generator,
		fallbacks: fallbacks,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Respond produces the tutor's reply to message. It always returns usable
// text: any generation failure is replaced by a canned reply for the
// message's subject. The subject is classified from message alone.
func (t *Tutor) Respond(ctx context.Context, message string, history []domain.Turn, image *Image) Reply {
	subject := Classify(message)
	req := t.prompts.Build(history, message, image)

	result := t.generator.Generate(ctx, req)
	if !result.Succeeded || strings.TrimSpace(result.Text) == "" {
		failure := result.Failure
		if failure == FailureNone {
			failure = FailureEmptyGeneration
		}
		t.logFailure(subject, failure, result.Err)
		reply := Reply{
			Text:    t.fallbacks.Pick(subject),
			Subject: subject,
			Source:  SourceFallback,
			Failure: failure,
		}
		t.observe(reply)
		return reply
	}

	reply := Reply{
		Text:    withAnswerReminder(Sanitize(result.Text)),
		Subject: subject,
		Source:  SourceAI,
	}
	t.observe(reply)
	return reply
}

func (t *Tutor) logFailure(subject Subject, failure FailureKind, err error) {
	if failure == FailureNoCredential {
		t.logger.Debug("No generation credential, using fallback reply", "subject", subject)
		return
	}
	attrs := []any{"subject", subject, "failure", failure.String()}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	t.logger.Warn("Generation failed, using fallback reply", attrs...)
}

func (t *Tutor) observe(reply Reply) {
	if t.observer == nil {
		return
	}
	t.observer.ObserveReply(string(reply.Subject), string(reply.Source), reply.Failure.String())
}

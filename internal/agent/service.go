package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/store"
	"github.com/ashureev/tutorly/internal/tutor"
)

const persistTimeout = 5 * time.Second

// Publisher fans a reply out to other listeners of the same student.
type Publisher interface {
	Publish(resp *Response)
}

// Service runs one tutoring exchange: load the recent conversation, ask
// the tutor, store both turns and record the exchange.
type Service struct {
	responder Responder
	repo      store.Repository
	log       ConversationLogger
	publisher Publisher
	window    int
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithConversationLogger records each exchange to l.
func WithConversationLogger(l ConversationLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPublisher fans every reply out through p.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithHistoryWindow overrides how many stored turns are sent as context.
func WithHistoryWindow(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a tutoring service.
func NewService(responder Responder, repo store.Repository, opts ...ServiceOption) *Service {
	s := &Service{
		responder: responder,
		repo:      repo,
		log:       noopConversationLogger{},
		window:    tutor.HistoryWindow,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Chat answers req.Message for req.StudentID. The reply is returned even if
// storing the exchange fails; only a failure to read the conversation is
// reported as an error.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	received := time.Now()

	history, err := s.repo.RecentTurns(ctx, req.StudentID, s.window)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	s.log.Log(ConversationLogEvent{
		StudentID:  req.StudentID,
		SessionID:  req.SessionID,
		Channel:    req.Channel,
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: req.Message,
		Meta: map[string]any{
			"request_id": req.RequestID,
			"has_image":  req.Image != nil,
			"history":    len(history),
		},
	})

	reply := s.responder.Respond(ctx, req.Message, history, req.Image)

	answered := time.Now()
	if !answered.After(received.Add(time.Millisecond)) {
		answered = received.Add(time.Millisecond)
	}

	userText := req.Message
	if req.Image != nil {
		userText += ImageMarker
	}
	userTurn := &domain.Turn{
		StudentID: req.StudentID,
		Sender:    domain.SenderUser,
		Text:      userText,
		Subject:   string(reply.Subject),
		Timestamp: received,
	}
	aiTurn := &domain.Turn{
		StudentID: req.StudentID,
		Sender:    domain.SenderAI,
		Text:      reply.Text,
		Timestamp: answered,
	}

	// Turns are stored even if the client has gone away.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.repo.AppendTurns(persistCtx, userTurn, aiTurn); err != nil {
		s.logger.Error("Failed to store chat turns",
			"student_id", req.StudentID,
			"subject", reply.Subject,
			"error", err,
		)
	}

	s.log.Log(ConversationLogEvent{
		StudentID:  req.StudentID,
		SessionID:  req.SessionID,
		Channel:    req.Channel,
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: reply.Text,
		Meta: map[string]any{
			"request_id": req.RequestID,
			"subject":    string(reply.Subject),
			"source":     string(reply.Source),
			"failure":    reply.Failure.String(),
		},
	})

	if s.publisher != nil {
		s.publisher.Publish(&Response{
			Type:      "reply",
			Message:   userText,
			Content:   reply.Text,
			Subject:   string(reply.Subject),
			Source:    string(reply.Source),
			Timestamp: answered,
			StudentID: req.StudentID,
			SessionID: req.SessionID,
		})
	}

	s.logger.Info("Tutor reply",
		"student_id", req.StudentID,
		"session_id", req.SessionID,
		"channel", req.Channel,
		"subject", reply.Subject,
		"source", reply.Source,
		"failure", reply.Failure.String(),
	)

	return &ChatResponse{
		Response:  reply.Text,
		Subject:   string(reply.Subject),
		Source:    string(reply.Source),
		Timestamp: answered,
	}, nil
}

// Close releases the conversation logger.
func (s *Service) Close() error {
	if s.log == nil {
		return nil
	}
	return s.log.Close()
}

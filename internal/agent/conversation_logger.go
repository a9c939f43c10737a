package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/tutorly/internal/config"
	"github.com/google/uuid"
)

// ConversationLogEvent is one line of a conversation log.
type ConversationLogEvent struct {
	EventID    string         `json:"event_id"`
	Timestamp  string         `json:"ts"`
	StudentID  string         `json:"student_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ConversationLogger records tutoring exchanges for later review.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// LogObserver is told whether each event was queued or dropped.
type LogObserver interface {
	ObserveConversationLog(result string)
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// fileConversationLogger appends NDJSON lines to <dir>/<student>/<session>.ndjson
// from a single background writer. Log never blocks: events are dropped
// when the queue is full.
type fileConversationLogger struct {
	dir      string
	queue    chan ConversationLogEvent
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger
	observer LogObserver
}

// NewConversationLogger creates a logger for cfg. A disabled config yields
// a logger that discards everything.
func NewConversationLogger(cfg config.ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	return newConversationLogger(cfg, logger, nil)
}

// NewObservedConversationLogger is NewConversationLogger reporting each
// event's fate to observer.
func NewObservedConversationLogger(cfg config.ConversationLogConfig, logger *slog.Logger, observer LogObserver) (ConversationLogger, error) {
	return newConversationLogger(cfg, logger, observer)
}

func newConversationLogger(cfg config.ConversationLogConfig, logger *slog.Logger, observer LogObserver) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1000
	}

	l := &fileConversationLogger{
		dir:      cfg.Dir,
		queue:    make(chan ConversationLogEvent, queueSize),
		done:     make(chan struct{}),
		logger:   logger,
		observer: observer,
	}
	go l.run()
	return l, nil
}

// Log queues event. Missing IDs, timestamps and cleaned content are filled in.
func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.observe("dropped")
		return
	}

	select {
	case l.queue <- event:
		l.observe("queued")
	default:
		l.observe("dropped")
		l.logger.Warn("Conversation log queue full, dropping event",
			"student_id", event.StudentID, "event_type", event.EventType)
	}
}

// Close drains queued events and stops the writer.
func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	return nil
}

func (l *fileConversationLogger) observe(result string) {
	if l.observer != nil {
		l.observer.ObserveConversationLog(result)
	}
}

func (l *fileConversationLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		if err := l.write(event); err != nil {
			l.logger.Warn("Failed to write conversation log", "student_id", event.StudentID, "error", err)
		}
	}
}

func (l *fileConversationLogger) write(event ConversationLogEvent) error {
	dir := filepath.Join(l.dir, safePathComponent(event.StudentID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create student log dir: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	path := filepath.Join(dir, safePathComponent(event.SessionID)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log line: %w", err)
	}
	return f.Close()
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// safePathComponent maps s to a file name. Names that had to be rewritten
// get a hash of the original so distinct IDs never share a file.
func safePathComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	safe := unsafePathChars.ReplaceAllString(s, "_")
	if safe == s {
		return s
	}
	sum := sha256.Sum256([]byte(s))
	return safe + "-" + hex.EncodeToString(sum[:4])
}

var (
	ansiEscape    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	markdownMarks = regexp.MustCompile(`(?m)\*{2,}|^\s*\*\s+|#{1,6}\s+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// cleanForReadability flattens text to a single line without terminal
// escapes or markdown markers.
func cleanForReadability(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	s = markdownMarks.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

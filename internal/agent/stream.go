package agent

import (
	"container/list"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/tutorly/internal/identity"
)

const (
	defaultStreamQueueSize = 20
	defaultKeepalive       = 15 * time.Second
	defaultRetryDelay      = 5 * time.Second
)

// streamConnection is a single SSE client connection.
type streamConnection struct {
	id        int64
	studentID string
	sessionID string
	writer    http.ResponseWriter
	flusher   http.Flusher
	done      chan struct{}
	mu        sync.Mutex
}

// queuedMessage is a reply kept for replay to reconnecting clients.
type queuedMessage struct {
	eventID  int64
	response *Response
}

// MessageQueue buffers recent replies per student so a reconnecting
// stream can catch up from its Last-Event-ID. Each student gets a bounded
// list, so one student's burst cannot evict another's messages.
type MessageQueue struct {
	mu      sync.RWMutex
	queues  map[string]*list.List
	maxSize int
}

// NewMessageQueue creates a per-student replay queue.
func NewMessageQueue(maxSize int) *MessageQueue {
	if maxSize <= 0 {
		maxSize = defaultStreamQueueSize
	}
	return &MessageQueue{
		queues:  make(map[string]*list.List),
		maxSize: maxSize,
	}
}

// Enqueue appends a reply to the student's queue, evicting the oldest.
func (q *MessageQueue) Enqueue(studentID string, eventID int64, resp *Response) {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.queues[studentID]
	if !ok {
		l = list.New()
		q.queues[studentID] = l
	}
	l.PushBack(&queuedMessage{eventID: eventID, response: resp})
	for l.Len() > q.maxSize {
		l.Remove(l.Front())
	}
}

// Since returns the student's messages with an event ID after afterEventID.
func (q *MessageQueue) Since(studentID string, afterEventID int64) []*queuedMessage {
	q.mu.RLock()
	defer q.mu.RUnlock()

	l, ok := q.queues[studentID]
	if !ok {
		return nil
	}
	var missed []*queuedMessage
	for e := l.Front(); e != nil; e = e.Next() {
		msg := e.Value.(*queuedMessage)
		if msg.eventID > afterEventID {
			missed = append(missed, msg)
		}
	}
	return missed
}

// Broker fans replies out to every open stream of a student, across tabs
// and sessions.
type Broker struct {
	connectionsMu sync.RWMutex
	connections   map[string]map[int64]*streamConnection
	queue         *MessageQueue
	counterMu     sync.Mutex
	eventCounter  int64
	connectionID  int64
	keepalive     time.Duration
	retryDelay    time.Duration
	logger        *slog.Logger
}

// NewBroker creates a broker with default keepalive and retry timing.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		connections: make(map[string]map[int64]*streamConnection),
		queue:       NewMessageQueue(defaultStreamQueueSize),
		keepalive:   defaultKeepalive,
		retryDelay:  defaultRetryDelay,
		logger:      logger,
	}
}

// Ensure Broker implements Publisher.
var _ Publisher = (*Broker)(nil)

func (b *Broker) nextEventID() int64 {
	b.counterMu.Lock()
	defer b.counterMu.Unlock()
	b.eventCounter++
	return b.eventCounter
}

func (b *Broker) nextConnectionID() int64 {
	b.counterMu.Lock()
	defer b.counterMu.Unlock()
	b.connectionID++
	return b.connectionID
}

// Publish queues resp for replay and sends it to the student's streams.
func (b *Broker) Publish(resp *Response) {
	if resp == nil || resp.StudentID == "" {
		return
	}
	eventID := b.nextEventID()
	b.queue.Enqueue(resp.StudentID, eventID, resp)

	b.connectionsMu.RLock()
	studentConns := b.connections[resp.StudentID]
	conns := make([]*streamConnection, 0, len(studentConns))
	for _, c := range studentConns {
		conns = append(conns, c)
	}
	b.connectionsMu.RUnlock()

	for _, conn := range conns {
		b.send(conn, eventID, resp)
	}
}

func (b *Broker) send(conn *streamConnection, eventID int64, resp *Response) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	select {
	case <-conn.done:
		return
	default:
	}

	data, err := json.Marshal(resp)
	if err != nil {
		b.logger.Error("Failed to marshal stream message", "error", err, "conn_id", conn.id)
		return
	}
	if err := writeSSEWithID(conn.writer, eventID, "message", string(data)); err != nil {
		b.logger.Debug("Failed to write to stream", "error", err, "conn_id", conn.id, "student_id", conn.studentID)
		return
	}
	conn.flusher.Flush()
}

func (b *Broker) register(conn *streamConnection) {
	b.connectionsMu.Lock()
	defer b.connectionsMu.Unlock()
	if _, ok := b.connections[conn.studentID]; !ok {
		b.connections[conn.studentID] = make(map[int64]*streamConnection)
	}
	b.connections[conn.studentID][conn.id] = conn
}

// unregister removes conn. The student's replay queue is kept so a
// reconnecting tab can still catch up.
func (b *Broker) unregister(conn *streamConnection) {
	b.connectionsMu.Lock()
	if conns, ok := b.connections[conn.studentID]; ok {
		delete(conns, conn.id)
		if len(conns) == 0 {
			delete(b.connections, conn.studentID)
		}
	}
	b.connectionsMu.Unlock()

	conn.mu.Lock()
	close(conn.done)
	conn.mu.Unlock()
}

// ConnectionCount returns the number of open streams for a student.
func (b *Broker) ConnectionCount(studentID string) int {
	b.connectionsMu.RLock()
	defer b.connectionsMu.RUnlock()
	return len(b.connections[studentID])
}

// HandleStream serves GET /api/chat/{studentID}/stream. Clients that
// reconnect with Last-Event-ID receive the replies they missed.
func (b *Broker) HandleStream(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error": "streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	lastEventID := int64(0)
	idHeader := r.Header.Get("Last-Event-ID")
	if idHeader == "" {
		idHeader = r.URL.Query().Get("lastEventId")
	}
	if idHeader != "" {
		if parsed, err := strconv.ParseInt(idHeader, 10, 64); err == nil {
			lastEventID = parsed
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", b.retryDelay.Milliseconds()); err != nil {
		b.logger.Debug("Failed to write stream retry header", "error", err, "student_id", studentID)
		return
	}
	flusher.Flush()

	conn := &streamConnection{
		id:        b.nextConnectionID(),
		studentID: studentID,
		sessionID: sessionID,
		writer:    w,
		flusher:   flusher,
		done:      make(chan struct{}),
	}
	b.register(conn)
	defer func() {
		b.unregister(conn)
		b.logger.Info("Chat stream closed", "student_id", studentID, "session_id", sessionID, "conn_id", conn.id)
	}()

	if lastEventID > 0 {
		for _, msg := range b.queue.Since(studentID, lastEventID) {
			b.send(conn, msg.eventID, msg.response)
		}
	}

	eventID := b.nextEventID()
	connected := fmt.Sprintf(`{"status":"connected","student_id":%q,"event_id":%d}`, studentID, eventID)
	conn.mu.Lock()
	err := writeSSEWithID(w, eventID, "connected", connected)
	if err == nil {
		flusher.Flush()
	}
	conn.mu.Unlock()
	if err != nil {
		b.logger.Debug("Failed to write stream connected event", "error", err, "student_id", studentID)
		return
	}

	b.logger.Info("Chat stream connected",
		"student_id", studentID,
		"session_id", sessionID,
		"conn_id", conn.id,
		"reconnect", lastEventID > 0,
	)

	keepalive := time.NewTicker(b.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			conn.mu.Lock()
			err := writeSSE(w, "ping", `{"status":"alive"}`)
			if err == nil {
				flusher.Flush()
			}
			conn.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEWithID(w io.Writer, id int64, event, data string) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}

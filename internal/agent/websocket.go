package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/tutorly/internal/identity"
	"github.com/coder/websocket"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 10 * time.Second
)

// HandleWebSocket handles GET /ws/chat/{studentID}. Each
// {"type":"message","content":...} frame is answered with a "reply" or
// "error" frame; frames are processed one at a time.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	requestID := chiMiddleware.GetReqID(r.Context())
	h.logger.Info("WebSocket connection request", "student_id", studentID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "student_id", studentID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "student_id", studentID)
		}
	}()
	ws.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client", "student_id", studentID)
			} else {
				h.logger.Debug("WebSocket read error", "error", err, "student_id", studentID)
			}
			return
		}

		reply := h.handleFrame(ctx, data, ChatRequest{
			StudentID: studentID,
			SessionID: sessionID,
			Channel:   ChannelWebSocket,
			RequestID: requestID,
		})
		if err := h.writeJSON(ctx, ws, reply); err != nil {
			h.logger.Debug("Failed to write websocket reply", "error", err, "student_id", studentID)
			return
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, data []byte, req ChatRequest) wsReply {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return wsReply{Type: "error", Content: "invalid message format"}
	}

	switch msg.Type {
	case "ping":
		return wsReply{Type: "pong"}
	case "message":
	default:
		return wsReply{Type: "error", Content: "unknown message type"}
	}

	req.Message = strings.TrimSpace(msg.Content)
	if err := h.validateMessage(req.Message); err != nil {
		return wsReply{Type: "error", Content: err.Error()}
	}
	if !h.allow(req.StudentID) {
		return wsReply{Type: "error", Content: "rate limit exceeded"}
	}

	resp, err := h.service.Chat(ctx, req)
	if err != nil {
		h.logger.Error("WebSocket chat failed", "student_id", req.StudentID, "error", err)
		return wsReply{Type: "error", Content: "failed to process message"}
	}
	return wsReply{
		Type:      "reply",
		Content:   resp.Response,
		Subject:   resp.Subject,
		Source:    resp.Source,
		Timestamp: &resp.Timestamp,
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}

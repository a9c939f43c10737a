// Package agent serves the tutoring chat: plain HTTP, image upload,
// websocket and a server-sent event stream, all backed by the tutor
// pipeline and the student's stored conversation.
package agent

import (
	"time"

	"github.com/ashureev/tutorly/internal/tutor"
)

// Channels recorded in conversation logs.
const (
	ChannelHTTP      = "chat_http"
	ChannelImage     = "chat_image"
	ChannelWebSocket = "chat_ws"
)

// ImageMarker is appended to the stored text of a message sent with an image.
const ImageMarker = " [Image uploaded]"

// DefaultImagePrompt is used when an image arrives without a message.
const DefaultImagePrompt = "What do you see in this image?"

// ChatRequest represents one student message to the tutor.
type ChatRequest struct {
	Message   string       `json:"message"`
	StudentID string       `json:"-"`
	SessionID string       `json:"-"`
	Channel   string       `json:"-"`
	RequestID string       `json:"-"`
	Image     *tutor.Image `json:"-"`
}

// ChatResponse is the tutor's answer as returned to clients.
type ChatResponse struct {
	Response  string    `json:"response"`
	Subject   string    `json:"subject"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is a reply fanned out to a student's open streams.
type Response struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Content   string    `json:"content"`
	Subject   string    `json:"subject,omitempty"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	StudentID string    `json:"-"`
	SessionID string    `json:"-"`
}

// wsMessage is a client-to-server websocket frame.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsReply is a server-to-client websocket frame.
type wsReply struct {
	Type      string     `json:"type"`
	Content   string     `json:"content,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	Source    string     `json:"source,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

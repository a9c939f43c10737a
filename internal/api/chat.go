package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/identity"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type chatMessageRequest struct {
	Sender domain.Sender `json:"sender"`
	Text   string        `json:"text"`
}

func (req *chatMessageRequest) Validate(maxLength int) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Sender, validation.Required, validation.In(domain.SenderUser, domain.SenderAI)),
		validation.Field(&req.Text, validation.Required, validation.RuneLength(1, maxLength)),
	)
}

// GetChatHistory handles GET /api/chat/{studentID}.
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	turns, err := h.repo.ListTurns(r.Context(), studentID)
	if err != nil {
		h.logger.Error("Failed to load chat history", "student_id", studentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	JSON(w, http.StatusOK, turns)
}

// SaveChatMessage handles POST /api/chat/{studentID}. Turns stored here
// bypass the tutor and carry no subject.
func (h *Handler) SaveChatMessage(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())

	var req chatMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if err := req.Validate(h.maxMessageLength()); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	turn := &domain.Turn{
		StudentID: studentID,
		Sender:    req.Sender,
		Text:      req.Text,
		Timestamp: h.now(),
	}
	if err := h.repo.AppendTurns(r.Context(), turn); err != nil {
		h.logger.Error("Failed to save chat message", "student_id", studentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save chat message")
		return
	}
	JSON(w, http.StatusCreated, turn)
}

// ClearChatHistory handles DELETE /api/chat/{studentID}.
func (h *Handler) ClearChatHistory(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	removed, err := h.repo.ClearTurns(r.Context(), studentID)
	if err != nil {
		h.logger.Error("Failed to clear chat history", "student_id", studentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to clear chat history")
		return
	}
	h.logger.Info("Chat history cleared", "student_id", studentID, "removed", removed)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Chat history cleared",
		"removed": removed,
	})
}

func (h *Handler) maxMessageLength() int {
	if h.cfg.MaxMessageLength > 0 {
		return h.cfg.MaxMessageLength
	}
	return 2000
}

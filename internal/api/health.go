package api

import (
	"context"
	"net/http"
	"time"
)

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	message := "Tutorly API is running"
	if err := h.repo.Ping(ctx); err != nil {
		h.logger.Error("Health check database ping failed", "error", err)
		status, code = "unhealthy", http.StatusServiceUnavailable
		message = "database unavailable"
	}

	JSON(w, code, map[string]interface{}{
		"status":     status,
		"message":    message,
		"timestamp":  h.now().UTC(),
		"ai_enabled": h.cfg.AIEnabled(),
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"ai_enabled":         h.cfg.AIEnabled(),
		"max_message_length": h.cfg.MaxMessageLength,
		"max_upload_bytes":   h.cfg.MaxUploadBytes,
	})
}

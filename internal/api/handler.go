// Package api provides HTTP handlers for the Tutorly REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/ashureev/tutorly/internal/config"
	"github.com/ashureev/tutorly/internal/identity"
	"github.com/ashureev/tutorly/internal/store"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// Handler serves the roster, assignment, chat history, calendar and
// progress endpoints.
type Handler struct {
	repo   store.Repository
	cfg    *config.Config
	now    func() time.Time
	intN   func(int) int
	logger *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, cfg *config.Config) *Handler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Handler{
		repo:   repo,
		cfg:    cfg,
		now:    time.Now,
		intN:   rand.IntN,
		logger: slog.Default(),
	}
}

// RegisterRoutes registers the REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	student := identity.StudentParam("studentID")
	teacher := identity.TeacherParam("teacherID")

	r.Get("/api/health", h.Health)
	r.Get("/api/config", h.GetConfig)

	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/teacher/login", h.TeacherLogin)

	r.Get("/api/teacher/students", h.ListStudents)
	r.Post("/api/teacher/assignments", h.TeacherCreateAssignment)
	r.With(teacher).Get("/api/teacher/{teacherID}/calendar", h.ListCalendar)
	r.With(teacher).Post("/api/teacher/{teacherID}/calendar", h.CreateCalendarEvent)
	r.With(teacher).Delete("/api/teacher/{teacherID}/calendar/{eventID}", h.DeleteCalendarEvent)

	// GET and POST key on the student, PUT and DELETE on the assignment.
	r.With(identity.StudentParam("id")).Get("/api/assignments/{id}", h.ListAssignments)
	r.With(identity.StudentParam("id")).Post("/api/assignments/{id}", h.CreateAssignment)
	r.Put("/api/assignments/{id}", h.UpdateAssignment)
	r.Delete("/api/assignments/{id}", h.DeleteAssignment)

	r.With(student).Get("/api/chat/{studentID}", h.GetChatHistory)
	r.With(student).Post("/api/chat/{studentID}", h.SaveChatMessage)
	r.With(student).Delete("/api/chat/{studentID}", h.ClearChatHistory)

	r.With(student).Get("/api/progress/{studentID}", h.GetProgress)
	r.With(student).Get("/api/performance/{studentID}", h.GetPerformance)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return err
	}
	return nil
}

// writeDecodeError maps a decodeJSON failure to a response.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	Error(w, http.StatusBadRequest, "invalid request body")
}

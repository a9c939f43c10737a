package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/identity"
	"github.com/ashureev/tutorly/internal/store"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type calendarEventRequest struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
}

func (req *calendarEventRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&req.Date, validation.Required, dateRule),
		validation.Field(&req.Description, validation.RuneLength(0, 2000)),
		validation.Field(&req.Subject, validation.RuneLength(0, 50)),
	)
}

// ListCalendar handles GET /api/teacher/{teacherID}/calendar.
func (h *Handler) ListCalendar(w http.ResponseWriter, r *http.Request) {
	teacherID := identity.TeacherIDFromContext(r.Context())
	events, err := h.repo.ListCalendarEvents(r.Context(), teacherID)
	if err != nil {
		h.logger.Error("Failed to list calendar events", "teacher_id", teacherID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list calendar events")
		return
	}
	if events == nil {
		events = []domain.CalendarEvent{}
	}
	JSON(w, http.StatusOK, events)
}

// CreateCalendarEvent handles POST /api/teacher/{teacherID}/calendar.
func (h *Handler) CreateCalendarEvent(w http.ResponseWriter, r *http.Request) {
	teacherID := identity.TeacherIDFromContext(r.Context())

	var req calendarEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Date = strings.TrimSpace(req.Date)
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	event := &domain.CalendarEvent{
		TeacherID:   teacherID,
		Title:       req.Title,
		Date:        req.Date,
		Description: strings.TrimSpace(req.Description),
		Subject:     strings.TrimSpace(req.Subject),
	}
	if err := h.repo.CreateCalendarEvent(r.Context(), event); err != nil {
		h.logger.Error("Failed to create calendar event", "teacher_id", teacherID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create calendar event")
		return
	}
	JSON(w, http.StatusCreated, event)
}

// DeleteCalendarEvent handles DELETE /api/teacher/{teacherID}/calendar/{eventID}.
func (h *Handler) DeleteCalendarEvent(w http.ResponseWriter, r *http.Request) {
	teacherID := identity.TeacherIDFromContext(r.Context())
	eventID, ok := parseID(w, chi.URLParam(r, "eventID"), "event")
	if !ok {
		return
	}

	err := h.repo.DeleteCalendarEvent(r.Context(), teacherID, eventID)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete calendar event", "teacher_id", teacherID, "event_id", eventID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete calendar event")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/identity"
	"github.com/ashureev/tutorly/internal/store"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	statusRule     = validation.In(domain.StatusPending, domain.StatusInProgress, domain.StatusCompleted, domain.StatusOverdue)
	difficultyRule = validation.In(domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard)
	dateRule       = validation.Date(domain.DateLayout)
	scoreRules     = []validation.Rule{validation.Min(0), validation.Max(100)}
)

// assignmentRequest is the body for creating an assignment.
type assignmentRequest struct {
	TeacherID  string `json:"teacherId,omitempty"`
	StudentID  string `json:"studentId,omitempty"`
	Title      string `json:"title"`
	Subject    string `json:"subject"`
	Due        string `json:"due"`
	Status     string `json:"status"`
	Difficulty string `json:"difficulty"`
	Score      *int   `json:"score"`
}

func (req *assignmentRequest) normalize() {
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Title = strings.TrimSpace(req.Title)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Due = strings.TrimSpace(req.Due)
}

func (req *assignmentRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&req.Subject, validation.Required, validation.RuneLength(1, 50)),
		validation.Field(&req.Due, validation.Required, dateRule),
		validation.Field(&req.Status, statusRule),
		validation.Field(&req.Difficulty, difficultyRule),
		validation.Field(&req.Score, scoreRules...),
	)
}

func (req *assignmentRequest) assignment(studentID string) *domain.Assignment {
	return &domain.Assignment{
		StudentID:  studentID,
		Title:      req.Title,
		Subject:    req.Subject,
		DueDate:    req.Due,
		Status:     req.Status,
		Difficulty: req.Difficulty,
		Score:      req.Score,
	}
}

// assignmentPatchRequest is the body for a partial assignment update.
type assignmentPatchRequest struct {
	Title      *string `json:"title"`
	Subject    *string `json:"subject"`
	DueDate    *string `json:"due_date"`
	Status     *string `json:"status"`
	Difficulty *string `json:"difficulty"`
	Score      *int    `json:"score"`
}

func (req *assignmentPatchRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.RuneLength(1, 200)),
		validation.Field(&req.Subject, validation.NilOrNotEmpty, validation.RuneLength(1, 50)),
		validation.Field(&req.DueDate, validation.NilOrNotEmpty, dateRule),
		validation.Field(&req.Status, validation.NilOrNotEmpty, statusRule),
		validation.Field(&req.Difficulty, validation.NilOrNotEmpty, difficultyRule),
		validation.Field(&req.Score, scoreRules...),
	)
}

func (req *assignmentPatchRequest) patch() domain.AssignmentPatch {
	return domain.AssignmentPatch{
		Title:      req.Title,
		Subject:    req.Subject,
		DueDate:    req.DueDate,
		Status:     req.Status,
		Difficulty: req.Difficulty,
		Score:      req.Score,
	}
}

// ListAssignments handles GET /api/assignments/{studentID}.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	assignments, err := h.repo.ListAssignments(r.Context(), studentID)
	if err != nil {
		h.logger.Error("Failed to list assignments", "student_id", studentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []domain.Assignment{}
	}
	JSON(w, http.StatusOK, assignments)
}

// CreateAssignment handles POST /api/assignments/{studentID}.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.createAssignment(w, r, req.assignment(identity.StudentIDFromContext(r.Context())))
}

// TeacherCreateAssignment handles POST /api/teacher/assignments.
func (h *Handler) TeacherCreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.normalize()
	err := validation.Errors{
		"teacherId": validation.Validate(req.TeacherID, validation.Required, idRule),
		"studentId": validation.Validate(req.StudentID, validation.Required, idRule),
		"request":   req.Validate(),
	}.Filter()
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Info("Teacher assigned homework", "teacher_id", req.TeacherID, "student_id", req.StudentID)
	h.createAssignment(w, r, req.assignment(req.StudentID))
}

func (h *Handler) createAssignment(w http.ResponseWriter, r *http.Request, a *domain.Assignment) {
	if err := h.repo.CreateAssignment(r.Context(), a); err != nil {
		h.logger.Error("Failed to create assignment", "student_id", a.StudentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create assignment")
		return
	}
	JSON(w, http.StatusCreated, a)
}

// UpdateAssignment handles PUT /api/assignments/{id}.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "assignment")
	if !ok {
		return
	}

	var req assignmentPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	patch := req.patch()
	if patch.IsEmpty() {
		Error(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.repo.UpdateAssignment(r.Context(), id, patch)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "assignment not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to update assignment", "assignment_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to update assignment")
		return
	}
	JSON(w, http.StatusOK, updated)
}

// DeleteAssignment handles DELETE /api/assignments/{id}.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"), "assignment")
	if !ok {
		return
	}

	err := h.repo.DeleteAssignment(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		Error(w, http.StatusNotFound, "assignment not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete assignment", "assignment_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to delete assignment")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Assignment deleted successfully"})
}

// parseID parses a positive integer path parameter, writing a 400 when it
// is malformed.
func parseID(w http.ResponseWriter, raw, what string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

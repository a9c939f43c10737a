package api

import (
	"net/http"
	"strings"

	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/identity"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type loginRequest struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

type teacherLoginRequest struct {
	Name      string `json:"name"`
	TeacherID string `json:"teacherId"`
}

var idRule = validation.By(func(value interface{}) error {
	id, _ := value.(string)
	if id != "" && !identity.IsValidID(id) {
		return validation.NewError("validation_invalid_id", "must contain only letters, digits, '.', '_', '@' or '-'")
	}
	return nil
})

// Login handles POST /api/auth/login. A student's first login seeds sample
// assignments and performance history.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.Name == "" || req.StudentID == "" {
		Error(w, http.StatusBadRequest, "name and student ID are required")
		return
	}
	if err := validation.Validate(req.StudentID, idRule); err != nil {
		Error(w, http.StatusBadRequest, "studentId: "+err.Error())
		return
	}

	ctx := r.Context()
	if err := h.repo.UpsertStudent(ctx, &domain.Student{StudentID: req.StudentID, Name: req.Name}); err != nil {
		h.logger.Error("Failed to upsert student", "student_id", req.StudentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if h.cfg.SeedSampleData {
		if err := h.seedStudent(ctx, req.StudentID); err != nil {
			h.logger.Warn("Failed to seed sample data", "student_id", req.StudentID, "error", err)
		}
	}

	h.logger.Info("Student logged in", "student_id", req.StudentID)
	JSON(w, http.StatusOK, map[string]string{
		"studentId": req.StudentID,
		"name":      req.Name,
		"message":   "Login successful",
	})
}

// TeacherLogin handles POST /api/auth/teacher/login.
func (h *Handler) TeacherLogin(w http.ResponseWriter, r *http.Request) {
	var req teacherLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if req.Name == "" || req.TeacherID == "" {
		Error(w, http.StatusBadRequest, "name and teacher ID are required")
		return
	}
	if err := validation.Validate(req.TeacherID, idRule); err != nil {
		Error(w, http.StatusBadRequest, "teacherId: "+err.Error())
		return
	}

	if err := h.repo.UpsertTeacher(r.Context(), &domain.Teacher{TeacherID: req.TeacherID, Name: req.Name}); err != nil {
		h.logger.Error("Failed to upsert teacher", "teacher_id", req.TeacherID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.logger.Info("Teacher logged in", "teacher_id", req.TeacherID)
	JSON(w, http.StatusOK, map[string]string{
		"teacherId": req.TeacherID,
		"name":      req.Name,
		"message":   "Teacher login successful",
	})
}

type studentSummary struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// ListStudents handles GET /api/teacher/students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.repo.ListStudents(r.Context())
	if err != nil {
		h.logger.Error("Failed to list students", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	out := make([]studentSummary, 0, len(students))
	for _, s := range students {
		out = append(out, studentSummary{StudentID: s.StudentID, Name: s.Name})
	}
	JSON(w, http.StatusOK, out)
}

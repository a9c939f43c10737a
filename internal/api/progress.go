package api

import (
	"net/http"

	"github.com/ashureev/tutorly/internal/identity"
)

type scorePoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// GetProgress handles GET /api/progress/{studentID}.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	progress, err := h.repo.GetProgress(r.Context(), studentID)
	if err != nil {
		h.logger.Error("Failed to compute progress", "student_id", studentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}
	JSON(w, http.StatusOK, progress)
}

// GetPerformance handles GET /api/performance/{studentID}, grouping the
// score series by subject.
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	studentID := identity.StudentIDFromContext(r.Context())
	entries, err := h.repo.ListPerformance(r.Context(), studentID)
	if err != nil {
		h.logger.Error("Failed to list performance", "student_id", studentID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list performance")
		return
	}

	bySubject := make(map[string][]scorePoint)
	for _, e := range entries {
		bySubject[e.Subject] = append(bySubject[e.Subject], scorePoint{Date: e.Date, Score: e.Score})
	}
	JSON(w, http.StatusOK, bySubject)
}

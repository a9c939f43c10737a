package api

import (
	"context"
	"fmt"

	"github.com/ashureev/tutorly/internal/domain"
)

type sampleAssignment struct {
	title      string
	subject    string
	difficulty string
}

var sampleAssignments = []sampleAssignment{
	{"Algebra: Quadratic Equations", "Math", domain.DifficultyMedium},
	{"Photosynthesis Lab Report", "Science", domain.DifficultyMedium},
	{"Geometry: Triangles Worksheet", "Math", domain.DifficultyEasy},
	{"Poetry Analysis: Frost", "English", domain.DifficultyMedium},
	{"Chemistry: Balancing Equations", "Science", domain.DifficultyHard},
	{"Essay Draft: Civil War Causes", "History", domain.DifficultyMedium},
	{"Statistics: Probability Set", "Math", domain.DifficultyMedium},
	{"Reading Log: Chapter 5-6", "English", domain.DifficultyEasy},
	{"Physics: Forces Worksheet", "Science", domain.DifficultyMedium},
	{"World History Timeline", "History", domain.DifficultyEasy},
}

// sampleBaseScores is the mean seeded score per subject.
var sampleBaseScores = []struct {
	subject string
	base    int
}{
	{"Math", 78},
	{"Science", 82},
	{"English", 85},
	{"History", 80},
}

const (
	sampleScoresPerSubject = 10
	sampleHistoryDays      = 60
	sampleScoreVariance    = 15
)

// seedStudent adds sample assignments and performance scores to a student
// that has none of either.
func (h *Handler) seedStudent(ctx context.Context, studentID string) error {
	today := h.now()

	existing, err := h.repo.ListAssignments(ctx, studentID)
	if err != nil {
		return fmt.Errorf("count assignments: %w", err)
	}
	if len(existing) == 0 {
		for i, sample := range sampleAssignments {
			a := &domain.Assignment{
				StudentID:  studentID,
				Title:      sample.title,
				Subject:    sample.subject,
				DueDate:    today.AddDate(0, 0, (i*3)%30).Format(domain.DateLayout),
				Status:     domain.StatusPending,
				Difficulty: sample.difficulty,
			}
			if err := h.repo.CreateAssignment(ctx, a); err != nil {
				return fmt.Errorf("seed assignment: %w", err)
			}
		}
	}

	scores, err := h.repo.ListPerformance(ctx, studentID)
	if err != nil {
		return fmt.Errorf("count performance: %w", err)
	}
	if len(scores) > 0 {
		return nil
	}

	entries := make([]domain.PerformanceEntry, 0, len(sampleBaseScores)*sampleScoresPerSubject)
	for _, s := range sampleBaseScores {
		for range sampleScoresPerSubject {
			offset := h.intN(sampleHistoryDays + 1)
			variance := h.intN(2*sampleScoreVariance+1) - sampleScoreVariance
			entries = append(entries, domain.PerformanceEntry{
				StudentID: studentID,
				Subject:   s.subject,
				Date:      today.AddDate(0, 0, -offset).Format(domain.DateLayout),
				Score:     min(100, max(50, s.base+variance)),
			})
		}
	}
	if err := h.repo.AddPerformance(ctx, entries); err != nil {
		return fmt.Errorf("seed performance: %w", err)
	}
	return nil
}

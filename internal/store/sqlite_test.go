package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/tutorly/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "tutorly.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestStudentUpsertAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetStudent(ctx, "s-1")
	if err != nil || got != nil {
		t.Fatalf("GetStudent on empty store = %v, %v", got, err)
	}

	for _, st := range []domain.Student{{StudentID: "s-1", Name: "Zoe"}, {StudentID: "s-2", Name: "Adam"}} {
		if err := s.UpsertStudent(ctx, &st); err != nil {
			t.Fatalf("UpsertStudent failed: %v", err)
		}
	}
	if err := s.UpsertStudent(ctx, &domain.Student{StudentID: "s-1", Name: "Zoe R."}); err != nil {
		t.Fatalf("UpsertStudent rename failed: %v", err)
	}

	students, err := s.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents failed: %v", err)
	}
	if len(students) != 2 || students[0].Name != "Adam" || students[1].Name != "Zoe R." {
		t.Fatalf("students = %+v", students)
	}
}

func TestTeacherUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.UpsertTeacher(ctx, &domain.Teacher{TeacherID: "t-1", Name: "Ms. Frizzle"}); err != nil {
		t.Fatalf("UpsertTeacher failed: %v", err)
	}
	got, err := s.GetTeacher(ctx, "t-1")
	if err != nil || got == nil || got.Name != "Ms. Frizzle" {
		t.Fatalf("GetTeacher = %+v, %v", got, err)
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	early := &domain.Assignment{StudentID: "s-1", Title: "Fractions", Subject: "Math", DueDate: "2026-01-10"}
	late := &domain.Assignment{StudentID: "s-1", Title: "Essay", Subject: "English", DueDate: "2026-02-01", Score: intPtr(90)}
	for _, a := range []*domain.Assignment{early, late} {
		if err := s.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment failed: %v", err)
		}
	}
	if early.ID == 0 || early.Status != domain.StatusPending || early.Difficulty != domain.DifficultyMedium {
		t.Fatalf("defaults not applied: %+v", early)
	}

	list, err := s.ListAssignments(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListAssignments failed: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Essay" || list[0].Score == nil || *list[0].Score != 90 {
		t.Fatalf("list = %+v", list)
	}

	updated, err := s.UpdateAssignment(ctx, early.ID, domain.AssignmentPatch{
		Status: strPtr(domain.StatusCompleted),
		Score:  intPtr(75),
	})
	if err != nil {
		t.Fatalf("UpdateAssignment failed: %v", err)
	}
	if updated.Status != domain.StatusCompleted || *updated.Score != 75 || updated.Title != "Fractions" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := s.UpdateAssignment(ctx, 9999, domain.AssignmentPatch{Title: strPtr("x")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteAssignment(ctx, early.ID); err != nil {
		t.Fatalf("DeleteAssignment failed: %v", err)
	}
	if err := s.DeleteAssignment(ctx, early.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTurnsOrderingAndWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var turns []*domain.Turn
	for i := 0; i < 12; i++ {
		sender := domain.SenderUser
		if i%2 == 1 {
			sender = domain.SenderAI
		}
		turns = append(turns, &domain.Turn{
			StudentID: "s-1",
			Sender:    sender,
			Text:      string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}
	// Insert in reverse to prove ordering comes from timestamps.
	for i := len(turns) - 1; i >= 0; i-- {
		if err := s.AppendTurns(ctx, turns[i]); err != nil {
			t.Fatalf("AppendTurns failed: %v", err)
		}
	}
	if err := s.AppendTurns(ctx, &domain.Turn{StudentID: "s-2", Sender: domain.SenderUser, Text: "other"}); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	all, err := s.ListTurns(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(all) != 12 || all[0].Text != "a" || all[11].Text != "l" {
		t.Fatalf("all turns out of order: %+v", all)
	}

	recent, err := s.RecentTurns(ctx, "s-1", 10)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(recent) != 10 || recent[0].Text != "c" || recent[9].Text != "l" {
		t.Fatalf("recent window wrong: first=%q last=%q len=%d", recent[0].Text, recent[len(recent)-1].Text, len(recent))
	}

	removed, err := s.ClearTurns(ctx, "s-1")
	if err != nil || removed != 12 {
		t.Fatalf("ClearTurns = %d, %v", removed, err)
	}
	other, _ := s.ListTurns(ctx, "s-2")
	if len(other) != 1 {
		t.Fatalf("clearing s-1 touched s-2: %+v", other)
	}
}

func TestAppendTurnsSetsIDsAndSubject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	user := &domain.Turn{StudentID: "s-1", Sender: domain.SenderUser, Text: "Solve 2x=4", Subject: "Math"}
	ai := &domain.Turn{StudentID: "s-1", Sender: domain.SenderAI, Text: "What is x alone?"}
	if err := s.AppendTurns(ctx, user, ai); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}
	if user.ID == 0 || ai.ID == 0 || user.ID == ai.ID {
		t.Fatalf("ids not assigned: %d %d", user.ID, ai.ID)
	}

	turns, err := s.ListTurns(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if turns[0].Subject != "Math" || turns[1].Subject != "" {
		t.Fatalf("subjects = %q, %q", turns[0].Subject, turns[1].Subject)
	}
}

func TestCalendarEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for _, e := range []*domain.CalendarEvent{
		{TeacherID: "t-1", Title: "Quiz", Date: "2026-05-02"},
		{TeacherID: "t-1", Title: "Field trip", Date: "2026-04-20", Subject: "Science"},
		{TeacherID: "t-2", Title: "Other", Date: "2026-04-01"},
	} {
		if err := s.CreateCalendarEvent(ctx, e); err != nil {
			t.Fatalf("CreateCalendarEvent failed: %v", err)
		}
	}

	events, err := s.ListCalendarEvents(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListCalendarEvents failed: %v", err)
	}
	if len(events) != 2 || events[0].Title != "Field trip" {
		t.Fatalf("events = %+v", events)
	}

	if err := s.DeleteCalendarEvent(ctx, "t-2", events[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-teacher delete err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCalendarEvent(ctx, "t-1", events[0].ID); err != nil {
		t.Fatalf("DeleteCalendarEvent failed: %v", err)
	}
}

func TestProgressAndPerformance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	for _, a := range []*domain.Assignment{
		{StudentID: "s-1", Title: "A", Subject: "Math", DueDate: "2026-01-01", Status: domain.StatusCompleted, Score: intPtr(80)},
		{StudentID: "s-1", Title: "B", Subject: "Math", DueDate: "2026-01-02", Status: domain.StatusCompleted, Score: intPtr(90)},
		{StudentID: "s-1", Title: "C", Subject: "History", DueDate: "2026-01-03"},
	} {
		if err := s.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment failed: %v", err)
		}
	}
	if err := s.AppendTurns(ctx,
		&domain.Turn{StudentID: "s-1", Sender: domain.SenderUser, Text: "q1", Subject: "Math"},
		&domain.Turn{StudentID: "s-1", Sender: domain.SenderAI, Text: "r1"},
		&domain.Turn{StudentID: "s-1", Sender: domain.SenderUser, Text: "q2", Subject: "Math"},
		&domain.Turn{StudentID: "s-1", Sender: domain.SenderUser, Text: "q3", Subject: "Science"},
	); err != nil {
		t.Fatalf("AppendTurns failed: %v", err)
	}

	progress, err := s.GetProgress(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if len(progress.AssignmentStats) != 2 {
		t.Fatalf("assignment stats = %+v", progress.AssignmentStats)
	}
	if len(progress.SubjectPerformance) != 1 || progress.SubjectPerformance[0].AvgScore != 85 ||
		progress.SubjectPerformance[0].TotalAssignments != 2 {
		t.Fatalf("subject performance = %+v", progress.SubjectPerformance)
	}
	if progress.ChatActivity != 4 {
		t.Fatalf("chat activity = %d, want 4", progress.ChatActivity)
	}
	if len(progress.ChatSubjects) != 2 || progress.ChatSubjects[0].Subject != "Math" || progress.ChatSubjects[0].Count != 2 {
		t.Fatalf("chat subjects = %+v", progress.ChatSubjects)
	}

	if err := s.AddPerformance(ctx, []domain.PerformanceEntry{
		{StudentID: "s-1", Subject: "Math", Date: "2026-01-05", Score: 70},
		{StudentID: "s-1", Subject: "Math", Date: "2026-01-01", Score: 60},
	}); err != nil {
		t.Fatalf("AddPerformance failed: %v", err)
	}
	entries, err := s.ListPerformance(ctx, "s-1")
	if err != nil {
		t.Fatalf("ListPerformance failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Date != "2026-01-01" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestEmptyProgress(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	progress, err := s.GetProgress(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if progress.AssignmentStats == nil || progress.SubjectPerformance == nil || progress.ChatSubjects == nil {
		t.Fatal("empty progress should use empty slices for JSON arrays")
	}
}

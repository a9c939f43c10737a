//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/tutorly/internal/config"
	"github.com/ashureev/tutorly/internal/domain"
	"github.com/ashureev/tutorly/internal/store"
	"github.com/go-chi/chi/v5"
)

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *store.SQLiteStore {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "tutorly.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newTestServer(t *testing.T, repo store.Repository, cfg *config.Config) (*Handler, chi.Router) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{MaxMessageLength: 100, SeedSampleData: true}
	}
	h := NewHandler(repo, cfg)
	h.now = func() time.Time { return fixedNow }
	h.intN = func(n int) int { return n - 1 }

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusNotFound, "assignment not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	got := decode[map[string]string](t, w)
	if got["error"] != "assignment not found" {
		t.Fatalf("error = %q", got["error"])
	}
}

func TestLoginSeedsSampleData(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	_, r := newTestServer(t, repo, nil)

	rec := do(t, r, http.MethodPost, "/api/auth/login", `{"name":"Alice","studentId":"s-100"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[map[string]string](t, rec)
	if got["studentId"] != "s-100" || got["name"] != "Alice" {
		t.Fatalf("login response = %v", got)
	}

	ctx := context.Background()
	assignments, err := repo.ListAssignments(ctx, "s-100")
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(assignments) != len(sampleAssignments) {
		t.Fatalf("seeded %d assignments, want %d", len(assignments), len(sampleAssignments))
	}
	latest := fixedNow.AddDate(0, 0, 27).Format(domain.DateLayout)
	if assignments[0].DueDate != latest {
		t.Fatalf("latest due date = %s, want %s", assignments[0].DueDate, latest)
	}

	scores, err := repo.ListPerformance(ctx, "s-100")
	if err != nil {
		t.Fatalf("list performance: %v", err)
	}
	if len(scores) != 40 {
		t.Fatalf("seeded %d scores, want 40", len(scores))
	}
	oldest := fixedNow.AddDate(0, 0, -60).Format(domain.DateLayout)
	for _, s := range scores {
		if s.Score < 50 || s.Score > 100 {
			t.Fatalf("score %d out of range", s.Score)
		}
		if s.Date != oldest {
			t.Fatalf("score date = %s, want %s", s.Date, oldest)
		}
		if s.Subject == "English" && s.Score != 100 {
			t.Fatalf("English score = %d, want clamp to 100", s.Score)
		}
	}

	// A second login renames the student without reseeding.
	if rec := do(t, r, http.MethodPost, "/api/auth/login", `{"name":"Alice B","studentId":"s-100"}`); rec.Code != http.StatusOK {
		t.Fatalf("second login status = %d", rec.Code)
	}
	assignments, _ = repo.ListAssignments(ctx, "s-100")
	if len(assignments) != len(sampleAssignments) {
		t.Fatalf("reseeded: %d assignments", len(assignments))
	}
	student, _ := repo.GetStudent(ctx, "s-100")
	if student == nil || student.Name != "Alice B" {
		t.Fatalf("student = %+v", student)
	}
}

func TestLoginWithoutSeeding(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	_, r := newTestServer(t, repo, &config.Config{MaxMessageLength: 100})

	if rec := do(t, r, http.MethodPost, "/api/auth/login", `{"name":"Bo","studentId":"bo"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	assignments, _ := repo.ListAssignments(context.Background(), "bo")
	if len(assignments) != 0 {
		t.Fatalf("expected no seeded assignments, got %d", len(assignments))
	}
}

func TestLoginValidation(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), nil)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing name", "/api/auth/login", `{"studentId":"s1"}`},
		{"missing id", "/api/auth/login", `{"name":"Alice"}`},
		{"invalid id", "/api/auth/login", `{"name":"Alice","studentId":"a b/c"}`},
		{"malformed", "/api/auth/login", `{"name":`},
		{"teacher missing id", "/api/auth/teacher/login", `{"name":"Ms. T"}`},
		{"teacher invalid id", "/api/auth/teacher/login", `{"name":"Ms. T","teacherId":"t?1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, r, http.MethodPost, tt.path, tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTeacherRoster(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), &config.Config{MaxMessageLength: 100})

	rec := do(t, r, http.MethodPost, "/api/auth/teacher/login", `{"name":"Ms. Rivera","teacherId":"t-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("teacher login status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["teacherId"] != "t-1" {
		t.Fatalf("teacher login = %v", got)
	}

	for _, body := range []string{
		`{"name":"Zed","studentId":"z"}`,
		`{"name":"Amy","studentId":"a"}`,
	} {
		if rec := do(t, r, http.MethodPost, "/api/auth/login", body); rec.Code != http.StatusOK {
			t.Fatalf("login status = %d", rec.Code)
		}
	}

	rec = do(t, r, http.MethodGet, "/api/teacher/students", "")
	students := decode[[]studentSummary](t, rec)
	if len(students) != 2 || students[0].Name != "Amy" || students[1].StudentID != "z" {
		t.Fatalf("students = %+v", students)
	}

	rec = do(t, r, http.MethodPost, "/api/teacher/assignments",
		`{"teacherId":"t-1","studentId":"a","title":"Lab write-up","subject":"Science","due":"2025-04-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("teacher assignment status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.Assignment](t, rec)
	if created.StudentID != "a" || created.Status != domain.StatusPending {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, r, http.MethodPost, "/api/teacher/assignments",
		`{"studentId":"a","title":"Lab write-up","subject":"Science","due":"2025-04-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing teacher status = %d, want 400", rec.Code)
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), nil)

	rec := do(t, r, http.MethodPost, "/api/assignments/s1",
		`{"title":"Essay","subject":"English","due":"2025-03-20"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decode[domain.Assignment](t, rec)
	if created.ID == 0 || created.Status != domain.StatusPending || created.Difficulty != domain.DifficultyMedium || created.Score != nil {
		t.Fatalf("created = %+v", created)
	}

	do(t, r, http.MethodPost, "/api/assignments/s1",
		`{"title":"Quiz","subject":"Math","due":"2025-03-25","status":"Completed","difficulty":"Hard","score":88}`)

	rec = do(t, r, http.MethodGet, "/api/assignments/s1", "")
	list := decode[[]domain.Assignment](t, rec)
	if len(list) != 2 || list[0].Title != "Quiz" || *list[0].Score != 88 {
		t.Fatalf("list = %+v", list)
	}

	path := "/api/assignments/" + itoa(created.ID)
	rec = do(t, r, http.MethodPut, path, `{"status":"In Progress","score":70}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	updated := decode[domain.Assignment](t, rec)
	if updated.Status != domain.StatusInProgress || updated.Score == nil || *updated.Score != 70 || updated.Title != "Essay" {
		t.Fatalf("updated = %+v", updated)
	}

	if rec := do(t, r, http.MethodDelete, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, r, http.MethodPut, path, `{"title":"Gone"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing status = %d, want 404", rec.Code)
	}

	rec = do(t, r, http.MethodGet, "/api/assignments/nobody", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAssignmentValidation(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), nil)
	rec := do(t, r, http.MethodPost, "/api/assignments/s1", `{"title":"Essay","subject":"English","due":"2025-03-20"}`)
	path := "/api/assignments/" + itoa(decode[domain.Assignment](t, rec).ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"missing title", http.MethodPost, "/api/assignments/s1", `{"subject":"Math","due":"2025-03-20"}`},
		{"bad due date", http.MethodPost, "/api/assignments/s1", `{"title":"T","subject":"Math","due":"March 20"}`},
		{"bad status", http.MethodPost, "/api/assignments/s1", `{"title":"T","subject":"Math","due":"2025-03-20","status":"Done"}`},
		{"bad difficulty", http.MethodPost, "/api/assignments/s1", `{"title":"T","subject":"Math","due":"2025-03-20","difficulty":"Extreme"}`},
		{"score too high", http.MethodPost, "/api/assignments/s1", `{"title":"T","subject":"Math","due":"2025-03-20","score":101}`},
		{"negative score", http.MethodPut, path, `{"score":-1}`},
		{"empty patch", http.MethodPut, path, `{}`},
		{"blank title", http.MethodPut, path, `{"title":""}`},
		{"bad patch date", http.MethodPut, path, `{"due_date":"2025-13-01"}`},
		{"non-numeric id", http.MethodPut, "/api/assignments/abc", `{"title":"T"}`},
		{"non-numeric delete", http.MethodDelete, "/api/assignments/abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, r, tt.method, tt.path, tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestChatHistory(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), nil)

	rec := do(t, r, http.MethodPost, "/api/chat/s1", `{"sender":"user","text":"hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", rec.Code, rec.Body.String())
	}
	saved := decode[domain.Turn](t, rec)
	if saved.Sender != domain.SenderUser || saved.Text != "hello" || !saved.Timestamp.Equal(fixedNow) {
		t.Fatalf("saved = %+v", saved)
	}

	for _, body := range []string{
		`{"sender":"robot","text":"hi"}`,
		`{"sender":"ai","text":"   "}`,
		`{"sender":"ai","text":"` + strings.Repeat("x", 101) + `"}`,
	} {
		if rec := do(t, r, http.MethodPost, "/api/chat/s1", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}

	rec = do(t, r, http.MethodGet, "/api/chat/s1", "")
	turns := decode[[]domain.Turn](t, rec)
	if len(turns) != 1 || turns[0].Text != "hello" {
		t.Fatalf("turns = %+v", turns)
	}

	rec = do(t, r, http.MethodDelete, "/api/chat/s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["removed"] != float64(1) {
		t.Fatalf("clear response = %v", got)
	}

	rec = do(t, r, http.MethodGet, "/api/chat/s1", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("history after clear = %q", rec.Body.String())
	}
}

func TestCalendar(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), nil)

	rec := do(t, r, http.MethodPost, "/api/teacher/t1/calendar", `{"title":"Quiz day","date":"2025-04-02","subject":"Math"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	later := decode[domain.CalendarEvent](t, rec)
	do(t, r, http.MethodPost, "/api/teacher/t1/calendar", `{"title":"Parent night","date":"2025-03-15","description":"Gym"}`)

	if rec := do(t, r, http.MethodPost, "/api/teacher/t1/calendar", `{"title":"No date"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date status = %d, want 400", rec.Code)
	}

	rec = do(t, r, http.MethodGet, "/api/teacher/t1/calendar", "")
	events := decode[[]domain.CalendarEvent](t, rec)
	if len(events) != 2 || events[0].Title != "Parent night" || events[1].Subject != "Math" {
		t.Fatalf("events = %+v", events)
	}

	path := "/calendar/" + itoa(later.ID)
	if rec := do(t, r, http.MethodDelete, "/api/teacher/t2"+path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("other teacher delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, "/api/teacher/t1"+path, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, "/api/teacher/t1/calendar/x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad event id status = %d, want 400", rec.Code)
	}
}

func TestProgressAndPerformance(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	_, r := newTestServer(t, repo, nil)
	ctx := context.Background()

	score := 90
	for _, a := range []*domain.Assignment{
		{StudentID: "s1", Title: "A", Subject: "Math", DueDate: "2025-03-01", Status: domain.StatusCompleted, Score: &score},
		{StudentID: "s1", Title: "B", Subject: "Math", DueDate: "2025-03-02"},
	} {
		if err := repo.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}
	if err := repo.AddPerformance(ctx, []domain.PerformanceEntry{
		{StudentID: "s1", Subject: "Math", Date: "2025-03-01", Score: 80},
		{StudentID: "s1", Subject: "Math", Date: "2025-03-05", Score: 85},
		{StudentID: "s1", Subject: "History", Date: "2025-03-02", Score: 70},
	}); err != nil {
		t.Fatalf("add performance: %v", err)
	}
	if err := repo.AppendTurns(ctx,
		&domain.Turn{StudentID: "s1", Sender: domain.SenderUser, Text: "solve x", Subject: "Math", Timestamp: fixedNow},
		&domain.Turn{StudentID: "s1", Sender: domain.SenderAI, Text: "try it", Timestamp: fixedNow.Add(time.Millisecond)},
	); err != nil {
		t.Fatalf("append turns: %v", err)
	}

	rec := do(t, r, http.MethodGet, "/api/progress/s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status = %d", rec.Code)
	}
	progress := decode[domain.Progress](t, rec)
	if len(progress.AssignmentStats) != 2 || progress.ChatActivity != 2 {
		t.Fatalf("progress = %+v", progress)
	}
	if len(progress.ChatSubjects) != 1 || progress.ChatSubjects[0].Subject != "Math" {
		t.Fatalf("chat subjects = %+v", progress.ChatSubjects)
	}

	rec = do(t, r, http.MethodGet, "/api/performance/s1", "")
	perf := decode[map[string][]scorePoint](t, rec)
	if len(perf["Math"]) != 2 || perf["Math"][1].Score != 85 || len(perf["History"]) != 1 {
		t.Fatalf("performance = %+v", perf)
	}
}

type pingFailRepo struct {
	store.Repository
}

func (pingFailRepo) Ping(context.Context) error { return errors.New("database is closed") }

func TestHealth(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Gemini: config.GeminiConfig{APIKey: "k"}}
	_, r := newTestServer(t, newTestRepo(t), cfg)

	rec := do(t, r, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	if got["status"] != "healthy" || got["ai_enabled"] != true {
		t.Fatalf("health = %v", got)
	}

	_, r = newTestServer(t, pingFailRepo{}, &config.Config{})
	rec = do(t, r, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	got = decode[map[string]any](t, rec)
	if got["status"] != "unhealthy" || got["ai_enabled"] != false {
		t.Fatalf("health = %v", got)
	}
}

func TestGetConfig(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, newTestRepo(t), &config.Config{MaxMessageLength: 500, MaxUploadBytes: 1024})
	got := decode[map[string]any](t, do(t, r, http.MethodGet, "/api/config", ""))
	if got["ai_enabled"] != false || got["max_message_length"] != float64(500) || got["max_upload_bytes"] != float64(1024) {
		t.Fatalf("config = %v", got)
	}
}

type failingRepo struct {
	store.Repository
}

func (failingRepo) ListAssignments(context.Context, string) ([]domain.Assignment, error) {
	return nil, errors.New("disk I/O error")
}

func (failingRepo) ListTurns(context.Context, string) ([]domain.Turn, error) {
	return nil, errors.New("disk I/O error")
}

func TestRepositoryFailuresReturn500(t *testing.T) {
	t.Parallel()

	_, r := newTestServer(t, failingRepo{}, nil)
	for _, path := range []string{"/api/assignments/s1", "/api/chat/s1"} {
		rec := do(t, r, http.MethodGet, path, "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s status = %d, want 500", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "disk") {
			t.Fatalf("%s leaked internal error: %s", path, rec.Body.String())
		}
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/tutorly/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// Ensure SQLiteStore implements Repository.
var _ Repository = (*SQLiteStore)(nil)

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS students (
		student_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teachers (
		teacher_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		title TEXT NOT NULL,
		subject TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		difficulty TEXT NOT NULL DEFAULT 'Medium',
		score INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_student ON assignments(student_id, due_date);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		sender TEXT NOT NULL CHECK (sender IN ('user', 'ai')),
		text TEXT NOT NULL,
		subject TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_student ON chat_messages(student_id, created_at, id);

	CREATE TABLE IF NOT EXISTS subject_performance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		date TEXT NOT NULL,
		score INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_subject_performance_student ON subject_performance(student_id, subject, date);

	CREATE TABLE IF NOT EXISTS calendar_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		teacher_id TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calendar_events_teacher ON calendar_events(teacher_id, date);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetStudent retrieves a student by ID.
func (s *SQLiteStore) GetStudent(ctx context.Context, studentID string) (*domain.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT student_id, name, created_at FROM students WHERE student_id = ?`, studentID)

	var student domain.Student
	var createdAt int64
	err := row.Scan(&student.StudentID, &student.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan student row: %w", err)
	}
	student.CreatedAt = time.Unix(createdAt, 0)
	return &student, nil
}

// UpsertStudent creates or renames a student.
func (s *SQLiteStore) UpsertStudent(ctx context.Context, student *domain.Student) error {
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO students (student_id, name, created_at) VALUES (?, ?, ?)
	ON CONFLICT(student_id) DO UPDATE SET name = excluded.name`

	if _, err := s.db.ExecContext(ctx, query, student.StudentID, student.Name, student.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}
	return nil
}

// ListStudents returns all students ordered by name.
func (s *SQLiteStore) ListStudents(ctx context.Context) ([]domain.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id, name, created_at FROM students ORDER BY name, student_id`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer closeRows(rows, "students")

	students := []domain.Student{}
	for rows.Next() {
		var student domain.Student
		var createdAt int64
		if err := rows.Scan(&student.StudentID, &student.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan student row: %w", err)
		}
		student.CreatedAt = time.Unix(createdAt, 0)
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// GetTeacher retrieves a teacher by ID.
func (s *SQLiteStore) GetTeacher(ctx context.Context, teacherID string) (*domain.Teacher, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT teacher_id, name, created_at FROM teachers WHERE teacher_id = ?`, teacherID)

	var teacher domain.Teacher
	var createdAt int64
	err := row.Scan(&teacher.TeacherID, &teacher.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan teacher row: %w", err)
	}
	teacher.CreatedAt = time.Unix(createdAt, 0)
	return &teacher, nil
}

// UpsertTeacher creates or renames a teacher.
func (s *SQLiteStore) UpsertTeacher(ctx context.Context, teacher *domain.Teacher) error {
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO teachers (teacher_id, name, created_at) VALUES (?, ?, ?)
	ON CONFLICT(teacher_id) DO UPDATE SET name = excluded.name`

	if _, err := s.db.ExecContext(ctx, query, teacher.TeacherID, teacher.Name, teacher.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("upsert teacher: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

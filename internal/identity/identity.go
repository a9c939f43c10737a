// Package identity resolves the student or teacher a request acts for.
// IDs travel in the URL path; the session header only scopes
// conversation logs.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	SessionHeaderName     = "X-Tutorly-Session-ID"
	DefaultSessionIDValue = "default"
)

type contextKey int

const (
	studentIDKey contextKey = iota
	teacherIDKey
	sessionIDKey
)

var (
	userIDPattern    = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// StudentIDFromContext extracts the student ID from the request context.
func StudentIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(studentIDKey).(string); ok {
		return v
	}
	return ""
}

// TeacherIDFromContext extracts the teacher ID from the request context.
func TeacherIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(teacherIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithStudentID returns a copy of ctx carrying studentID.
func WithStudentID(ctx context.Context, studentID string) context.Context {
	return context.WithValue(ctx, studentIDKey, studentID)
}

// WithTeacherID returns a copy of ctx carrying teacherID.
func WithTeacherID(ctx context.Context, teacherID string) context.Context {
	return context.WithValue(ctx, teacherIDKey, teacherID)
}

// IsValidID reports whether id is an acceptable student or teacher ID.
func IsValidID(id string) bool {
	return userIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// StudentParam validates the chi URL parameter name as a student ID and
// stores it, with the request's session ID, in the context.
func StudentParam(name string) func(http.Handler) http.Handler {
	return paramMiddleware(name, "student", WithStudentID)
}

// TeacherParam is StudentParam for teacher IDs.
func TeacherParam(name string) func(http.Handler) http.Handler {
	return paramMiddleware(name, "teacher", WithTeacherID)
}

func paramMiddleware(name, role string, with func(context.Context, string) context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(chi.URLParam(r, name))
			if !IsValidID(id) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid ` + role + ` id"}`))
				return
			}

			ctx := with(r.Context(), id)
			ctx = context.WithValue(ctx, sessionIDKey, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

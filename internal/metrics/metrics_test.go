package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveReply(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveReply("Math", "fallback", "timeout")
	m.ObserveReply("Math", "fallback", "timeout")
	m.ObserveReply("Science", "ai", "none")

	if got := testutil.ToFloat64(m.RepliesTotal.WithLabelValues("Math", "fallback", "timeout")); got != 2 {
		t.Fatalf("math fallback replies = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RepliesTotal.WithLabelValues("Science", "ai", "none")); got != 1 {
		t.Fatalf("science ai replies = %v, want 1", got)
	}
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	t.Parallel()

	a, b := New(), New()
	a.ObserveRateLimited()
	if got := testutil.ToFloat64(b.RateLimitedTotal); got != 0 {
		t.Fatalf("second instance saw %v rate-limited requests", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveGeneration("success", 120*time.Millisecond)
	m.RecordHTTPRequest("GET", "/api/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`tutorly_gemini_requests_total{outcome="success"} 1`,
		`tutorly_http_requests_total{method="GET",route="/api/health",status="200"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ReminderFired(nil)
	m.ReminderFired(errors.New("x"))
	m.ReminderFired(nil)
	m.AIRequest("chat", "200")
	m.AIRequest("", "500")
	m.StreamDeltas(3)
	m.StreamDeltas(-1)

	if got := testutil.ToFloat64(m.remindersFired.WithLabelValues("ok")); got != 2 {
		t.Fatalf("reminders ok=%v", got)
	}
	if got := testutil.ToFloat64(m.aiRequests.WithLabelValues("unknown", "500")); got != 1 {
		t.Fatalf("unknown/500=%v", got)
	}
	if got := testutil.ToFloat64(m.streamDeltas); got != 3 {
		t.Fatalf("deltas=%v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AIRequest("summary", "200")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `kmares_ai_requests_total{status="200",type="summary"} 1`) {
		t.Fatalf("metrics output:\n%s", body)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ReminderFired(nil)
	m.AIRequest("chat", "200")
	m.StreamDeltas(1)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("code=%d", rec.Code)
	}
}

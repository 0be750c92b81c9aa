package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// runCmd executes the root command against an isolated data dir.
func runCmd(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KMARES_DOTENV", "0")
	t.Setenv("KMARES_DATA_DIR", dataDir)
	cmd := newRootCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTimetableCmd(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, dir, "timetable", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No timetable entries.") {
		t.Fatalf("unexpected empty list output: %s", out)
	}

	if _, err := runCmd(t, dir, "timetable", "add", "thứ 3", "tối", "Vật lý", "--note", "P.301"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err = runCmd(t, dir, "timetable", "add", "T2", "Sáng", "Giải tích")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Thứ 2 Sáng Giải tích") {
		t.Fatalf("expected canonical labels, got: %s", out)
	}
	id := strings.TrimSuffix(strings.Fields(out)[1], ":")

	out, err = runCmd(t, dir, "timetable", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	first := strings.Index(out, "Giải tích")
	second := strings.Index(out, "Vật lý")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("expected Monday before Tuesday, got:\n%s", out)
	}

	if _, err := runCmd(t, dir, "timetable", "remove", id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := runCmd(t, dir, "timetable", "remove", id); err == nil {
		t.Fatalf("expected error removing %s twice", id)
	}
}

func TestTimetableAdd_InvalidDay(t *testing.T) {
	_, err := runCmd(t, t.TempDir(), "timetable", "add", "Thứ 9", "Sáng", "Toán")
	if err == nil || !strings.Contains(err.Error(), "unknown weekday") {
		t.Fatalf("expected unknown weekday error, got %v", err)
	}
}

func TestSettingsCmd(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, dir, "settings", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if strings.TrimSpace(out) != "enabled=false minutes_before=15" {
		t.Fatalf("unexpected defaults: %q", out)
	}

	if _, err := runCmd(t, dir, "settings", "set", "--enabled", "--minutes", "30"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err = runCmd(t, dir, "settings", "set", "--minutes", "5")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if strings.TrimSpace(out) != "enabled=true minutes_before=5" {
		t.Fatalf("partial update lost a field: %q", out)
	}

	if _, err := runCmd(t, dir, "settings", "set", "--minutes", "0"); err == nil {
		t.Fatalf("expected error for zero minutes")
	}
}

func TestChatCmd_StreamsToStdout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Chào \"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"bạn\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()
	t.Setenv("KMARES_PROXY_URL", srv.URL)

	out, err := runCmd(t, t.TempDir(), "chat", "xin", "chào")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "Chào bạn\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestChatCmd_ReportsStartFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"Đã vượt quá giới hạn yêu cầu, vui lòng thử lại sau."}`)
	}))
	defer srv.Close()
	t.Setenv("KMARES_PROXY_URL", srv.URL)

	_, err := runCmd(t, t.TempDir(), "chat", "hi")
	if err == nil || !strings.Contains(err.Error(), "giới hạn") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

package sse

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func deltaFrame(text string) string {
	b, _ := json.Marshal(text)
	return `data: {"id":"c1","choices":[{"index":0,"delta":{"content":` + string(b) + `}}]}` + "\n\n"
}

type recorder struct {
	events []string
	deltas []string
	errs   []error
	dones  int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnDelta: func(text string) {
			r.events = append(r.events, "delta")
			r.deltas = append(r.deltas, text)
		},
		OnDone: func() {
			r.events = append(r.events, "done")
			r.dones++
		},
		OnError: func(err error) {
			r.events = append(r.events, "error")
			r.errs = append(r.errs, err)
		},
	}
}

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func newChunkReader(chunks ...string) *chunkReader {
	r := &chunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	return n, nil
}

func consumeChunks(t *testing.T, chunks ...string) *recorder {
	t.Helper()
	rec := &recorder{}
	Consume(context.Background(), newChunkReader(chunks...), rec.handlers())
	return rec
}

func TestConsume_ChunkingInvariance(t *testing.T) {
	payload := ": keep-alive\n\n" +
		deltaFrame("Xin ") +
		deltaFrame("chào") +
		`data: {"choices":[{"delta":{}}]}` + "\n\n" +
		"event: ping\n" +
		deltaFrame(" bạn 👋") +
		"data: [DONE]\n\n"
	want := []string{"Xin ", "chào", " bạn 👋"}

	whole := consumeChunks(t, payload)
	if !reflect.DeepEqual(whole.deltas, want) {
		t.Fatalf("single chunk: got %q want %q", whole.deltas, want)
	}

	for i := 0; i <= len(payload); i++ {
		rec := consumeChunks(t, payload[:i], payload[i:])
		if !reflect.DeepEqual(rec.deltas, want) {
			t.Fatalf("split at %d: got %q want %q", i, rec.deltas, want)
		}
		if rec.dones != 1 {
			t.Fatalf("split at %d: expected one done, got %d", i, rec.dones)
		}
	}

	bytewise := make([]string, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		bytewise = append(bytewise, payload[i:i+1])
	}
	rec := consumeChunks(t, bytewise...)
	if !reflect.DeepEqual(rec.deltas, want) {
		t.Fatalf("byte-by-byte: got %q want %q", rec.deltas, want)
	}
}

func TestConsume_DoneExactlyOnceAndLast(t *testing.T) {
	inputs := map[string]string{
		"empty":            "",
		"garbage":          "not an event stream at all",
		"malformed json":   `data: {"choices":[{"delta":`,
		"no sentinel":      deltaFrame("a") + deltaFrame("b"),
		"sentinel":         deltaFrame("a") + "data: [DONE]\n",
		"trailing comment": deltaFrame("a") + ": bye",
	}
	for name, in := range inputs {
		rec := consumeChunks(t, in)
		if rec.dones != 1 {
			t.Fatalf("%s: expected one done, got %d", name, rec.dones)
		}
		if rec.events[len(rec.events)-1] != "done" {
			t.Fatalf("%s: done is not the last callback: %v", name, rec.events)
		}
		if len(rec.errs) != 0 {
			t.Fatalf("%s: unexpected errors: %v", name, rec.errs)
		}
	}
}

func TestConsume_SentinelStopsProcessingAndDrains(t *testing.T) {
	reader := newChunkReader(deltaFrame("a")+"data: [DONE]\n"+deltaFrame("b"), deltaFrame("c"))
	rec := &recorder{}
	Consume(context.Background(), reader, rec.handlers())

	if !reflect.DeepEqual(rec.deltas, []string{"a"}) {
		t.Fatalf("unexpected deltas after sentinel: %q", rec.deltas)
	}
	if rec.dones != 1 {
		t.Fatalf("expected one done, got %d", rec.dones)
	}
	if len(reader.chunks) != 0 {
		t.Fatalf("expected remaining stream to be drained, %d chunks left", len(reader.chunks))
	}
}

func TestConsume_SentinelIsCaseSensitive(t *testing.T) {
	rec := consumeChunks(t, "data: [done]\n"+deltaFrame("still here"))
	if !reflect.DeepEqual(rec.deltas, []string{"still here"}) {
		t.Fatalf("lowercase sentinel must not end the stream: %q", rec.deltas)
	}
}

func TestConsume_SplitFrameRecovery(t *testing.T) {
	frame := deltaFrame("phương trình bậc hai")
	start := strings.Index(frame, "{")
	end := strings.LastIndex(frame, "}")
	for i := start; i <= end; i++ {
		rec := consumeChunks(t, frame[:i], frame[i:])
		if !reflect.DeepEqual(rec.deltas, []string{"phương trình bậc hai"}) {
			t.Fatalf("split at %d: got %q", i, rec.deltas)
		}
	}
}

func TestConsume_HeldFrameJoinsContinuationLine(t *testing.T) {
	payload := `data: {"choices":[{"delta":` + "\n" + `{"content":"x"}}]}` + "\n\n" + deltaFrame("y")
	for i := 0; i <= len(payload); i++ {
		rec := consumeChunks(t, payload[:i], payload[i:])
		if !reflect.DeepEqual(rec.deltas, []string{"x", "y"}) {
			t.Fatalf("split at %d: got %q", i, rec.deltas)
		}
	}
}

func TestConsume_PermanentlyMalformedFrameIsDropped(t *testing.T) {
	cases := map[string]string{
		"next is data":       "data: {oops\n" + deltaFrame("ok"),
		"failed retry":       "data: {oops\nstill broken\n" + deltaFrame("ok"),
		"next is blank":      "data: {oops\n\n" + deltaFrame("ok"),
		"three line payload": "data: {\"choices\":\n[{\"delta\":\n{\"content\":\"lost\"}}]}\n" + deltaFrame("ok"),
	}
	for name, in := range cases {
		rec := consumeChunks(t, in)
		if !reflect.DeepEqual(rec.deltas, []string{"ok"}) {
			t.Fatalf("%s: got %q", name, rec.deltas)
		}
	}

	rec := consumeChunks(t, deltaFrame("a")+`data: {"choices"`)
	if !reflect.DeepEqual(rec.deltas, []string{"a"}) || rec.dones != 1 {
		t.Fatalf("leftover at EOF: deltas=%q dones=%d", rec.deltas, rec.dones)
	}
}

func TestConsume_CRLFAndTrailingPartialLine(t *testing.T) {
	crlf := strings.ReplaceAll(deltaFrame("a"), "\n", "\r\n")
	last := strings.TrimRight(deltaFrame("b"), "\n")
	rec := consumeChunks(t, crlf+last)
	if !reflect.DeepEqual(rec.deltas, []string{"a", "b"}) {
		t.Fatalf("got %q", rec.deltas)
	}
}

func TestConsume_ReadErrorReportsErrorThenDone(t *testing.T) {
	boom := errors.New("connection reset")
	reader := newChunkReader(deltaFrame("a"), `data: {"choices":[{"delta":{"content":"never`)
	reader.err = boom

	rec := &recorder{}
	Consume(context.Background(), reader, rec.handlers())

	want := []string{"delta", "error", "done"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: got %v want %v", rec.events, want)
	}
	if !errors.Is(rec.errs[0], boom) {
		t.Fatalf("unexpected error: %v", rec.errs[0])
	}
}

func TestConsume_CancelledContextSkipsCallbacks(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	rec := &recorder{}
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		Consume(ctx, pr, rec.handlers())
	}()

	if _, err := pw.Write([]byte(deltaFrame("a"))); err != nil {
		t.Fatalf("write: %v", err)
	}
	cancel()
	_ = pw.CloseWithError(errors.New("aborted"))

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("Consume did not return after cancellation")
	}
	if rec.dones != 0 || len(rec.errs) != 0 {
		t.Fatalf("expected no terminal callbacks, got events %v", rec.events)
	}
}

func TestConsumeResponse_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/limited":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"slow down"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream exploded"))
		}
	}))
	defer srv.Close()

	cases := map[string]string{
		"/limited": "slow down",
		"/broken":  defaultStartFailure,
	}
	for path, wantMsg := range cases {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		rec := &recorder{}
		ConsumeResponse(context.Background(), resp, rec.handlers())

		if !reflect.DeepEqual(rec.events, []string{"error", "done"}) {
			t.Fatalf("%s: events %v", path, rec.events)
		}
		var se *StatusError
		if !errors.As(rec.errs[0], &se) || se.Message != wantMsg {
			t.Fatalf("%s: unexpected error %v", path, rec.errs[0])
		}
	}
}

func TestConsumeResponse_StreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Một ", "hai ", "ba"} {
			_, _ = w.Write([]byte(deltaFrame(part)))
			flusher.Flush()
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rec := &recorder{}
	ConsumeResponse(context.Background(), resp, rec.handlers())

	if got := strings.Join(rec.deltas, ""); got != "Một hai ba" {
		t.Fatalf("unexpected text %q", got)
	}
	if rec.dones != 1 || len(rec.errs) != 0 {
		t.Fatalf("unexpected terminal callbacks: %v", rec.events)
	}
}

func TestReassembler_HoldAndFeedAfterFinish(t *testing.T) {
	var got []string
	r := NewReassembler(func(s string) { got = append(got, s) }, nil)

	r.Feed([]byte("data: {broken\n"))
	if !r.Holding() {
		t.Fatalf("expected malformed frame to be held")
	}
	r.Feed([]byte("data: [DONE]\n"))
	if r.Holding() || !r.Finished() {
		t.Fatalf("expected held frame dropped and stream finished")
	}
	r.Feed([]byte(deltaFrame("late")))
	r.Flush()
	if len(got) != 0 {
		t.Fatalf("expected no deltas, got %q", got)
	}
	if r.Pending() != 0 {
		t.Fatalf("expected empty pending buffer, got %d bytes", r.Pending())
	}
}

func TestClassifyLine(t *testing.T) {
	cases := []struct {
		line    string
		kind    FrameKind
		content string
	}{
		{"", FrameBlank, ""},
		{"   \r", FrameBlank, ""},
		{": ping", FrameComment, ""},
		{"data: [DONE]\r", FrameData, "[DONE]"},
		{"data:   {\"a\":1}  ", FrameData, "{\"a\":1}"},
		{"data:{\"a\":1}", FrameUnrecognized, "data:{\"a\":1}"},
		{"event: message", FrameUnrecognized, "event: message"},
	}
	for _, c := range cases {
		kind, content := ClassifyLine([]byte(c.line))
		if kind != c.kind || string(content) != c.content {
			t.Fatalf("ClassifyLine(%q) = %s %q, want %s %q", c.line, kind, content, c.kind, c.content)
		}
	}
}

func TestChatCompletionDelta(t *testing.T) {
	if _, err := ChatCompletionDelta([]byte(`{"choices":`)); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
	text, err := ChatCompletionDelta([]byte(`{"choices":"weird"}`))
	if err != nil || text != "" {
		t.Fatalf("mistyped field should be ignored: %q %v", text, err)
	}
	text, err = ChatCompletionDelta([]byte(`{"choices":[{"delta":{"content":"hi"}}]}`))
	if err != nil || text != "hi" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
}

package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu          sync.Mutex
	entries     []Entry
	settings    Settings
	entriesErr  error
	settingsErr error
	reads       int
}

func (f *fakeSource) Entries(ctx context.Context) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.entriesErr != nil {
		return nil, f.entriesErr
	}
	return append([]Entry(nil), f.entries...), nil
}

func (f *fakeSource) Settings(ctx context.Context) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsErr != nil {
		return Settings{}, f.settingsErr
	}
	return f.settings, nil
}

func (f *fakeSource) set(fn func(*fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type collector struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newCollector() *collector {
	return &collector{ch: make(chan Event, 16)}
}

func (c *collector) Notify(ctx context.Context, ev Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.ch <- ev
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func waitEvent(t *testing.T, c *collector) Event {
	t.Helper()
	select {
	case ev := <-c.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for notification")
		return Event{}
	}
}

func TestStart_FiresOncePerEntryPerDay(t *testing.T) {
	src := &fakeSource{entries: morningMonday(), settings: enabled(15)}
	c := newCollector()
	h := Start(context.Background(), src, c, Options{
		PollInterval: 5 * time.Millisecond,
		Location:     ict,
		Now:          fixedNow(at(1, 6, 50, 0)),
	})
	defer h.Stop()

	ev := waitEvent(t, c)
	if ev.EntryID != "e1" || ev.MinutesLeft != 10 {
		t.Fatalf("event=%+v", ev)
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := c.count(); n != 1 {
		t.Fatalf("notifications=%d, want 1", n)
	}
}

func TestStart_SurvivesReadErrors(t *testing.T) {
	src := &fakeSource{
		entries:     morningMonday(),
		settings:    enabled(15),
		entriesErr:  errors.New("disk on fire"),
		settingsErr: errors.New("corrupt"),
	}
	c := newCollector()
	h := Start(context.Background(), src, c, Options{
		PollInterval: 5 * time.Millisecond,
		Location:     ict,
		Now:          fixedNow(at(1, 6, 50, 0)),
	})
	defer h.Stop()

	time.Sleep(30 * time.Millisecond)
	if n := c.count(); n != 0 {
		t.Fatalf("fired with unreadable settings: %d", n)
	}

	src.set(func(f *fakeSource) { f.settingsErr = nil })
	time.Sleep(30 * time.Millisecond)
	if n := c.count(); n != 0 {
		t.Fatalf("fired with unreadable timetable: %d", n)
	}

	src.set(func(f *fakeSource) { f.entriesErr = nil })
	waitEvent(t, c)
}

func TestStart_TriggerForcesScan(t *testing.T) {
	src := &fakeSource{settings: enabled(15)}
	c := newCollector()
	trigger := make(chan struct{})
	h := Start(context.Background(), src, c, Options{
		PollInterval: time.Hour,
		Location:     ict,
		Now:          fixedNow(at(1, 6, 50, 0)),
		Trigger:      trigger,
	})
	defer h.Stop()

	src.set(func(f *fakeSource) { f.entries = morningMonday() })
	trigger <- struct{}{}
	waitEvent(t, c)
}

func TestStart_OnFiredReportsDeliveryErrors(t *testing.T) {
	src := &fakeSource{entries: morningMonday(), settings: enabled(15)}
	failing := NotifierFunc(func(ctx context.Context, ev Event) error { return errors.New("offline") })
	got := make(chan error, 1)
	h := Start(context.Background(), src, failing, Options{
		PollInterval: time.Hour,
		Location:     ict,
		Now:          fixedNow(at(1, 6, 50, 0)),
		OnFired:      func(ev Event, err error) { got <- err },
	})
	defer h.Stop()

	select {
	case err := <-got:
		if err == nil || err.Error() != "offline" {
			t.Fatalf("err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("OnFired not called")
	}
}

func TestHandleStop_WaitsAndIsRepeatable(t *testing.T) {
	src := &fakeSource{settings: DefaultSettings()}
	h := Start(context.Background(), src, newCollector(), Options{PollInterval: time.Millisecond})
	h.Stop()
	select {
	case <-h.Done():
	default:
		t.Fatalf("Done not closed after Stop")
	}
	h.Stop()
}

func TestStart_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := Start(ctx, &fakeSource{}, newCollector(), Options{PollInterval: time.Millisecond})
	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("scanner did not exit after cancel")
	}
}

func TestScanner_DisabledSkipsTimetableRead(t *testing.T) {
	src := &fakeSource{entries: morningMonday(), settings: DefaultSettings()}
	s := newScanner(src, newCollector(), Options{Location: ict, Now: fixedNow(at(1, 6, 50, 0))})
	s.tick(context.Background())
	if src.reads != 0 {
		t.Fatalf("timetable read %d times while disabled", src.reads)
	}
}

func TestScanner_ResetDayAllowsRefire(t *testing.T) {
	src := &fakeSource{entries: morningMonday(), settings: enabled(15)}
	c := newCollector()
	s := newScanner(src, c, Options{Location: ict, Now: fixedNow(at(1, 6, 50, 0))})
	s.tick(context.Background())
	s.tick(context.Background())
	if c.count() != 1 {
		t.Fatalf("before reset=%d", c.count())
	}
	s.resetDay()
	s.tick(context.Background())
	if c.count() != 2 {
		t.Fatalf("after reset=%d", c.count())
	}
}

func TestUntilNextMidnight(t *testing.T) {
	if got := untilNextMidnight(at(1, 23, 59, 30)); got != 30*time.Second {
		t.Fatalf("got %v", got)
	}
	if got := untilNextMidnight(at(1, 0, 0, 0)); got != 24*time.Hour {
		t.Fatalf("got %v", got)
	}
	// Month rollover.
	end := time.Date(2024, time.January, 31, 12, 0, 0, 0, ict)
	if got := untilNextMidnight(end); got != 12*time.Hour {
		t.Fatalf("got %v", got)
	}
}

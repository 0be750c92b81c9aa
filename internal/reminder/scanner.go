package reminder

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

const defaultPollInterval = 30 * time.Second

// Source supplies the timetable and settings for each scan. Both are read
// fresh on every tick so edits apply without a restart.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
	Settings(ctx context.Context) (Settings, error)
}

// Notifier delivers one reminder.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

type Options struct {
	// PollInterval defaults to 30s.
	PollInterval time.Duration
	// Location is the timezone the timetable is expressed in. Defaults to time.Local.
	Location *time.Location
	// Now overrides the clock.
	Now func() time.Time
	// Trigger forces an extra scan for every value received.
	Trigger <-chan struct{}
	// OnFired runs after each delivery attempt.
	OnFired   func(ev Event, err error)
	LogPrefix string
}

// Handle controls a running scanner.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends the scanner and waits for its goroutine to exit. It is safe to
// call more than once.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the scanner goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

type scanner struct {
	src      Source
	notifier Notifier
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	trigger  <-chan struct{}
	onFired  func(Event, error)
	prefix   string

	notified NotifiedSet
}

// Start scans immediately, then every PollInterval until ctx is cancelled
// or Stop is called. The already-notified set is cleared at each local
// midnight.
func Start(ctx context.Context, src Source, n Notifier, opts Options) *Handle {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s := newScanner(src, n, opts)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		s.run(runCtx)
	}()
	return h
}

func newScanner(src Source, n Notifier, opts Options) *scanner {
	s := &scanner{
		src:      src,
		notifier: n,
		interval: opts.PollInterval,
		loc:      opts.Location,
		now:      opts.Now,
		trigger:  opts.Trigger,
		onFired:  opts.OnFired,
		prefix:   strings.TrimSpace(opts.LogPrefix),
	}
	if s.interval <= 0 {
		s.interval = defaultPollInterval
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.prefix == "" {
		s.prefix = "[reminder]"
	}
	return s
}

func (s *scanner) run(ctx context.Context) {
	log.Printf("%s scanner start: interval=%s tz=%s", s.prefix, s.interval, s.loc)
	defer log.Printf("%s scanner stop", s.prefix)

	s.tick(ctx)

	poll := time.NewTicker(s.interval)
	defer poll.Stop()

	midnight := time.NewTimer(untilNextMidnight(s.clock()))
	defer midnight.Stop()

	trigger := s.trigger
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			s.tick(ctx)
		case <-midnight.C:
			s.resetDay()
			midnight.Reset(untilNextMidnight(s.clock()))
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
			s.tick(ctx)
		}
	}
}

func (s *scanner) clock() time.Time {
	return s.now().In(s.loc)
}

func (s *scanner) resetDay() {
	if n := s.notified.Len(); n > 0 {
		log.Printf("%s day reset: cleared=%d", s.prefix, n)
	}
	s.notified.Clear()
}

func (s *scanner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	settings, err := s.src.Settings(ctx)
	if err != nil {
		log.Printf("%s read settings failed, using defaults: %v", s.prefix, err)
		settings = DefaultSettings()
	}
	if !settings.Enabled {
		return
	}

	entries, err := s.src.Entries(ctx)
	if err != nil {
		log.Printf("%s read timetable failed, treating as empty: %v", s.prefix, err)
		entries = nil
	}

	events, notified := Scan(s.clock(), entries, settings, s.notified)
	s.notified = notified
	for _, ev := range events {
		err := s.notifier.Notify(ctx, ev)
		if err != nil {
			log.Printf("%s notify failed: entry=%s subject=%q err=%v", s.prefix, ev.EntryID, ev.Subject, err)
		} else {
			log.Printf("%s fired: entry=%s subject=%q slot=%s minutes_left=%d", s.prefix, ev.EntryID, ev.Subject, ev.SlotLabel, ev.MinutesLeft)
		}
		if s.onFired != nil {
			s.onFired(ev, err)
		}
	}
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	d := next.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d
}

package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"kmares/pkg/state"
)

const (
	TimetableFile = "timetable.json"
	SettingsFile  = "reminder-settings.json"

	watchDebounce = 300 * time.Millisecond
)

var (
	ErrInvalidDay     = errors.New("unknown weekday")
	ErrInvalidSession = errors.New("unknown session")
	ErrEmptySubject   = errors.New("subject is required")
	ErrInvalidMinutes = errors.New("minutesBefore must be positive")
)

// FileStore persists the timetable and reminder settings as JSON files in
// one directory. It implements Source.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: state.ResolveDir(dir)}
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) timetablePath() string { return filepath.Join(s.dir, TimetableFile) }
func (s *FileStore) settingsPath() string  { return filepath.Join(s.dir, SettingsFile) }

// Entries returns the persisted timetable. A missing file is an empty timetable.
func (s *FileStore) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadEntries()
}

func (s *FileStore) loadEntries() ([]Entry, error) {
	entries, err := state.LoadJSONFile[[]Entry](s.timetablePath())
	if err != nil {
		return nil, fmt.Errorf("load timetable: %w", err)
	}
	return entries, nil
}

// Settings returns the persisted settings, or DefaultSettings when none
// were saved.
func (s *FileStore) Settings(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := state.LoadJSONFileOr(s.settingsPath(), DefaultSettings())
	if err != nil {
		return DefaultSettings(), fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

func (s *FileStore) SaveSettings(st Settings) error {
	if st.MinutesBefore <= 0 {
		return ErrInvalidMinutes
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := state.SaveJSONFileIndented(s.settingsPath(), st); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// AddEntry validates e, assigns an ID when it has none and appends it.
// Day and session labels are stored in their canonical form.
func (s *FileStore) AddEntry(e Entry) (Entry, error) {
	day, ok := ParseWeekday(e.Day)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidDay, e.Day)
	}
	slot, ok := ParseTimeSlot(e.Session)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidSession, e.Session)
	}
	e.Subject = strings.TrimSpace(e.Subject)
	if e.Subject == "" {
		return Entry{}, ErrEmptySubject
	}
	e.Day = day.Label()
	e.Session = slot.Label()
	e.Note = strings.TrimSpace(e.Note)
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries()
	if err != nil {
		return Entry{}, err
	}
	for _, existing := range entries {
		if existing.ID == e.ID {
			return Entry{}, fmt.Errorf("entry %s already exists", e.ID)
		}
	}
	entries = append(entries, e)
	if err := state.SaveJSONFileIndented(s.timetablePath(), entries); err != nil {
		return Entry{}, fmt.Errorf("save timetable: %w", err)
	}
	return e, nil
}

// RemoveEntry deletes the entry with id. It reports whether one was found.
func (s *FileStore) RemoveEntry(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadEntries()
	if err != nil {
		return false, err
	}
	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return false, nil
	}
	if err := state.SaveJSONFileIndented(s.timetablePath(), kept); err != nil {
		return false, fmt.Errorf("save timetable: %w", err)
	}
	return true, nil
}

// Watch signals on the returned channel, debounced, whenever either file
// changes. The channel is closed when ctx ends.
func (s *FileStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("store dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("store watch %s: %w", s.dir, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var (
			debounce *time.Timer
			fireCh   <-chan time.Time
		)
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isStoreFile(ev.Name) {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
				} else {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(watchDebounce)
				}
				fireCh = debounce.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[reminder] store watcher error: %v", err)
			case <-fireCh:
				fireCh = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func isStoreFile(path string) bool {
	base := filepath.Base(path)
	return base == TimetableFile || base == SettingsFile
}

// SortedEntries orders entries by weekday, then session, then subject.
// Entries with unknown labels sort last.
func SortedEntries(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	rank := func(e Entry) (int, int) {
		d, ok := ParseWeekday(e.Day)
		if !ok {
			d = Sunday + 1
		}
		sl, ok := ParseTimeSlot(e.Session)
		if !ok {
			sl = Evening + 1
		}
		return int(d), int(sl)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, si := rank(out[i])
		dj, sj := rank(out[j])
		if di != dj {
			return di < dj
		}
		if si != sj {
			return si < sj
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

package reminder

import (
	"fmt"
	"math"
	"time"
)

// PlatformTitle heads notifications delivered outside the app.
const PlatformTitle = "Nhắc lịch học - KMA-RES"

// Event is one reminder decided by Scan. Delivery is up to a Notifier.
type Event struct {
	EntryID     string    `json:"entryId"`
	Subject     string    `json:"subject"`
	Slot        TimeSlot  `json:"-"`
	SlotLabel   string    `json:"slot"`
	StartsAt    time.Time `json:"startsAt"`
	MinutesLeft int       `json:"minutesLeft"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
}

// Scan decides which entries are due for a reminder at now.
//
// An entry fires when it is scheduled on now's weekday, its slot starts
// within (0, MinutesBefore] minutes of now, and it has not fired yet on
// now's calendar date. The returned set is notified plus the keys fired by
// this call; notified itself is not modified.
func Scan(now time.Time, entries []Entry, settings Settings, notified NotifiedSet) ([]Event, NotifiedSet) {
	if !settings.Enabled {
		return nil, notified
	}
	window := time.Duration(settings.MinutesBefore) * time.Minute
	if window <= 0 {
		return nil, notified
	}

	today := WeekdayOf(now)
	date := CalendarDate(now)
	out := notified.Clone()

	var events []Event
	for _, e := range entries {
		day, ok := ParseWeekday(e.Day)
		if !ok || day != today {
			continue
		}
		slot, ok := ParseTimeSlot(e.Session)
		if !ok {
			continue
		}

		startsAt := slot.StartOn(now)
		diff := startsAt.Sub(now)
		if diff <= 0 || diff > window {
			continue
		}

		key := NotifiedKey{EntryID: e.ID, Date: date}
		if out.Has(key) {
			continue
		}
		out.Add(key)
		events = append(events, newEvent(e, slot, startsAt, diff))
	}
	return events, out
}

func newEvent(e Entry, slot TimeSlot, startsAt time.Time, diff time.Duration) Event {
	mins := int(math.Round(diff.Minutes()))
	return Event{
		EntryID:     e.ID,
		Subject:     e.Subject,
		Slot:        slot,
		SlotLabel:   slot.Label(),
		StartsAt:    startsAt,
		MinutesLeft: mins,
		Title:       "📚 " + e.Subject,
		Body:        fmt.Sprintf("Còn %d phút nữa bạn có buổi học %q (%s)", mins, e.Subject, slot.Label()),
	}
}

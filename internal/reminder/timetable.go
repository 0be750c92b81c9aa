package reminder

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Weekday uses the ISO-8601 numbering: Monday is 1, Sunday is 7.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists the canonical order used for display and sorting.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var fromStdWeekday = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

var weekdayLabels = map[Weekday]string{
	Monday:    "Thứ 2",
	Tuesday:   "Thứ 3",
	Wednesday: "Thứ 4",
	Thursday:  "Thứ 5",
	Friday:    "Thứ 6",
	Saturday:  "Thứ 7",
	Sunday:    "Chủ nhật",
}

// weekdayAliases is the single mapping from persisted labels to Weekday.
// Keys are folded with labelKey at init.
var weekdayAliases = map[string]Weekday{
	"Thứ 2": Monday, "Thứ hai": Monday, "T2": Monday, "Monday": Monday, "Mon": Monday,
	"Thứ 3": Tuesday, "Thứ ba": Tuesday, "T3": Tuesday, "Tuesday": Tuesday, "Tue": Tuesday,
	"Thứ 4": Wednesday, "Thứ tư": Wednesday, "T4": Wednesday, "Wednesday": Wednesday, "Wed": Wednesday,
	"Thứ 5": Thursday, "Thứ năm": Thursday, "T5": Thursday, "Thursday": Thursday, "Thu": Thursday,
	"Thứ 6": Friday, "Thứ sáu": Friday, "T6": Friday, "Friday": Friday, "Fri": Friday,
	"Thứ 7": Saturday, "Thứ bảy": Saturday, "T7": Saturday, "Saturday": Saturday, "Sat": Saturday,
	"Chủ nhật": Sunday, "CN": Sunday, "Sunday": Sunday, "Sun": Sunday,
}

// TimeSlot is one of the three fixed daily sessions.
type TimeSlot int

const (
	Morning TimeSlot = iota + 1
	Afternoon
	Evening
)

var TimeSlots = []TimeSlot{Morning, Afternoon, Evening}

type dailyClock struct {
	Hour   int
	Minute int
}

var slotStarts = map[TimeSlot]dailyClock{
	Morning:   {Hour: 7, Minute: 0},
	Afternoon: {Hour: 13, Minute: 0},
	Evening:   {Hour: 18, Minute: 0},
}

var slotLabels = map[TimeSlot]string{
	Morning:   "Sáng",
	Afternoon: "Chiều",
	Evening:   "Tối",
}

var slotAliases = map[string]TimeSlot{
	"Sáng": Morning, "Morning": Morning,
	"Chiều": Afternoon, "Afternoon": Afternoon,
	"Tối": Evening, "Evening": Evening,
}

var folder = cases.Fold()

func labelKey(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

func init() {
	weekdayAliases = foldKeys(weekdayAliases)
	slotAliases = foldKeys(slotAliases)
}

func foldKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[labelKey(k)] = v
	}
	return out
}

// WeekdayOf returns the weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return fromStdWeekday[t.Weekday()]
}

// ParseWeekday resolves a persisted day label. Matching ignores case,
// surrounding whitespace and Unicode composition form.
func ParseWeekday(label string) (Weekday, bool) {
	d, ok := weekdayAliases[labelKey(label)]
	return d, ok
}

func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// Label returns the persisted label, e.g. "Thứ 2".
func (d Weekday) Label() string {
	if l, ok := weekdayLabels[d]; ok {
		return l
	}
	return ""
}

func (d Weekday) String() string { return d.Label() }

// ParseTimeSlot resolves a persisted session label.
func ParseTimeSlot(label string) (TimeSlot, bool) {
	s, ok := slotAliases[labelKey(label)]
	return s, ok
}

func (s TimeSlot) Label() string {
	if l, ok := slotLabels[s]; ok {
		return l
	}
	return ""
}

func (s TimeSlot) String() string { return s.Label() }

// StartOn returns the slot's start time on the calendar day of t, in t's location.
func (s TimeSlot) StartOn(t time.Time) time.Time {
	c := slotStarts[s]
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// CalendarDate formats the local calendar day of t.
func CalendarDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// Entry is one weekly timetable item as persisted by the timetable UI.
type Entry struct {
	ID      string `json:"id"`
	Day     string `json:"day"`
	Session string `json:"session"`
	Subject string `json:"subject"`
	Note    string `json:"note"`
}

// Settings controls whether reminders fire and how early.
type Settings struct {
	Enabled       bool `json:"enabled"`
	MinutesBefore int  `json:"minutesBefore"`
}

// MinuteOptions is the menu offered when editing settings. Scan accepts any
// positive value.
var MinuteOptions = []int{5, 10, 15, 30, 60}

func DefaultSettings() Settings {
	return Settings{Enabled: false, MinutesBefore: 15}
}

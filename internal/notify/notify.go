// Package notify delivers reminder events to users: a log line, in-app
// toasts over websocket and an outbound webhook.
package notify

import (
	"context"
	"errors"
	"log"
	"time"

	"kmares/internal/reminder"
)

const (
	logPrefix = "[notify]"

	// ToastDuration is how long clients keep a reminder toast on screen.
	ToastDuration = 10000
)

// Toast is the message pushed to websocket clients.
type Toast struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	EntryID     string `json:"entryId"`
	StartsAt    string `json:"startsAt"`
	MinutesLeft int    `json:"minutesLeft"`
}

func ToastFor(ev reminder.Event) Toast {
	return Toast{
		Type:        "reminder",
		Title:       ev.Title,
		Description: ev.Body,
		Duration:    ToastDuration,
		EntryID:     ev.EntryID,
		StartsAt:    ev.StartsAt.Format(time.RFC3339),
		MinutesLeft: ev.MinutesLeft,
	}
}

// LogNotifier writes each event to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, ev reminder.Event) error {
	log.Printf("%s %s: %s", logPrefix, ev.Title, ev.Body)
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []reminder.Notifier

func (m Multi) Notify(ctx context.Context, ev reminder.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

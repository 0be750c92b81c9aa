// Package app wires the reminder scanner, notification channels and the
// assistant proxy into runnable services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kmares/internal/assistant"
	"kmares/internal/config"
	"kmares/internal/content"
	"kmares/internal/metrics"
	"kmares/internal/notify"
	"kmares/internal/reminder"
	"kmares/pkg/x/httpx"
)

const (
	logPrefix       = "[kmares]"
	reminderPrefix  = "[reminder]"
	shutdownTimeout = 10 * time.Second
	contentTimeout  = 20 * time.Second
)

type App struct {
	cfg     config.Config
	store   *reminder.FileStore
	metrics *metrics.Metrics
	loc     *time.Location
}

func New(cfg config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:     cfg,
		store:   reminder.NewFileStore(cfg.Reminder.DataDir),
		metrics: metrics.New(),
		loc:     loc,
	}, nil
}

func (a *App) Store() *reminder.FileStore { return a.store }

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Notifier fans reminders out to the log, the websocket hub (when non-nil)
// and the configured webhook.
func (a *App) Notifier(hub *notify.Hub) (reminder.Notifier, error) {
	out := notify.Multi{notify.LogNotifier{}}
	if hub != nil {
		out = append(out, hub)
	}
	if u := strings.TrimSpace(a.cfg.Notify.WebhookURL); u != "" {
		wh, err := notify.NewWebhookNotifier(u, a.cfg.HTTPProxy)
		if err != nil {
			return nil, fmt.Errorf("webhook notifier: %w", err)
		}
		out = append(out, wh)
	}
	return out, nil
}

// StartReminders runs the scanner until ctx ends. Edits to the timetable or
// settings files trigger an immediate rescan.
func (a *App) StartReminders(ctx context.Context, n reminder.Notifier) (*reminder.Handle, error) {
	trigger, err := a.store.Watch(ctx)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", a.store.Dir(), err)
	}
	log.Printf("%s scanner started dir=%s tz=%s poll=%s", reminderPrefix, a.store.Dir(), a.loc, a.cfg.PollInterval())
	return reminder.Start(ctx, a.store, n, reminder.Options{
		PollInterval: a.cfg.PollInterval(),
		Location:     a.loc,
		Trigger:      trigger,
		OnFired:      func(_ reminder.Event, err error) { a.metrics.ReminderFired(err) },
		LogPrefix:    reminderPrefix,
	}), nil
}

// Mux serves the assistant proxy, the toast websocket and /metrics.
func (a *App) Mux(hub *notify.Hub) (*http.ServeMux, error) {
	contentClient, err := httpx.NewClient(httpx.ClientOptions{Timeout: contentTimeout, Proxy: a.cfg.HTTPProxy})
	if err != nil {
		return nil, fmt.Errorf("content http client: %w", err)
	}
	handler, err := assistant.NewHandler(assistant.Options{
		LLM:       a.cfg.LLMConfig(),
		HTTPProxy: a.cfg.HTTPProxy,
		Loader:    content.NewLoader(contentClient),
		Metrics:   a.metrics,
		LogPrefix: "[ai-assistant]",
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	handler.Register(mux)
	if hub != nil {
		mux.Handle(notify.WebsocketPath, hub)
	}
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux, nil
}

// Serve runs the HTTP listener and the reminder scanner until ctx ends or
// either fails.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.ListenAddr, err)
	}
	return a.ServeListener(ctx, ln)
}

func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	hub := notify.NewHub()
	defer hub.Close()

	mux, err := a.Mux(hub)
	if err != nil {
		_ = ln.Close()
		return err
	}
	n, err := a.Notifier(hub)
	if err != nil {
		_ = ln.Close()
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g.Go(func() error {
		log.Printf("%s listening addr=%s", logPrefix, ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("%s shutting down", logPrefix)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		h, err := a.StartReminders(ctx, n)
		if err != nil {
			return err
		}
		<-h.Done()
		return nil
	})
	return g.Wait()
}

// Remind runs only the scanner, delivering to the log and webhook.
func (a *App) Remind(ctx context.Context) error {
	n, err := a.Notifier(nil)
	if err != nil {
		return err
	}
	h, err := a.StartReminders(ctx, n)
	if err != nil {
		return err
	}
	<-h.Done()
	return nil
}

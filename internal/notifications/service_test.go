package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapvault/internal/config"
	"snapvault/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyCaptureSaved(context.Background(), "Movies", "capture_1.png"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type recorded struct {
	title    string
	message  string
	tags     string
	priority string
}

func newRecordingService(t *testing.T, got *[]recorded) notifications.Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = append(*got, recorded{
			title:    r.Header.Get("Title"),
			message:  string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Capture = true
	cfg.Notifications.Export = true
	cfg.Notifications.Errors = true
	return notifications.NewService(&cfg)
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var got []recorded
	svc := newRecordingService(t, &got)
	ctx := context.Background()

	if err := svc.NotifyCaptureSaved(ctx, "Movies", "capture_1.png"); err != nil {
		t.Fatalf("NotifyCaptureSaved: %v", err)
	}
	if err := svc.NotifyExportCompleted(ctx, 2, 1, "/tmp/exports"); err != nil {
		t.Fatalf("NotifyExportCompleted: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("disk full"), "export"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if got[0].title != "Snapvault - Capture Saved" || got[0].message != "Saved capture_1.png into Movies" {
		t.Fatalf("capture payload: %+v", got[0])
	}
	if got[1].title != "Snapvault - Export Complete (with errors)" {
		t.Fatalf("export payload: %+v", got[1])
	}
	if got[2].priority != "high" || got[2].message != "Error with export: disk full" {
		t.Fatalf("error payload: %+v", got[2])
	}
}

func TestNtfyServiceRespectsEventToggles(t *testing.T) {
	var got []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, recorded{})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Capture = false
	cfg.Notifications.Export = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyCaptureSaved(ctx, "Movies", "x.png"); err != nil {
		t.Fatalf("NotifyCaptureSaved: %v", err)
	}
	if err := svc.NotifyExportCompleted(ctx, 1, 0, "/tmp"); err != nil {
		t.Fatalf("NotifyExportCompleted: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), ""); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("disabled events must not send, got %d requests", len(got))
	}

	// The explicit test notification always sends.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly the test request, got %d", len(got))
	}
}

func TestNtfyServiceReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

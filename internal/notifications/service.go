package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snapvault/internal/config"
)

const userAgent = "Snapvault-Go/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyCaptureSaved(ctx context.Context, collectionLabel, fileName string) error
	NotifyExportCompleted(ctx context.Context, succeeded, failed int, exportDir string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		captureEvents: cfg.Notifications.Capture,
		exportEvents:  cfg.Notifications.Export,
		errorEvents:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	captureEvents bool
	exportEvents  bool
	errorEvents   bool
}

func (n *ntfyService) NotifyCaptureSaved(ctx context.Context, collectionLabel, fileName string) error {
	if !n.captureEvents {
		return nil
	}
	collectionLabel = strings.TrimSpace(collectionLabel)
	if collectionLabel == "" {
		collectionLabel = "Default"
	}
	data := payload{
		title:   "Snapvault - Capture Saved",
		message: fmt.Sprintf("Saved %s into %s", strings.TrimSpace(fileName), collectionLabel),
		tags:    []string{"snapvault", "capture", "saved"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportCompleted(ctx context.Context, succeeded, failed int, exportDir string) error {
	if !n.exportEvents {
		return nil
	}
	var title, message string
	switch {
	case succeeded == 0 && failed == 0:
		title = "Snapvault - Nothing to Export"
		message = "No collection had stored captures"
	case failed == 0:
		title = "Snapvault - Export Complete"
		message = fmt.Sprintf("%d archive(s) written to %s", succeeded, exportDir)
	case succeeded == 0:
		title = "Snapvault - Export Failed"
		message = fmt.Sprintf("All %d collection(s) failed to export", failed)
	default:
		title = "Snapvault - Export Complete (with errors)"
		message = fmt.Sprintf("%d archive(s) written, %d collection(s) failed", succeeded, failed)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"snapvault", "export", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Snapvault - Error",
		message:  builder.String(),
		tags:     []string{"snapvault", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Snapvault - Test",
		message:  "Notification system test",
		tags:     []string{"snapvault", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCaptureSaved(context.Context, string, string) error { return nil }

func (noopService) NotifyExportCompleted(context.Context, int, int, string) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }

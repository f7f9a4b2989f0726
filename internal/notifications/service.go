package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitelog/internal/config"
)

const userAgent = "Sitelog-Go/0.1.0"

// Service defines the notification surface exposed to sync components.
type Service interface {
	NotifySessionSynced(ctx context.Context, projectName string, taskCount int) error
	NotifySyncCompleted(ctx context.Context, synced, attempted int, duration time.Duration) error
	NotifySyncFailed(ctx context.Context, sessionID string, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySessionSynced(ctx context.Context, projectName string, taskCount int) error {
	projectName = strings.TrimSpace(projectName)
	message := fmt.Sprintf("Session synced: %s", projectName)
	if taskCount > 0 {
		message = fmt.Sprintf("%s\n%d task(s) created from analysis", message, taskCount)
	}
	data := payload{
		title:   "Sitelog - Session Synced",
		message: message,
		tags:    []string{"sitelog", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, synced, attempted int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	failed := attempted - synced
	if failed <= 0 {
		title = "Sitelog - Sync Complete"
		message = fmt.Sprintf("Sync complete: %d session(s) delivered in %s", synced, durationText)
	} else {
		title = "Sitelog - Sync Complete (with errors)"
		message = fmt.Sprintf("Sync complete: %d delivered, %d failed in %s", synced, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"sitelog", "sync", "batch"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncFailed(ctx context.Context, sessionID string, reason string) error {
	sessionID = strings.TrimSpace(sessionID)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Webhook delivery failed for session %s", sessionID)
	if reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:    "Sitelog - Sync Failed",
		message:  message,
		tags:     []string{"sitelog", "sync", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
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
		title:    "Sitelog - Error",
		message:  builder.String(),
		tags:     []string{"sitelog", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Sitelog - Test",
		message:  "Notification system test",
		tags:     []string{"sitelog", "test"},
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

func (noopService) NotifySessionSynced(context.Context, string, int) error          { return nil }
func (noopService) NotifySyncCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifySyncFailed(context.Context, string, string) error          { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }

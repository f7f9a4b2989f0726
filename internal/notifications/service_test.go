package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitelog/internal/config"
	"sitelog/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySessionSynced(context.Background(), "Example", 2); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsMessages(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "session synced",
			notify: func(svc notifications.Service) error {
				return svc.NotifySessionSynced(context.Background(), "Maple St Remodel", 3)
			},
			expectTitle:   "Sitelog - Session Synced",
			expectMessage: "Session synced: Maple St Remodel\n3 task(s) created from analysis",
			expectTags:    "sitelog,sync,completed",
		},
		{
			name: "sync completed clean",
			notify: func(svc notifications.Service) error {
				return svc.NotifySyncCompleted(context.Background(), 2, 2, 3*time.Second)
			},
			expectTitle:   "Sitelog - Sync Complete",
			expectMessage: "Sync complete: 2 session(s) delivered in 3s",
			expectTags:    "sitelog,sync,batch",
		},
		{
			name: "sync completed with failures",
			notify: func(svc notifications.Service) error {
				return svc.NotifySyncCompleted(context.Background(), 1, 3, 0)
			},
			expectTitle:   "Sitelog - Sync Complete (with errors)",
			expectMessage: "Sync complete: 1 delivered, 2 failed in 0s",
			expectTags:    "sitelog,sync,batch",
		},
		{
			name: "sync failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifySyncFailed(context.Background(), "sess-1", "webhook returned 500")
			},
			expectTitle:    "Sitelog - Sync Failed",
			expectMessage:  "Webhook delivery failed for session sess-1\nwebhook returned 500",
			expectTags:     "sitelog,sync,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("disk full"), "ingest")
			},
			expectTitle:    "Sitelog - Error",
			expectMessage:  "Error with ingest: disk full",
			expectTags:     "sitelog,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

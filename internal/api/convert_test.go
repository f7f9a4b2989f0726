package api_test

import (
	"encoding/json"
	"testing"
	"time"

	"sitelog/internal/api"
	"sitelog/internal/store"
)

func TestFromSessionRoundTripsSnapshot(t *testing.T) {
	ended := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	session := &store.CaptureSession{
		ID:            "sess-1",
		ProjectID:     "proj-1",
		Mode:          store.ModePhotoSpeak,
		SessionType:   store.SessionWalkthrough,
		StartedAt:     ended.Add(-10 * time.Minute),
		EndedAt:       &ended,
		MediaIDs:      []string{"m-1"},
		WebhookStatus: store.WebhookReceived,
		WebhookResult: []byte(`{"processedAt":"2026-03-14T09:31:00Z","tasks":[{"title":"x"}]}`),
	}

	view := api.FromSession(session)
	if view.EndedAt != "2026-03-14T09:30:00Z" {
		t.Fatalf("unexpected endedAt: %q", view.EndedAt)
	}
	if view.AudioIDs == nil {
		t.Fatal("audioIds must encode as [] not null")
	}

	encoded, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	result, ok := decoded["webhookResult"].(map[string]any)
	if !ok {
		t.Fatalf("webhookResult not passed through as object: %v", decoded["webhookResult"])
	}
	if result["processedAt"] != "2026-03-14T09:31:00Z" {
		t.Fatalf("snapshot mangled: %v", result)
	}
}

func TestFromTaskDefaultsTags(t *testing.T) {
	view := api.FromTask(&store.TaskItem{ID: "t-1", Title: "Check roof", Status: store.TaskOpen, Priority: store.PriorityMedium})
	if view.Tags == nil {
		t.Fatal("tags must encode as [] not null")
	}
	encoded, _ := json.Marshal(view)
	if string(encoded) == "" {
		t.Fatal("expected encoded task")
	}
}

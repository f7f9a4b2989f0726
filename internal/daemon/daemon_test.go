package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"sitelog/internal/config"
	"sitelog/internal/daemon"
	"sitelog/internal/dispatch"
	"sitelog/internal/ingest"
	"sitelog/internal/notifications"
	"sitelog/internal/payload"
	"sitelog/internal/session"
	"sitelog/internal/store"
	"sitelog/internal/syncer"
	"sitelog/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *store.Store, string) {
	t.Helper()

	st := testsupport.MustOpenStore(t, cfg)
	sessions := session.NewService(st, nil)
	builder := payload.NewBuilder(st, nil)
	processor := ingest.NewProcessor(st, nil)
	notifier := notifications.NewService(cfg)
	dispatcher := dispatch.NewDispatcher(cfg, st, builder, processor, notifier, nil, nil)
	sync := syncer.New(cfg, st, dispatcher, notifier, nil)

	d, err := daemon.New(cfg, st, sessions, sync, dispatcher, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected API address after start")
	}
	return d, st, "http://" + addr
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, st, base := startDaemon(t, cfg)

	project := testsupport.NewProject(t, st, "HTTP House")

	resp := postJSON(t, base+"/api/sessions", map[string]any{
		"projectId": project.ID,
		"mode":      "photo_speak",
		"areaType":  "kitchen",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID            string `json:"id"`
		WebhookStatus string `json:"webhookStatus"`
	}
	decodeResponse(t, resp, &created)
	if created.ID == "" || created.WebhookStatus != "pending" {
		t.Fatalf("unexpected created session: %#v", created)
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/sessions/%s/end", base, created.ID), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	endResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT end failed: %v", err)
	}
	var ended struct {
		EndedAt string `json:"endedAt"`
	}
	decodeResponse(t, endResp, &ended)
	if ended.EndedAt == "" {
		t.Fatal("expected endedAt after end")
	}

	getResp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s", base, created.ID))
	if err != nil {
		t.Fatalf("GET session failed: %v", err)
	}
	var fetched struct {
		ID       string   `json:"id"`
		MediaIDs []string `json:"mediaIds"`
	}
	decodeResponse(t, getResp, &fetched)
	if fetched.ID != created.ID {
		t.Fatalf("unexpected session: %#v", fetched)
	}

	statusResp, err := http.Get(base + "/api/sync/status")
	if err != nil {
		t.Fatalf("GET sync status failed: %v", err)
	}
	var counts struct {
		PendingSessions int `json:"pendingSessions"`
		TotalSessions   int `json:"totalSessions"`
		SyncedSessions  int `json:"syncedSessions"`
	}
	decodeResponse(t, statusResp, &counts)
	if counts.TotalSessions != 1 || counts.PendingSessions != 1 || counts.SyncedSessions != 0 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}

func TestMeetingSessionWithoutConsentRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, st, base := startDaemon(t, cfg)

	project := testsupport.NewProject(t, st, "Consent")

	resp := postJSON(t, base+"/api/sessions", map[string]any{
		"projectId":   project.ID,
		"mode":        "voice_only",
		"sessionType": "meeting",
		"meetingMetadata": map[string]any{
			"meetingType":  "owner_walkthrough",
			"consentGiven": false,
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	sessions, err := st.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatal("no session may be persisted without consent")
	}
}

func TestTriggerWebhookReturnsBadGatewayOnFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithWebhookURL(upstream.URL))
	_, st, base := startDaemon(t, cfg)

	project := testsupport.NewProject(t, st, "Gateway")
	sess := testsupport.NewSession(t, st, project.ID, store.ModeWalkthrough)
	if _, err := st.EndSession(context.Background(), sess.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	resp := postJSON(t, base+"/api/sync/trigger-webhook", map[string]any{"sessionId": sess.ID})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	after, _ := st.GetSession(context.Background(), sess.ID)
	if after.WebhookStatus != store.WebhookFailed {
		t.Fatalf("expected failed, got %s", after.WebhookStatus)
	}
}

func TestWebhookCallbackIngestsResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, st, base := startDaemon(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Callback")
	sess := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)
	if _, err := st.EndSession(ctx, sess.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	resp := postJSON(t, base+"/api/webhook/callback", map[string]any{
		"sessionId": sess.ID,
		"tasks":     []map[string]any{{"title": "Callback task", "status": "blocked"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
		Tasks  int    `json:"tasks"`
	}
	decodeResponse(t, resp, &body)
	if body.Status != "received" || body.Tasks != 1 {
		t.Fatalf("unexpected callback response: %#v", body)
	}

	tasks, _ := st.TasksByProject(ctx, project.ID)
	if len(tasks) != 1 || tasks[0].Status != store.TaskBlocked {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	after, _ := st.GetSession(ctx, sess.ID)
	if after.WebhookStatus != store.WebhookReceived {
		t.Fatalf("expected received, got %s", after.WebhookStatus)
	}
}

func TestSecondDaemonInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, st, _ := startDaemon(t, cfg)
	_ = d

	sessions := session.NewService(st, nil)
	builder := payload.NewBuilder(st, nil)
	processor := ingest.NewProcessor(st, nil)
	dispatcher := dispatch.NewDispatcher(cfg, st, builder, processor, nil, nil, nil)
	sync := syncer.New(cfg, st, dispatcher, nil, nil)

	second, err := daemon.New(cfg, st, sessions, sync, dispatcher, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock contention to refuse second instance")
	}
}

package store_test

import (
	"context"
	"testing"

	"sitelog/internal/store"
	"sitelog/internal/testsupport"
)

func TestCreateProjectSeedsDefaultAreas(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project, err := st.CreateProject(ctx, "Maple St Remodel", "12 Maple St", "Dana")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if project.ID == "" {
		t.Fatal("expected project ID to be assigned")
	}
	if project.MediaCount != 0 || project.TaskCount != 0 || project.OpenTaskCount != 0 {
		t.Fatalf("expected zero counters, got %#v", project)
	}

	areas, err := st.AreasByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("AreasByProject failed: %v", err)
	}
	if len(areas) != 5 {
		t.Fatalf("expected 5 default areas, got %d", len(areas))
	}
	labels := map[store.AreaType]string{}
	for _, area := range areas {
		labels[area.Type] = area.Label
	}
	if labels[store.AreaKitchen] != "Kitchen" || labels[store.AreaBath] != "Bathroom" {
		t.Fatalf("unexpected default areas: %#v", labels)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.CreateProject(context.Background(), "   ", "", ""); err == nil {
		t.Fatal("expected error for blank name")
	}
}

func TestMediaCounterLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Counter Test")

	asset, err := st.CreateMedia(ctx, &store.MediaAsset{
		ProjectID: project.ID,
		Kind:      store.MediaPhoto,
		URI:       "file:///photos/one.jpg",
	})
	if err != nil {
		t.Fatalf("CreateMedia failed: %v", err)
	}
	if asset.SyncStatus != store.SyncCaptured {
		t.Fatalf("expected captured status, got %s", asset.SyncStatus)
	}

	fetched, err := st.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if fetched.MediaCount != 1 {
		t.Fatalf("expected mediaCount 1, got %d", fetched.MediaCount)
	}

	deleted, err := st.DeleteMedia(ctx, asset.ID)
	if err != nil {
		t.Fatalf("DeleteMedia failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected media to be deleted")
	}
	fetched, err = st.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if fetched.MediaCount != 0 {
		t.Fatalf("expected mediaCount 0 after delete, got %d", fetched.MediaCount)
	}
}

func TestTaskCountersTrackStatusTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Task Counters")

	task, err := st.CreateTask(ctx, &store.TaskItem{
		ProjectID: project.ID,
		Title:     "Patch drywall",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	fetched, _ := st.GetProject(ctx, project.ID)
	if fetched.TaskCount != 1 || fetched.OpenTaskCount != 1 {
		t.Fatalf("expected counts (1,1), got (%d,%d)", fetched.TaskCount, fetched.OpenTaskCount)
	}

	if err := st.UpdateTaskStatus(ctx, task.ID, store.TaskDone); err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}
	fetched, _ = st.GetProject(ctx, project.ID)
	if fetched.TaskCount != 1 || fetched.OpenTaskCount != 0 {
		t.Fatalf("expected counts (1,0) after done, got (%d,%d)", fetched.TaskCount, fetched.OpenTaskCount)
	}

	if err := st.UpdateTaskStatus(ctx, task.ID, store.TaskInProgress); err != nil {
		t.Fatalf("UpdateTaskStatus failed: %v", err)
	}
	fetched, _ = st.GetProject(ctx, project.ID)
	if fetched.OpenTaskCount != 1 {
		t.Fatalf("expected openTaskCount 1 after reopen, got %d", fetched.OpenTaskCount)
	}

	deleted, err := st.DeleteTask(ctx, task.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteTask failed: deleted=%v err=%v", deleted, err)
	}
	fetched, _ = st.GetProject(ctx, project.ID)
	if fetched.TaskCount != 0 || fetched.OpenTaskCount != 0 {
		t.Fatalf("expected counts (0,0) after delete, got (%d,%d)", fetched.TaskCount, fetched.OpenTaskCount)
	}
}

func TestDeleteTaskRemovesEvidenceLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Link Cascade")
	task, err := st.CreateTask(ctx, &store.TaskItem{ProjectID: project.ID, Title: "Check flashing"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if _, err := st.CreateEvidenceLink(ctx, &store.EvidenceLink{
		TaskID:     task.ID,
		TargetType: store.TargetMedia,
		TargetID:   "media-123",
	}); err != nil {
		t.Fatalf("CreateEvidenceLink failed: %v", err)
	}

	if _, err := st.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	links, err := st.LinksByTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("LinksByTask failed: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected links removed with task, got %d", len(links))
	}
}

func TestSessionMembershipBackReference(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Membership")
	session := testsupport.NewSession(t, st, project.ID, store.ModePhotoSpeak)

	asset, err := st.CreateMedia(ctx, &store.MediaAsset{ProjectID: project.ID, Kind: store.MediaPhoto})
	if err != nil {
		t.Fatalf("CreateMedia failed: %v", err)
	}
	if err := st.AppendSessionMedia(ctx, session.ID, asset.ID); err != nil {
		t.Fatalf("AppendSessionMedia failed: %v", err)
	}
	// Append is not idempotent; a repeated call records the id twice.
	if err := st.AppendSessionMedia(ctx, session.ID, asset.ID); err != nil {
		t.Fatalf("AppendSessionMedia repeat failed: %v", err)
	}

	fetched, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(fetched.MediaIDs) != 2 || fetched.MediaIDs[0] != asset.ID {
		t.Fatalf("unexpected media membership: %#v", fetched.MediaIDs)
	}

	stamped, err := st.GetMedia(ctx, asset.ID)
	if err != nil {
		t.Fatalf("GetMedia failed: %v", err)
	}
	if stamped.SessionID != session.ID {
		t.Fatalf("expected session back-reference, got %q", stamped.SessionID)
	}
}

func TestAppendToEndedSessionFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Ended")
	session := testsupport.NewSession(t, st, project.ID, store.ModeWalkthrough)

	if _, err := st.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if err := st.AppendSessionMedia(ctx, session.ID, "media-after-end"); err == nil {
		t.Fatal("expected append to ended session to fail")
	}
}

func TestSessionsAwaitingSyncSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Awaiting")

	open := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)
	endedPending := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)
	endedFailed := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)
	endedReceived := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)

	for _, id := range []string{endedPending.ID, endedFailed.ID, endedReceived.ID} {
		if _, err := st.EndSession(ctx, id); err != nil {
			t.Fatalf("EndSession failed: %v", err)
		}
	}
	if err := st.SetSessionWebhookStatus(ctx, endedFailed.ID, store.WebhookFailed); err != nil {
		t.Fatalf("SetSessionWebhookStatus failed: %v", err)
	}
	if err := st.SetSessionWebhookStatus(ctx, endedReceived.ID, store.WebhookReceived); err != nil {
		t.Fatalf("SetSessionWebhookStatus failed: %v", err)
	}

	awaiting, err := st.SessionsAwaitingSync(ctx, false)
	if err != nil {
		t.Fatalf("SessionsAwaitingSync failed: %v", err)
	}
	if len(awaiting) != 2 {
		t.Fatalf("expected 2 awaiting sessions, got %d", len(awaiting))
	}
	for _, session := range awaiting {
		if session.ID == open.ID {
			t.Fatal("open session must not be eligible for sync")
		}
		if session.ID == endedReceived.ID {
			t.Fatal("received session must not be eligible for sync")
		}
	}

	failedOnly, err := st.SessionsAwaitingSync(ctx, true)
	if err != nil {
		t.Fatalf("SessionsAwaitingSync(failedOnly) failed: %v", err)
	}
	if len(failedOnly) != 1 || failedOnly[0].ID != endedFailed.ID {
		t.Fatalf("expected only failed session, got %#v", failedOnly)
	}

	counts, err := st.SessionSyncCounts(ctx)
	if err != nil {
		t.Fatalf("SessionSyncCounts failed: %v", err)
	}
	if counts.Total != 4 || counts.Pending != 2 || counts.Synced != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}

func TestLoadSettingsMigratesTestURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	const productionURL = "https://hooks.example.com/prod"

	if err := st.SaveSettings(ctx, store.Settings{
		WifiOnlyUpload: false,
		AutoSync:       true,
		WebhookURL:     "https://hooks.example.com/webhook-test/abc",
	}); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	settings, err := st.LoadSettings(ctx, productionURL)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if settings.WebhookURL != productionURL {
		t.Fatalf("expected test URL rewritten, got %q", settings.WebhookURL)
	}
	if settings.WifiOnlyUpload {
		t.Fatal("expected wifiOnlyUpload preserved as false")
	}

	// Rewrite must be persisted.
	settings, err = st.LoadSettings(ctx, "https://hooks.example.com/other")
	if err != nil {
		t.Fatalf("LoadSettings second read failed: %v", err)
	}
	if settings.WebhookURL != productionURL {
		t.Fatalf("expected persisted URL, got %q", settings.WebhookURL)
	}
}

func TestMediaByIDsPreservesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Ordering")

	var ids []string
	for i := 0; i < 3; i++ {
		asset, err := st.CreateMedia(ctx, &store.MediaAsset{ProjectID: project.ID, Kind: store.MediaPhoto})
		if err != nil {
			t.Fatalf("CreateMedia failed: %v", err)
		}
		ids = append(ids, asset.ID)
	}

	request := []string{ids[2], "missing", ids[0]}
	assets, err := st.MediaByIDs(ctx, request)
	if err != nil {
		t.Fatalf("MediaByIDs failed: %v", err)
	}
	if len(assets) != 2 || assets[0].ID != ids[2] || assets[1].ID != ids[0] {
		t.Fatalf("unexpected order: %#v", assets)
	}
}

func TestMeetingSessionApproval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Meetings")

	session, err := st.CreateSession(ctx, &store.CaptureSession{
		ProjectID:   project.ID,
		Mode:        store.ModeVoiceOnly,
		SessionType: store.SessionMeeting,
		MeetingMetadata: &store.MeetingMetadata{
			MeetingType:  "owner_walkthrough",
			Participants: []store.Participant{{Name: "Sam", Role: "owner"}},
			ConsentGiven: true,
		},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ApprovalStatus != store.ApprovalPending {
		t.Fatalf("expected pending approval, got %s", session.ApprovalStatus)
	}

	if err := st.SetSessionApproval(ctx, session.ID, store.ApprovalApproved, "pm@example.com"); err != nil {
		t.Fatalf("SetSessionApproval failed: %v", err)
	}
	fetched, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.ApprovalStatus != store.ApprovalApproved || fetched.ApprovedAt == nil {
		t.Fatalf("unexpected approval state: %#v", fetched)
	}
	if fetched.MeetingMetadata == nil || !fetched.MeetingMetadata.ConsentGiven {
		t.Fatalf("expected meeting metadata round-trip, got %#v", fetched.MeetingMetadata)
	}
}

func TestGetMissingEntitiesReturnNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if p, err := st.GetProject(ctx, "nope"); err != nil || p != nil {
		t.Fatalf("expected (nil, nil), got %v %v", p, err)
	}
	if s, err := st.GetSession(ctx, "nope"); err != nil || s != nil {
		t.Fatalf("expected (nil, nil), got %v %v", s, err)
	}
	if m, err := st.GetMedia(ctx, "nope"); err != nil || m != nil {
		t.Fatalf("expected (nil, nil), got %v %v", m, err)
	}
}

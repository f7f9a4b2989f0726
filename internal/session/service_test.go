package session_test

import (
	"context"
	"errors"
	"testing"

	"sitelog/internal/session"
	"sitelog/internal/store"
	"sitelog/internal/testsupport"
)

func newFixture(t *testing.T) (*session.Service, *store.Store, *store.Project) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	project := testsupport.NewProject(t, st, "Service House")
	return session.NewService(st, nil), st, project
}

func TestStartDefaultsToWalkthrough(t *testing.T) {
	svc, _, project := newFixture(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, session.StartRequest{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sess.Mode != store.ModeWalkthrough || sess.SessionType != store.SessionWalkthrough {
		t.Fatalf("unexpected defaults: mode=%s type=%s", sess.Mode, sess.SessionType)
	}
	if sess.WebhookStatus != store.WebhookPending {
		t.Fatalf("new sessions must be webhook-pending, got %s", sess.WebhookStatus)
	}
	if sess.Ended() {
		t.Fatal("new session must not be ended")
	}
}

func TestStartUnknownProjectFails(t *testing.T) {
	svc, _, _ := newFixture(t)

	if _, err := svc.Start(context.Background(), session.StartRequest{ProjectID: "missing"}); err == nil {
		t.Fatal("expected error for unknown project")
	}
}

func TestStartMeetingRequiresConsent(t *testing.T) {
	svc, st, project := newFixture(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, session.StartRequest{
		ProjectID:   project.ID,
		SessionType: store.SessionMeeting,
		Meeting:     &store.MeetingMetadata{MeetingType: "owner_walkthrough"},
	})
	if !errors.Is(err, session.ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}

	sessions, err := st.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatal("refused meeting must not be persisted")
	}

	sess, err := svc.Start(ctx, session.StartRequest{
		ProjectID:   project.ID,
		SessionType: store.SessionMeeting,
		Meeting: &store.MeetingMetadata{
			MeetingType:  "owner_walkthrough",
			ConsentGiven: true,
			Participants: []store.Participant{{Name: "Dana", Role: "owner"}},
		},
	})
	if err != nil {
		t.Fatalf("consented meeting failed: %v", err)
	}
	if sess.ApprovalStatus != store.ApprovalPending {
		t.Fatalf("meeting sessions start approval-pending, got %s", sess.ApprovalStatus)
	}
}

func TestCapturePropagatesSessionArea(t *testing.T) {
	svc, st, project := newFixture(t)
	ctx := context.Background()

	areas, err := st.AreasByProject(ctx, project.ID)
	if err != nil || len(areas) == 0 {
		t.Fatalf("AreasByProject failed: %v", err)
	}
	kitchen := areas[0]

	sess, err := svc.Start(ctx, session.StartRequest{
		ProjectID: project.ID,
		AreaID:    kitchen.ID,
		AreaType:  kitchen.Type,
		Mode:      store.ModePhotoSpeak,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	photo, err := svc.CapturePhoto(ctx, sess.ID, "file:///tmp/p1.jpg")
	if err != nil {
		t.Fatalf("CapturePhoto failed: %v", err)
	}
	if photo.AreaID != kitchen.ID || photo.AreaType != kitchen.Type {
		t.Fatalf("captured asset must inherit session area, got %s/%s", photo.AreaID, photo.AreaType)
	}

	note, err := svc.CaptureAudio(ctx, sess.ID, "file:///tmp/n1.m4a", 4200, photo.ID)
	if err != nil {
		t.Fatalf("CaptureAudio failed: %v", err)
	}
	if note.LinkedMediaID != photo.ID {
		t.Fatalf("expected linked media %s, got %s", photo.ID, note.LinkedMediaID)
	}

	fresh, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(fresh.MediaIDs) != 1 || len(fresh.AudioIDs) != 1 {
		t.Fatalf("unexpected membership: %v / %v", fresh.MediaIDs, fresh.AudioIDs)
	}
}

func TestCaptureIntoEndedSessionFails(t *testing.T) {
	svc, _, project := newFixture(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, session.StartRequest{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.End(ctx, sess.ID); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	if _, err := svc.CapturePhoto(ctx, sess.ID, "file:///tmp/late.jpg"); err == nil {
		t.Fatal("expected capture into ended session to fail")
	}
	if err := svc.AttachMedia(ctx, sess.ID, "whatever"); err == nil {
		t.Fatal("expected attach into ended session to fail")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	svc, _, project := newFixture(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, session.StartRequest{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first, err := svc.End(ctx, sess.ID)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	second, err := svc.End(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second End failed: %v", err)
	}
	if first.EndedAt == nil || second.EndedAt == nil {
		t.Fatal("expected EndedAt set")
	}
	if !first.EndedAt.Equal(*second.EndedAt) {
		t.Fatalf("EndedAt changed on repeat end: %v vs %v", first.EndedAt, second.EndedAt)
	}
}

func TestAttachValidatesAssetExistence(t *testing.T) {
	svc, _, project := newFixture(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, session.StartRequest{ProjectID: project.ID})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.AttachMedia(ctx, sess.ID, "missing-media"); err == nil {
		t.Fatal("expected error for missing media asset")
	}
	if err := svc.AttachAudio(ctx, sess.ID, "missing-audio"); err == nil {
		t.Fatal("expected error for missing audio note")
	}
}

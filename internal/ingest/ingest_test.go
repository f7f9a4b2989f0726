package ingest_test

import (
	"context"
	"encoding/json"
	"testing"

	"sitelog/internal/ingest"
	"sitelog/internal/store"
	"sitelog/internal/testsupport"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want store.TaskStatus
	}{
		{"", store.TaskOpen},
		{"Open", store.TaskOpen},
		{"In Progress", store.TaskInProgress},
		{"in-progress", store.TaskInProgress},
		{"InProgress", store.TaskInProgress},
		{"BLOCKED", store.TaskBlocked},
		{"Completed", store.TaskDone},
		{"closed", store.TaskDone},
		{"done", store.TaskDone},
		{"weird value", store.TaskOpen},
	}
	for _, tc := range cases {
		got := ingest.NormalizeStatus(tc.in)
		if got != tc.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
		// Normalizing twice must be stable.
		if again := ingest.NormalizeStatus(string(got)); again != got {
			t.Errorf("NormalizeStatus not idempotent for %q: %q -> %q", tc.in, got, again)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	cases := []struct {
		in   string
		want store.TaskPriority
	}{
		{"", store.PriorityMedium},
		{"LOW", store.PriorityLow},
		{"High", store.PriorityHigh},
		{"critical", store.PriorityHigh},
		{"urgent", store.PriorityHigh},
		{"medium", store.PriorityMedium},
		{"whatever", store.PriorityMedium},
	}
	for _, tc := range cases {
		got := ingest.NormalizePriority(tc.in)
		if got != tc.want {
			t.Errorf("NormalizePriority(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := ingest.NormalizePriority(string(got)); again != got {
			t.Errorf("NormalizePriority not idempotent for %q", tc.in)
		}
	}
}

func TestDecodeUnwrapsArrayAndToleratesGarbage(t *testing.T) {
	resp, err := ingest.Decode([]byte(`[{"tasks":[{"title":"Fix"}]}]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp == nil || len(resp.Tasks) != 1 || resp.Tasks[0].Title != "Fix" {
		t.Fatalf("unexpected decode result: %#v", resp)
	}

	for _, body := range []string{"", "not json", "[]", `"just a string"`, "42"} {
		resp, err := ingest.Decode([]byte(body))
		if err != nil {
			t.Fatalf("Decode(%q) returned error: %v", body, err)
		}
		if resp != nil {
			t.Fatalf("Decode(%q) = %#v, want nil", body, resp)
		}
	}
}

func TestApplyMalformedFieldDoesNotBlockSiblings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Partial")
	session := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)
	if _, err := st.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	ended, _ := st.GetSession(ctx, session.ID)

	body := []byte(`{
        "transcriptSegments": [{"segmentId": "seg-1", "text": "hello"}],
        "tasks": "oops"
    }`)

	processor := ingest.NewProcessor(st, nil)
	report, err := processor.Apply(ctx, ended, body)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if report.TranscriptSegments != 1 {
		t.Fatalf("expected 1 transcript ingested despite malformed tasks field, got %d", report.TranscriptSegments)
	}
	if report.Tasks != 0 {
		t.Fatalf("malformed tasks field must not create tasks, got %d", report.Tasks)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("expected one field error on the report, got %v", report.Errors)
	}

	segments, err := st.TranscriptsByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("TranscriptsByProject failed: %v", err)
	}
	if len(segments) != 1 || segments[0].ID != "seg-1" {
		t.Fatalf("expected stored segment seg-1, got %#v", segments)
	}

	// The snapshot is still persisted, carrying the raw fields verbatim.
	after, _ := st.GetSession(ctx, session.ID)
	if after.WebhookStatus != store.WebhookReceived {
		t.Fatalf("expected received status, got %s", after.WebhookStatus)
	}
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(after.WebhookResult, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if _, ok := snap["processedAt"]; !ok {
		t.Fatal("snapshot missing processedAt")
	}
	if string(snap["tasks"]) != `"oops"` {
		t.Fatalf("snapshot must carry the raw tasks value, got %s", snap["tasks"])
	}
}

func TestDecodeReportsPerFieldErrors(t *testing.T) {
	resp, err := ingest.Decode([]byte(`{"tasks": 7, "evidenceLinks": [{"taskId": "t-1"}]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected response for valid object")
	}
	if len(resp.FieldErrors) != 1 {
		t.Fatalf("expected one field error, got %v", resp.FieldErrors)
	}
	if len(resp.Tasks) != 0 || len(resp.EvidenceLinks) != 1 {
		t.Fatalf("sibling field lost: %#v", resp)
	}
}

func TestApplyCreatesEntitiesAndSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Ingest House")
	session := testsupport.NewSession(t, st, project.ID, store.ModePhotoSpeak)
	if _, err := st.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	ended, _ := st.GetSession(ctx, session.ID)

	body := []byte(`{
        "transcriptSegments": [
            {"segmentId": "seg-1", "text": "check the flashing", "time": "01:30", "confidence": 0.9},
            {"text": "no id segment", "startMs": 5000}
        ],
        "tasks": [
            {"title": "Replace flashing", "status": "In Progress", "priority": "urgent",
             "confidence": 0.8, "linkMediaAssetIds": ["media-1"], "linkTranscriptSegmentIds": ["seg-1"]},
            {"status": "completed"}
        ],
        "evidenceLinks": [
            {"taskId": "external-task", "targetType": "media", "targetId": "media-2"}
        ],
        "issues": [{"title": "Damp spot"}],
        "dailyLog": {"summary": "walkthrough done"}
    }`)

	processor := ingest.NewProcessor(st, nil)
	report, err := processor.Apply(ctx, ended, body)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(report.Errors) != 0 {
		t.Fatalf("unexpected report errors: %v", report.Errors)
	}
	if report.TranscriptSegments != 2 || report.Tasks != 2 || report.EvidenceLinks != 1 || report.SuggestedLinks != 2 {
		t.Fatalf("unexpected report: %#v", report)
	}

	segments, err := st.TranscriptsByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("TranscriptsByProject failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	var seg1 *store.TranscriptSegment
	for _, seg := range segments {
		if seg.ID == "seg-1" {
			seg1 = seg
		}
	}
	if seg1 == nil {
		t.Fatal("expected segment with explicit id")
	}
	if seg1.StartMs != 90000 {
		t.Fatalf("expected 01:30 -> 90000ms, got %d", seg1.StartMs)
	}
	if seg1.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %f", seg1.Confidence)
	}

	tasks, err := st.TasksByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("TasksByProject failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	byTitle := map[string]*store.TaskItem{}
	for _, task := range tasks {
		byTitle[task.Title] = task
	}
	flashing := byTitle["Replace flashing"]
	if flashing == nil || flashing.Status != store.TaskInProgress || flashing.Priority != store.PriorityHigh {
		t.Fatalf("unexpected task: %#v", flashing)
	}
	if flashing.CreatedBy != store.CreatedBySystem {
		t.Fatalf("expected system provenance, got %s", flashing.CreatedBy)
	}
	untitled := byTitle["Untitled Task"]
	if untitled == nil || untitled.Status != store.TaskDone {
		t.Fatalf("expected untitled completed task, got %#v", untitled)
	}

	links, err := st.LinksByTask(ctx, flashing.ID)
	if err != nil {
		t.Fatalf("LinksByTask failed: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 suggested links, got %d", len(links))
	}
	for _, link := range links {
		if link.LinkType != store.LinkSuggested || link.LinkScore != 0.8 {
			t.Fatalf("unexpected suggested link: %#v", link)
		}
	}

	// Project counters updated through ingestion: one open task remains open.
	fetched, _ := st.GetProject(ctx, project.ID)
	if fetched.TaskCount != 2 || fetched.OpenTaskCount != 1 {
		t.Fatalf("unexpected counters: (%d,%d)", fetched.TaskCount, fetched.OpenTaskCount)
	}

	after, _ := st.GetSession(ctx, session.ID)
	if after.WebhookStatus != store.WebhookReceived {
		t.Fatalf("expected received status, got %s", after.WebhookStatus)
	}
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(after.WebhookResult, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if _, ok := snap["processedAt"]; !ok {
		t.Fatal("snapshot missing processedAt")
	}
	if _, ok := snap["issues"]; !ok {
		t.Fatal("snapshot missing raw issues field")
	}
	if _, ok := snap["dailyLog"]; !ok {
		t.Fatal("snapshot missing raw dailyLog field")
	}
	if _, ok := snap["evidenceLinks"]; ok {
		t.Fatal("snapshot must not carry evidenceLinks")
	}
	if _, ok := snap["questions"]; ok {
		t.Fatal("snapshot must not invent absent fields")
	}
}

func TestApplyDanglingEvidenceLinkTolerated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	project := testsupport.NewProject(t, st, "Dangling")
	session := testsupport.NewSession(t, st, project.ID, store.ModeVoiceOnly)
	if _, err := st.EndSession(ctx, session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	ended, _ := st.GetSession(ctx, session.ID)

	processor := ingest.NewProcessor(st, nil)
	report, err := processor.Apply(ctx, ended, []byte(`{
        "evidenceLinks": [{"taskId": "ghost", "targetType": "audio", "targetId": "ghost-audio"}]
    }`))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if report.EvidenceLinks != 1 {
		t.Fatalf("expected dangling link stored, got %#v", report)
	}
	links, _ := st.LinksByTask(ctx, "ghost")
	if len(links) != 1 || links[0].LinkType != store.LinkSuggested || links[0].LinkScore != 0.5 {
		t.Fatalf("unexpected stored link: %#v", links)
	}
}

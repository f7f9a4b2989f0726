package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitelog/internal/logging"
	"sitelog/internal/store"
)

// Response is the typed view of a webhook analysis result. Each field is
// decoded independently from its own raw message: a type error in one field
// lands in FieldErrors and leaves the siblings intact. Fields the processor
// does not act on (issues, questions, and so on) are carried as raw JSON and
// preserved in the session snapshot untouched.
type Response struct {
	TranscriptSegments []Segment
	Tasks              []Task
	EvidenceLinks      []Link

	RawTranscriptSegments json.RawMessage
	RawTasks              json.RawMessage
	Issues                json.RawMessage
	Questions             json.RawMessage
	ChangeOrderCandidates json.RawMessage
	DailyLog              json.RawMessage
	Audit                 json.RawMessage

	FieldErrors []error
}

// Segment is one transcript span in the response.
type Segment struct {
	SegmentID   string   `json:"segmentId"`
	ID          string   `json:"id"`
	AudioNoteID string   `json:"audioNoteId"`
	Text        string   `json:"text"`
	Time        string   `json:"time"`
	StartMs     int64    `json:"startMs"`
	EndMs       int64    `json:"endMs"`
	SpeakerRole string   `json:"speakerRole"`
	Confidence  *float64 `json:"confidence"`
}

// Task is one proposed work item in the response. The link id lists become
// suggested evidence links on the created task.
type Task struct {
	Title                    string   `json:"title"`
	Description              string   `json:"description"`
	Status                   string   `json:"status"`
	Priority                 string   `json:"priority"`
	Tags                     []string `json:"tags"`
	Confidence               *float64 `json:"confidence"`
	LinkMediaAssetIDs        []string `json:"linkMediaAssetIds"`
	LinkTranscriptSegmentIDs []string `json:"linkTranscriptSegmentIds"`
}

// Link is one explicit evidence link in the response. Target ids are taken
// verbatim; they are not validated against stored entities.
type Link struct {
	TaskID     string  `json:"taskId"`
	TargetType string  `json:"targetType"`
	TargetID   string  `json:"targetId"`
	LinkType   string  `json:"linkType"`
	LinkScore  float64 `json:"linkScore"`
}

type rawFields struct {
	TranscriptSegments    json.RawMessage `json:"transcriptSegments"`
	Tasks                 json.RawMessage `json:"tasks"`
	EvidenceLinks         json.RawMessage `json:"evidenceLinks"`
	Issues                json.RawMessage `json:"issues"`
	Questions             json.RawMessage `json:"questions"`
	ChangeOrderCandidates json.RawMessage `json:"changeOrderCandidates"`
	DailyLog              json.RawMessage `json:"dailyLog"`
	Audit                 json.RawMessage `json:"audit"`
}

// snapshot is what gets persisted on the session after processing. Only the
// fields actually present in the response are carried over.
type snapshot struct {
	ProcessedAt           string          `json:"processedAt"`
	TranscriptSegments    json.RawMessage `json:"transcriptSegments,omitempty"`
	Tasks                 json.RawMessage `json:"tasks,omitempty"`
	Issues                json.RawMessage `json:"issues,omitempty"`
	Questions             json.RawMessage `json:"questions,omitempty"`
	ChangeOrderCandidates json.RawMessage `json:"changeOrderCandidates,omitempty"`
	DailyLog              json.RawMessage `json:"dailyLog,omitempty"`
	Audit                 json.RawMessage `json:"audit,omitempty"`
}

// Decode parses a webhook response body. An array-wrapped response is
// unwrapped to its first element. A body that is not a JSON object (or a
// non-empty array of objects) yields (nil, nil): callers treat that as
// nothing to ingest rather than an error. Fields inside a valid object are
// decoded independently; a malformed one lands on FieldErrors while its
// siblings decode normally.
func Decode(raw []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil || len(elements) == 0 {
			return nil, nil
		}
		trimmed = bytes.TrimSpace(elements[0])
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil
	}

	var raws rawFields
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, nil
	}

	resp := &Response{
		RawTranscriptSegments: raws.TranscriptSegments,
		RawTasks:              raws.Tasks,
		Issues:                raws.Issues,
		Questions:             raws.Questions,
		ChangeOrderCandidates: raws.ChangeOrderCandidates,
		DailyLog:              raws.DailyLog,
		Audit:                 raws.Audit,
	}
	decodeField(resp, "transcriptSegments", raws.TranscriptSegments, &resp.TranscriptSegments)
	decodeField(resp, "tasks", raws.Tasks, &resp.Tasks)
	decodeField(resp, "evidenceLinks", raws.EvidenceLinks, &resp.EvidenceLinks)
	return resp, nil
}

// decodeField unmarshals one response field in isolation so a type error in
// it cannot take the sibling fields down with it.
func decodeField(resp *Response, name string, raw json.RawMessage, target any) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return
	}
	if err := json.Unmarshal(raw, target); err != nil {
		resp.FieldErrors = append(resp.FieldErrors, fmt.Errorf("%s: %w", name, err))
	}
}

// Report summarizes what one ingestion run persisted.
type Report struct {
	TranscriptSegments int
	Tasks              int
	EvidenceLinks      int
	SuggestedLinks     int
	Errors             []error
}

// Processor turns webhook responses into stored tasks, transcripts, and
// evidence links.
type Processor struct {
	store  *store.Store
	logger *slog.Logger
}

// NewProcessor constructs an ingest processor.
func NewProcessor(st *store.Store, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		store:  st,
		logger: logging.WithComponent(logger, "ingest"),
	}
}

// Apply ingests a response body for a session. Each response field is
// processed independently: a failure in one does not stop the others, and
// every failure is collected on the report. The processed snapshot is stored
// on the session regardless of partial failures.
func (p *Processor) Apply(ctx context.Context, session *store.CaptureSession, body []byte) (*Report, error) {
	report := &Report{}
	if session == nil {
		return report, fmt.Errorf("session is required")
	}

	resp, err := Decode(body)
	if err != nil || resp == nil {
		return report, err
	}
	report.Errors = append(report.Errors, resp.FieldErrors...)

	p.applyTranscripts(ctx, session, resp, report)
	p.applyTasks(ctx, session, resp, report)
	p.applyLinks(ctx, resp, report)

	snap := snapshot{
		ProcessedAt:           time.Now().UTC().Format(time.RFC3339Nano),
		TranscriptSegments:    resp.RawTranscriptSegments,
		Tasks:                 resp.RawTasks,
		Issues:                resp.Issues,
		Questions:             resp.Questions,
		ChangeOrderCandidates: resp.ChangeOrderCandidates,
		DailyLog:              resp.DailyLog,
		Audit:                 resp.Audit,
	}
	encoded, err := json.Marshal(snap)
	if err != nil {
		return report, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := p.store.SetSessionWebhookResult(ctx, session.ID, store.WebhookReceived, encoded); err != nil {
		return report, err
	}

	p.logger.Info("response ingested",
		logging.String(logging.FieldSessionID, session.ID),
		logging.Int("transcripts", report.TranscriptSegments),
		logging.Int("tasks", report.Tasks),
		logging.Int("links", report.EvidenceLinks+report.SuggestedLinks),
		logging.Int("errors", len(report.Errors)),
	)
	return report, nil
}

func (p *Processor) applyTranscripts(ctx context.Context, session *store.CaptureSession, resp *Response, report *Report) {
	if len(resp.TranscriptSegments) == 0 {
		return
	}
	segments := make([]*store.TranscriptSegment, 0, len(resp.TranscriptSegments))
	for _, seg := range resp.TranscriptSegments {
		id := seg.SegmentID
		if id == "" {
			id = seg.ID
		}
		if id == "" {
			id = uuid.NewString()
		}
		startMs := seg.StartMs
		if ms, ok := parseClockToMs(seg.Time); ok && ms > 0 {
			startMs = ms
		}
		confidence := 1.0
		if seg.Confidence != nil {
			confidence = *seg.Confidence
		}
		segments = append(segments, &store.TranscriptSegment{
			ID:          id,
			AudioNoteID: seg.AudioNoteID,
			ProjectID:   session.ProjectID,
			Text:        seg.Text,
			StartMs:     startMs,
			EndMs:       seg.EndMs,
			SpeakerRole: seg.SpeakerRole,
			Confidence:  confidence,
		})
	}
	if err := p.store.SaveTranscriptSegments(ctx, segments); err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("transcripts: %w", err))
		return
	}
	report.TranscriptSegments = len(segments)
}

func (p *Processor) applyTasks(ctx context.Context, session *store.CaptureSession, resp *Response, report *Report) {
	for _, task := range resp.Tasks {
		created, err := p.store.CreateTask(ctx, &store.TaskItem{
			ProjectID:   session.ProjectID,
			AreaID:      session.AreaID,
			AreaType:    session.AreaType,
			Title:       task.Title,
			Description: task.Description,
			Status:      NormalizeStatus(task.Status),
			Priority:    NormalizePriority(task.Priority),
			Tags:        task.Tags,
			CreatedBy:   store.CreatedBySystem,
			Confidence:  task.Confidence,
		})
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("task %q: %w", task.Title, err))
			continue
		}
		report.Tasks++

		score := 0.5
		if task.Confidence != nil && *task.Confidence != 0 {
			score = *task.Confidence
		}
		for _, mediaID := range task.LinkMediaAssetIDs {
			p.suggestLink(ctx, created.ID, store.TargetMedia, mediaID, score, report)
		}
		for _, segmentID := range task.LinkTranscriptSegmentIDs {
			p.suggestLink(ctx, created.ID, store.TargetTranscript, segmentID, score, report)
		}
	}
}

func (p *Processor) suggestLink(ctx context.Context, taskID string, targetType store.TargetType, targetID string, score float64, report *Report) {
	_, err := p.store.CreateEvidenceLink(ctx, &store.EvidenceLink{
		TaskID:     taskID,
		TargetType: targetType,
		TargetID:   targetID,
		LinkType:   store.LinkSuggested,
		LinkScore:  score,
		CreatedBy:  store.CreatedBySystem,
	})
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("suggested link %s/%s: %w", targetType, targetID, err))
		return
	}
	report.SuggestedLinks++
}

func (p *Processor) applyLinks(ctx context.Context, resp *Response, report *Report) {
	for _, link := range resp.EvidenceLinks {
		linkType := store.LinkType(link.LinkType)
		if linkType == "" {
			linkType = store.LinkSuggested
		}
		score := link.LinkScore
		if score == 0 {
			score = 0.5
		}
		_, err := p.store.CreateEvidenceLink(ctx, &store.EvidenceLink{
			TaskID:     link.TaskID,
			TargetType: store.TargetType(link.TargetType),
			TargetID:   link.TargetID,
			LinkType:   linkType,
			LinkScore:  score,
			CreatedBy:  store.CreatedBySystem,
		})
		if err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("evidence link %s: %w", link.TargetID, err))
			continue
		}
		report.EvidenceLinks++
	}
}

var statusSeparators = regexp.MustCompile(`[\s-]+`)

// NormalizeStatus maps free-form status text onto the task state machine.
// Unknown values fall back to open. The mapping is idempotent: normalizing
// an already-normalized value returns it unchanged.
func NormalizeStatus(s string) store.TaskStatus {
	if s == "" {
		return store.TaskOpen
	}
	lower := statusSeparators.ReplaceAllString(strings.ToLower(s), "_")
	switch lower {
	case "open":
		return store.TaskOpen
	case "in_progress", "inprogress":
		return store.TaskInProgress
	case "blocked":
		return store.TaskBlocked
	case "done", "completed", "closed":
		return store.TaskDone
	}
	return store.TaskOpen
}

// NormalizePriority maps free-form priority text onto the known levels.
// Unknown values fall back to medium.
func NormalizePriority(p string) store.TaskPriority {
	if p == "" {
		return store.PriorityMedium
	}
	switch strings.ToLower(p) {
	case "low":
		return store.PriorityLow
	case "high", "critical", "urgent":
		return store.PriorityHigh
	}
	return store.PriorityMedium
}

// parseClockToMs converts a "MM:SS" timestamp into milliseconds.
func parseClockToMs(clock string) (int64, bool) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return int64(minutes*60+seconds) * 1000, true
}

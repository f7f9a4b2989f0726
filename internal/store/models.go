package store

import (
	"strings"
	"time"
)

// SyncStatus tracks local-to-remote delivery state of a single asset.
type SyncStatus string

const (
	SyncCaptured SyncStatus = "captured"
	SyncSyncing  SyncStatus = "syncing"
	SyncUploaded SyncStatus = "uploaded"
	SyncFailed   SyncStatus = "failed"
)

// WebhookStatus is the session-level dispatch lifecycle.
//
// pending -> sent -> received on success, pending -> sent -> failed on
// failure; failed sessions may re-enter sent via retry. A session with no
// EndedAt is never eligible for dispatch regardless of status.
type WebhookStatus string

const (
	WebhookPending  WebhookStatus = "pending"
	WebhookSent     WebhookStatus = "sent"
	WebhookReceived WebhookStatus = "received"
	WebhookFailed   WebhookStatus = "failed"
)

// CaptureMode distinguishes how a session was recorded.
type CaptureMode string

const (
	ModePhotoSpeak  CaptureMode = "photo_speak"
	ModeWalkthrough CaptureMode = "walkthrough"
	ModeVoiceOnly   CaptureMode = "voice_only"
)

// ParseCaptureMode converts a string into a known CaptureMode.
func ParseCaptureMode(value string) (CaptureMode, bool) {
	mode := CaptureMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case ModePhotoSpeak, ModeWalkthrough, ModeVoiceOnly:
		return mode, true
	}
	return "", false
}

// SessionType distinguishes walkthroughs from recorded meetings.
type SessionType string

const (
	SessionWalkthrough SessionType = "walkthrough"
	SessionMeeting     SessionType = "meeting"
)

// ApprovalStatus applies to meeting-type sessions only.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AreaType is the closed set of area classifications.
type AreaType string

const (
	AreaKitchen    AreaType = "kitchen"
	AreaBath       AreaType = "bath"
	AreaRoof       AreaType = "roof"
	AreaExterior   AreaType = "exterior"
	AreaGarage     AreaType = "garage"
	AreaBasement   AreaType = "basement"
	AreaBedroom    AreaType = "bedroom"
	AreaLivingRoom AreaType = "living_room"
	AreaOther      AreaType = "other"
)

var areaTypes = map[AreaType]struct{}{
	AreaKitchen: {}, AreaBath: {}, AreaRoof: {}, AreaExterior: {}, AreaGarage: {},
	AreaBasement: {}, AreaBedroom: {}, AreaLivingRoom: {}, AreaOther: {},
}

// ParseAreaType converts a string into a known AreaType.
func ParseAreaType(value string) (AreaType, bool) {
	area := AreaType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := areaTypes[area]
	return area, ok
}

// MediaKind distinguishes photos from videos.
type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// TaskStatus is the ordered task state machine.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
)

// CountsAsOpen reports whether the status contributes to a project's
// openTaskCount.
func (s TaskStatus) CountsAsOpen() bool {
	return s == TaskOpen || s == TaskInProgress
}

// TaskPriority levels.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// LinkType classifies the strength of an evidence association.
type LinkType string

const (
	LinkStrong    LinkType = "strong"
	LinkSuggested LinkType = "suggested"
	LinkPossible  LinkType = "possible"
)

// TargetType names what an evidence link points at.
type TargetType string

const (
	TargetMedia      TargetType = "media"
	TargetAudio      TargetType = "audio"
	TargetTranscript TargetType = "transcript"
)

// Creator records entity provenance; it never changes after creation.
type Creator string

const (
	CreatedBySystem Creator = "system"
	CreatedByUser   Creator = "user"
)

// Project groups all captured material for one job site. The three counters
// are maintained incrementally by every mutation that touches media or tasks
// under the project; they are never recomputed on read.
type Project struct {
	ID            string
	Name          string
	Address       string
	ClientName    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	MediaCount    int
	TaskCount     int
	OpenTaskCount int
}

// Area is a named location inside a project.
type Area struct {
	ID        string
	ProjectID string
	Type      AreaType
	Label     string
	CreatedAt time.Time
}

// DefaultAreas are created with every new project.
func DefaultAreas() []Area {
	return []Area{
		{Type: AreaKitchen, Label: "Kitchen"},
		{Type: AreaBath, Label: "Bathroom"},
		{Type: AreaRoof, Label: "Roof"},
		{Type: AreaExterior, Label: "Exterior"},
		{Type: AreaOther, Label: "Other"},
	}
}

// MediaAsset is a captured photo or video.
type MediaAsset struct {
	ID         string
	ProjectID  string
	AreaID     string
	AreaType   AreaType
	Kind       MediaKind
	URI        string
	CapturedAt time.Time
	SyncStatus SyncStatus
	SessionID  string
	Metadata   map[string]any
}

// Tags extracts the optional tag list from the free-form metadata bag.
func (m *MediaAsset) Tags() []string {
	if m == nil || m.Metadata == nil {
		return nil
	}
	raw, ok := m.Metadata["tags"].([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

// AudioNote is a captured voice recording. LinkedMediaID is a weak
// reference: relation only, no ownership.
type AudioNote struct {
	ID            string
	ProjectID     string
	AreaID        string
	AreaType      AreaType
	URI           string
	DurationMs    int64
	CapturedAt    time.Time
	SyncStatus    SyncStatus
	SessionID     string
	LinkedMediaID string
	Transcript    string
}

// Participant attends a recorded meeting.
type Participant struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// MeetingMetadata records meeting context and the consent record.
// ConsentGiven is a hard precondition for starting a meeting session.
type MeetingMetadata struct {
	MeetingType      string        `json:"meetingType"`
	Participants     []Participant `json:"participants"`
	ConsentGiven     bool          `json:"consentGiven"`
	ConsentMethod    string        `json:"consentMethod"`
	ConsentTimestamp int64         `json:"consentTimestamp"`
}

// CaptureSession is a bounded capture activity. The MediaIDs/AudioIDs lists
// are the authoritative membership relation (insertion order = capture
// order); member assets carry a back-reference SessionID kept consistent by
// the append operations. A session with EndedAt unset is still being
// captured and is never dispatched.
type CaptureSession struct {
	ID              string
	ProjectID       string
	AreaID          string
	AreaType        AreaType
	Mode            CaptureMode
	SessionType     SessionType
	StartedAt       time.Time
	EndedAt         *time.Time
	MediaIDs        []string
	AudioIDs        []string
	WebhookStatus   WebhookStatus
	WebhookResult   []byte // raw JSON snapshot of the processed response
	MeetingMetadata *MeetingMetadata
	ApprovalStatus  ApprovalStatus
	ApprovedAt      *time.Time
	ApprovedBy      string
}

// Ended reports whether capture has finished.
func (s *CaptureSession) Ended() bool {
	return s != nil && s.EndedAt != nil
}

// AwaitingSync reports whether the session is eligible for (re)dispatch.
func (s *CaptureSession) AwaitingSync() bool {
	return s.Ended() && (s.WebhookStatus == WebhookPending || s.WebhookStatus == WebhookFailed)
}

// TaskItem is a unit of work, created by users or by AI ingestion.
// Confidence is set only for system-created tasks.
type TaskItem struct {
	ID          string
	ProjectID   string
	AreaID      string
	AreaType    AreaType
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	Tags        []string
	CreatedBy   Creator
	Confidence  *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EvidenceLink associates a task with supporting media/audio/transcript.
// Targets are not validated at creation time; dangling links are tolerated.
type EvidenceLink struct {
	ID         string
	TaskID     string
	TargetType TargetType
	TargetID   string
	LinkType   LinkType
	LinkScore  float64
	CreatedBy  Creator
	CreatedAt  time.Time
}

// TranscriptSegment is one span of transcribed speech.
type TranscriptSegment struct {
	ID          string
	AudioNoteID string
	ProjectID   string
	Text        string
	StartMs     int64
	EndMs       int64
	SpeakerRole string
	Confidence  float64
}

// Settings are operator preferences consulted by the dispatcher.
type Settings struct {
	WifiOnlyUpload bool   `json:"wifiOnlyUpload"`
	AutoSync       bool   `json:"autoSync"`
	WebhookURL     string `json:"webhookUrl"`
}

// SyncCounts aggregates session sync state for status displays.
type SyncCounts struct {
	Pending int
	Total   int
	Synced  int
}

package api

import "encoding/json"

// Project is the transport representation of a project.
type Project struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	ClientName    string `json:"clientName,omitempty"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
	MediaCount    int    `json:"mediaCount"`
	TaskCount     int    `json:"taskCount"`
	OpenTaskCount int    `json:"openTaskCount"`
}

// Session is the transport representation of a capture session.
type Session struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"projectId"`
	AreaID         string          `json:"areaId,omitempty"`
	AreaType       string          `json:"areaType,omitempty"`
	Mode           string          `json:"mode"`
	SessionType    string          `json:"sessionType"`
	StartedAt      string          `json:"startedAt"`
	EndedAt        string          `json:"endedAt,omitempty"`
	MediaIDs       []string        `json:"mediaIds"`
	AudioIDs       []string        `json:"audioIds"`
	WebhookStatus  string          `json:"webhookStatus"`
	WebhookResult  json.RawMessage `json:"webhookResult,omitempty"`
	ApprovalStatus string          `json:"approvalStatus,omitempty"`
	ApprovedAt     string          `json:"approvedAt,omitempty"`
	ApprovedBy     string          `json:"approvedBy,omitempty"`
}

// Task is the transport representation of a work item.
type Task struct {
	ID          string   `json:"id"`
	ProjectID   string   `json:"projectId"`
	AreaID      string   `json:"areaId,omitempty"`
	AreaType    string   `json:"areaType,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	CreatedBy   string   `json:"createdBy"`
	Confidence  *float64 `json:"confidence,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// MediaAsset is the transport representation of a photo or video.
type MediaAsset struct {
	ID         string `json:"id"`
	ProjectID  string `json:"projectId"`
	Kind       string `json:"type"`
	URI        string `json:"uri,omitempty"`
	CapturedAt string `json:"capturedAt"`
	SyncStatus string `json:"syncStatus"`
	SessionID  string `json:"sessionId,omitempty"`
}

// AudioNote is the transport representation of a voice recording.
type AudioNote struct {
	ID            string `json:"id"`
	ProjectID     string `json:"projectId"`
	URI           string `json:"uri,omitempty"`
	DurationMs    int64  `json:"durationMs"`
	CapturedAt    string `json:"capturedAt"`
	SyncStatus    string `json:"syncStatus"`
	SessionID     string `json:"sessionId,omitempty"`
	LinkedMediaID string `json:"linkedMediaId,omitempty"`
	Transcript    string `json:"transcript,omitempty"`
}

// SyncStatus summarizes session delivery state for status displays.
type SyncStatus struct {
	PendingSessions int `json:"pendingSessions"`
	TotalSessions   int `json:"totalSessions"`
	SyncedSessions  int `json:"syncedSessions"`
}

// DaemonStatus is the aggregated runtime view served by GET /api/status.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	DatabasePath string     `json:"databasePath"`
	WebhookURL   string     `json:"webhookUrl"`
	AutoSync     bool       `json:"autoSync"`
	Sync         SyncStatus `json:"sync"`
}

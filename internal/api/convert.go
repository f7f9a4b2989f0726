package api

import (
	"encoding/json"
	"time"

	"sitelog/internal/store"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FromProject converts a stored project into its transport form.
func FromProject(p *store.Project) Project {
	if p == nil {
		return Project{}
	}
	return Project{
		ID:            p.ID,
		Name:          p.Name,
		Address:       p.Address,
		ClientName:    p.ClientName,
		CreatedAt:     formatTimestamp(p.CreatedAt),
		UpdatedAt:     formatTimestamp(p.UpdatedAt),
		MediaCount:    p.MediaCount,
		TaskCount:     p.TaskCount,
		OpenTaskCount: p.OpenTaskCount,
	}
}

// FromSession converts a stored session into its transport form. The stored
// webhook result snapshot passes through as raw JSON to avoid re-encoding.
func FromSession(s *store.CaptureSession) Session {
	if s == nil {
		return Session{}
	}
	view := Session{
		ID:             s.ID,
		ProjectID:      s.ProjectID,
		AreaID:         s.AreaID,
		AreaType:       string(s.AreaType),
		Mode:           string(s.Mode),
		SessionType:    string(s.SessionType),
		StartedAt:      formatTimestamp(s.StartedAt),
		MediaIDs:       emptyIfNil(s.MediaIDs),
		AudioIDs:       emptyIfNil(s.AudioIDs),
		WebhookStatus:  string(s.WebhookStatus),
		ApprovalStatus: string(s.ApprovalStatus),
		ApprovedBy:     s.ApprovedBy,
	}
	if s.EndedAt != nil {
		view.EndedAt = formatTimestamp(*s.EndedAt)
	}
	if s.ApprovedAt != nil {
		view.ApprovedAt = formatTimestamp(*s.ApprovedAt)
	}
	if len(s.WebhookResult) > 0 {
		view.WebhookResult = json.RawMessage(s.WebhookResult)
	}
	return view
}

// FromTask converts a stored task into its transport form.
func FromTask(t *store.TaskItem) Task {
	if t == nil {
		return Task{}
	}
	return Task{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		AreaID:      t.AreaID,
		AreaType:    string(t.AreaType),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Tags:        emptyIfNil(t.Tags),
		CreatedBy:   string(t.CreatedBy),
		Confidence:  t.Confidence,
		CreatedAt:   formatTimestamp(t.CreatedAt),
		UpdatedAt:   formatTimestamp(t.UpdatedAt),
	}
}

// FromMediaAsset converts a stored media asset into its transport form.
func FromMediaAsset(m *store.MediaAsset) MediaAsset {
	if m == nil {
		return MediaAsset{}
	}
	return MediaAsset{
		ID:         m.ID,
		ProjectID:  m.ProjectID,
		Kind:       string(m.Kind),
		URI:        m.URI,
		CapturedAt: formatTimestamp(m.CapturedAt),
		SyncStatus: string(m.SyncStatus),
		SessionID:  m.SessionID,
	}
}

// FromAudioNote converts a stored audio note into its transport form.
func FromAudioNote(a *store.AudioNote) AudioNote {
	if a == nil {
		return AudioNote{}
	}
	return AudioNote{
		ID:            a.ID,
		ProjectID:     a.ProjectID,
		URI:           a.URI,
		DurationMs:    a.DurationMs,
		CapturedAt:    formatTimestamp(a.CapturedAt),
		SyncStatus:    string(a.SyncStatus),
		SessionID:     a.SessionID,
		LinkedMediaID: a.LinkedMediaID,
		Transcript:    a.Transcript,
	}
}

// FromSyncCounts converts stored sync counters into their transport form.
func FromSyncCounts(c store.SyncCounts) SyncStatus {
	return SyncStatus{
		PendingSessions: c.Pending,
		TotalSessions:   c.Total,
		SyncedSessions:  c.Synced,
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

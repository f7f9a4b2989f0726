package payload

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sitelog/internal/store"
)

// Metadata is the webhook payload describing one ended capture session.
type Metadata struct {
	ProjectID      string       `json:"projectId"`
	ProjectName    string       `json:"projectName"`
	ProjectAddress string       `json:"projectAddress"`
	SessionID      string       `json:"sessionId"`
	Area           string       `json:"area"`
	SessionType    string       `json:"sessionType"`
	CapturedAt     string       `json:"capturedAt"`
	EndedAt        string       `json:"endedAt,omitempty"`
	MediaAssets    []MediaAsset `json:"mediaAssets"`
	AudioNotes     []AudioNote  `json:"audioNotes"`
}

// MediaAsset is one photo or video entry in the payload.
type MediaAsset struct {
	MediaAssetID string   `json:"mediaAssetId"`
	Type         string   `json:"type"`
	CapturedAt   string   `json:"capturedAt"`
	Area         string   `json:"area"`
	URL          string   `json:"url,omitempty"`
	Tags         []string `json:"tags"`
}

// AudioNote is one voice recording entry in the payload.
type AudioNote struct {
	AudioNoteID         string           `json:"audioNoteId"`
	LinkedMediaAssetIDs []string         `json:"linkedMediaAssetIds"`
	CapturedAt          string           `json:"capturedAt"`
	Area                string           `json:"area"`
	DurationMs          int64            `json:"durationMs"`
	URL                 string           `json:"url,omitempty"`
	Transcript          []TranscriptLine `json:"transcript"`
}

// TranscriptLine carries locally transcribed text for a recording.
type TranscriptLine struct {
	Time       string  `json:"time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// URLSigner produces time-limited download URLs for stored objects. An empty
// URL with a nil error means signing is unavailable for the key.
type URLSigner interface {
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Builder assembles webhook payloads from stored session state.
type Builder struct {
	store  *store.Store
	signer URLSigner
}

// NewBuilder constructs a payload builder. signer may be nil.
func NewBuilder(st *store.Store, signer URLSigner) *Builder {
	return &Builder{store: st, signer: signer}
}

// Build assembles the payload for a session together with the path of the
// audio file to attach, if any. The attachment is the first audio note in
// capture order whose file still exists on disk; stat failures skip the
// candidate rather than failing the build.
func (b *Builder) Build(ctx context.Context, session *store.CaptureSession) (*Metadata, string, error) {
	if session == nil {
		return nil, "", fmt.Errorf("session is required")
	}

	project, err := b.store.GetProject(ctx, session.ProjectID)
	if err != nil {
		return nil, "", err
	}
	media, err := b.store.MediaByIDs(ctx, session.MediaIDs)
	if err != nil {
		return nil, "", err
	}
	audio, err := b.store.AudioByIDs(ctx, session.AudioIDs)
	if err != nil {
		return nil, "", err
	}

	areaLabel := AreaLabel(session.AreaType)

	mediaAssets := make([]MediaAsset, 0, len(media))
	for _, m := range media {
		tags := m.Tags()
		if tags == nil {
			tags = []string{}
		}
		mediaAssets = append(mediaAssets, MediaAsset{
			MediaAssetID: m.ID,
			Type:         string(m.Kind),
			CapturedAt:   isoTime(m.CapturedAt),
			Area:         areaLabel,
			URL:          b.signURL(ctx, session.ProjectID, "media", m.URI),
			Tags:         tags,
		})
	}

	audioNotes := make([]AudioNote, 0, len(audio))
	for _, a := range audio {
		linked := []string{}
		for _, m := range media {
			if a.LinkedMediaID == m.ID || (a.SessionID != "" && m.SessionID == a.SessionID) {
				linked = append(linked, m.ID)
			}
		}

		transcript := []TranscriptLine{}
		if a.Transcript != "" {
			transcript = append(transcript, TranscriptLine{
				Time:       "00:00",
				Text:       a.Transcript,
				Confidence: 1.0,
			})
		}

		audioNotes = append(audioNotes, AudioNote{
			AudioNoteID:         a.ID,
			LinkedMediaAssetIDs: linked,
			CapturedAt:          isoTime(a.CapturedAt),
			Area:                areaLabel,
			DurationMs:          a.DurationMs,
			URL:                 b.signURL(ctx, session.ProjectID, "audio", a.URI),
			Transcript:          transcript,
		})
	}

	meta := &Metadata{
		ProjectID:   session.ProjectID,
		SessionID:   session.ID,
		Area:        areaLabel,
		SessionType: string(session.Mode),
		CapturedAt:  isoTime(session.StartedAt),
		MediaAssets: mediaAssets,
		AudioNotes:  audioNotes,
	}
	if project != nil {
		meta.ProjectName = project.Name
		meta.ProjectAddress = project.Address
	}
	if session.EndedAt != nil {
		meta.EndedAt = isoTime(*session.EndedAt)
	}

	return meta, firstPlayableAudio(audio), nil
}

// AreaLabel renders an area type for display: underscores become spaces and
// each word is title-cased.
func AreaLabel(areaType store.AreaType) string {
	label := strings.ReplaceAll(string(areaType), "_", " ")
	return cases.Title(language.Und).String(label)
}

func (b *Builder) signURL(ctx context.Context, projectID, kind, uri string) string {
	if b.signer == nil || uri == "" {
		return ""
	}
	key := path.Join(projectID, kind, path.Base(uri))
	url, err := b.signer.DownloadURL(ctx, key)
	if err != nil {
		return ""
	}
	return url
}

// firstPlayableAudio picks the attachment: the first note in capture order
// whose file can be stat'ed.
func firstPlayableAudio(notes []*store.AudioNote) string {
	for _, note := range notes {
		if note.URI == "" {
			continue
		}
		filePath := strings.TrimPrefix(note.URI, "file://")
		if _, err := os.Stat(filePath); err != nil {
			continue
		}
		return filePath
	}
	return ""
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

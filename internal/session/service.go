package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sitelog/internal/logging"
	"sitelog/internal/store"
)

// ErrConsentRequired is returned when a meeting session is started without a
// recorded consent.
var ErrConsentRequired = errors.New("meeting sessions require recorded consent")

// Service coordinates the capture lifecycle: starting sessions, attaching
// assets while capture is live, and closing sessions for dispatch.
type Service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewService constructs a session service.
func NewService(st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:  st,
		logger: logging.WithComponent(logger, "session"),
	}
}

// StartRequest describes a new capture session.
type StartRequest struct {
	ProjectID   string
	AreaID      string
	AreaType    store.AreaType
	Mode        store.CaptureMode
	SessionType store.SessionType
	Meeting     *store.MeetingMetadata
}

// Start opens a new capture session. Meeting sessions must carry consent;
// without it the session is refused before anything is persisted.
func (s *Service) Start(ctx context.Context, req StartRequest) (*store.CaptureSession, error) {
	if req.ProjectID == "" {
		return nil, errors.New("project id is required")
	}
	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s not found", req.ProjectID)
	}

	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = store.SessionWalkthrough
	}
	if sessionType == store.SessionMeeting {
		if req.Meeting == nil || !req.Meeting.ConsentGiven {
			return nil, ErrConsentRequired
		}
	}

	mode := req.Mode
	if mode == "" {
		mode = store.ModeWalkthrough
	}

	session, err := s.store.CreateSession(ctx, &store.CaptureSession{
		ProjectID:       req.ProjectID,
		AreaID:          req.AreaID,
		AreaType:        req.AreaType,
		Mode:            mode,
		SessionType:     sessionType,
		MeetingMetadata: req.Meeting,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("session started",
		logging.String(logging.FieldSessionID, session.ID),
		logging.String(logging.FieldProjectID, session.ProjectID),
		logging.String("mode", string(session.Mode)),
		logging.String("type", string(session.SessionType)),
	)
	return session, nil
}

// Get returns a session or nil when it does not exist.
func (s *Service) Get(ctx context.Context, id string) (*store.CaptureSession, error) {
	return s.store.GetSession(ctx, id)
}

// CapturePhoto records a photo asset and attaches it to the session.
func (s *Service) CapturePhoto(ctx context.Context, sessionID, uri string) (*store.MediaAsset, error) {
	return s.captureMedia(ctx, sessionID, store.MediaPhoto, uri)
}

// CaptureVideo records a video asset and attaches it to the session.
func (s *Service) CaptureVideo(ctx context.Context, sessionID, uri string) (*store.MediaAsset, error) {
	return s.captureMedia(ctx, sessionID, store.MediaVideo, uri)
}

func (s *Service) captureMedia(ctx context.Context, sessionID string, kind store.MediaKind, uri string) (*store.MediaAsset, error) {
	session, err := s.requireLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	asset, err := s.store.CreateMedia(ctx, &store.MediaAsset{
		ProjectID: session.ProjectID,
		AreaID:    session.AreaID,
		AreaType:  session.AreaType,
		Kind:      kind,
		URI:       uri,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendSessionMedia(ctx, sessionID, asset.ID); err != nil {
		return nil, err
	}
	s.logger.Debug("media captured",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("mediaId", asset.ID),
		logging.String("kind", string(kind)),
	)
	return asset, nil
}

// CaptureAudio records a voice note and attaches it to the session. An
// optional linkedMediaID relates the note to a photo without transferring
// ownership.
func (s *Service) CaptureAudio(ctx context.Context, sessionID, uri string, durationMs int64, linkedMediaID string) (*store.AudioNote, error) {
	session, err := s.requireLiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	note, err := s.store.CreateAudioNote(ctx, &store.AudioNote{
		ProjectID:     session.ProjectID,
		AreaID:        session.AreaID,
		AreaType:      session.AreaType,
		URI:           uri,
		DurationMs:    durationMs,
		LinkedMediaID: linkedMediaID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendSessionAudio(ctx, sessionID, note.ID); err != nil {
		return nil, err
	}
	s.logger.Debug("audio captured",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("audioId", note.ID),
	)
	return note, nil
}

// AttachMedia adds an already-stored media asset to a live session.
func (s *Service) AttachMedia(ctx context.Context, sessionID, mediaID string) error {
	if _, err := s.requireLiveSession(ctx, sessionID); err != nil {
		return err
	}
	asset, err := s.store.GetMedia(ctx, mediaID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("media asset %s not found", mediaID)
	}
	return s.store.AppendSessionMedia(ctx, sessionID, mediaID)
}

// AttachAudio adds an already-stored audio note to a live session.
func (s *Service) AttachAudio(ctx context.Context, sessionID, audioID string) error {
	if _, err := s.requireLiveSession(ctx, sessionID); err != nil {
		return err
	}
	note, err := s.store.GetAudioNote(ctx, audioID)
	if err != nil {
		return err
	}
	if note == nil {
		return fmt.Errorf("audio note %s not found", audioID)
	}
	return s.store.AppendSessionAudio(ctx, sessionID, audioID)
}

// End closes a session, making it eligible for dispatch. Ending twice is a
// no-op.
func (s *Service) End(ctx context.Context, id string) (*store.CaptureSession, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if session.Ended() {
		return session, nil
	}
	ended, err := s.store.EndSession(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session ended",
		logging.String(logging.FieldSessionID, id),
		logging.Int("mediaCount", len(ended.MediaIDs)),
		logging.Int("audioCount", len(ended.AudioIDs)),
	)
	return ended, nil
}

func (s *Service) requireLiveSession(ctx context.Context, id string) (*store.CaptureSession, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	if session.Ended() {
		return nil, fmt.Errorf("session %s has already ended", id)
	}
	return session, nil
}

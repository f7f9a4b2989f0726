package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSession starts a new capture session in the pending webhook state.
// Meeting sessions additionally enter the approval workflow as pending.
func (s *Store) CreateSession(ctx context.Context, session *CaptureSession) (*CaptureSession, error) {
	if session == nil {
		return nil, errors.New("session is required")
	}
	if session.ProjectID == "" {
		return nil, errors.New("session requires a project id")
	}

	stored := *session
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.StartedAt.IsZero() {
		stored.StartedAt = time.Now().UTC()
	}
	stored.WebhookStatus = WebhookPending
	stored.EndedAt = nil
	if stored.SessionType == SessionMeeting {
		stored.ApprovalStatus = ApprovalPending
	} else {
		stored.ApprovalStatus = ""
	}

	meeting, err := encodeJSON(meetingOrNil(stored.MeetingMetadata))
	if err != nil {
		return nil, fmt.Errorf("encode meeting metadata: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO capture_sessions (id, project_id, area_id, area_type, mode, session_type, started_at, ended_at, media_ids, audio_ids, webhook_status, webhook_result, meeting_metadata, approval_status, approved_at, approved_by, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, NULL, '[]', '[]', ?, NULL, ?, ?, NULL, NULL, ?)`,
		stored.ID,
		stored.ProjectID,
		nullableString(stored.AreaID),
		nullableString(string(stored.AreaType)),
		stored.Mode,
		stored.SessionType,
		formatTime(stored.StartedAt),
		stored.WebhookStatus,
		meeting,
		nullableString(string(stored.ApprovalStatus)),
		formatTime(stored.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	stored.MediaIDs = nil
	stored.AudioIDs = nil
	stored.WebhookResult = nil
	return &stored, nil
}

// GetSession fetches a session by identifier. Returns (nil, nil) when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*CaptureSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM capture_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions in creation order.
func (s *Store) ListSessions(ctx context.Context) ([]*CaptureSession, error) {
	return s.querySessions(ctx, `SELECT `+sessionColumns+` FROM capture_sessions ORDER BY created_at ASC`)
}

// SessionsByProject lists a project's sessions in creation order.
func (s *Store) SessionsByProject(ctx context.Context, projectID string) ([]*CaptureSession, error) {
	return s.querySessions(
		ctx,
		`SELECT `+sessionColumns+` FROM capture_sessions WHERE project_id = ? ORDER BY created_at ASC`,
		projectID,
	)
}

// SessionsAwaitingSync returns ended sessions still owed a webhook delivery,
// oldest first. With failedOnly set, only previously failed sessions are
// returned.
func (s *Store) SessionsAwaitingSync(ctx context.Context, failedOnly bool) ([]*CaptureSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM capture_sessions
        WHERE ended_at IS NOT NULL AND webhook_status IN (?, ?)
        ORDER BY created_at ASC`
	args := []any{WebhookPending, WebhookFailed}
	if failedOnly {
		query = `SELECT ` + sessionColumns + ` FROM capture_sessions
            WHERE ended_at IS NOT NULL AND webhook_status = ?
            ORDER BY created_at ASC`
		args = []any{WebhookFailed}
	}
	return s.querySessions(ctx, query, args...)
}

// AppendSessionMedia adds a media asset to the session membership list and
// stamps the asset's back-reference in the same transaction.
func (s *Store) AppendSessionMedia(ctx context.Context, sessionID, mediaID string) error {
	return s.appendSessionAsset(ctx, sessionID, mediaID, "media_ids", "media_assets")
}

// AppendSessionAudio adds an audio note to the session membership list and
// stamps the note's back-reference in the same transaction.
func (s *Store) AppendSessionAudio(ctx context.Context, sessionID, audioID string) error {
	return s.appendSessionAsset(ctx, sessionID, audioID, "audio_ids", "audio_notes")
}

func (s *Store) appendSessionAsset(ctx context.Context, sessionID, assetID, column, assetTable string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			rawIDs   string
			endedRaw sql.NullString
		)
		err := tx.QueryRowContext(
			ctx,
			`SELECT `+column+`, ended_at FROM capture_sessions WHERE id = ?`,
			sessionID,
		).Scan(&rawIDs, &endedRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session %s not found", sessionID)
		}
		if err != nil {
			return fmt.Errorf("lookup session: %w", err)
		}
		if endedRaw.Valid {
			return fmt.Errorf("session %s has already ended", sessionID)
		}

		// Append is not idempotent: callers must not record the same
		// capture twice.
		ids := append(decodeStringList(rawIDs), assetID)

		_, err = tx.ExecContext(
			ctx,
			`UPDATE capture_sessions SET `+column+` = ? WHERE id = ?`,
			encodeStringList(ids),
			sessionID,
		)
		if err != nil {
			return fmt.Errorf("update session membership: %w", err)
		}
		_, err = tx.ExecContext(
			ctx,
			`UPDATE `+assetTable+` SET session_id = ? WHERE id = ?`,
			sessionID,
			assetID,
		)
		if err != nil {
			return fmt.Errorf("stamp asset session: %w", err)
		}
		return nil
	})
}

// EndSession closes capture. Ending an already ended session is a no-op.
func (s *Store) EndSession(ctx context.Context, id string) (*CaptureSession, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE capture_sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		formatTime(now),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	return s.GetSession(ctx, id)
}

// SetSessionWebhookStatus records a dispatch lifecycle transition.
func (s *Store) SetSessionWebhookStatus(ctx context.Context, id string, status WebhookStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE capture_sessions SET webhook_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set webhook status: %w", err)
	}
	return nil
}

// SetSessionWebhookResult stores the processed response snapshot alongside a
// status transition.
func (s *Store) SetSessionWebhookResult(ctx context.Context, id string, status WebhookStatus, result []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE capture_sessions SET webhook_status = ?, webhook_result = ? WHERE id = ?`,
		status,
		nullableString(string(result)),
		id,
	)
	if err != nil {
		return fmt.Errorf("set webhook result: %w", err)
	}
	return nil
}

// SetSessionApproval records a meeting approval decision.
func (s *Store) SetSessionApproval(ctx context.Context, id string, status ApprovalStatus, approvedBy string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE capture_sessions SET approval_status = ?, approved_at = ?, approved_by = ? WHERE id = ?`,
		status,
		formatTime(time.Now().UTC()),
		nullableString(approvedBy),
		id,
	)
	if err != nil {
		return fmt.Errorf("set session approval: %w", err)
	}
	return nil
}

// SessionSyncCounts summarizes webhook delivery state across all sessions.
func (s *Store) SessionSyncCounts(ctx context.Context) (SyncCounts, error) {
	var counts SyncCounts
	err := s.db.QueryRowContext(
		ctx,
		`SELECT
            COUNT(*),
            SUM(CASE WHEN ended_at IS NOT NULL AND webhook_status IN (?, ?) THEN 1 ELSE 0 END),
            SUM(CASE WHEN webhook_status = ? THEN 1 ELSE 0 END)
         FROM capture_sessions`,
		WebhookPending,
		WebhookFailed,
		WebhookReceived,
	).Scan(&counts.Total, &counts.Pending, &counts.Synced)
	if err != nil {
		return SyncCounts{}, fmt.Errorf("count sessions: %w", err)
	}
	return counts, nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]*CaptureSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CaptureSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

const sessionColumns = "id, project_id, area_id, area_type, mode, session_type, started_at, ended_at, media_ids, audio_ids, webhook_status, webhook_result, meeting_metadata, approval_status, approved_at, approved_by"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*CaptureSession, error) {
	var (
		session     CaptureSession
		areaID      sql.NullString
		areaType    sql.NullString
		mode        string
		sessionType string
		startedRaw  string
		endedRaw    sql.NullString
		mediaRaw    string
		audioRaw    string
		status      string
		result      sql.NullString
		meetingRaw  sql.NullString
		approval    sql.NullString
		approvedRaw sql.NullString
		approvedBy  sql.NullString
	)
	err := scanner.Scan(
		&session.ID, &session.ProjectID, &areaID, &areaType, &mode, &sessionType,
		&startedRaw, &endedRaw, &mediaRaw, &audioRaw, &status, &result,
		&meetingRaw, &approval, &approvedRaw, &approvedBy,
	)
	if err != nil {
		return nil, err
	}

	session.AreaID = areaID.String
	session.AreaType = AreaType(areaType.String)
	session.Mode = CaptureMode(mode)
	session.SessionType = SessionType(sessionType)
	session.MediaIDs = decodeStringList(mediaRaw)
	session.AudioIDs = decodeStringList(audioRaw)
	session.WebhookStatus = WebhookStatus(status)
	session.ApprovalStatus = ApprovalStatus(approval.String)
	session.ApprovedBy = approvedBy.String
	if started, err := parseTimeString(startedRaw); err == nil {
		session.StartedAt = started
	}
	if endedRaw.Valid {
		if ended, err := parseTimeString(endedRaw.String); err == nil {
			session.EndedAt = &ended
		}
	}
	if approvedRaw.Valid {
		if approved, err := parseTimeString(approvedRaw.String); err == nil {
			session.ApprovedAt = &approved
		}
	}
	if result.Valid && result.String != "" {
		session.WebhookResult = []byte(result.String)
	}
	if meetingRaw.Valid && meetingRaw.String != "" {
		var meta MeetingMetadata
		if err := json.Unmarshal([]byte(meetingRaw.String), &meta); err == nil {
			session.MeetingMetadata = &meta
		}
	}
	return &session, nil
}

func meetingOrNil(meta *MeetingMetadata) any {
	if meta == nil {
		return nil
	}
	return meta
}

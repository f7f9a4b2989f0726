package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateAudioNote inserts a voice recording. Audio notes do not count toward
// the project media counter.
func (s *Store) CreateAudioNote(ctx context.Context, note *AudioNote) (*AudioNote, error) {
	if note == nil {
		return nil, errors.New("audio note is required")
	}
	if note.ProjectID == "" {
		return nil, errors.New("audio note requires a project id")
	}

	stored := *note
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now().UTC()
	}
	if stored.SyncStatus == "" {
		stored.SyncStatus = SyncCaptured
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audio_notes (id, project_id, area_id, area_type, uri, duration_ms, captured_at, sync_status, session_id, linked_media_id, transcript)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID,
		stored.ProjectID,
		nullableString(stored.AreaID),
		nullableString(string(stored.AreaType)),
		nullableString(stored.URI),
		stored.DurationMs,
		formatTime(stored.CapturedAt),
		stored.SyncStatus,
		nullableString(stored.SessionID),
		nullableString(stored.LinkedMediaID),
		nullableString(stored.Transcript),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audio note: %w", err)
	}
	return &stored, nil
}

// GetAudioNote fetches an audio note by identifier. Returns (nil, nil) when
// absent.
func (s *Store) GetAudioNote(ctx context.Context, id string) (*AudioNote, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+audioColumns+` FROM audio_notes WHERE id = ?`, id)
	note, err := scanAudioNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get audio note: %w", err)
	}
	return note, nil
}

// AudioByIDs fetches the given notes, preserving the requested order and
// skipping ids that no longer exist.
func (s *Store) AudioByIDs(ctx context.Context, ids []string) ([]*AudioNote, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+audioColumns+` FROM audio_notes WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query audio notes: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*AudioNote, len(ids))
	for rows.Next() {
		note, err := scanAudioNote(rows)
		if err != nil {
			return nil, err
		}
		byID[note.ID] = note
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*AudioNote, 0, len(ids))
	for _, id := range ids {
		if note, ok := byID[id]; ok {
			ordered = append(ordered, note)
		}
	}
	return ordered, nil
}

// AudioByProject lists a project's audio notes, newest capture first.
func (s *Store) AudioByProject(ctx context.Context, projectID string) ([]*AudioNote, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+audioColumns+` FROM audio_notes WHERE project_id = ? ORDER BY captured_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audio notes: %w", err)
	}
	defer rows.Close()

	var notes []*AudioNote
	for rows.Next() {
		note, err := scanAudioNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// UpdateAudioSyncStatus moves a note through its upload lifecycle.
func (s *Store) UpdateAudioSyncStatus(ctx context.Context, id string, status SyncStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE audio_notes SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update audio sync status: %w", err)
	}
	return nil
}

// UpdateAudioTranscript records the local transcript text for a note.
func (s *Store) UpdateAudioTranscript(ctx context.Context, id, transcript string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE audio_notes SET transcript = ? WHERE id = ?`, nullableString(transcript), id)
	if err != nil {
		return fmt.Errorf("update audio transcript: %w", err)
	}
	return nil
}

const audioColumns = "id, project_id, area_id, area_type, uri, duration_ms, captured_at, sync_status, session_id, linked_media_id, transcript"

func scanAudioNote(scanner interface{ Scan(dest ...any) error }) (*AudioNote, error) {
	var (
		note        AudioNote
		areaID      sql.NullString
		areaType    sql.NullString
		uri         sql.NullString
		capturedRaw string
		status      string
		sessionID   sql.NullString
		linkedMedia sql.NullString
		transcript  sql.NullString
	)
	err := scanner.Scan(&note.ID, &note.ProjectID, &areaID, &areaType, &uri, &note.DurationMs, &capturedRaw, &status, &sessionID, &linkedMedia, &transcript)
	if err != nil {
		return nil, err
	}

	note.AreaID = areaID.String
	note.AreaType = AreaType(areaType.String)
	note.URI = uri.String
	note.SyncStatus = SyncStatus(status)
	note.SessionID = sessionID.String
	note.LinkedMediaID = linkedMedia.String
	note.Transcript = transcript.String
	if captured, err := parseTimeString(capturedRaw); err == nil {
		note.CapturedAt = captured
	}
	return &note, nil
}

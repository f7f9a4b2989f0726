package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// SaveTranscriptSegments inserts a batch of segments in one transaction.
// Segments arriving with an id that already exists are overwritten, which
// keeps re-ingestion of the same response stable.
func (s *Store) SaveTranscriptSegments(ctx context.Context, segments []*TranscriptSegment) error {
	if len(segments) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, segment := range segments {
			id := segment.ID
			if id == "" {
				id = uuid.NewString()
				segment.ID = id
			}
			_, err := tx.ExecContext(
				ctx,
				`INSERT INTO transcript_segments (id, audio_note_id, project_id, text, start_ms, end_ms, speaker_role, confidence)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(id) DO UPDATE SET
                     audio_note_id = excluded.audio_note_id,
                     text          = excluded.text,
                     start_ms      = excluded.start_ms,
                     end_ms        = excluded.end_ms,
                     speaker_role  = excluded.speaker_role,
                     confidence    = excluded.confidence`,
				id,
				nullableString(segment.AudioNoteID),
				segment.ProjectID,
				nullableString(segment.Text),
				segment.StartMs,
				segment.EndMs,
				nullableString(segment.SpeakerRole),
				segment.Confidence,
			)
			if err != nil {
				return fmt.Errorf("save transcript segment: %w", err)
			}
		}
		return nil
	})
}

// TranscriptsByProject lists a project's transcript segments ordered by
// start time.
func (s *Store) TranscriptsByProject(ctx context.Context, projectID string) ([]*TranscriptSegment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, audio_note_id, project_id, text, start_ms, end_ms, speaker_role, confidence
         FROM transcript_segments WHERE project_id = ? ORDER BY start_ms ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcript segments: %w", err)
	}
	defer rows.Close()

	var segments []*TranscriptSegment
	for rows.Next() {
		segment, err := scanTranscriptSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

// TranscriptsByAudioNote lists segments belonging to one recording.
func (s *Store) TranscriptsByAudioNote(ctx context.Context, audioNoteID string) ([]*TranscriptSegment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, audio_note_id, project_id, text, start_ms, end_ms, speaker_role, confidence
         FROM transcript_segments WHERE audio_note_id = ? ORDER BY start_ms ASC`,
		audioNoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcript segments: %w", err)
	}
	defer rows.Close()

	var segments []*TranscriptSegment
	for rows.Next() {
		segment, err := scanTranscriptSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

func scanTranscriptSegment(scanner interface{ Scan(dest ...any) error }) (*TranscriptSegment, error) {
	var (
		segment     TranscriptSegment
		audioNoteID sql.NullString
		text        sql.NullString
		speakerRole sql.NullString
	)
	err := scanner.Scan(&segment.ID, &audioNoteID, &segment.ProjectID, &text, &segment.StartMs, &segment.EndMs, &speakerRole, &segment.Confidence)
	if err != nil {
		return nil, err
	}
	segment.AudioNoteID = audioNoteID.String
	segment.Text = text.String
	segment.SpeakerRole = speakerRole.String
	return &segment, nil
}

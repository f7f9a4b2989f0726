package store

import (
	"context"
	"database/sql"
	"fmt"
)

// BeginDispatch marks a session as sent and moves its assets into the
// syncing state in one transaction. The sent mark is persisted before any
// network activity so a crash mid-delivery is visible afterwards.
func (s *Store) BeginDispatch(ctx context.Context, session *CaptureSession) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE capture_sessions SET webhook_status = ? WHERE id = ?`,
			WebhookSent,
			session.ID,
		); err != nil {
			return fmt.Errorf("mark session sent: %w", err)
		}
		return setAssetStatuses(ctx, tx, session, SyncSyncing)
	})
}

// FinishDispatch records the delivery outcome for a session and its assets
// in one transaction: received/uploaded on success, failed/failed otherwise.
func (s *Store) FinishDispatch(ctx context.Context, session *CaptureSession, status WebhookStatus, assetStatus SyncStatus) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE capture_sessions SET webhook_status = ? WHERE id = ?`,
			status,
			session.ID,
		); err != nil {
			return fmt.Errorf("mark session %s: %w", status, err)
		}
		return setAssetStatuses(ctx, tx, session, assetStatus)
	})
}

func setAssetStatuses(ctx context.Context, tx *sql.Tx, session *CaptureSession, status SyncStatus) error {
	if len(session.MediaIDs) > 0 {
		args := make([]any, 0, len(session.MediaIDs)+1)
		args = append(args, status)
		for _, id := range session.MediaIDs {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE media_assets SET sync_status = ? WHERE id IN (`+makePlaceholders(len(session.MediaIDs))+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("update media statuses: %w", err)
		}
	}
	if len(session.AudioIDs) > 0 {
		args := make([]any, 0, len(session.AudioIDs)+1)
		args = append(args, status)
		for _, id := range session.AudioIDs {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE audio_notes SET sync_status = ? WHERE id IN (`+makePlaceholders(len(session.AudioIDs))+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("update audio statuses: %w", err)
		}
	}
	return nil
}

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

// CreateMedia inserts a media asset and bumps the project's media count in
// the same transaction.
func (s *Store) CreateMedia(ctx context.Context, asset *MediaAsset) (*MediaAsset, error) {
	if asset == nil {
		return nil, errors.New("media asset is required")
	}
	if asset.ProjectID == "" {
		return nil, errors.New("media asset requires a project id")
	}

	stored := *asset
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CapturedAt.IsZero() {
		stored.CapturedAt = time.Now().UTC()
	}
	if stored.SyncStatus == "" {
		stored.SyncStatus = SyncCaptured
	}

	metadata, err := encodeJSON(mapOrNil(stored.Metadata))
	if err != nil {
		return nil, fmt.Errorf("encode media metadata: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO media_assets (id, project_id, area_id, area_type, kind, uri, captured_at, sync_status, session_id, metadata)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stored.ID,
			stored.ProjectID,
			nullableString(stored.AreaID),
			nullableString(string(stored.AreaType)),
			stored.Kind,
			nullableString(stored.URI),
			formatTime(stored.CapturedAt),
			stored.SyncStatus,
			nullableString(stored.SessionID),
			metadata,
		)
		if err != nil {
			return fmt.Errorf("insert media asset: %w", err)
		}
		return adjustProjectCounters(ctx, tx, stored.ProjectID, 1, 0, 0)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetMedia fetches a media asset by identifier. Returns (nil, nil) when absent.
func (s *Store) GetMedia(ctx context.Context, id string) (*MediaAsset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_assets WHERE id = ?`, id)
	asset, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media asset: %w", err)
	}
	return asset, nil
}

// MediaByIDs fetches the given assets, preserving the requested order and
// skipping ids that no longer exist.
func (s *Store) MediaByIDs(ctx context.Context, ids []string) ([]*MediaAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+mediaColumns+` FROM media_assets WHERE id IN (`+makePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query media assets: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*MediaAsset, len(ids))
	for rows.Next() {
		asset, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		byID[asset.ID] = asset
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*MediaAsset, 0, len(ids))
	for _, id := range ids {
		if asset, ok := byID[id]; ok {
			ordered = append(ordered, asset)
		}
	}
	return ordered, nil
}

// MediaByProject lists a project's media assets, newest capture first.
func (s *Store) MediaByProject(ctx context.Context, projectID string) ([]*MediaAsset, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+mediaColumns+` FROM media_assets WHERE project_id = ? ORDER BY captured_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	defer rows.Close()

	var assets []*MediaAsset
	for rows.Next() {
		asset, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// UpdateMediaSyncStatus moves an asset through its upload lifecycle.
func (s *Store) UpdateMediaSyncStatus(ctx context.Context, id string, status SyncStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE media_assets SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update media sync status: %w", err)
	}
	return nil
}

// DeleteMedia removes an asset and decrements its project's media count.
func (s *Store) DeleteMedia(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var projectID string
		err := tx.QueryRowContext(ctx, `SELECT project_id FROM media_assets WHERE id = ?`, id).Scan(&projectID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup media asset: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM media_assets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete media asset: %w", err)
		}
		deleted = true
		return adjustProjectCounters(ctx, tx, projectID, -1, 0, 0)
	})
	return deleted, err
}

const mediaColumns = "id, project_id, area_id, area_type, kind, uri, captured_at, sync_status, session_id, metadata"

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*MediaAsset, error) {
	var (
		asset       MediaAsset
		areaID      sql.NullString
		areaType    sql.NullString
		kind        string
		uri         sql.NullString
		capturedRaw string
		status      string
		sessionID   sql.NullString
		metadata    sql.NullString
	)
	err := scanner.Scan(&asset.ID, &asset.ProjectID, &areaID, &areaType, &kind, &uri, &capturedRaw, &status, &sessionID, &metadata)
	if err != nil {
		return nil, err
	}

	asset.AreaID = areaID.String
	asset.AreaType = AreaType(areaType.String)
	asset.Kind = MediaKind(kind)
	asset.URI = uri.String
	asset.SyncStatus = SyncStatus(status)
	asset.SessionID = sessionID.String
	if captured, err := parseTimeString(capturedRaw); err == nil {
		asset.CapturedAt = captured
	}
	if metadata.Valid && metadata.String != "" {
		var bag map[string]any
		if err := json.Unmarshal([]byte(metadata.String), &bag); err == nil {
			asset.Metadata = bag
		}
	}
	return &asset, nil
}

func mapOrNil(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateArea adds a named area to a project.
func (s *Store) CreateArea(ctx context.Context, projectID string, areaType AreaType, label string) (*Area, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errors.New("area label is required")
	}

	area := &Area{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Type:      areaType,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO areas (id, project_id, type, label, created_at) VALUES (?, ?, ?, ?, ?)`,
		area.ID,
		area.ProjectID,
		area.Type,
		area.Label,
		formatTime(area.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert area: %w", err)
	}
	return area, nil
}

// GetArea fetches an area by identifier. Returns (nil, nil) when absent.
func (s *Store) GetArea(ctx context.Context, id string) (*Area, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, type, label, created_at FROM areas WHERE id = ?`, id)
	area, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get area: %w", err)
	}
	return area, nil
}

// AreasByProject lists a project's areas in creation order.
func (s *Store) AreasByProject(ctx context.Context, projectID string) ([]*Area, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, project_id, type, label, created_at FROM areas WHERE project_id = ? ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	var areas []*Area
	for rows.Next() {
		area, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

func scanArea(scanner interface{ Scan(dest ...any) error }) (*Area, error) {
	var (
		area       Area
		areaType   string
		createdRaw string
	)
	if err := scanner.Scan(&area.ID, &area.ProjectID, &areaType, &area.Label, &createdRaw); err != nil {
		return nil, err
	}
	area.Type = AreaType(areaType)
	if created, err := parseTimeString(createdRaw); err == nil {
		area.CreatedAt = created
	}
	return &area, nil
}

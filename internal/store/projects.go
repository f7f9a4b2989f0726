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

// CreateProject inserts a project together with its default areas in a
// single transaction. Counters start at zero.
func (s *Store) CreateProject(ctx context.Context, name, address, clientName string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name is required")
	}

	now := time.Now().UTC()
	project := &Project{
		ID:         uuid.NewString(),
		Name:       name,
		Address:    strings.TrimSpace(address),
		ClientName: strings.TrimSpace(clientName),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO projects (id, name, address, client_name, created_at, updated_at, media_count, task_count, open_task_count)
             VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0)`,
			project.ID,
			project.Name,
			nullableString(project.Address),
			nullableString(project.ClientName),
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		for _, area := range DefaultAreas() {
			_, err := tx.ExecContext(
				ctx,
				`INSERT INTO areas (id, project_id, type, label, created_at) VALUES (?, ?, ?, ?, ?)`,
				uuid.NewString(),
				project.ID,
				area.Type,
				area.Label,
				formatTime(now),
			)
			if err != nil {
				return fmt.Errorf("insert default area %s: %w", area.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProject fetches a project by identifier. Returns (nil, nil) when absent.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateProjectInfo updates the user-editable project fields.
func (s *Store) UpdateProjectInfo(ctx context.Context, id, name, address, clientName string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE projects SET name = ?, address = ?, client_name = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(name),
		nullableString(strings.TrimSpace(address)),
		nullableString(strings.TrimSpace(clientName)),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// DeleteProject removes a project record. Dependent entities are left in
// place; only task deletion cascades (to evidence links).
func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func adjustProjectCounters(ctx context.Context, tx *sql.Tx, projectID string, mediaDelta, taskDelta, openTaskDelta int) error {
	_, err := tx.ExecContext(
		ctx,
		`UPDATE projects
         SET media_count = media_count + ?, task_count = task_count + ?,
             open_task_count = open_task_count + ?, updated_at = ?
         WHERE id = ?`,
		mediaDelta,
		taskDelta,
		openTaskDelta,
		formatTime(time.Now().UTC()),
		projectID,
	)
	if err != nil {
		return fmt.Errorf("adjust project counters: %w", err)
	}
	return nil
}

const projectColumns = "id, name, address, client_name, created_at, updated_at, media_count, task_count, open_task_count"

func scanProject(scanner interface{ Scan(dest ...any) error }) (*Project, error) {
	var (
		id         string
		name       string
		address    sql.NullString
		clientName sql.NullString
		createdRaw string
		updatedRaw string
		mediaCount int
		taskCount  int
		openCount  int
	)
	if err := scanner.Scan(&id, &name, &address, &clientName, &createdRaw, &updatedRaw, &mediaCount, &taskCount, &openCount); err != nil {
		return nil, err
	}

	project := &Project{
		ID:            id,
		Name:          name,
		Address:       address.String,
		ClientName:    clientName.String,
		MediaCount:    mediaCount,
		TaskCount:     taskCount,
		OpenTaskCount: openCount,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		project.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		project.UpdatedAt = updated
	}
	return project, nil
}

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

// CreateTask inserts a task and bumps the project's task counters in the
// same transaction. An empty title is stored as "Untitled Task".
func (s *Store) CreateTask(ctx context.Context, task *TaskItem) (*TaskItem, error) {
	if task == nil {
		return nil, errors.New("task is required")
	}
	if task.ProjectID == "" {
		return nil, errors.New("task requires a project id")
	}

	stored := *task
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Title = strings.TrimSpace(stored.Title)
	if stored.Title == "" {
		stored.Title = "Untitled Task"
	}
	if stored.Status == "" {
		stored.Status = TaskOpen
	}
	if stored.Priority == "" {
		stored.Priority = PriorityMedium
	}
	if stored.CreatedBy == "" {
		stored.CreatedBy = CreatedByUser
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	openDelta := 0
	if stored.Status.CountsAsOpen() {
		openDelta = 1
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO tasks (id, project_id, area_id, area_type, title, description, status, priority, tags, created_by, confidence, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			stored.ID,
			stored.ProjectID,
			nullableString(stored.AreaID),
			nullableString(string(stored.AreaType)),
			stored.Title,
			nullableString(stored.Description),
			stored.Status,
			stored.Priority,
			encodeStringList(stored.Tags),
			stored.CreatedBy,
			stored.Confidence,
			formatTime(stored.CreatedAt),
			formatTime(stored.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return adjustProjectCounters(ctx, tx, stored.ProjectID, 0, 1, openDelta)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetTask fetches a task by identifier. Returns (nil, nil) when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*TaskItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TasksByProject lists a project's tasks, newest first.
func (s *Store) TasksByProject(ctx context.Context, projectID string) ([]*TaskItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*TaskItem
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task through its state machine, adjusting the
// project's open task counter when the transition crosses the open boundary.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status TaskStatus) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			projectID string
			current   string
		)
		err := tx.QueryRowContext(ctx, `SELECT project_id, status FROM tasks WHERE id = ?`, id).Scan(&projectID, &current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("lookup task: %w", err)
		}

		_, err = tx.ExecContext(
			ctx,
			`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
			status,
			formatTime(time.Now().UTC()),
			id,
		)
		if err != nil {
			return fmt.Errorf("update task status: %w", err)
		}

		openDelta := 0
		wasOpen := TaskStatus(current).CountsAsOpen()
		isOpen := status.CountsAsOpen()
		switch {
		case wasOpen && !isOpen:
			openDelta = -1
		case !wasOpen && isOpen:
			openDelta = 1
		}
		if openDelta == 0 {
			return nil
		}
		return adjustProjectCounters(ctx, tx, projectID, 0, 0, openDelta)
	})
}

// UpdateTask rewrites the editable fields of a task. Status changes go
// through UpdateTaskStatus so counters stay correct.
func (s *Store) UpdateTask(ctx context.Context, task *TaskItem) error {
	if task == nil || task.ID == "" {
		return errors.New("task id is required")
	}
	title := strings.TrimSpace(task.Title)
	if title == "" {
		title = "Untitled Task"
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, tags = ?, area_id = ?, area_type = ?, updated_at = ? WHERE id = ?`,
		title,
		nullableString(task.Description),
		task.Priority,
		encodeStringList(task.Tags),
		nullableString(task.AreaID),
		nullableString(string(task.AreaType)),
		formatTime(time.Now().UTC()),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// DeleteTask removes a task and its evidence links, decrementing the
// project's task counters.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			projectID string
			status    string
		)
		err := tx.QueryRowContext(ctx, `SELECT project_id, status FROM tasks WHERE id = ?`, id).Scan(&projectID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup task: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM evidence_links WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("delete evidence links: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		deleted = true

		openDelta := 0
		if TaskStatus(status).CountsAsOpen() {
			openDelta = -1
		}
		return adjustProjectCounters(ctx, tx, projectID, 0, -1, openDelta)
	})
	return deleted, err
}

const taskColumns = "id, project_id, area_id, area_type, title, description, status, priority, tags, created_by, confidence, created_at, updated_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*TaskItem, error) {
	var (
		task        TaskItem
		areaID      sql.NullString
		areaType    sql.NullString
		description sql.NullString
		status      string
		priority    string
		tagsRaw     string
		createdBy   string
		confidence  sql.NullFloat64
		createdRaw  string
		updatedRaw  string
	)
	err := scanner.Scan(
		&task.ID, &task.ProjectID, &areaID, &areaType, &task.Title, &description,
		&status, &priority, &tagsRaw, &createdBy, &confidence, &createdRaw, &updatedRaw,
	)
	if err != nil {
		return nil, err
	}

	task.AreaID = areaID.String
	task.AreaType = AreaType(areaType.String)
	task.Description = description.String
	task.Status = TaskStatus(status)
	task.Priority = TaskPriority(priority)
	task.Tags = decodeStringList(tagsRaw)
	task.CreatedBy = Creator(createdBy)
	if confidence.Valid {
		value := confidence.Float64
		task.Confidence = &value
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return &task, nil
}

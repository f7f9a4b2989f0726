package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateEvidenceLink associates a task with a media, audio, or transcript
// target. The target id is not checked for existence.
func (s *Store) CreateEvidenceLink(ctx context.Context, link *EvidenceLink) (*EvidenceLink, error) {
	if link == nil {
		return nil, errors.New("evidence link is required")
	}
	if link.TaskID == "" || link.TargetID == "" {
		return nil, errors.New("evidence link requires task and target ids")
	}

	stored := *link
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.LinkType == "" {
		stored.LinkType = LinkSuggested
	}
	if stored.LinkScore == 0 {
		stored.LinkScore = 0.5
	}
	if stored.CreatedBy == "" {
		stored.CreatedBy = CreatedByUser
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO evidence_links (id, task_id, target_type, target_id, link_type, link_score, created_by, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID,
		stored.TaskID,
		stored.TargetType,
		stored.TargetID,
		stored.LinkType,
		stored.LinkScore,
		stored.CreatedBy,
		formatTime(stored.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert evidence link: %w", err)
	}
	return &stored, nil
}

// LinksByTask lists a task's evidence links in creation order.
func (s *Store) LinksByTask(ctx context.Context, taskID string) ([]*EvidenceLink, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, task_id, target_type, target_id, link_type, link_score, created_by, created_at
         FROM evidence_links WHERE task_id = ? ORDER BY created_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list evidence links: %w", err)
	}
	defer rows.Close()

	var links []*EvidenceLink
	for rows.Next() {
		link, err := scanEvidenceLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeleteEvidenceLink removes a single link.
func (s *Store) DeleteEvidenceLink(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evidence_links WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete evidence link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanEvidenceLink(scanner interface{ Scan(dest ...any) error }) (*EvidenceLink, error) {
	var (
		link       EvidenceLink
		targetType string
		linkType   string
		createdBy  string
		createdRaw string
	)
	err := scanner.Scan(&link.ID, &link.TaskID, &targetType, &link.TargetID, &linkType, &link.LinkScore, &createdBy, &createdRaw)
	if err != nil {
		return nil, err
	}
	link.TargetType = TargetType(targetType)
	link.LinkType = LinkType(linkType)
	link.CreatedBy = Creator(createdBy)
	if created, err := parseTimeString(createdRaw); err == nil {
		link.CreatedAt = created
	}
	return &link, nil
}

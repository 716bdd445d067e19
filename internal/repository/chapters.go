package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/komix/komix-api/internal/models"
)

// ListChapters returns the chapters of a project, newest first
func (r *Repository) ListChapters(ctx context.Context, projectID int64) ([]models.Chapter, error) {
	query := `
		SELECT id, project_id, url, created_at
		FROM chapters
		WHERE project_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []models.Chapter{}
	for rows.Next() {
		var c models.Chapter
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.URL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		chapters = append(chapters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return chapters, nil
}

// CreateChapter creates a new chapter in the database
func (r *Repository) CreateChapter(ctx context.Context, chapter *models.Chapter) error {
	query := `
		INSERT INTO chapters (project_id, url, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, chapter.ProjectID, chapter.URL).
		Scan(&chapter.ID, &chapter.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// FindChapter retrieves a chapter only if it belongs to the project
func (r *Repository) FindChapter(ctx context.Context, projectID, chapterID int64) (*models.Chapter, error) {
	query := `
		SELECT id, project_id, url, created_at
		FROM chapters
		WHERE id = $1 AND project_id = $2`
	c := &models.Chapter{}
	err := r.db.QueryRowContext(ctx, query, chapterID, projectID).Scan(&c.ID, &c.ProjectID, &c.URL, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chapter: %w", err)
	}
	return c, nil
}

// UpdateChapter persists the chapter url
func (r *Repository) UpdateChapter(ctx context.Context, chapter *models.Chapter) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chapters SET url = $1 WHERE id = $2 AND project_id = $3`,
		chapter.URL, chapter.ID, chapter.ProjectID)
	if err != nil {
		return fmt.Errorf("failed to update chapter: %w", err)
	}
	return expectOne(res)
}

// DeleteChapter removes a chapter of the project
func (r *Repository) DeleteChapter(ctx context.Context, projectID, chapterID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chapters WHERE id = $1 AND project_id = $2`, chapterID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete chapter: %w", err)
	}
	return expectOne(res)
}

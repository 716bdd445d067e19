package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/komix/komix-api/internal/models"
)

const projectColumns = `id, owner_id, name, description, created_at, updated_at`

// ListProjects returns the projects of an owner, newest first
func (r *Repository) ListProjects(ctx context.Context, ownerID int64) ([]models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// CreateProject creates a new project in the database
func (r *Repository) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, project.OwnerID, project.Name, project.Description).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// FindProject retrieves a project only if it belongs to the owner
func (r *Repository) FindProject(ctx context.Context, ownerID, projectID int64) (*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = $1 AND owner_id = $2`
	return scanProject(r.db.QueryRowContext(ctx, query, projectID, ownerID))
}

// FindProjectByID retrieves a project regardless of its owner
func (r *Repository) FindProjectByID(ctx context.Context, projectID int64) (*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = $1`
	return scanProject(r.db.QueryRowContext(ctx, query, projectID))
}

func scanProject(row *sql.Row) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return p, nil
}

// UpdateProject persists name and description and bumps updated_at
func (r *Repository) UpdateProject(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET name = $1, description = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3 AND owner_id = $4
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, project.Name, project.Description, project.ID, project.OwnerID).
		Scan(&project.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// DeleteProject removes an owned project; chapters and subscriptions go with it by cascade
func (r *Repository) DeleteProject(ctx context.Context, ownerID, projectID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2`, projectID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectOne(res)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/komix/komix-api/internal/models"
)

// ListFollowing returns the users followed by userID, ordered by username
func (r *Repository) ListFollowing(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	query := `
		SELECT u.id, u.username
		FROM follows f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY u.username`
	return r.queryUserSummaries(ctx, query, userID)
}

// ListFollowers returns the users following userID, ordered by username
func (r *Repository) ListFollowers(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	query := `
		SELECT u.id, u.username
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY u.username`
	return r.queryUserSummaries(ctx, query, userID)
}

// CreateFollow records a follow edge; an existing edge is left untouched
func (r *Repository) CreateFollow(ctx context.Context, followerID, followingID int64) error {
	query := `
		INSERT INTO follows (follower_id, following_id, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (follower_id, following_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, followerID, followingID); err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// DeleteFollow removes a follow edge if present
func (r *Repository) DeleteFollow(ctx context.Context, followerID, followingID int64) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	if _, err := r.db.ExecContext(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

// ListSubscriptions returns the projects userID subscribes to, ordered by name
func (r *Repository) ListSubscriptions(ctx context.Context, userID int64) ([]models.ProjectSummary, error) {
	query := `
		SELECT p.id, p.name
		FROM subscriptions s
		JOIN projects p ON p.id = s.project_id
		WHERE s.user_id = $1
		ORDER BY p.name, p.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	projects := []models.ProjectSummary{}
	for rows.Next() {
		var p models.ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return projects, nil
}

// CreateSubscription records a subscription edge; an existing edge is left untouched
func (r *Repository) CreateSubscription(ctx context.Context, userID, projectID int64) error {
	query := `
		INSERT INTO subscriptions (user_id, project_id, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, project_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID, projectID); err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription edge if present
func (r *Repository) DeleteSubscription(ctx context.Context, userID, projectID int64) error {
	query := `DELETE FROM subscriptions WHERE user_id = $1 AND project_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, projectID); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// ListSubscribers returns the users subscribed to a project, ordered by username
func (r *Repository) ListSubscribers(ctx context.Context, projectID int64) ([]models.UserSummary, error) {
	query := `
		SELECT u.id, u.username
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.project_id = $1
		ORDER BY u.username`
	return r.queryUserSummaries(ctx, query, projectID)
}

func (r *Repository) queryUserSummaries(ctx context.Context, query string, arg int64) ([]models.UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()
	return scanUserSummaries(rows)
}

func scanUserSummaries(rows *sql.Rows) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

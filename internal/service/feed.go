package service

import (
	"context"
	"fmt"

	"github.com/komix/komix-api/internal/models"
)

// ListFollowing returns the users userID follows, ordered by username
func (s *Service) ListFollowing(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	return s.store.ListFollowing(ctx, userID)
}

// ListFollowers returns the users following userID, ordered by username
func (s *Service) ListFollowers(ctx context.Context, userID int64) ([]models.UserSummary, error) {
	return s.store.ListFollowers(ctx, userID)
}

// Follow makes callerID follow targetID. Following twice is a no-op.
func (s *Service) Follow(ctx context.Context, callerID, targetID int64) (*models.UserSummary, error) {
	if callerID == targetID {
		return nil, fmt.Errorf("%w: users cannot follow themselves", ErrInvalidOperation)
	}
	target, err := s.store.FindUserByID(ctx, targetID)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}
	if err := s.store.CreateFollow(ctx, callerID, targetID); err != nil {
		return nil, translate(err, ErrConflict)
	}
	return &models.UserSummary{ID: target.ID, Username: target.Username}, nil
}

// Unfollow removes the follow edge if it exists
func (s *Service) Unfollow(ctx context.Context, callerID, targetID int64) error {
	if _, err := s.store.FindUserByID(ctx, targetID); err != nil {
		return translate(err, ErrConflict)
	}
	return s.store.DeleteFollow(ctx, callerID, targetID)
}

// ListSubscriptions returns the projects userID subscribes to, ordered by name
func (s *Service) ListSubscriptions(ctx context.Context, userID int64) ([]models.ProjectSummary, error) {
	return s.store.ListSubscriptions(ctx, userID)
}

// Subscribe subscribes callerID to a project. Subscribing twice is a no-op.
func (s *Service) Subscribe(ctx context.Context, callerID, projectID int64) (*models.ProjectSummary, error) {
	project, err := s.store.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}
	if err := s.store.CreateSubscription(ctx, callerID, projectID); err != nil {
		return nil, translate(err, ErrConflict)
	}
	return &models.ProjectSummary{ID: project.ID, Name: project.Name}, nil
}

// Unsubscribe removes the subscription if it exists
func (s *Service) Unsubscribe(ctx context.Context, callerID, projectID int64) error {
	if _, err := s.store.FindProjectByID(ctx, projectID); err != nil {
		return translate(err, ErrConflict)
	}
	return s.store.DeleteSubscription(ctx, callerID, projectID)
}

// ListSubscribers returns a project's subscribers. Only the owner may see them.
func (s *Service) ListSubscribers(ctx context.Context, requesterID, projectID int64) ([]models.UserSummary, error) {
	project, err := s.store.FindProjectByID(ctx, projectID)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}
	if project.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	return s.store.ListSubscribers(ctx, projectID)
}

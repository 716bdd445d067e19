package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/komix/komix-api/internal/models"
)

// ListProjects returns the caller's projects, newest first
func (s *Service) ListProjects(ctx context.Context, ownerID int64) ([]models.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}

// CreateProject creates a project owned by ownerID
func (s *Service) CreateProject(ctx context.Context, ownerID int64, name string, description *string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidField("name", "required")
	}

	project := &models.Project{OwnerID: ownerID, Name: name}
	if description != nil {
		project.Description = *description
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, translate(err, errProjectNameTaken)
	}

	s.log.Infof("Project %d created for user %d", project.ID, ownerID)
	return project, nil
}

// GetProject returns the project only when ownerID owns it; anyone
// else's project is reported as ErrNotFound
func (s *Service) GetProject(ctx context.Context, ownerID, projectID int64) (*models.Project, error) {
	project, err := s.store.FindProject(ctx, ownerID, projectID)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}
	return project, nil
}

// UpdateProject applies the fields present in patch
func (s *Service) UpdateProject(ctx context.Context, ownerID, projectID int64, patch models.ProjectPatch) (*models.Project, error) {
	project, err := s.GetProject(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalidField("name", "required")
		}
		project.Name = name
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, translate(err, errProjectNameTaken)
	}
	return project, nil
}

// DeleteProject removes the project along with its chapters and subscriptions
func (s *Service) DeleteProject(ctx context.Context, ownerID, projectID int64) error {
	if err := s.store.DeleteProject(ctx, ownerID, projectID); err != nil {
		return translate(err, ErrConflict)
	}
	s.log.Infof("Project %d deleted by user %d", projectID, ownerID)
	return nil
}

var errProjectNameTaken = fmt.Errorf("%w: a project with this name already exists", ErrConflict)

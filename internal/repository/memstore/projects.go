package memstore

import (
	"context"
	"sort"

	"github.com/komix/komix-api/internal/models"
	"github.com/komix/komix-api/internal/repository"
)

func (s *Store) ListProjects(_ context.Context, ownerID int64) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := []models.Project{}
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		}
		return projects[i].ID > projects[j].ID
	})
	return projects, nil
}

func (s *Store) nameTakenLocked(ownerID int64, name string, exceptID int64) bool {
	for _, p := range s.projects {
		if p.OwnerID == ownerID && p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) CreateProject(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[project.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	if s.nameTakenLocked(project.OwnerID, project.Name, 0) {
		return repository.ErrUniqueViolation
	}
	now := s.now()
	project.ID = s.id()
	project.CreatedAt = now
	project.UpdatedAt = now
	s.projects[project.ID] = *project
	return nil
}

func (s *Store) FindProject(_ context.Context, ownerID, projectID int64) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok || p.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) FindProjectByID(_ context.Context, projectID int64) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProject(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[project.ID]
	if !ok || cur.OwnerID != project.OwnerID {
		return repository.ErrNotFound
	}
	if s.nameTakenLocked(project.OwnerID, project.Name, project.ID) {
		return repository.ErrUniqueViolation
	}
	cur.Name = project.Name
	cur.Description = project.Description
	cur.UpdatedAt = s.now()
	s.projects[project.ID] = cur
	project.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *Store) DeleteProject(_ context.Context, ownerID, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	s.deleteProjectLocked(projectID)
	return nil
}

// deleteProjectLocked removes a project with its chapters and subscriptions.
func (s *Store) deleteProjectLocked(projectID int64) {
	for id, c := range s.chapters {
		if c.ProjectID == projectID {
			delete(s.chapters, id)
		}
	}
	for e := range s.subscriptions {
		if e.to == projectID {
			delete(s.subscriptions, e)
		}
	}
	delete(s.projects, projectID)
}

// chapters

func (s *Store) ListChapters(_ context.Context, projectID int64) ([]models.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chapters := []models.Chapter{}
	for _, c := range s.chapters {
		if c.ProjectID == projectID {
			chapters = append(chapters, c)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		if !chapters[i].CreatedAt.Equal(chapters[j].CreatedAt) {
			return chapters[i].CreatedAt.After(chapters[j].CreatedAt)
		}
		return chapters[i].ID > chapters[j].ID
	})
	return chapters, nil
}

func (s *Store) CreateChapter(_ context.Context, chapter *models.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[chapter.ProjectID]; !ok {
		return repository.ErrNotFound
	}
	chapter.ID = s.id()
	chapter.CreatedAt = s.now()
	s.chapters[chapter.ID] = *chapter
	return nil
}

func (s *Store) FindChapter(_ context.Context, projectID, chapterID int64) (*models.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chapters[chapterID]
	if !ok || c.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpdateChapter(_ context.Context, chapter *models.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.chapters[chapter.ID]
	if !ok || cur.ProjectID != chapter.ProjectID {
		return repository.ErrNotFound
	}
	cur.URL = chapter.URL
	s.chapters[chapter.ID] = cur
	return nil
}

func (s *Store) DeleteChapter(_ context.Context, projectID, chapterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chapters[chapterID]
	if !ok || c.ProjectID != projectID {
		return repository.ErrNotFound
	}
	delete(s.chapters, chapterID)
	return nil
}

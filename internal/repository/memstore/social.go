package memstore

import (
	"context"
	"sort"

	"github.com/komix/komix-api/internal/models"
	"github.com/komix/komix-api/internal/repository"
)

func (s *Store) ListFollowing(_ context.Context, userID int64) ([]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for e := range s.follows {
		if e.from == userID {
			ids = append(ids, e.to)
		}
	}
	return s.summariesLocked(ids), nil
}

func (s *Store) ListFollowers(_ context.Context, userID int64) ([]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for e := range s.follows {
		if e.to == userID {
			ids = append(ids, e.from)
		}
	}
	return s.summariesLocked(ids), nil
}

func (s *Store) CreateFollow(_ context.Context, followerID, followingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[followerID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[followingID]; !ok {
		return repository.ErrNotFound
	}
	e := edge{followerID, followingID}
	if _, exists := s.follows[e]; !exists {
		s.follows[e] = s.now()
	}
	return nil
}

func (s *Store) DeleteFollow(_ context.Context, followerID, followingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows, edge{followerID, followingID})
	return nil
}

func (s *Store) ListSubscriptions(_ context.Context, userID int64) ([]models.ProjectSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := []models.ProjectSummary{}
	for e := range s.subscriptions {
		if e.from != userID {
			continue
		}
		if p, ok := s.projects[e.to]; ok {
			projects = append(projects, models.ProjectSummary{ID: p.ID, Name: p.Name})
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name != projects[j].Name {
			return projects[i].Name < projects[j].Name
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

func (s *Store) CreateSubscription(_ context.Context, userID, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.projects[projectID]; !ok {
		return repository.ErrNotFound
	}
	e := edge{userID, projectID}
	if _, exists := s.subscriptions[e]; !exists {
		s.subscriptions[e] = s.now()
	}
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, userID, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, edge{userID, projectID})
	return nil
}

func (s *Store) ListSubscribers(_ context.Context, projectID int64) ([]models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for e := range s.subscriptions {
		if e.to == projectID {
			ids = append(ids, e.from)
		}
	}
	return s.summariesLocked(ids), nil
}

// summariesLocked resolves user ids to summaries ordered by username.
func (s *Store) summariesLocked(ids []int64) []models.UserSummary {
	users := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, models.UserSummary{ID: u.ID, Username: u.Username})
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

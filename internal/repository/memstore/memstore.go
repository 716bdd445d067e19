// Package memstore keeps all komix data in-process. It enforces the same
// uniqueness and cascade rules as the PostgreSQL schema and is used for
// local runs (STORAGE=memory) and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/komix/komix-api/internal/models"
	"github.com/komix/komix-api/internal/repository"
)

type edge struct {
	from, to int64
}

// Store is an in-memory implementation of the komix storage operations.
type Store struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64

	users         map[int64]models.User
	usernames     map[string]int64
	resets        map[string]models.PasswordReset
	projects      map[int64]models.Project
	chapters      map[int64]models.Chapter
	follows       map[edge]time.Time
	subscriptions map[edge]time.Time // user -> project
}

// New initializes an empty store.
func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		users:         make(map[int64]models.User),
		usernames:     make(map[string]int64),
		resets:        make(map[string]models.PasswordReset),
		projects:      make(map[int64]models.Project),
		chapters:      make(map[int64]models.Chapter),
		follows:       make(map[edge]time.Time),
		subscriptions: make(map[edge]time.Time),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usernames[user.Username]; exists {
		return repository.ErrUniqueViolation
	}
	user.ID = s.id()
	user.CreatedAt = s.now()
	s.users[user.ID] = *user
	s.usernames[user.Username] = user.ID
	return nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernames[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// password resets

func (s *Store) CreatePasswordReset(_ context.Context, reset *models.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[reset.UserID]; !ok {
		return repository.ErrNotFound
	}
	if _, exists := s.resets[reset.ID]; exists {
		return repository.ErrUniqueViolation
	}
	s.resets[reset.ID] = *reset
	return nil
}

func (s *Store) FindPasswordReset(_ context.Context, id string) (*models.PasswordReset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ApplyPasswordReset(_ context.Context, resetID string, userID int64, passwordHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[resetID]
	if !ok || r.IsUsed() || r.IsRevoked() || r.IsExpired(at) {
		return repository.ErrNotFound
	}
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[userID] = u

	used := at
	r.UsedAt = &used
	s.resets[resetID] = r
	for id, other := range s.resets {
		if other.UserID == userID && !other.IsUsed() && !other.IsRevoked() {
			revoked := at
			other.RevokedAt = &revoked
			s.resets[id] = other
		}
	}
	return nil
}

func (s *Store) PurgePasswordResets(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.resets {
		if r.ExpiresAt.Before(before) ||
			(r.UsedAt != nil && r.UsedAt.Before(before)) ||
			(r.RevokedAt != nil && r.RevokedAt.Before(before)) {
			delete(s.resets, id)
			n++
		}
	}
	return n, nil
}

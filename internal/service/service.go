package service

import (
	"context"
	"sync"
	"time"

	"github.com/komix/komix-api/internal/config"
	"github.com/komix/komix-api/internal/models"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the service runs on. It is implemented by
// repository.Repository (PostgreSQL) and memstore.Store.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	FindPasswordReset(ctx context.Context, id string) (*models.PasswordReset, error)
	ApplyPasswordReset(ctx context.Context, resetID string, userID int64, passwordHash string, at time.Time) error
	PurgePasswordResets(ctx context.Context, before time.Time) (int64, error)

	ListProjects(ctx context.Context, ownerID int64) ([]models.Project, error)
	CreateProject(ctx context.Context, project *models.Project) error
	FindProject(ctx context.Context, ownerID, projectID int64) (*models.Project, error)
	FindProjectByID(ctx context.Context, projectID int64) (*models.Project, error)
	UpdateProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, ownerID, projectID int64) error

	ListChapters(ctx context.Context, projectID int64) ([]models.Chapter, error)
	CreateChapter(ctx context.Context, chapter *models.Chapter) error
	FindChapter(ctx context.Context, projectID, chapterID int64) (*models.Chapter, error)
	UpdateChapter(ctx context.Context, chapter *models.Chapter) error
	DeleteChapter(ctx context.Context, projectID, chapterID int64) error

	ListFollowing(ctx context.Context, userID int64) ([]models.UserSummary, error)
	ListFollowers(ctx context.Context, userID int64) ([]models.UserSummary, error)
	CreateFollow(ctx context.Context, followerID, followingID int64) error
	DeleteFollow(ctx context.Context, followerID, followingID int64) error
	ListSubscriptions(ctx context.Context, userID int64) ([]models.ProjectSummary, error)
	CreateSubscription(ctx context.Context, userID, projectID int64) error
	DeleteSubscription(ctx context.Context, userID, projectID int64) error
	ListSubscribers(ctx context.Context, projectID int64) ([]models.UserSummary, error)
}

// Mailer delivers password reset links
type Mailer interface {
	SendPasswordReset(to, username, link string) error
}

// SessionRevoker ends every session of a user
type SessionRevoker interface {
	DestroyAll(ctx context.Context, userID int64) error
}

// Service handles business logic
type Service struct {
	store    Store
	sessions SessionRevoker
	mailer   Mailer
	log      *logrus.Logger
	config   *config.Config

	now     func() time.Time
	pending sync.WaitGroup
}

// NewService initializes a new service
func NewService(store Store, sessions SessionRevoker, mailer Mailer, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		mailer:   mailer,
		log:      log,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Wait blocks until background email deliveries have finished
func (s *Service) Wait() {
	s.pending.Wait()
}

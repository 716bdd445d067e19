package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/komix/komix-api/internal/config"
	"github.com/komix/komix-api/internal/models"
	"github.com/komix/komix-api/internal/repository/memstore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	to, username, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendPasswordReset(to, username, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, username, link})
	return m.err
}

type fakeSessions struct {
	destroyed []int64
	err       error
}

func (f *fakeSessions) DestroyAll(_ context.Context, userID int64) error {
	f.destroyed = append(f.destroyed, userID)
	return f.err
}

type fixture struct {
	svc      *Service
	store    *memstore.Store
	mailer   *fakeMailer
	sessions *fakeSessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		BcryptCost:     bcrypt.MinCost,
		ResetTTL:       models.DefaultResetTTL,
		ResetRetention: 24 * time.Hour,
		ResetBaseURL:   "http://localhost:3000/",
	}
	f := &fixture{
		store:    memstore.New(),
		mailer:   &fakeMailer{},
		sessions: &fakeSessions{},
	}
	f.svc = NewService(f.store, f.sessions, f.mailer, logger, cfg)
	return f
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), username, "pass", username+"@example.com")
	require.NoError(t, err)
	return u
}

var errBoom = errors.New("boom")

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/komix/komix-api/internal/models"
	"github.com/komix/komix-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, username, password, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalidField("username", "required")
	}
	if password == "" {
		return nil, invalidField("password", "required")
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hashedPassword,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translate(err, fmt.Errorf("%w: username is taken", ErrAlreadyExists))
	}

	s.log.Infof("User registered: %d", user.ID)
	return user, nil
}

// FindByUsername looks a user up by username
func (s *Service) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}
	return user, nil
}

// VerifyCredentials returns the user when the password matches
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(translate(err, ErrConflict), ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	s.log.Infof("User logged in: %d", user.ID)
	return user, nil
}

// CreatePasswordReset issues a reset token valid for the configured TTL
func (s *Service) CreatePasswordReset(ctx context.Context, userID int64) (*models.PasswordReset, error) {
	ttl := s.config.ResetTTL
	if ttl <= 0 {
		ttl = models.DefaultResetTTL
	}
	now := s.now()
	reset := &models.PasswordReset{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.CreatePasswordReset(ctx, reset); err != nil {
		return nil, translate(err, ErrConflict)
	}
	return reset, nil
}

// RequestPasswordReset issues a reset for username and mails the link.
// Delivery runs in the background; a failed send does not undo the reset.
func (s *Service) RequestPasswordReset(ctx context.Context, username string) error {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	reset, err := s.CreatePasswordReset(ctx, user.ID)
	if err != nil {
		return err
	}

	link := utils.JoinURL(s.config.ResetBaseURL, "auth/reset/"+reset.ID)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.mailer.SendPasswordReset(user.Email, user.Username, link); err != nil {
			s.log.WithError(err).Warnf("Password reset email for user %d was not delivered", user.ID)
		}
	}()

	s.log.Infof("Password reset requested for user %d", user.ID)
	return nil
}

// ApplyPasswordReset sets a new password using a reset token. The token is
// consumed, the user's other tokens are revoked and all sessions end.
func (s *Service) ApplyPasswordReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return invalidField("password", "required")
	}
	if _, err := uuid.Parse(token); err != nil {
		return ErrNotFound
	}

	reset, err := s.store.FindPasswordReset(ctx, token)
	if err != nil {
		return translate(err, ErrConflict)
	}
	now := s.now()
	switch {
	case reset.IsUsed():
		return ErrAlreadyUsed
	case reset.IsRevoked():
		return ErrNotFound
	case reset.IsExpired(now):
		return ErrExpired
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.ApplyPasswordReset(ctx, reset.ID, reset.UserID, hashedPassword, now); err != nil {
		return translate(err, ErrConflict)
	}

	if err := s.sessions.DestroyAll(ctx, reset.UserID); err != nil {
		s.log.WithError(err).Warnf("Failed to end sessions of user %d after password reset", reset.UserID)
	}
	s.log.Infof("Password reset applied for user %d", reset.UserID)
	return nil
}

// PurgeStaleResets deletes reset tokens that have been dead for longer than the retention window
func (s *Service) PurgeStaleResets(ctx context.Context) (int64, error) {
	n, err := s.store.PurgePasswordResets(ctx, s.now().Add(-s.config.ResetRetention))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// maxPasswordBytes is the longest input bcrypt accepts
const maxPasswordBytes = 72

func (s *Service) hashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", invalidField("password", "max")
	}
	cost := s.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", invalidField("password", "max")
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

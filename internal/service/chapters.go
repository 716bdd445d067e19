package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/komix/komix-api/internal/models"
)

// ListChapters returns the chapters of an owned project, newest first
func (s *Service) ListChapters(ctx context.Context, ownerID, projectID int64) ([]models.Chapter, error) {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListChapters(ctx, projectID)
}

// CreateChapter appends a chapter to an owned project
func (s *Service) CreateChapter(ctx context.Context, ownerID, projectID int64, rawURL string) (*models.Chapter, error) {
	chapterURL, err := normalizeChapterURL(rawURL)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	chapter := &models.Chapter{ProjectID: projectID, URL: chapterURL}
	if err := s.store.CreateChapter(ctx, chapter); err != nil {
		return nil, translate(err, ErrConflict)
	}
	return chapter, nil
}

// GetChapter returns a chapter of an owned project
func (s *Service) GetChapter(ctx context.Context, ownerID, projectID, chapterID int64) (*models.Chapter, error) {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	chapter, err := s.store.FindChapter(ctx, projectID, chapterID)
	if err != nil {
		return nil, translate(err, ErrConflict)
	}
	return chapter, nil
}

// UpdateChapter replaces the url of a chapter when one is given
func (s *Service) UpdateChapter(ctx context.Context, ownerID, projectID, chapterID int64, rawURL *string) (*models.Chapter, error) {
	chapter, err := s.GetChapter(ctx, ownerID, projectID, chapterID)
	if err != nil {
		return nil, err
	}
	if rawURL == nil {
		return chapter, nil
	}

	chapterURL, err := normalizeChapterURL(*rawURL)
	if err != nil {
		return nil, err
	}
	chapter.URL = chapterURL
	if err := s.store.UpdateChapter(ctx, chapter); err != nil {
		return nil, translate(err, ErrConflict)
	}
	return chapter, nil
}

// DeleteChapter removes a chapter of an owned project
func (s *Service) DeleteChapter(ctx context.Context, ownerID, projectID, chapterID int64) error {
	if _, err := s.GetProject(ctx, ownerID, projectID); err != nil {
		return err
	}
	if err := s.store.DeleteChapter(ctx, projectID, chapterID); err != nil {
		return translate(err, ErrConflict)
	}
	return nil
}

// normalizeChapterURL accepts absolute http and https URLs only
func normalizeChapterURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalidField("url", "required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", invalidField("url", "http_url")
	}
	return u.String(), nil
}

package models

import "time"

// Chapter points at an externally hosted part of a project
type Chapter struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

package models

import "time"

// Project represents a creative work owned by a user
type Project struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectPatch carries the fields of a partial update; nil means unchanged
type ProjectPatch struct {
	Name        *string
	Description *string
}

// ProjectSummary is the public view of a project in subscription lists
type ProjectSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

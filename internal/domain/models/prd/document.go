package prd

import (
	"time"
)

// PRD is a persisted product requirements document
type PRD struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Title     string          `json:"title" db:"title"`
	Content   DocumentContent `json:"content" db:"content"` // JSONB, keyed by section
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

package services

import (
	"context"

	"prdbuilder/internal/domain/models/prd"
)

// ContentStore is the persistence collaborator of an editing session:
// it seeds a session with content and receives auto-saved content.
type ContentStore interface {
	// LoadContent returns the stored content of a PRD
	LoadContent(ctx context.Context, userID, prdID string) (prd.DocumentContent, error)

	// SaveContent persists content for a PRD
	SaveContent(ctx context.Context, userID, prdID string, content prd.DocumentContent) error
}

// PRDService handles PRD business logic
type PRDService interface {
	ContentStore

	// CreatePRD creates a new, empty PRD (or one seeded with initial content)
	CreatePRD(ctx context.Context, req *CreatePRDRequest) (*prd.PRD, error)

	// GetPRD retrieves a PRD as last persisted
	GetPRD(ctx context.Context, userID, prdID string) (*prd.PRD, error)

	// ListPRDs lists the user's PRDs
	ListPRDs(ctx context.Context, userID string) ([]prd.PRD, error)

	// DeletePRD deletes a PRD
	DeletePRD(ctx context.Context, userID, prdID string) error
}

// CreatePRDRequest represents a PRD creation request
type CreatePRDRequest struct {
	UserID  string              `json:"-"` // Set by handler from auth context
	Title   string              `json:"title"`
	Content prd.DocumentContent `json:"content,omitempty"`
}

package repositories

import (
	"context"

	"prdbuilder/internal/domain/models/prd"
)

// PRDRepository defines data access operations for PRDs
type PRDRepository interface {
	// Create creates a new PRD, assigning its ID and timestamps
	Create(ctx context.Context, doc *prd.PRD) error

	// GetByID retrieves a PRD owned by userID
	GetByID(ctx context.Context, id, userID string) (*prd.PRD, error)

	// ListByUser lists a user's PRDs, most recently updated first
	ListByUser(ctx context.Context, userID string) ([]prd.PRD, error)

	// UpdateContent replaces the stored section content of a PRD
	UpdateContent(ctx context.Context, id, userID string, content prd.DocumentContent) error

	// Delete deletes a PRD
	Delete(ctx context.Context, id, userID string) error
}

// Package prd implements PRD lifecycle operations on top of a PRDRepository.
// It is also the ContentStore behind editing sessions.
package prd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"prdbuilder/internal/config"
	"prdbuilder/internal/domain"
	models "prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/domain/repositories"
	"prdbuilder/internal/domain/services"
)

// prdService implements the PRDService interface
type prdService struct {
	repo   repositories.PRDRepository
	logger *slog.Logger
}

// NewPRDService creates a new PRD service
func NewPRDService(repo repositories.PRDRepository, logger *slog.Logger) services.PRDService {
	return &prdService{
		repo:   repo,
		logger: logger,
	}
}

// CreatePRD creates a new PRD
func (s *prdService) CreatePRD(ctx context.Context, req *services.CreatePRDRequest) (*models.PRD, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	content := req.Content.Clone()
	if content == nil {
		content = models.DocumentContent{}
	}

	now := time.Now()
	doc := &models.PRD{
		UserID:    req.UserID,
		Title:     strings.TrimSpace(req.Title),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("prd created",
		"id", doc.ID,
		"title", doc.Title,
		"user_id", req.UserID,
	)
	return doc, nil
}

// GetPRD retrieves a PRD as last persisted
func (s *prdService) GetPRD(ctx context.Context, userID, prdID string) (*models.PRD, error) {
	return s.repo.GetByID(ctx, prdID, userID)
}

// ListPRDs lists the user's PRDs
func (s *prdService) ListPRDs(ctx context.Context, userID string) ([]models.PRD, error) {
	return s.repo.ListByUser(ctx, userID)
}

// DeletePRD deletes a PRD
func (s *prdService) DeletePRD(ctx context.Context, userID, prdID string) error {
	if err := s.repo.Delete(ctx, prdID, userID); err != nil {
		return err
	}

	s.logger.Info("prd deleted",
		"id", prdID,
		"user_id", userID,
	)
	return nil
}

// LoadContent returns the stored section content of a PRD
func (s *prdService) LoadContent(ctx context.Context, userID, prdID string) (models.DocumentContent, error) {
	doc, err := s.repo.GetByID(ctx, prdID, userID)
	if err != nil {
		return nil, err
	}
	if doc.Content == nil {
		return models.DocumentContent{}, nil
	}
	return doc.Content, nil
}

// SaveContent persists section content. Called by auto-save.
func (s *prdService) SaveContent(ctx context.Context, userID, prdID string, content models.DocumentContent) error {
	if err := s.repo.UpdateContent(ctx, prdID, userID, content); err != nil {
		s.logger.Error("failed to save prd content",
			"id", prdID,
			"user_id", userID,
			"error", err,
		)
		return err
	}

	s.logger.Debug("prd content saved",
		"id", prdID,
		"sections", len(content),
	)
	return nil
}

// validateCreateRequest validates a create PRD request
func validateCreateRequest(req *services.CreatePRDRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxPRDTitleLength),
			validation.By(notBlank),
		),
		validation.Field(&req.Content, validation.By(validContent)),
	)
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("cannot be blank")
	}
	return nil
}

// validContent checks every section of initial content
func validContent(value interface{}) error {
	content, _ := value.(models.DocumentContent)
	return content.Validate()
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/domain/repositories"
)

// PostgresPRDRepository implements the PRDRepository interface
type PostgresPRDRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewPRDRepository creates a new PRD repository
func NewPRDRepository(config *RepositoryConfig) repositories.PRDRepository {
	return &PostgresPRDRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a PRD; the database assigns its ID
func (r *PostgresPRDRepository) Create(ctx context.Context, doc *prd.PRD) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.PRDs)

	content := doc.Content
	if content == nil {
		content = prd.DocumentContent{}
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.UserID,
		doc.Title,
		content, // pgx handles map -> JSONB
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("prd '%s' already exists: %w", doc.Title, domain.ErrConflict)
		}
		return fmt.Errorf("create prd: %w", err)
	}

	doc.Content = content
	return nil
}

// GetByID retrieves a PRD owned by userID
func (r *PostgresPRDRepository) GetByID(ctx context.Context, id, userID string) (*prd.PRD, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, content, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.PRDs)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanPRD(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) || IsPgInvalidInputError(err) {
			return nil, fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get prd: %w", err)
	}
	return doc, nil
}

// ListByUser lists a user's PRDs, most recently updated first
func (r *PostgresPRDRepository) ListByUser(ctx context.Context, userID string) ([]prd.PRD, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, content, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.PRDs)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		if IsPgUndefinedTableError(err) {
			return nil, fmt.Errorf("table %s missing, run `prdctl db schema`: %w", r.tables.PRDs, err)
		}
		return nil, fmt.Errorf("list prds: %w", err)
	}
	defer rows.Close()

	docs := []prd.PRD{}
	for rows.Next() {
		doc, err := scanPRD(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prd: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prds: %w", err)
	}

	return docs, nil
}

// UpdateContent replaces the stored section content and bumps updated_at
func (r *PostgresPRDRepository) UpdateContent(ctx context.Context, id, userID string, content prd.DocumentContent) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, r.tables.PRDs)

	if content == nil {
		content = prd.DocumentContent{}
	}

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, content, time.Now(), id, userID)
	if err != nil {
		if IsPgInvalidInputError(err) {
			return fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("update prd content: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
	}

	r.logger.Debug("prd content updated", "id", id, "sections", len(content))
	return nil
}

// Delete deletes a PRD
func (r *PostgresPRDRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.PRDs)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, userID)
	if err != nil {
		if IsPgInvalidInputError(err) {
			return fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete prd: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanPRD(row pgx.Row) (*prd.PRD, error) {
	var doc prd.PRD
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Content, // pgx handles JSONB -> map
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if doc.Content == nil {
		doc.Content = prd.DocumentContent{}
	}
	return &doc, nil
}

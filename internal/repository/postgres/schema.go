package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"prdbuilder/internal/domain/repositories"
)

// schemaStatements returns the DDL for the PRD tables, in order
func schemaStatements(tables *TableNames) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL,
				title VARCHAR(255) NOT NULL,
				content JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, tables.PRDs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%sprds_user_updated ON %s (user_id, updated_at DESC)`,
			tables.Prefix, tables.PRDs),
	}
}

// EnsureSchema creates the PRD tables if they do not exist, in a single transaction
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tm repositories.TransactionManager, tables *TableNames) error {
	return tm.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, pool)
		for _, stmt := range schemaStatements(tables) {
			if _, err := executor.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// DropSchema drops the PRD tables
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.PRDs+" CASCADE"); err != nil {
		return fmt.Errorf("drop %s: %w", tables.PRDs, err)
	}
	return nil
}

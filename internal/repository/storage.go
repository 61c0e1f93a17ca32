// Package repository opens the configured PRD storage backend.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"prdbuilder/internal/config"
	"prdbuilder/internal/domain/repositories"
	"prdbuilder/internal/repository/postgres"
	redisrepo "prdbuilder/internal/repository/redis"
)

// Storage is an opened PRD repository plus the handles needed to shut it down
type Storage struct {
	PRDs repositories.PRDRepository

	// Pool is set for the postgres backend only
	Pool   *pgxpool.Pool
	Tables *postgres.TableNames

	close func()
}

// Close releases the backend connections
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects the backend named by cfg.StorageBackend
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres backend")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("database connected", "max_conns", pool.Config().MaxConns)

		tables := postgres.NewTableNames(cfg.TablePrefix)
		repo := postgres.NewPRDRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		})
		return &Storage{PRDs: repo, Pool: pool, Tables: tables, close: pool.Close}, nil

	case config.StorageRedis:
		client, err := redisrepo.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("redis connected", "addr", client.Options().Addr)

		repo := redisrepo.NewPRDRepository(client, cfg.TablePrefix, logger)
		return &Storage{PRDs: repo, close: func() { _ = client.Close() }}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q (want %s or %s)",
			cfg.StorageBackend, config.StoragePostgres, config.StorageRedis)
	}
}

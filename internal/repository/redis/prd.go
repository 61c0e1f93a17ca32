// Package redis stores PRDs in Redis, as an alternative to Postgres.
//
// Each PRD is a JSON document under "<prefix>prd:<id>". A per-user sorted set
// "<prefix>prds:user:<user_id>", scored by updated_at, indexes a user's PRDs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/domain/repositories"
)

// maxTxRetries bounds optimistic-lock retries when a watched key changes
const maxTxRetries = 5

// PRDRepository implements repositories.PRDRepository on Redis
type PRDRepository struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewClient parses redisURL and checks connectivity
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewPRDRepository creates a repository; prefix namespaces keys per environment
func NewPRDRepository(client *redis.Client, prefix string, logger *slog.Logger) repositories.PRDRepository {
	return &PRDRepository{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *PRDRepository) docKey(id string) string {
	return r.prefix + "prd:" + id
}

func (r *PRDRepository) userKey(userID string) string {
	return r.prefix + "prds:user:" + userID
}

// Create stores a new PRD under a fresh UUID
func (r *PRDRepository) Create(ctx context.Context, doc *prd.PRD) error {
	doc.ID = uuid.NewString()
	if doc.Content == nil {
		doc.Content = prd.DocumentContent{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal prd: %w", err)
	}

	key := r.docKey(doc.ID)
	created, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("create prd: %w", err)
	}
	if !created {
		return fmt.Errorf("prd %s: %w", doc.ID, domain.ErrConflict)
	}

	if err := r.client.ZAdd(ctx, r.userKey(doc.UserID), redis.Z{
		Score:  float64(doc.UpdatedAt.UnixNano()),
		Member: doc.ID,
	}).Err(); err != nil {
		return fmt.Errorf("index prd: %w", err)
	}
	return nil
}

// GetByID retrieves a PRD owned by userID
func (r *PRDRepository) GetByID(ctx context.Context, id, userID string) (*prd.PRD, error) {
	doc, err := r.get(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

// ListByUser lists a user's PRDs, most recently updated first
func (r *PRDRepository) ListByUser(ctx context.Context, userID string) ([]prd.PRD, error) {
	ids, err := r.client.ZRevRange(ctx, r.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list prds: %w", err)
	}

	docs := []prd.PRD{}
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.docKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load prds: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a document
			r.logger.Warn("dangling prd index entry", "id", ids[i], "user_id", userID)
			continue
		}
		var doc prd.PRD
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal prd %s: %w", ids[i], err)
		}
		if doc.Content == nil {
			doc.Content = prd.DocumentContent{}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// UpdateContent replaces a PRD's content. Concurrent writers to the same PRD
// are detected with WATCH and retried.
func (r *PRDRepository) UpdateContent(ctx context.Context, id, userID string, content prd.DocumentContent) error {
	if content == nil {
		content = prd.DocumentContent{}
	}
	key := r.docKey(id)

	return r.withRetry(ctx, key, func(tx *redis.Tx) error {
		doc, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.UserID != userID {
			return fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
		}

		doc.Content = content
		doc.UpdatedAt = time.Now()
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal prd: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, r.userKey(userID), redis.Z{Score: float64(doc.UpdatedAt.UnixNano()), Member: id})
			return nil
		})
		return err
	})
}

// Delete removes a PRD and its index entry
func (r *PRDRepository) Delete(ctx context.Context, id, userID string) error {
	key := r.docKey(id)

	return r.withRetry(ctx, key, func(tx *redis.Tx) error {
		doc, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.UserID != userID {
			return fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, r.userKey(userID), id)
			return nil
		})
		return err
	})
}

// withRetry runs fn in a WATCH transaction on key, retrying when the key changed underneath
func (r *PRDRepository) withRetry(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("prd changed during transaction, retrying", "key", key, "attempt", attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too much contention: %w", key, domain.ErrConflict)
}

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *PRDRepository) get(ctx context.Context, c getter, id string) (*prd.PRD, error) {
	data, err := c.Get(ctx, r.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("prd %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prd: %w", err)
	}

	var doc prd.PRD
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal prd %s: %w", id, err)
	}
	if doc.Content == nil {
		doc.Content = prd.DocumentContent{}
	}
	return &doc, nil
}

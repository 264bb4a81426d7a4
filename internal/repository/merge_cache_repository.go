package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusprint/printq-api/internal/models"
	appErrors "github.com/campusprint/printq-api/pkg/errors"
)

// MergeCacheRepository stores the last merged artifact and failure list
// per container key in Redis. Entries are overwritten by the next merge
// of the same key and may be cleared explicitly after download.
type MergeCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewMergeCacheRepository constructs the cache repository.
func NewMergeCacheRepository(client *redis.Client, logger *zap.Logger, ttl time.Duration) *MergeCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MergeCacheRepository{client: client, logger: logger, ttl: ttl}
}

// StoreResult caches the artifact bytes and failure descriptors for the key.
func (r *MergeCacheRepository) StoreResult(ctx context.Context, key string, artifact []byte, failures []models.FailedDocument) error {
	if r.client == nil {
		return fmt.Errorf("merge cache unavailable")
	}
	if err := r.client.Set(ctx, artifactKey(key), artifact, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache merge artifact %s: %w", key, err)
	}
	payload, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshal merge failures for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, failuresKey(key), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache merge failures %s: %w", key, err)
	}
	return nil
}

// Artifact returns the cached artifact bytes for the key.
func (r *MergeCacheRepository) Artifact(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, artifactKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Failures returns the cached failure descriptors for the key.
func (r *MergeCacheRepository) Failures(ctx context.Context, key string) ([]models.FailedDocument, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	raw, err := r.client.Get(ctx, failuresKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var failures []models.FailedDocument
	if err := json.Unmarshal(raw, &failures); err != nil {
		return nil, fmt.Errorf("unmarshal merge failures for %s: %w", key, err)
	}
	return failures, nil
}

// Clear drops both cache entries for the key.
func (r *MergeCacheRepository) Clear(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, artifactKey(key), failuresKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

func artifactKey(key string) string {
	return "merge:artifact:" + key
}

func failuresKey(key string) string {
	return "merge:failures:" + key
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/birdboard/birdboard-backend/internal/projects/domain"
)

const (
	ownerListKeyPrefix = "birdboard:owner:" // birdboard:owner:{owner_id}:projects
	defaultListTTL     = 5 * time.Minute
)

// ListCache keeps each owner's project list in Redis. Entries are dropped on
// every project or task mutation of that owner, so the TTL only bounds staleness
// when an invalidation is lost.
//
// Each owner also has a generation counter that Invalidate bumps. A list
// loaded from the database is only stored if the generation it was loaded
// under is still current, so a slow reader cannot overwrite an invalidation.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = defaultListTTL
	}
	return &ListCache{client: client, ttl: ttl}
}

// Get returns the cached list and whether it was present.
func (c *ListCache) Get(ctx context.Context, ownerID string) ([]domain.Project, bool, error) {
	data, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get project list: %w", err)
	}

	var items []domain.Project
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal project list: %w", err)
	}
	return items, true, nil
}

// Generation returns the owner's current cache generation. Read it before
// loading the list that will be passed to Set.
func (c *ListCache) Generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get list generation: %w", err)
	}
	return gen, nil
}

// Set stores items if gen is still the owner's generation. It reports whether
// the list was stored; a lost race is not an error.
func (c *ListCache) Set(ctx context.Context, ownerID string, gen int64, items []domain.Project) (bool, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("failed to marshal project list: %w", err)
	}

	genKey := c.genKey(ownerID)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(ownerID), data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to set project list: %w", err)
	}
	return stored, nil
}

// Invalidate drops the cached list and bumps the generation so in-flight
// loads are not stored.
func (c *ListCache) Invalidate(ctx context.Context, ownerID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(ownerID))
		pipe.Del(ctx, c.key(ownerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate project list: %w", err)
	}
	return nil
}

func (c *ListCache) key(ownerID string) string {
	return fmt.Sprintf("%s%s:projects", ownerListKeyPrefix, ownerID)
}

func (c *ListCache) genKey(ownerID string) string {
	return fmt.Sprintf("%s%s:projects:gen", ownerListKeyPrefix, ownerID)
}

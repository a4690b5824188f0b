// Package rediscache holds the Redis-backed instant-read copy of each user's
// LaunchContent entities.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/letteros/letteros/internal/domain"
)

const (
	keyPrefix     = "letteros:lc:"
	userSetPrefix = "letteros:lc:user:"
	warmPrefix    = "letteros:lc:warm:"
	tombPrefix    = "letteros:lc:tomb:"

	// Tombstones outlive any realistic outbox backlog.
	tombstoneTTL = 24 * time.Hour
)

// LaunchContentCache implements launchcontent.Cache on Redis.
type LaunchContentCache struct {
	client *redis.Client
}

func NewLaunchContentCache(client *redis.Client) *LaunchContentCache {
	return &LaunchContentCache{client: client}
}

func (c *LaunchContentCache) IsWarm(ctx context.Context, userID string) (bool, error) {
	n, err := c.client.Exists(ctx, warmPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("check cache warm: %w", err)
	}
	return n == 1, nil
}

// Warm loads items and marks the user warm. Items with a pending local delete
// are skipped.
func (c *LaunchContentCache) Warm(ctx context.Context, userID string, items []domain.LaunchContent) error {
	tombs := make([]*redis.IntCmd, len(items))
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, lc := range items {
			tombs[i] = p.Exists(ctx, tombPrefix+lc.ID)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("warm cache: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i := range items {
			if tombs[i].Val() == 1 {
				continue
			}
			data, err := json.Marshal(&items[i])
			if err != nil {
				return err
			}
			p.Set(ctx, keyPrefix+items[i].ID, data, 0)
			p.SAdd(ctx, userSetPrefix+userID, items[i].ID)
		}
		p.Set(ctx, warmPrefix+userID, "1", 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}
	return nil
}

func (c *LaunchContentCache) Get(ctx context.Context, id string) (*domain.LaunchContent, error) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		n, err := c.client.Exists(ctx, tombPrefix+id).Result()
		if err != nil {
			return nil, fmt.Errorf("cache get: %w", err)
		}
		if n == 1 {
			return nil, domain.ErrNotFound
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var lc domain.LaunchContent
	if err := json.Unmarshal(data, &lc); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", id, err)
	}
	return &lc, nil
}

func (c *LaunchContentCache) ListByUser(ctx context.Context, userID string) ([]domain.LaunchContent, error) {
	ids, err := c.client.SMembers(ctx, userSetPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	out := []domain.LaunchContent{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache list: %w", err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var lc domain.LaunchContent
		if err := json.Unmarshal([]byte(s), &lc); err != nil {
			continue
		}
		out = append(out, lc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *LaunchContentCache) Put(ctx context.Context, lc *domain.LaunchContent) error {
	data, err := json.Marshal(lc)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyPrefix+lc.ID, data, 0)
		p.SAdd(ctx, userSetPrefix+lc.UserID, lc.ID)
		p.Del(ctx, tombPrefix+lc.ID)
		return nil
	})
	return err
}

func (c *LaunchContentCache) Delete(ctx context.Context, lc *domain.LaunchContent) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keyPrefix+lc.ID)
		p.SRem(ctx, userSetPrefix+lc.UserID, lc.ID)
		p.Set(ctx, tombPrefix+lc.ID, "1", tombstoneTTL)
		return nil
	})
	return err
}

func (c *LaunchContentCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, warmPrefix+userID).Err()
}

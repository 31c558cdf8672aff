package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	positionsKey        = "positions:active"
	defaultPositionsTTL = 2 * time.Minute
)

// PositionCache implements domain.PositionCache as a single JSON string key
// that expires if no replica refreshes it.
type PositionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPositionCache creates a PositionCache. A non-positive ttl selects the
// default of two minutes.
func NewPositionCache(c *Client, ttl time.Duration) *PositionCache {
	if ttl <= 0 {
		ttl = defaultPositionsTTL
	}
	return &PositionCache{rdb: c.Underlying(), ttl: ttl}
}

// Set replaces the cached snapshot.
func (pc *PositionCache) Set(ctx context.Context, snap domain.PositionSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal position snapshot: %w", err)
	}
	if err := pc.rdb.Set(ctx, positionsKey, data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set position snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot, or domain.ErrNotFound when none is live.
func (pc *PositionCache) Get(ctx context.Context) (domain.PositionSnapshot, error) {
	data, err := pc.rdb.Get(ctx, positionsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.PositionSnapshot{}, domain.ErrNotFound
		}
		return domain.PositionSnapshot{}, fmt.Errorf("redis: get position snapshot: %w", err)
	}

	var snap domain.PositionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("redis: unmarshal position snapshot: %w", err)
	}
	return snap, nil
}

var _ domain.PositionCache = (*PositionCache)(nil)

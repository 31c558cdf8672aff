package domain

import (
	"context"
	"time"
)

// PositionSnapshot is a derived position list together with the time it was
// computed.
type PositionSnapshot struct {
	Positions  []ActivePosition `json:"positions"`
	ComputedAt time.Time        `json:"computedAt"`
}

// PositionCache shares the latest derived list between replicas.
type PositionCache interface {
	Set(ctx context.Context, snap PositionSnapshot) error
	Get(ctx context.Context) (PositionSnapshot, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub between replicas.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Bus channels.
const (
	ChannelPositions    = "positions"
	ChannelTransactions = "transactions"
	ChannelUnlocks      = "unlocks"
)

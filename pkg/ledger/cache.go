package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/pda"
)

// DefaultCacheTTL bounds how stale a cached account may be.
const DefaultCacheTTL = 30 * time.Second

// RedisClient is the subset of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedFetcher is a read-through Redis cache in front of another fetcher.
// Only present accounts are cached. Cache errors degrade to a direct fetch.
type CachedFetcher struct {
	next   AccountFetcher
	client RedisClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRedisClient opens a client for addr in the style used across services.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewCachedFetcher(next AccountFetcher, client RedisClient, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: "sator:account:",
		logger: slog.Default().With("component", "ledger-cache"),
	}
}

func (c *CachedFetcher) key(addr pda.PublicKey) string {
	return c.prefix + addr.String()
}

func (c *CachedFetcher) FetchAccount(ctx context.Context, addr pda.PublicKey) ([]byte, error) {
	key := c.key(addr)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	data, err = c.next.FetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// Invalidate drops the cached copy of addr.
func (c *CachedFetcher) Invalidate(ctx context.Context, addr pda.PublicKey) error {
	if err := c.client.Del(ctx, c.key(addr)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", addr, err)
	}
	return nil
}

// Package cache keeps raw model replies in Redis, keyed by question, so a
// repeated question skips retrieval and generation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "videorag:answer:"

// DefaultTTL is used when Options.TTL is not positive.
const DefaultTTL = 24 * time.Hour

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AnswerCache stores replies with a TTL.
type AnswerCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis and pings it.
func New(ctx context.Context, opts Options) (*AnswerCache, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &AnswerCache{rdb: rdb, ttl: opts.TTL}, nil
}

// Key returns the cache key for a question. Case and whitespace differences
// map to the same key.
func Key(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached reply for question and whether there was one.
func (c *AnswerCache) Get(ctx context.Context, question string) (string, bool, error) {
	reply, err := c.rdb.Get(ctx, Key(question)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return reply, true, nil
}

// Set stores reply for question.
func (c *AnswerCache) Set(ctx context.Context, question, reply string) error {
	if err := c.rdb.Set(ctx, Key(question), reply, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Health pings Redis.
func (c *AnswerCache) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *AnswerCache) Close() error {
	return c.rdb.Close()
}

package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTranscriptCache caches resolved transcript text by video ID so a
// queue-level retry or a re-submission of the same video does not hit the
// upstream again. All Redis failures degrade to a cache miss.
type RedisTranscriptCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisTranscriptCache creates a cache from a Redis URL.
func NewRedisTranscriptCache(redisURL string, ttl time.Duration) (*RedisTranscriptCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTranscriptCache{rdb: redis.NewClient(opts), ttl: ttl}, nil
}

func cacheKey(videoID string) string {
	return "transcript:" + videoID
}

// Get returns the cached transcript for videoID, if present.
func (c *RedisTranscriptCache) Get(ctx context.Context, videoID string) (string, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(videoID)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		slog.Warn("Transcript cache read failed", "video_id", videoID, "error", err)
		return "", false
	}
	return val, true
}

// Set stores the transcript for videoID with the configured TTL.
func (c *RedisTranscriptCache) Set(ctx context.Context, videoID, text string) {
	if err := c.rdb.Set(ctx, cacheKey(videoID), text, c.ttl).Err(); err != nil {
		slog.Warn("Transcript cache write failed", "video_id", videoID, "error", err)
	}
}

// Close closes the Redis client connection.
func (c *RedisTranscriptCache) Close() error {
	return c.rdb.Close()
}

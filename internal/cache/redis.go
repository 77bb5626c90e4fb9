// internal/cache/redis.go

// Package cache feeds completed matches to an out-of-process historian
// through a Redis list. Publishing is fire-and-forget: a failed push is
// logged by the caller and the match result stays authoritative in memory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mkarman/tilerush/internal/engine"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for match records.
var DefaultQueueName = "tilerush_matches"

// MatchRecord holds the minimal info the historian needs to rebuild a match.
type MatchRecord struct {
	SessionID  uuid.UUID          `json:"session_id"`
	Mode       string             `json:"mode"`
	RoomID     int                `json:"room_id"`
	MatchNo    int                `json:"match_no"`
	TileLayout string             `json:"tile_layout"`
	Ranking    []engine.RankEntry `json:"ranking"`
	Timestamp  int64              `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// ConnectLoop retries ConnectRedis at a fixed interval until it succeeds or
// ctx is cancelled.
func ConnectLoop(ctx context.Context, logger *logrus.Logger, interval time.Duration) {
	for {
		err := ConnectRedis()
		if err == nil {
			logger.Info("connected to redis")
			return
		}
		logger.Warnf("redis connect failed, retrying in %s: %v", interval, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// PublishMatch serializes the record to JSON and pushes it onto the historian
// queue. No-op while redis is not connected.
func PublishMatch(ctx context.Context, record MatchRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchRecord: %w", err)
	}

	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// internal/events/redis.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "fizzbuzz_session_events"

// RedisPublisher pushes session events onto a Redis list.
type RedisPublisher struct {
	rdb   *redis.Client
	queue string
}

// ConnectRedis opens a client for addr/db and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func NewRedisPublisher(rdb *redis.Client, queue string) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisPublisher{rdb: rdb, queue: queue}
}

// Publish serializes ev to JSON and RPUSHes it to the queue.
func (p *RedisPublisher) Publish(ctx context.Context, ev models.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal SessionEvent: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

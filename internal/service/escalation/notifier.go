package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	model "github.com/campus-sarthi/sarthi/backend/internal/model/escalation"
)

// LogNotifier writes each escalation to the service log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(log).With("component", "escalation-log")}
}

func (n *LogNotifier) Notify(_ context.Context, rec model.Record) error {
	n.log.Info("escalation received",
		"id", rec.ID,
		"sessionId", rec.SessionID,
		"reason", rec.Reason,
		"language", rec.Language,
		"hasContact", rec.Contact != "",
	)
	return nil
}

// RedisNotifier publishes escalations on a Redis channel for the support
// desk to pick up.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
}

// NewRedisNotifier connects to addr and verifies the connection.
func NewRedisNotifier(ctx context.Context, addr, channel string) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "campus-sarthi:escalations"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisNotifierFromClient(rdb, channel), nil
}

// NewRedisNotifierFromClient wraps an existing client.
func NewRedisNotifierFromClient(rdb *goredis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, rec model.Record) error {
	if n == nil || n.rdb == nil {
		return fmt.Errorf("redis notifier not initialized")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode escalation: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish escalation: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (n *RedisNotifier) Close() error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Close()
}

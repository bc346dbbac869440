package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans events out on a Redis pub/sub channel and keeps a
// capped per-user history list so clients that were offline can catch up.
type RedisPublisher struct {
	rdb *redis.Client

	channel    string
	prefix     string
	historyLen int64
}

type RedisOption func(*RedisPublisher)

func WithChannel(channel string) RedisOption {
	return func(p *RedisPublisher) { p.channel = channel }
}

func WithHistoryPrefix(prefix string) RedisOption {
	return func(p *RedisPublisher) { p.prefix = strings.Trim(prefix, ":") }
}

// WithHistoryLen caps each user's history list; 0 disables the history.
func WithHistoryLen(n int64) RedisOption {
	return func(p *RedisPublisher) { p.historyLen = n }
}

func NewRedisPublisher(rdb *redis.Client, opts ...RedisOption) *RedisPublisher {
	p := &RedisPublisher{
		rdb:        rdb,
		channel:    "reservations:events",
		prefix:     "reservations:user",
		historyLen: 50,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HistoryKey is the list holding a user's most recent events, newest first.
func (p *RedisPublisher) HistoryKey(userID int64) string {
	return fmt.Sprintf("%s:%d:events", p.prefix, userID)
}

func (p *RedisPublisher) Publish(ctx context.Context, events ...Event) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Type, err)
		}
		if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("publish %s event: %w", ev.Type, err)
		}
		if p.historyLen <= 0 {
			continue
		}
		key := p.HistoryKey(ev.UserID)
		if err := p.rdb.LPush(ctx, key, payload).Err(); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		if err := p.rdb.LTrim(ctx, key, 0, p.historyLen-1).Err(); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
	}
	return nil
}

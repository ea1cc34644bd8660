package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// RedisSink publishes envelopes on the pub/sub channel <prefix><event name>,
// for listeners running outside this process.
type RedisSink struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSink(rdb *redis.Client, prefix string) *RedisSink {
	return &RedisSink{rdb: rdb, prefix: prefix}
}

// DialRedis parses a redis:// URL and checks the connection.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rdb, nil
}

func (s *RedisSink) Channel(name string) string {
	return s.prefix + name
}

func (s *RedisSink) Emit(name string, payload any) error {
	data, err := json.Marshal(Envelope{Event: name, Payload: payload})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return s.rdb.Publish(ctx, s.Channel(name), data).Err()
}

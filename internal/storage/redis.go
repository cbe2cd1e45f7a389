package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	logx "igdownbot/pkg/logx"
)

// redisStore keeps the failure map in a single Redis hash, which makes the
// last-write-wins semantics safe across multiple bot processes.
type redisStore struct {
	client *redis.Client
	key    string
	log    logx.Logger
}

const redisFailuresKey = "igdownbot:failures"

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("storage.redis_addr is required for redis driver")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Probe the connection, but don't fail startup on a transient outage:
	// the store is a best-effort sink.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed; continuing", logx.String("addr", cfg.RedisAddr), logx.Err(err))
	}

	return &redisStore{client: client, key: redisFailuresKey, log: log}, nil
}

func (s *redisStore) Close() error { return s.client.Close() }

func (s *redisStore) PutFailure(ctx context.Context, url, message string) error {
	if url == "" {
		return nil
	}
	b, err := json.Marshal(Failure{URL: url, Message: message, At: time.Now()})
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, url, b).Err()
}

func (s *redisStore) GetFailure(ctx context.Context, url string) (Failure, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, url).Result()
	if errors.Is(err, redis.Nil) {
		return Failure{}, false, nil
	}
	if err != nil {
		return Failure{}, false, err
	}
	var f Failure
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return Failure{}, false, err
	}
	return f, true, nil
}

func (s *redisStore) Stats(ctx context.Context) (Stats, error) {
	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Entries: int(n)}, nil
}

// Compact is a no-op: Redis hashes have no journal to fold.
func (s *redisStore) Compact(ctx context.Context) error { return nil }

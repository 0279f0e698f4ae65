package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the registry with a Redis hash per task so multiple
// gateway processes can share one registry. Selected via config; the
// in-memory store remains the default.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("task store connected", "backend", "redis", "addr", addr)
	return &RedisStore{client: client, prefix: "deploypilot:task:"}, nil
}

// NewRedisStoreFromURL accepts a redis:// URL as used in config files.
func NewRedisStoreFromURL(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(ctx, opts.Addr, opts.Password, opts.DB)
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Create(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	// HSETNX on the status field guards against duplicate ids.
	ok, err := s.client.HSetNX(ctx, s.key(id), "status", string(StatusProcessing)).Result()
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("create %s: %w", id, ErrExists)
	}

	err = s.client.HSet(ctx, s.key(id),
		"id", id,
		"result", "",
		"created_at", now,
		"updated_at", now,
	).Err()
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}

	return s.client.SAdd(ctx, s.prefix+"ids", id).Err()
}

// setResultScript checks and writes the terminal transition in one atomic
// step, so two processes sharing the store cannot both claim it.
var setResultScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return 'not_found'
end
if status == 'completed' or status == 'error' then
	return 'terminal'
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'result', ARGV[2], 'updated_at', ARGV[3])
return 'ok'
`)

func (s *RedisStore) SetResult(ctx context.Context, id string, status Status, result string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	outcome, err := setResultScript.Run(ctx, s.client,
		[]string{s.key(id)}, string(status), result, now).Text()
	if err != nil {
		return fmt.Errorf("set result %s: %w", id, err)
	}

	switch outcome {
	case "ok":
		return nil
	case "not_found":
		return fmt.Errorf("set result %s: %w", id, ErrNotFound)
	case "terminal":
		return fmt.Errorf("set result %s: %w", id, ErrTerminal)
	default:
		return fmt.Errorf("set result %s: unexpected script outcome %q", id, outcome)
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	rec := &Record{
		ID:     id,
		Status: Status(fields["status"]),
		Result: fields["result"],
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.prefix+"ids").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

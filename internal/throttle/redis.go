package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "crypto-sentinel:throttle:"
	reservedPrefix = "reserved:"
	// reservationTTL bounds how long an undelivered reservation blocks a key.
	reservationTTL = 2 * time.Minute
)

// RedisStore shares throttle state between processes. Reserve takes the
// key with SET NX so two scanners never deliver the same alert.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w: %v", addr, ErrStoreUnavailable, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Reserve(ctx context.Context, key string, now time.Time, _ time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, reservedPrefix+now.UTC().Format(time.RFC3339), reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w: %v", key, ErrStoreUnavailable, err)
	}
	return ok, nil
}

func (s *RedisStore) Commit(ctx context.Context, key string, at time.Time, cooldown time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, at.UTC().Format(time.RFC3339), cooldown).Err(); err != nil {
		return fmt.Errorf("commit %s: %w: %v", key, ErrStoreUnavailable, err)
	}
	return nil
}

// releaseScript deletes the key only while it still holds a reservation,
// so a commit from another process is never dropped.
var releaseScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v and string.sub(v, 1, string.len(ARGV[1])) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{keyPrefix + key}, reservedPrefix).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release %s: %w: %v", key, ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

package throttle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestGate_CooldownWindow(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "throttle.json"))
	require.NoError(t, err)

	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	g := NewGate(store, 30*time.Minute, zerolog.Nop()).WithClock(c.now)

	delivered := 0
	try := func() {
		if g.Allow(ctx, "BTC/USDT", "setup_leve") {
			delivered++
			g.Commit(ctx, "BTC/USDT", "setup_leve")
		}
	}

	try()
	c.t = c.t.Add(10 * time.Minute)
	try()
	assert.Equal(t, 1, delivered)

	c.t = c.t.Add(25 * time.Minute)
	try()
	assert.Equal(t, 2, delivered)
}

func TestGate_FailedDeliveryDoesNotStartCooldown(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "throttle.json"))
	require.NoError(t, err)
	g := NewGate(store, 30*time.Minute, zerolog.Nop())

	require.True(t, g.Allow(ctx, "ETH/USDT", "bollinger_squeeze"))
	g.Release(ctx, "ETH/USDT", "bollinger_squeeze")

	assert.True(t, g.Allow(ctx, "ETH/USDT", "bollinger_squeeze"))
	assert.True(t, g.Allow(ctx, "ETH/USDT", "setup_leve"), "keys are per setup")
}

func TestFileStore_PersistsAcrossReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "throttle.json")
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Commit(ctx, Key("BTC/USDT", "setup_leve"), at, time.Hour))

	s2, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, at, s2.Snapshot()["BTC/USDT_setup_leve"])

	ok, err := s2.Reserve(ctx, "BTC/USDT_setup_leve", at.Add(time.Minute), 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "throttle.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer s.Close()

	key := Key("TEST/USDT", time.Now().Format("150405.000000"))
	now := time.Now()

	ok, err := s.Reserve(ctx, key, now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, key, now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail while the first is held")

	require.NoError(t, s.Release(ctx, key))
	ok, err = s.Reserve(ctx, key, now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Commit(ctx, key, now, time.Minute))
	require.NoError(t, s.Release(ctx, key))
	ok, err = s.Reserve(ctx, key, now, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "committed deliveries survive release")

	committed, err := s.client.Get(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, now.UTC().Format(time.RFC3339), committed)

	require.NoError(t, s.Release(ctx, Key("TEST/USDT", "missing-"+key)))
	require.NoError(t, s.client.Del(ctx, keyPrefix+key).Err())
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1", "", 0)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

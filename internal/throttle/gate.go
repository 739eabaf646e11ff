package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("throttle store unavailable")

// Store persists the last delivery time per key.
type Store interface {
	// Reserve reports whether key may be delivered at now. Stores shared
	// between processes also hold the key until Commit or Release.
	Reserve(ctx context.Context, key string, now time.Time, cooldown time.Duration) (bool, error)
	Commit(ctx context.Context, key string, at time.Time, cooldown time.Duration) error
	Release(ctx context.Context, key string) error
}

// Gate suppresses repeated alerts for the same pair and setup within a
// cooldown window. The window starts only after a confirmed delivery.
type Gate struct {
	store    Store
	cooldown time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewGate creates a Gate over store.
func NewGate(store Store, cooldown time.Duration, logger zerolog.Logger) *Gate {
	return &Gate{
		store:    store,
		cooldown: cooldown,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "throttle").Logger(),
	}
}

// WithClock replaces the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Key builds the throttle key for a pair and setup.
func Key(pair, setupID string) string {
	return pair + "_" + setupID
}

// Allow reports whether an alert may be sent. A store failure lets the
// alert through.
func (g *Gate) Allow(ctx context.Context, pair, setupID string) bool {
	key := Key(pair, setupID)
	ok, err := g.store.Reserve(ctx, key, g.now(), g.cooldown)
	if err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("throttle check failed, allowing alert")
		return true
	}
	if !ok {
		g.logger.Debug().Str("key", key).Msg("alert suppressed by cooldown")
	}
	return ok
}

// Commit records a successful delivery.
func (g *Gate) Commit(ctx context.Context, pair, setupID string) {
	key := Key(pair, setupID)
	if err := g.store.Commit(ctx, key, g.now(), g.cooldown); err != nil {
		g.logger.Error().Err(err).Str("key", key).Msg("failed to record delivery")
	}
}

// Release drops a reservation after a failed delivery.
func (g *Gate) Release(ctx context.Context, pair, setupID string) {
	key := Key(pair, setupID)
	if err := g.store.Release(ctx, key); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("failed to release reservation")
	}
}

// Package cached wraps arbitrary fetch functions with TTL-based reuse against
// a shared cache store. A Loader returns the cached value while it is fresh,
// refetches when it is stale or absent, and preserves the previous value when
// a refetch fails.
package cached

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/velora/storefront-bridge/internal/cache"
	"github.com/velora/storefront-bridge/internal/signal"
)

// DefaultTTL is the freshness window applied when no TTL option is given.
const DefaultTTL = 5 * time.Minute

// ErrLoadFailed is returned for every fetch failure. The underlying cause is
// logged, not propagated: callers surface this one message to users.
var ErrLoadFailed = errors.New("Failed to load data. Please try again.")

// Entry is a cached value with the time it was stored. Entries are always
// overwritten whole.
type Entry[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"storedAt"`
}

// FetchFunc produces a fresh value for a loader.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Loader serves a single cache key, either from the shared store or by
// invoking its fetch function.
//
// Concurrency is an explicit policy: by default concurrent Refresh calls for
// the key race and the store holds whichever write lands last. WithCoalescing
// shares one in-flight fetch between concurrent refreshes instead.
type Loader[T any] struct {
	key   string
	store cache.Cache[Entry[T]]
	bus   *signal.Bus
	fetch FetchFunc[T]
	ttl   time.Duration
	group *singleflight.Group
	now   func() time.Time
}

// Option configures a Loader.
type Option[T any] func(*Loader[T])

// WithTTL sets the freshness window for cached values.
func WithTTL[T any](ttl time.Duration) Option[T] {
	return func(l *Loader[T]) { l.ttl = ttl }
}

// WithCoalescing shares a single in-flight fetch between concurrent refreshes
// of the key.
func WithCoalescing[T any]() Option[T] {
	return func(l *Loader[T]) { l.group = &singleflight.Group{} }
}

// WithClock overrides the loader's time source for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(l *Loader[T]) { l.now = now }
}

// NewLoader creates a loader for key over the given store. The bus may be
// nil; when present the loader subscribes to it so that a published
// invalidation for the key expires the stored entry immediately, and
// journalled invalidations from other instances are honoured on read.
func NewLoader[T any](key string, store cache.Cache[Entry[T]], bus *signal.Bus, fetch FetchFunc[T], opts ...Option[T]) *Loader[T] {
	l := &Loader[T]{
		key:   key,
		store: store,
		bus:   bus,
		fetch: fetch,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	if bus != nil {
		bus.Subscribe(func(inv signal.Invalidation) {
			if inv.Key != l.key {
				return
			}
			if err := l.store.Invalidate(context.Background(), l.key); err != nil {
				log.Warn().Err(err).Str("key", l.key).
					Msg("cache invalidation on signal failed")
			}
		})
	}

	return l
}

// Key returns the loader's cache key.
func (l *Loader[T]) Key() string {
	return l.key
}

// Get returns the value for the loader's key. A fresh cached entry is
// returned without fetching; otherwise the value is fetched and cached.
func (l *Loader[T]) Get(ctx context.Context) (T, error) {
	entry, found, err := l.store.Get(ctx, l.key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", l.key).Msg("cache read failed")
	} else if found && l.fresh(ctx, entry.StoredAt) {
		return entry.Value, nil
	}

	return l.Refresh(ctx)
}

// Refresh always invokes the fetch function, regardless of TTL. On success
// the store is overwritten and the staleness clock resets; on failure the
// previous entry (if any) is left intact and ErrLoadFailed is returned.
func (l *Loader[T]) Refresh(ctx context.Context) (T, error) {
	if l.group == nil {
		return l.refresh(ctx)
	}

	v, err, _ := l.group.Do(l.key, func() (any, error) {
		return l.refresh(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (l *Loader[T]) refresh(ctx context.Context) (T, error) {
	value, err := l.fetch(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", l.key).Msg("fetch failed")
		var zero T
		return zero, ErrLoadFailed
	}

	entry := Entry[T]{Value: value, StoredAt: l.now()}
	if err := l.store.Set(ctx, l.key, entry); err != nil {
		// the fetched value is still good; the next read refetches
		log.Ctx(ctx).Warn().Err(err).Str("key", l.key).Msg("cache write failed")
	}

	return value, nil
}

// fresh reports whether an entry stored at the given time is still usable:
// within TTL and not superseded by a journalled invalidation.
func (l *Loader[T]) fresh(ctx context.Context, storedAt time.Time) bool {
	if l.now().Sub(storedAt) >= l.ttl {
		return false
	}

	if l.bus != nil {
		if marked, found := l.bus.LastMarked(ctx, l.key); found && marked.After(storedAt) {
			return false
		}
	}

	return true
}

// Package signal propagates cache invalidation. A successful mutation against
// a resource family publishes an Invalidation on the Bus: in-process
// subscribers are notified synchronously, and a durable marker is written to
// the shared Journal so other bridge instances observe the staleness on their
// next read.
package signal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Invalidation marks a logical resource as possibly stale.
type Invalidation struct {
	Key string
	At  time.Time
}

// Subscriber receives invalidations published on a Bus.
type Subscriber func(Invalidation)

// Bus is a typed in-process publish/subscribe channel for invalidations,
// optionally backed by a durable Journal for cross-instance visibility.
type Bus struct {
	mu      sync.RWMutex
	subs    []Subscriber
	journal Journal
	now     func() time.Time
}

// NewBus creates a Bus. The journal may be nil, in which case invalidations
// are visible within the process only.
func NewBus(journal Journal) *Bus {
	return &Bus{journal: journal, now: time.Now}
}

// Subscribe registers a subscriber for all future invalidations.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish records an invalidation for key and notifies all subscribers. A
// journal write failure is logged and swallowed: in-process subscribers are
// still notified, so same-instance consumers stay consistent even when
// cross-instance propagation fails.
func (b *Bus) Publish(ctx context.Context, key string) {
	inv := Invalidation{Key: key, At: b.now()}

	if b.journal != nil {
		if err := b.journal.Mark(ctx, inv); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", key).
				Msg("invalidation journal write failed; local subscribers still notified")
		}
	}

	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(inv)
	}
}

// LastMarked reports the most recent journalled invalidation for key. Returns
// false when the key has never been invalidated or no journal is configured.
// Journal read failures are treated as "no marker": staleness detection is
// best effort.
func (b *Bus) LastMarked(ctx context.Context, key string) (time.Time, bool) {
	if b.journal == nil {
		return time.Time{}, false
	}

	at, found, err := b.journal.LastMarked(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).
			Msg("invalidation journal read failed")
		return time.Time{}, false
	}
	return at, found
}

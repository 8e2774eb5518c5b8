package signal

import (
	"context"
	"time"

	"github.com/velora/storefront-bridge/internal/localstore"
)

// Journal is durable shared storage for invalidation markers. One marker per
// key; each Mark overwrites the previous one, and markers are never deleted.
type Journal interface {
	// Mark records the invalidation.
	Mark(ctx context.Context, inv Invalidation) error

	// LastMarked returns the most recent marker for key.
	// Returns false when the key has never been marked.
	LastMarked(ctx context.Context, key string) (time.Time, bool, error)
}

func journalKey(key string) string {
	return "cacheInvalidation:" + key
}

// FileJournal records invalidation markers in the local state store. Suitable
// for a single bridge instance.
type FileJournal struct {
	store *localstore.Store
}

func NewFileJournal(store *localstore.Store) *FileJournal {
	return &FileJournal{store: store}
}

// Mark records the invalidation as epoch milliseconds.
func (j *FileJournal) Mark(ctx context.Context, inv Invalidation) error {
	return j.store.Put(journalKey(inv.Key), inv.At.UnixMilli())
}

// LastMarked returns the most recent marker for key.
func (j *FileJournal) LastMarked(ctx context.Context, key string) (time.Time, bool, error) {
	var millis int64
	found, err := j.store.Get(journalKey(key), &millis)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	return time.UnixMilli(millis), true, nil
}

package cache

import (
	"context"
)

// Cache is the read-cache contract for storefront resources. It is an
// explicit, injectable service: consumers construct their own instances, and
// tests can build isolated ones.
// The generic type T represents the cached value type.
type Cache[T any] interface {
	// Get retrieves a value from the cache.
	// Returns the value, whether it was found, and any error.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a value in the cache, overwriting any previous entry.
	Set(ctx context.Context, key string, value T) error

	// Invalidate removes a value from the cache.
	Invalidate(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

package storefront

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// PeriodicRefresh runs a background loop that reloads the storefront profile
// at regular intervals. Panics are recovered in the refresh function. The
// loop exits when the context is cancelled.
func PeriodicRefresh(ctx context.Context, store *Store, path string, interval time.Duration) {
	for {
		refresh(ctx, store, path)

		select {
		case <-time.After(interval):
			// continue
		case <-ctx.Done():
			log.Info().Msg("storefront refresh goroutine shutting down gracefully")
			return
		}
	}
}

// refresh performs a single profile reload with tracing.
func refresh(ctx context.Context, store *Store, path string) {
	tracer := otel.Tracer("github.com/velora/storefront-bridge/internal/storefront")
	_, span := tracer.Start(ctx, "refresh_storefront_profile")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during storefront profile refresh: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "storefront profile refresh panicked")
			log.Warn().Interface("panic", r).Msg("storefront profile refresh panicked, recovered")
		}
	}()

	profile, err := LoadProfile(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storefront profile refresh failed")
		log.Warn().Err(err).Msg("storefront profile refresh failed, continuing")
		return
	}

	store.Update(profile)
	span.SetStatus(codes.Ok, "storefront profile refreshed")
}

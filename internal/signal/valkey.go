package signal

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/velora/storefront-bridge/internal/config"
)

// ValkeyJournal records invalidation markers in Valkey, making them visible to
// every bridge instance sharing the server.
type ValkeyJournal struct {
	client valkey.Client
}

// NewValkeyClient builds a Valkey client from configuration.
func NewValkeyClient(cfg config.ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{cfg.Address},
		Username:    cfg.Username,
		Password:    cfg.Password,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to valkey at %s: %w", cfg.Address, err)
	}
	return client, nil
}

func NewValkeyJournal(client valkey.Client) *ValkeyJournal {
	return &ValkeyJournal{client: client}
}

// Mark records the invalidation as epoch milliseconds.
func (j *ValkeyJournal) Mark(ctx context.Context, inv Invalidation) error {
	millis := strconv.FormatInt(inv.At.UnixMilli(), 10)
	cmd := j.client.B().Set().Key(journalKey(inv.Key)).Value(millis).Build()
	if err := j.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("marking invalidation for %q: %w", inv.Key, err)
	}
	return nil
}

// LastMarked returns the most recent marker for key.
func (j *ValkeyJournal) LastMarked(ctx context.Context, key string) (time.Time, bool, error) {
	cmd := j.client.B().Get().Key(journalKey(key)).Build()
	result := j.client.Do(ctx, cmd)

	if err := result.Error(); err != nil {
		// Key not found is not an error in our semantics
		if valkey.IsValkeyNil(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("reading invalidation marker for %q: %w", key, err)
	}

	millis, err := result.AsInt64()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decoding invalidation marker for %q: %w", key, err)
	}
	return time.UnixMilli(millis), true, nil
}

// Close releases the underlying Valkey connection.
func (j *ValkeyJournal) Close() {
	j.client.Close()
}

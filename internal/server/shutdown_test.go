package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	closed bool
}

func (r *recordingCloser) Close() {
	r.closed = true
}

func TestShutdownHooks_ExecuteInRegistrationOrder(t *testing.T) {
	hooks := &ShutdownHooks{}
	var order []string

	hooks.AddContext("journal", func(ctx context.Context) error {
		order = append(order, "journal")
		return nil
	})
	hooks.Add("product cache", func() error {
		order = append(order, "product cache")
		return nil
	})
	hooks.AddContext("telemetry", func(ctx context.Context) error {
		order = append(order, "telemetry")
		return nil
	})

	hooks.Execute(context.Background())

	assert.Equal(t, []string{"journal", "product cache", "telemetry"}, order)
}

func TestShutdownHooks_FailureDoesNotStopRemainder(t *testing.T) {
	hooks := &ShutdownHooks{}
	var executed []string

	hooks.Add("journal", func() error {
		executed = append(executed, "journal")
		return errors.New("journal sync failed")
	})
	hooks.Add("telemetry", func() error {
		executed = append(executed, "telemetry")
		return nil
	})

	hooks.Execute(context.Background())

	assert.Equal(t, []string{"journal", "telemetry"}, executed)
}

func TestShutdownHooks_AddClose(t *testing.T) {
	hooks := &ShutdownHooks{}
	closer := &recordingCloser{}

	hooks.AddClose("valkey", closer)
	require.Len(t, hooks.hooks, 1)
	assert.Equal(t, "valkey", hooks.hooks[0].name)

	hooks.Execute(context.Background())
	assert.True(t, closer.closed)
}

func TestShutdownHooks_NilHooksIgnored(t *testing.T) {
	hooks := &ShutdownHooks{}

	hooks.AddContext("ctx", nil)
	hooks.Add("plain", nil)
	hooks.AddClose("closer", nil)

	assert.Empty(t, hooks.hooks)
}

func TestShutdownHooks_WrappedHookSurfacesError(t *testing.T) {
	hooks := &ShutdownHooks{}
	wantErr := errors.New("flush failed")

	hooks.Add("caches", func() error {
		return wantErr
	})

	require.Len(t, hooks.hooks, 1)
	assert.Equal(t, wantErr, hooks.hooks[0].run(context.Background()))
}

func TestShutdownHooks_ContextReachesHooks(t *testing.T) {
	hooks := &ShutdownHooks{}
	type deadlineKey struct{}

	var received string
	hooks.AddContext("telemetry", func(ctx context.Context) error {
		received, _ = ctx.Value(deadlineKey{}).(string)
		return nil
	})

	hooks.Execute(context.WithValue(context.Background(), deadlineKey{}, "25s"))
	assert.Equal(t, "25s", received)
}

func TestShutdownHooks_EmptyExecute(t *testing.T) {
	hooks := &ShutdownHooks{}
	hooks.Execute(context.Background())
}

package server

import (
	"context"

	"github.com/rs/zerolog/log"
)

type shutdownHook struct {
	name string
	run  func(context.Context) error
}

// ShutdownHooks collects teardown work — journal clients, caches, telemetry —
// to run once the listener has drained. Hooks run in registration order, and a
// failing hook never blocks the ones behind it.
type ShutdownHooks struct {
	hooks []shutdownHook
}

// AddContext registers a hook that honours the shutdown deadline carried by
// the context. Nil hooks are logged and dropped.
func (s *ShutdownHooks) AddContext(name string, hook func(context.Context) error) {
	if hook == nil {
		log.Warn().Str("hook", name).Msg("nil shutdown hook ignored")
		return
	}

	log.Debug().Str("hook", name).Msg("shutdown hook registered")
	s.hooks = append(s.hooks, shutdownHook{name: name, run: hook})
}

// Add registers a hook that needs no deadline awareness.
func (s *ShutdownHooks) Add(name string, hook func() error) {
	if hook == nil {
		log.Warn().Str("hook", name).Msg("nil shutdown hook ignored")
		return
	}

	s.AddContext(name, func(context.Context) error {
		return hook()
	})
}

// AddClose registers a resource with a bare Close method.
func (s *ShutdownHooks) AddClose(name string, closer interface{ Close() }) {
	if closer == nil {
		log.Warn().Str("hook", name).Msg("nil shutdown hook ignored")
		return
	}

	s.AddContext(name, func(context.Context) error {
		closer.Close()
		return nil
	})
}

// Execute runs every registered hook in order. Failures are logged per hook
// and do not stop the remainder.
func (s *ShutdownHooks) Execute(ctx context.Context) {
	l := log.Ctx(ctx)
	for _, hook := range s.hooks {
		hookLog := l.With().Str("hook", hook.name).Logger()

		hookLog.Info().Msg("shutdown started")
		if err := hook.run(ctx); err != nil {
			hookLog.Warn().Err(err).Msg("shutdown failed")
		} else {
			hookLog.Info().Msg("shutdown complete")
		}
	}
}

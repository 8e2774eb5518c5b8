package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/velora/storefront-bridge/internal/config"
)

// Serve runs the HTTP server until the context is cancelled, then drains
// in-flight requests within the configured shutdown timeout. Shutdown hooks
// run after the listener has stopped accepting connections, whether or not
// the drain succeeded.
func Serve(ctx context.Context, cfg config.ServerConfig, server *http.Server, hooks *ShutdownHooks) error {
	serveResult := make(chan error, 1)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")

		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveResult <- err
	}()

	select {
	case err := <-serveResult:
		if err != nil {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info().Dur("timeout", timeout).Msg("server shutting down")

	err := server.Shutdown(shutdownCtx)

	hooks.Execute(shutdownCtx)

	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

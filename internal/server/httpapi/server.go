// Package httpapi implements the HTTP/JSON surface of the photo backend:
// routing, authentication middleware, request/response mapping, and the
// server lifecycle.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"photodrop/internal/logging"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// context is cancelled.
const shutdownTimeout = 5 * time.Second

// Server owns the HTTP listener.
type Server struct {
	address string
	logger  logging.Logger
	handler http.Handler
}

// NewServer builds a server with the full route table.
func NewServer(address string, l logging.Logger, auth AuthAPI, photos PhotoAPI) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "http_server"),
		handler: NewRouter(l, auth, photos),
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.handler,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

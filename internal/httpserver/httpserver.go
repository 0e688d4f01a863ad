package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Run serves until ctx is cancelled, then stops accepting connections,
// drains in-flight requests and waits for pending status work.
func (srv HTTPServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", srv.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return srv.Serve(ctx, listener)
}

// Serve is Run on a caller-provided listener.
func (srv HTTPServer) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           srv.gin,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	srv.l.Infof(ctx, "HTTP server listening on %s", listener.Addr())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		srv.l.Info(context.Background(), "HTTP server shutting down")
	case err := <-serveDone:
		return err
	}

	srv.draining.Store(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		srv.l.Errorf(shutdownCtx, "internal.httpserver.Serve: shutdown: %v", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	if srv.pending != nil {
		if err := srv.pending.Wait(shutdownCtx); err != nil {
			srv.l.Warnf(shutdownCtx, "internal.httpserver.Serve: pending status work abandoned: %v", err)
			return err
		}
	}

	srv.l.Info(shutdownCtx, "HTTP server stopped")
	return nil
}

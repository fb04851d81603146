package workers

import (
	"context"
	goerrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServer serves the API until the supervisor cancels it, then drains
// in-flight requests for at most shutdownTimeout.
type HTTPServer struct {
	log             *slog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewHTTPServer(log *slog.Logger, server *http.Server, shutdownTimeout time.Duration) *HTTPServer {
	return &HTTPServer{log: log, server: server, shutdownTimeout: shutdownTimeout}
}

func (w *HTTPServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return err
	}
	return w.Serve(ctx, listener)
}

// Serve is split from Run so tests can listen on a random port.
func (w *HTTPServer) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		w.log.Info("Starting HTTP server", "address", listener.Addr().String(), "at", time.Now().UTC())
		if err := w.server.Serve(listener); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		// Serve failed on its own, the supervisor restarts the worker
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	w.log.Info("Shutting down HTTP server")
	if err := w.server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	<-errChan
	return ctx.Err()
}

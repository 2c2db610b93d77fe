package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const diagnosticsReadHeaderTimeout = 5 * time.Second

// DiagnosticsServer exposes /healthz, /readyz and, when a metrics handler is
// given, /metrics over HTTP.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewDiagnosticsServer binds addr. Call Serve to start answering requests.
func NewDiagnosticsServer(ctx context.Context, addr string, metrics http.Handler, checks ...ReadyCheck) (*DiagnosticsServer, error) {
	mux := http.NewServeMux()

	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: diagnosticsReadHeaderTimeout}

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// Addr returns the bound address.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Serve answers requests until ctx ends, then shuts the server down.
func (d *DiagnosticsServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.server.Serve(d.listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve diagnostics: %w", err)
	case <-ctx.Done():
		return d.Close()
	}
}

// Close shuts the server down.
func (d *DiagnosticsServer) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), diagnosticsReadHeaderTimeout)
	defer cancel()

	err := d.server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// runDaemon keeps the device in sync until ctx is cancelled.
// ready, if not nil, receives the metrics listener address.
func (c *Cli) runDaemon(ctx context.Context, ready func(addr string)) error {
	var server *http.Server
	serveErr := make(chan error, 1)

	if c.metrics != nil && c.metricsAddr != "" {
		ln, err := net.Listen("tcp", c.metricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", c.metricsAddr, err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", c.metrics)
		server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		c.io.Printf("Metrics available at http://%s/metrics\n", ln.Addr())
		if ready != nil {
			ready(ln.Addr().String())
		}
	}

	if err := c.daemon.Start(); err != nil {
		return fmt.Errorf("failed to start sync: %w", err)
	}
	c.io.Println("Background sync started. Press Ctrl+C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	c.io.Println("Stopping background sync...")
	c.daemon.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop metrics server: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("metrics server failed: %w", runErr)
	}
	return nil
}

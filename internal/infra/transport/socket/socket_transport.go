// Package socket serves one-request-per-connection protocols over TCP.
// Each accepted connection is handled by its own goroutine and exchanges
// length-prefixed CBOR frames.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// SocketTransportConfig contains configuration parameters for socket servers.
type SocketTransportConfig struct {
	// ServerAddr is the network address to listen on
	ServerAddr string `env:"SERVER_ADDR" envDefault:":9999"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`

	// MaxFrameSize is the largest accepted frame payload in bytes
	MaxFrameSize int `env:"MAX_FRAME_SIZE" envDefault:"1048576"`

	// AcceptRate limits accepted connections per second, 0 disables the limit
	AcceptRate float64 `env:"ACCEPT_RATE" envDefault:"0"`
	// AcceptBurst is the number of connections accepted above AcceptRate in a burst
	AcceptBurst int `env:"ACCEPT_BURST" envDefault:"64"`
}

// Handler serves a single connection. The connection is closed by the server
// once ServeConn returns.
type Handler interface {
	ServeConn(ctx context.Context, conn *Conn)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, conn *Conn)

// ServeConn implements Handler.
func (f HandlerFunc) ServeConn(ctx context.Context, conn *Conn) {
	f(ctx, conn)
}

// Middleware wraps the handler with the standard middleware chain:
// tracing, logging and panic recovery (outermost first).
func Middleware(handler Handler, log logging.Logger) Handler {
	handler = RescueingMiddleware(handler, log)
	handler = LoggingMiddleware(handler, log)
	handler = TracingMiddleware(handler)

	return handler
}

// ListenAndServe listens on cfg.ServerAddr and serves connections until ctx is cancelled.
func ListenAndServe(ctx context.Context, handler Handler, cfg SocketTransportConfig) error {
	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return Serve(ctx, sock, handler, cfg)
}

// Serve accepts connections on sock and handles each one in its own goroutine.
// When ctx is cancelled the listener is closed and Serve waits for in-flight
// connections to finish; handlers themselves are not cancelled.
func Serve(ctx context.Context, sock net.Listener, handler Handler, cfg SocketTransportConfig) error {
	log := logging.GetLogger("infra.transport.socket")

	handler = Middleware(handler, log)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.AcceptRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), max(cfg.AcceptBurst, 1))
	}

	var (
		wg      sync.WaitGroup
		stopped = make(chan struct{})
		connCtx = context.WithoutCancel(ctx)
	)

	go func() {
		select {
		case <-ctx.Done():
			sock.Close()
		case <-stopped:
		}
	}()

	defer func() {
		close(stopped)
		sock.Close()
		wg.Wait()

		log.InfoContext(ctx, "stopped", "addr", sock.Addr().String())
	}()

	log.InfoContext(ctx, "listening", "addr", sock.Addr().String())

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil //nolint:nilerr // cancelled while throttled
		}

		conn, err := sock.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			defer conn.Close()

			handler.ServeConn(connCtx, NewConn(conn, cfg))
		}()
	}
}

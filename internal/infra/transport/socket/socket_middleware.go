package socket

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// TracingMiddleware assigns a fresh trace ID and the peer address to the
// connection context.
func TracingMiddleware(next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, conn *Conn) {
		ctx = context_.WithTraceID(ctx, context_.NewTraceID())
		ctx = context_.WithRemoteAddr(ctx, conn.RemoteAddr().String())

		next.ServeConn(ctx, conn)
	})
}

// LoggingMiddleware logs accepted connections at DEBUG and closed connections
// at INFO together with the time spent serving them.
func LoggingMiddleware(next Handler, log logging.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, conn *Conn) {
		start := time.Now()

		log.DebugContext(ctx, "connection accepted")

		next.ServeConn(ctx, conn)

		log.InfoContext(ctx, "connection closed", slog.Group("conn",
			"duration", time.Since(start).String(),
		))
	})
}

// RescueingMiddleware recovers from panics in connection handlers so that one
// failing connection cannot take down the server. The connection is closed
// without a response.
func RescueingMiddleware(next Handler, log logging.Logger) Handler {
	return HandlerFunc(func(ctx context.Context, conn *Conn) {
		defer func() {
			if p := recover(); p != nil {
				log.ErrorContext(ctx, "connection panic", slog.Group("error",
					"panic", p,
					"stack", string(debug.Stack()),
				))
			}
		}()

		next.ServeConn(ctx, conn)
	})
}

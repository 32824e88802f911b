package context

import (
	"context"
)

const contextKeyRemoteAddr = contextKey("remoteAddr")

// RemoteAddrFromContext extracts the peer address of the current connection.
func RemoteAddrFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(contextKeyRemoteAddr).(string)

	return addr, ok
}

// WithRemoteAddr creates a new context carrying the peer address of a connection.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, contextKeyRemoteAddr, addr)
}

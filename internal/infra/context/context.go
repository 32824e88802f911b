// Package context holds request-scoped values shared by the transports and the logger.
package context

type contextKey string

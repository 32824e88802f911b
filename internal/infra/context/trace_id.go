package context

import (
	"context"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

const contextKeyTraceID = contextKey("traceID")

//nolint:gochecknoglobals
var traceIDEncoding = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// TraceIDFromContext extracts the trace ID from the context.
// Returns the trace ID and true if present, or empty string and false if not present.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(contextKeyTraceID).(string)

	return traceID, ok
}

// WithTraceID creates a new context with the given trace ID value.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKeyTraceID, traceID)
}

// NewTraceID returns a time-ordered UUIDv7 in lowercase Crockford base32,
// or an empty string if no UUID could be generated.
func NewTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}

	return strings.ToLower(traceIDEncoding.EncodeToString(id[:]))
}

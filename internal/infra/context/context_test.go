package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
)

func TestNewTraceID(t *testing.T) {
	t.Parallel()

	a := context_.NewTraceID()
	b := context_.NewTraceID()

	require.Len(t, a, 26) // 128 bits in 5-bit symbols
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9a-hjkmnp-tv-z]+$`, a)
}

func TestContextValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, ok := context_.TraceIDFromContext(ctx)
	assert.False(t, ok)

	ctx = context_.WithTraceID(ctx, "trace")
	ctx = context_.WithUsername(ctx, "alice")
	ctx = context_.WithRemoteAddr(ctx, "127.0.0.1:1234")

	traceID, ok := context_.TraceIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "trace", traceID)

	username, ok := context_.UsernameFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "alice", username)

	addr, ok := context_.RemoteAddrFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "127.0.0.1:1234", addr)
}

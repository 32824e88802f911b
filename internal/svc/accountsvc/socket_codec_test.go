package accountsvc_test

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

var errNoFrame = errors.New("no frame")

// frameQueue passes CBOR-encoded frames from Send to Receive.
type frameQueue struct {
	frames [][]byte
}

func (q *frameQueue) Send(v any) error {
	frame, err := cbor.Marshal(v)
	if err != nil {
		return err
	}

	q.frames = append(q.frames, frame)

	return nil
}

func (q *frameQueue) Receive(v any) error {
	if len(q.frames) == 0 {
		return errNoFrame
	}

	frame := q.frames[0]
	q.frames = q.frames[1:]

	return cbor.Unmarshal(frame, v)
}

func queueOf(t *testing.T, values ...any) *frameQueue {
	t.Helper()

	q := new(frameQueue)
	for _, v := range values {
		require.NoError(t, q.Send(v))
	}

	return q
}

func TestDecodeRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		frames  []any
		want    domain.Request
		wantErr error
		wantMsg string
	}{
		{
			name:   "login",
			frames: []any{"login:alice:secret1"},
			want:   domain.LoginRequest{Username: "alice", Password: "secret1"},
		},
		{
			name:   "login password with separator",
			frames: []any{"login:alice:se:cr:et"},
			want:   domain.LoginRequest{Username: "alice", Password: "se:cr:et"},
		},
		{
			name:   "exists",
			frames: []any{"exists:alice"},
			want:   domain.ExistsRequest{Username: "alice"},
		},
		{
			name:   "getUser",
			frames: []any{"getUser:alice"},
			want:   domain.GetUserRequest{Username: "alice"},
		},
		{
			name:   "register",
			frames: []any{"register", domain.Account{Username: "bob", Password: "secret2", Email: "b@c.d"}},
			want:   domain.RegisterRequest{Account: domain.Account{Username: "bob", Password: "secret2", Email: "b@c.d"}},
		},
		{name: "login without password", frames: []any{"login:alice"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "login empty password", frames: []any{"login:alice:"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "login empty username", frames: []any{"login::secret1"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "bare login", frames: []any{"login"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "exists without username", frames: []any{"exists:"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "getUser without username", frames: []any{"getUser"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "register without account", frames: []any{"register"}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "register with garbage account", frames: []any{"register", 42}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "empty line", frames: []any{""}, wantErr: domain.ErrUnknownRequest, wantMsg: "unknown request: "},
		{name: "non-text line", frames: []any{7}, wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "no frame", wantErr: domain.ErrMalformedRequest, wantMsg: "malformed request"},
		{name: "unknown action", frames: []any{"delete:alice"}, wantErr: domain.ErrUnknownRequest, wantMsg: "unknown request: delete"},
		{name: "action is case sensitive", frames: []any{"LOGIN:alice:secret1"}, wantErr: domain.ErrUnknownRequest, wantMsg: "unknown request: LOGIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := accountsvc.DecodeRequest(queueOf(t, tt.frames...))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantMsg, domain.Message(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRequest_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, req := range []domain.Request{
		domain.LoginRequest{Username: "alice", Password: "p:a:ss"},
		domain.ExistsRequest{Username: "ali:ce"},
		domain.GetUserRequest{Username: "alice"},
		domain.RegisterRequest{Account: domain.Account{Username: "bob", Password: "secret2", Email: "b@c.d"}},
	} {
		q := new(frameQueue)
		require.NoError(t, accountsvc.EncodeRequest(q, req))

		got, err := accountsvc.DecodeRequest(q)
		require.NoError(t, err)
		assert.Equal(t, req, got)
		assert.Empty(t, q.frames)
	}
}

func TestEncodeRequest_LoginUsernameWithSeparator(t *testing.T) {
	t.Parallel()

	err := accountsvc.EncodeRequest(new(frameQueue), domain.LoginRequest{Username: "a:b", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrMalformedRequest)
}

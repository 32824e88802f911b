package accountsvc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/infra/transport/socket"
)

// actionInvalid labels requests that could not be decoded.
const actionInvalid domain.Action = "invalid"

// errPanic is reported for requests whose handling panicked.
var errPanic = errors.New("request handler panicked")

// SocketTransportConfig contains configuration parameters for the socket transport layer.
type SocketTransportConfig struct {
	socket.SocketTransportConfig
}

// SocketTransport answers one framed request per connection.
type SocketTransport struct {
	accountSvc *AccountService
	metrics    *Metrics
	log        logging.Logger
	cfg        SocketTransportConfig
}

var _ socket.Handler = (*SocketTransport)(nil)

// NewSocketTransport creates a new SocketTransport. metrics may be nil.
func NewSocketTransport(
	accountSvc *AccountService,
	metrics *Metrics,
	cfg SocketTransportConfig,
) *SocketTransport {
	return &SocketTransport{
		accountSvc: accountSvc,
		metrics:    metrics,
		log:        logging.GetLogger("svc.accountsvc.socket_transport"),
		cfg:        cfg,
	}
}

// ListenAndServe serves the socket protocol on the configured address until ctx is cancelled.
func (st *SocketTransport) ListenAndServe(ctx context.Context) error {
	return socket.ListenAndServe(ctx, st, st.cfg.SocketTransportConfig)
}

// ServeConn implements socket.Handler: it reads one request, dispatches it and
// writes exactly one response.
func (st *SocketTransport) ServeConn(ctx context.Context, conn *socket.Conn) {
	_ = st.serveConn(ctx, conn)
}

func (st *SocketTransport) serveConn(ctx context.Context, conn *socket.Conn) (err error) {
	var (
		start  = time.Now()
		action = actionInvalid
		resp   domain.Response
	)

	defer func() {
		st.metrics.Observe(TransportSocket, action, resp.Success, time.Since(start))

		if err != nil {
			st.log.ErrorContext(ctx, "socket request failed", "action", action, "error", err)
		} else {
			st.log.DebugContext(ctx, "socket request handled", "action", action, "success", resp.Success)
		}
	}()

	var handleErr error

	resp, handleErr = st.handle(ctx, conn, &action)

	if err := conn.Send(resp); err != nil {
		return errors.Join(handleErr, fmt.Errorf("send response: %w", err))
	}

	return handleErr
}

// handle decodes and dispatches the request. Decode failures and panics are
// turned into a failed response and also returned for logging.
func (st *SocketTransport) handle(
	ctx context.Context,
	conn *socket.Conn,
	action *domain.Action,
) (resp domain.Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			st.log.ErrorContext(ctx, "request panic", "panic", p, "stack", string(debug.Stack()))

			resp = domain.Fail(domain.MessageInternalError)
			err = fmt.Errorf("%w: %v", errPanic, p)
		}
	}()

	req, err := DecodeRequest(conn)
	if err != nil {
		return domain.FailWith(err), fmt.Errorf("decode request: %w", err)
	}

	*action = req.Action()

	return st.accountSvc.Dispatch(ctx, req), nil
}

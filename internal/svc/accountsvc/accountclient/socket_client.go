package accountclient

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/infra/transport/socket"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

//nolint:gochecknoglobals
var cborNull = []byte{0xf6}

// SocketClientConfig holds configuration for the socket client.
type SocketClientConfig struct {
	// Addr is the host:port of the socket dispatcher
	Addr string `env:"SOCKET_ADDR" envDefault:"localhost:9999"`

	// Timeout bounds each call from dial to response
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// MaxFrameSize is the largest accepted response frame in bytes
	MaxFrameSize int `env:"MAX_FRAME_SIZE" envDefault:"1048576"`
}

// SocketClient implements AccountClient over the framed socket protocol.
type SocketClient struct {
	log logging.Logger
	cfg SocketClientConfig
}

var _ AccountClient = (*SocketClient)(nil)

// NewSocketClient creates a new SocketClient with the given configuration.
func NewSocketClient(cfg SocketClientConfig) *SocketClient {
	return &SocketClient{
		log: logging.GetLogger("svc.accountsvc.socket_client"),
		cfg: cfg,
	}
}

// Login implements Authenticator.Login.
func (c *SocketClient) Login(ctx context.Context, username, password string) domain.Response {
	return c.call(ctx, domain.LoginRequest{Username: username, Password: password}, payloadAccount)
}

// Register implements Authenticator.Register.
func (c *SocketClient) Register(ctx context.Context, account domain.Account) domain.Response {
	return c.call(ctx, domain.RegisterRequest{Account: account}, payloadAccount)
}

// Exists implements AccountClient.Exists.
func (c *SocketClient) Exists(ctx context.Context, username string) domain.Response {
	return c.call(ctx, domain.ExistsRequest{Username: username}, payloadBool)
}

// GetUser implements AccountClient.GetUser.
func (c *SocketClient) GetUser(ctx context.Context, username string) domain.Response {
	return c.call(ctx, domain.GetUserRequest{Username: username}, payloadAccount)
}

func (c *SocketClient) call(ctx context.Context, req domain.Request, data payload) domain.Response {
	resp, err := c.roundTrip(ctx, req, data)
	if err != nil {
		c.log.ErrorContext(ctx, "socket call failed", "action", req.Action(), "addr", c.cfg.Addr, "error", err)

		return connectionFailed(err)
	}

	return resp
}

// wireResponse defers decoding of the payload until the action is known.
type wireResponse struct {
	Success bool            `cbor:"success"`
	Message string          `cbor:"message"`
	Data    cbor.RawMessage `cbor:"data"`
}

func (c *SocketClient) roundTrip(ctx context.Context, req domain.Request, data payload) (domain.Response, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var dialer net.Dialer

	nc, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return domain.Response{}, fmt.Errorf("dial: %w", err)
	}
	defer nc.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := nc.SetDeadline(deadline); err != nil {
			return domain.Response{}, fmt.Errorf("set deadline: %w", err)
		}
	}

	// Unblock pending reads and writes when the caller gives up early.
	stop := context.AfterFunc(ctx, func() { _ = nc.SetDeadline(time.Now()) })
	defer stop()

	conn := socket.NewConn(nc, socket.SocketTransportConfig{MaxFrameSize: c.cfg.MaxFrameSize})

	if err := accountsvc.EncodeRequest(conn, req); err != nil {
		return domain.Response{}, fmt.Errorf("send request: %w", err)
	}

	var wire wireResponse
	if err := conn.Receive(&wire); err != nil {
		return domain.Response{}, fmt.Errorf("receive response: %w", err)
	}

	decoded, err := data.decode(wire.Data, cborNull, cbor.Unmarshal)
	if err != nil {
		return domain.Response{}, err
	}

	return domain.Response{Success: wire.Success, Message: wire.Message, Data: decoded}, nil
}

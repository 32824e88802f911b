package accountclient_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	http_ "github.com/mkrupp/homecase-accounts/internal/infra/transport/http"
	"github.com/mkrupp/homecase-accounts/internal/infra/transport/socket"
	"github.com/mkrupp/homecase-accounts/internal/repo/directory"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc/accountclient"
)

func newService(t *testing.T) *accountsvc.AccountService {
	t.Helper()

	svc, err := accountsvc.NewAccountService(t.Context(), directory.MemoryDirectoryFactory(), accountsvc.AccountConfig{
		SeedEnabled:  true,
		SeedUsername: "admin",
		SeedPassword: "admin123",
		SeedEmail:    "admin@example.com",
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	return svc
}

// startSocketServer serves svc over the socket protocol and returns its address.
func startSocketServer(t *testing.T, svc *accountsvc.AccountService) string {
	t.Helper()

	cfg := accountsvc.SocketTransportConfig{
		SocketTransportConfig: socket.SocketTransportConfig{
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- socket.Serve(ctx, sock, accountsvc.NewSocketTransport(svc, nil, cfg), cfg.SocketTransportConfig)
	}()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return sock.Addr().String()
}

// startSilentServer accepts connections and never answers.
func startSilentServer(t *testing.T) string {
	t.Helper()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)

	t.Cleanup(func() {
		sock.Close()

		mu.Lock()
		defer mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}
	})

	go func() {
		for {
			conn, err := sock.Accept()
			if err != nil {
				return
			}

			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	return sock.Addr().String()
}

// unusedAddr returns a loopback address nothing listens on.
func unusedAddr(t *testing.T) string {
	t.Helper()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := sock.Addr().String()
	require.NoError(t, sock.Close())

	return addr
}

func assertConnectionFailed(t *testing.T, resp domain.Response) {
	t.Helper()

	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Message, accountclient.MessageConnectionFailed+": "), resp.Message)
	assert.Nil(t, resp.Data)
}

func TestSocketClient_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := accountclient.NewSocketClient(accountclient.SocketClientConfig{
		Addr:    startSocketServer(t, newService(t)),
		Timeout: 5 * time.Second,
	})

	resp := client.Login(ctx, "admin", "admin123")
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "login successful", resp.Message)
	assert.Equal(t, &domain.Account{Username: "admin", Email: "admin@example.com"}, resp.Data)

	resp = client.Register(ctx, domain.Account{Username: "alice", Password: "secret1", Email: "a@b.com"})
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "registration successful", resp.Message)

	resp = client.Register(ctx, domain.Account{Username: "alice", Password: "secret1", Email: "a@b.com"})
	assert.False(t, resp.Success)
	assert.Equal(t, "username already exists", resp.Message)
	assert.Nil(t, resp.Data)

	resp = client.Exists(ctx, "alice")
	assert.True(t, resp.Success)
	assert.Equal(t, true, resp.Data)

	resp = client.Exists(ctx, "bob")
	assert.True(t, resp.Success)
	assert.Equal(t, "user does not exist", resp.Message)
	assert.Equal(t, false, resp.Data)

	resp = client.GetUser(ctx, "alice")
	assert.True(t, resp.Success)
	assert.Equal(t, &domain.Account{Username: "alice", Email: "a@b.com"}, resp.Data)

	resp = client.Login(ctx, "alice", "wrong1")
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid username or password", resp.Message)
}

func TestSocketClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	client := accountclient.NewSocketClient(accountclient.SocketClientConfig{
		Addr:    unusedAddr(t),
		Timeout: time.Second,
	})

	assertConnectionFailed(t, client.Login(context.Background(), "admin", "admin123"))
}

func TestSocketClient_Timeout(t *testing.T) {
	t.Parallel()

	client := accountclient.NewSocketClient(accountclient.SocketClientConfig{
		Addr:    startSilentServer(t),
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	resp := client.Exists(context.Background(), "alice")

	assertConnectionFailed(t, resp)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSocketClient_CallerCancel(t *testing.T) {
	t.Parallel()

	client := accountclient.NewSocketClient(accountclient.SocketClientConfig{
		Addr:    startSilentServer(t),
		Timeout: time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assertConnectionFailed(t, client.GetUser(ctx, "alice"))
}

func TestHTTPClient_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	transport := accountsvc.NewHTTPTransport(newService(t), nil, accountsvc.HTTPTransportConfig{})
	srv := httptest.NewServer(http_.Middleware(transport, logging.NewNopLogger()))
	t.Cleanup(srv.Close)

	client := accountclient.NewHTTPClient(accountclient.HTTPClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)

	resp := client.Login(ctx, "admin", "admin123")
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, &domain.Account{Username: "admin", Email: "admin@example.com"}, resp.Data)

	resp = client.Register(ctx, domain.Account{Username: "alice", Password: "secret1"})
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, &domain.Account{Username: "alice"}, resp.Data)

	resp = client.Register(ctx, domain.Account{Username: "al", Password: "secret1"})
	assert.False(t, resp.Success)
	assert.Equal(t, "username must be at least 3 characters", resp.Message)

	resp = client.Status(ctx)
	assert.True(t, resp.Success)
	require.IsType(t, accountsvc.StatusResponse{}, resp.Data)
	assert.Equal(t, accountsvc.Version, resp.Data.(accountsvc.StatusResponse).Version)
}

func TestHTTPClient_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	refused := accountclient.NewHTTPClient(accountclient.HTTPClientConfig{
		BaseURL: "http://" + unusedAddr(t),
		Timeout: time.Second,
	}, nil)
	assertConnectionFailed(t, refused.Login(ctx, "admin", "admin123"))

	silent := accountclient.NewHTTPClient(accountclient.HTTPClientConfig{
		BaseURL: "http://" + startSilentServer(t),
		Timeout: 100 * time.Millisecond,
	}, nil)
	assertConnectionFailed(t, silent.Status(ctx))

	notJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	t.Cleanup(notJSON.Close)

	client := accountclient.NewHTTPClient(accountclient.HTTPClientConfig{BaseURL: notJSON.URL, Timeout: time.Second}, nil)
	assertConnectionFailed(t, client.Register(ctx, domain.Account{Username: "alice", Password: "secret1"}))
}

func TestClients_ImplementAuthenticator(t *testing.T) {
	t.Parallel()

	for _, client := range []accountclient.Authenticator{
		accountclient.NewSocketClient(accountclient.SocketClientConfig{Addr: unusedAddr(t), Timeout: time.Second}),
		accountclient.NewHTTPClient(accountclient.HTTPClientConfig{BaseURL: "http://" + unusedAddr(t), Timeout: time.Second}, nil),
	} {
		assertConnectionFailed(t, client.Register(context.Background(), domain.Account{Username: "alice"}))
	}
}

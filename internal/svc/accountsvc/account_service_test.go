package accountsvc_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/repo/directory"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

var errDirectory = errors.New("directory failure")

// mockDirectory wraps a MemoryDirectory, counts every access and can be made to fail.
type mockDirectory struct {
	*directory.MemoryDirectory

	calls atomic.Int32
	err   error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{MemoryDirectory: directory.NewMemoryDirectory()}
}

func (m *mockDirectory) Exists(ctx context.Context, username string) (bool, error) {
	m.calls.Add(1)

	if m.err != nil {
		return false, m.err
	}

	return m.MemoryDirectory.Exists(ctx, username)
}

func (m *mockDirectory) Insert(ctx context.Context, account domain.Account) (bool, error) {
	m.calls.Add(1)

	if m.err != nil {
		return false, m.err
	}

	return m.MemoryDirectory.Insert(ctx, account)
}

func (m *mockDirectory) Get(ctx context.Context, username string) (domain.Account, bool, error) {
	m.calls.Add(1)

	if m.err != nil {
		return domain.Account{}, false, m.err
	}

	return m.MemoryDirectory.Get(ctx, username)
}

func (m *mockDirectory) Authenticate(ctx context.Context, username, password string) (domain.Account, bool, error) {
	m.calls.Add(1)

	if m.err != nil {
		return domain.Account{}, false, m.err
	}

	return m.MemoryDirectory.Authenticate(ctx, username, password)
}

func setupTestService(t *testing.T) (*accountsvc.AccountService, *mockDirectory) {
	t.Helper()

	dir := newMockDirectory()

	return &accountsvc.AccountService{
		Directory: dir,
		Validator: accountsvc.NewValidator(),
		Log:       logging.NewNopLogger(),
	}, dir
}

var alice = domain.Account{Username: "alice", Password: "secret1", Email: "a@b.com"}

func TestAccountService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := setupTestService(t)

	registered, err := svc.Register(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice.Redacted(), registered)
	assert.Empty(t, registered.Password)

	account, err := svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "a@b.com", account.Email)
	assert.Empty(t, account.Password)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAccountService_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	_, err = svc.Register(ctx, domain.Account{Username: "alice", Password: "other12", Email: "x@y.z"})
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	// the first account is unchanged
	_, err = svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "other12")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAccountService_RegisterValidationDoesNotStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, dir := setupTestService(t)

	_, err := svc.Register(ctx, domain.Account{Username: "ab", Password: "x", Email: "bad"})
	require.ErrorIs(t, err, domain.ErrUsernameTooShort)
	assert.Equal(t, int32(0), dir.calls.Load())

	exists, err := svc.Exists(ctx, "ab")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountService_RegisterOptionalEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.RegisterOptionalEmail(ctx, domain.Account{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.RegisterOptionalEmail(ctx, domain.Account{Username: "carol", Password: "secret1", Email: "nope"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Register(ctx, domain.Account{Username: "dave", Password: "secret1"})
	require.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestAccountService_ConcurrentRegister(t *testing.T) {
	t.Parallel()

	const workers = 50

	var (
		ctx        = context.Background()
		svc, _     = setupTestService(t)
		wg         sync.WaitGroup
		start      = make(chan struct{})
		successes  atomic.Int32
		duplicates atomic.Int32
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			<-start

			_, err := svc.Register(ctx, domain.Account{Username: "racer", Password: "secret1", Email: "r@x.y"})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, domain.ErrUserAlreadyExists):
				duplicates.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(workers-1), duplicates.Load())
}

func TestAccountService_LoginAmbiguity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "alice", "wrong1")
	_, unknownUser := svc.Login(ctx, "nobody", "secret1")

	require.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, domain.ErrInvalidCredentials)
	assert.Equal(t, domain.Message(wrongPassword), domain.Message(unknownUser))
}

func TestAccountService_GetUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.GetUser(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = svc.Register(ctx, alice)
	require.NoError(t, err)

	account, err := svc.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Redacted(), account)
}

func TestAccountService_Dispatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.Register(ctx, alice)
	require.NoError(t, err)

	tests := []struct {
		name string
		req  domain.Request
		want domain.Response
	}{
		{
			name: "login ok",
			req:  domain.LoginRequest{Username: "alice", Password: "secret1"},
			want: domain.OK("login successful", alice.Redacted()),
		},
		{
			name: "login wrong password",
			req:  domain.LoginRequest{Username: "alice", Password: "nope12"},
			want: domain.Fail("invalid username or password"),
		},
		{
			name: "register ok",
			req:  domain.RegisterRequest{Account: domain.Account{Username: "bob", Password: "secret2", Email: "b@c.d"}},
			want: domain.OK("registration successful", domain.Account{Username: "bob", Email: "b@c.d"}),
		},
		{
			name: "register duplicate",
			req:  domain.RegisterRequest{Account: alice},
			want: domain.Fail("username already exists"),
		},
		{
			name: "register blank username",
			req:  domain.RegisterRequest{Account: domain.Account{Username: "   ", Password: "x"}},
			want: domain.Fail("username must not be empty"),
		},
		{
			name: "exists",
			req:  domain.ExistsRequest{Username: "alice"},
			want: domain.OK("user exists", true),
		},
		{
			name: "does not exist",
			req:  domain.ExistsRequest{Username: "zed"},
			want: domain.OK("user does not exist", false),
		},
		{
			name: "get user",
			req:  domain.GetUserRequest{Username: "alice"},
			want: domain.OK("user found", alice.Redacted()),
		},
		{
			name: "get unknown user",
			req:  domain.GetUserRequest{Username: "zed"},
			want: domain.Fail("user does not exist"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Dispatch(ctx, tt.req))
		})
	}
}

func TestAccountService_DispatchDirectoryFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, dir := setupTestService(t)
	dir.err = errDirectory

	for _, req := range []domain.Request{
		domain.LoginRequest{Username: "alice", Password: "secret1"},
		domain.RegisterRequest{Account: alice},
		domain.ExistsRequest{Username: "alice"},
		domain.GetUserRequest{Username: "alice"},
	} {
		resp := svc.Dispatch(ctx, req)
		assert.False(t, resp.Success, req.Action())
		assert.Equal(t, domain.MessageInternalError, resp.Message, req.Action())
	}
}

func TestNewAccountService_Seed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name      string
		cfg       accountsvc.AccountConfig
		wantCount int
	}{
		{
			name: "seeded",
			cfg: accountsvc.AccountConfig{
				SeedEnabled:  true,
				SeedUsername: "admin",
				SeedPassword: "admin123",
				SeedEmail:    "admin@example.com",
			},
			wantCount: 1,
		},
		{
			name:      "disabled",
			cfg:       accountsvc.AccountConfig{SeedEnabled: false, SeedUsername: "admin"},
			wantCount: 0,
		},
		{
			name:      "empty username",
			cfg:       accountsvc.AccountConfig{SeedEnabled: true},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, err := accountsvc.NewAccountService(ctx, directory.MemoryDirectoryFactory(), tt.cfg)
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, svc.Close()) })

			count, err := svc.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)

			if tt.wantCount > 0 {
				_, err := svc.Login(ctx, "admin", "admin123")
				require.NoError(t, err)
			}
		})
	}
}

func TestNewAccountService_FactoryError(t *testing.T) {
	t.Parallel()

	_, err := accountsvc.NewAccountService(context.Background(), func() (directory.Directory, error) {
		return nil, errDirectory
	}, accountsvc.AccountConfig{})
	require.ErrorIs(t, err, errDirectory)
}

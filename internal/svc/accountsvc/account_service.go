package accountsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/repo/directory"
)

// Response messages of successful operations.
const (
	MessageLoginSuccessful        = "login successful"
	MessageRegistrationSuccessful = "registration successful"
	MessageUserExists             = "user exists"
	MessageUserFound              = "user found"
)

// AccountConfig contains configuration parameters for the account service.
type AccountConfig struct {
	// SeedEnabled controls whether the bootstrap account is created on startup
	SeedEnabled bool `env:"SEED_ENABLED" envDefault:"true"`

	// SeedUsername is the username of the bootstrap account, empty disables seeding
	SeedUsername string `env:"SEED_USERNAME" envDefault:"admin"`

	// SeedPassword is the password of the bootstrap account
	SeedPassword string `env:"SEED_PASSWORD" envDefault:"admin123"`

	// SeedEmail is the email of the bootstrap account
	SeedEmail string `env:"SEED_EMAIL" envDefault:"admin@example.com"`
}

// AccountService registers and authenticates accounts against a Directory.
// Both dispatchers share one instance, and with it one Directory.
type AccountService struct {
	Config    AccountConfig
	Directory directory.Directory
	Validator *Validator
	Log       logging.Logger
}

// NewAccountService creates a new AccountService with a directory from the given
// factory and seeds the bootstrap account if configured.
func NewAccountService(ctx context.Context, dirFactory directory.Factory, cfg AccountConfig) (*AccountService, error) {
	dir, err := dirFactory()
	if err != nil {
		return nil, fmt.Errorf("new directory: %w", err)
	}

	svc := &AccountService{
		Config:    cfg,
		Directory: dir,
		Validator: NewValidator(),
		Log:       logging.GetLogger("svc.accountsvc.account_service"),
	}

	if err := svc.seed(ctx); err != nil {
		return nil, errors.Join(err, dir.Close())
	}

	return svc, nil
}

func (s *AccountService) seed(ctx context.Context) error {
	if !s.Config.SeedEnabled || s.Config.SeedUsername == "" {
		return nil
	}

	account := domain.Account{
		Username: s.Config.SeedUsername,
		Password: s.Config.SeedPassword,
		Email:    s.Config.SeedEmail,
	}

	inserted, err := s.Directory.Insert(ctx, account)
	if err != nil {
		return fmt.Errorf("seed account: %w", err)
	}

	if inserted {
		s.Log.InfoContext(ctx, "bootstrap account created", logging.Group("user", "username", account.Username))
	}

	return nil
}

// Register validates the account and stores it. The email is mandatory.
// Returns the stored account without its password.
func (s *AccountService) Register(ctx context.Context, account domain.Account) (domain.Account, error) {
	return s.register(ctx, account, true)
}

// RegisterOptionalEmail is like Register but accepts an account without email.
// A given email is still validated.
func (s *AccountService) RegisterOptionalEmail(ctx context.Context, account domain.Account) (domain.Account, error) {
	return s.register(ctx, account, false)
}

func (s *AccountService) register(
	ctx context.Context,
	account domain.Account,
	emailRequired bool,
) (_ domain.Account, err error) {
	log := s.Log.With(logging.Group("user", "username", account.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register account failed", "error", err)
		} else {
			log.DebugContext(ctx, "account registered")
		}
	}()

	if err := s.Validator.ValidateAccount(account, emailRequired); err != nil {
		return domain.Account{}, err
	}

	exists, err := s.Directory.Exists(ctx, account.Username)
	if err != nil {
		return domain.Account{}, fmt.Errorf("check account: %w", err)
	} else if exists {
		return domain.Account{}, domain.ErrUserAlreadyExists
	}

	// A concurrent register may have taken the username since the check.
	inserted, err := s.Directory.Insert(ctx, account)
	if err != nil {
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	} else if !inserted {
		return domain.Account{}, domain.ErrUserAlreadyExists
	}

	return account.Redacted(), nil
}

// Login authenticates the username/password pair.
// Unknown usernames and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (_ domain.Account, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	account, ok, err := s.Directory.Authenticate(ctx, username, password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("authenticate: %w", err)
	} else if !ok {
		return domain.Account{}, domain.ErrInvalidCredentials
	}

	return account.Redacted(), nil
}

// Exists reports whether the username is taken.
func (s *AccountService) Exists(ctx context.Context, username string) (_ bool, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "check account failed", "error", err)
		}
	}()

	exists, err := s.Directory.Exists(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}

	return exists, nil
}

// GetUser returns the stored account without its password,
// or domain.ErrUserNotFound.
func (s *AccountService) GetUser(ctx context.Context, username string) (_ domain.Account, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "get account failed", "error", err)
		} else {
			log.DebugContext(ctx, "account found")
		}
	}()

	account, ok, err := s.Directory.Get(ctx, username)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	} else if !ok {
		return domain.Account{}, domain.ErrUserNotFound
	}

	return account.Redacted(), nil
}

// Count returns the number of stored accounts.
func (s *AccountService) Count(ctx context.Context) (int, error) {
	count, err := s.Directory.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

// Dispatch runs the request and maps its outcome to a Response.
// Errors never leave Dispatch.
func (s *AccountService) Dispatch(ctx context.Context, req domain.Request) domain.Response {
	switch req := req.(type) {
	case domain.LoginRequest:
		ctx = context_.WithUsername(ctx, req.Username)

		account, err := s.Login(ctx, req.Username, req.Password)
		if err != nil {
			return domain.FailWith(err)
		}

		return domain.OK(MessageLoginSuccessful, account)

	case domain.RegisterRequest:
		ctx = context_.WithUsername(ctx, req.Account.Username)

		account, err := s.Register(ctx, req.Account)
		if err != nil {
			return domain.FailWith(err)
		}

		return domain.OK(MessageRegistrationSuccessful, account)

	case domain.ExistsRequest:
		ctx = context_.WithUsername(ctx, req.Username)

		exists, err := s.Exists(ctx, req.Username)
		if err != nil {
			return domain.FailWith(err)
		}

		if exists {
			return domain.OK(MessageUserExists, true)
		}

		return domain.OK(domain.ErrUserNotFound.Error(), false)

	case domain.GetUserRequest:
		ctx = context_.WithUsername(ctx, req.Username)

		account, err := s.GetUser(ctx, req.Username)
		if err != nil {
			return domain.FailWith(err)
		}

		return domain.OK(MessageUserFound, account)

	default:
		return domain.FailWith(fmt.Errorf("dispatch %T: %w", req, domain.ErrMalformedRequest))
	}
}

// Close releases resources held by the service, such as database connections.
func (s *AccountService) Close() error {
	if err := s.Directory.Close(); err != nil {
		return fmt.Errorf("close directory: %w", err)
	}

	return nil
}

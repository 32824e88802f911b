// Package directory holds the authoritative store of accounts.
//
// Every implementation is safe for concurrent use and linearizable per
// username: Insert checks for an existing account and stores the new one as a
// single atomic step, so two concurrent inserts of the same username never
// both succeed.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// ErrUnknownBackend is returned by the factory for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown directory backend")

// Directory defines the account store operations. No raw map access is exposed.
type Directory interface {
	// Exists reports whether an account with the username is present.
	Exists(ctx context.Context, username string) (bool, error)

	// Insert stores the account unless its username is already present.
	// Returns true if the account was stored.
	Insert(ctx context.Context, account domain.Account) (bool, error)

	// Get returns a copy of the stored account and true, or false if absent.
	Get(ctx context.Context, username string) (domain.Account, bool, error)

	// Authenticate returns the account and true iff it exists and its password
	// equals the given one exactly. Unknown usernames and wrong passwords are
	// indistinguishable.
	Authenticate(ctx context.Context, username, password string) (domain.Account, bool, error)

	// Count returns the number of stored accounts.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the directory.
	Close() error
}

// Factory is a function that creates a new Directory instance.
type Factory func() (Directory, error)

// Config selects and configures the directory backend.
type Config struct {
	// Backend is either "memory" or "sqlite"
	Backend string `env:"BACKEND" envDefault:"memory"`

	SQLite SQLiteDirectoryConfig
}

// NewFactory returns the factory for the configured backend.
func NewFactory(cfg Config) (Factory, error) {
	switch cfg.Backend {
	case "", "memory":
		return MemoryDirectoryFactory(), nil
	case "sqlite":
		return SQLiteDirectoryFactory(cfg.SQLite), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

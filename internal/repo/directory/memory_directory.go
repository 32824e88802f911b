package directory

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// MemoryDirectory implements Directory with a map guarded by a single mutex.
// The lock is held only for the map operation itself.
type MemoryDirectory struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

var _ Directory = (*MemoryDirectory)(nil)

// MemoryDirectoryFactory creates a factory function that returns a new, empty MemoryDirectory.
func MemoryDirectoryFactory() Factory {
	return func() (Directory, error) {
		return NewMemoryDirectory(), nil
	}
}

// NewMemoryDirectory creates an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		accounts: make(map[string]domain.Account),
	}
}

// Exists implements Directory.Exists.
func (d *MemoryDirectory) Exists(_ context.Context, username string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.accounts[username]

	return ok, nil
}

// Insert implements Directory.Insert.
func (d *MemoryDirectory) Insert(_ context.Context, account domain.Account) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[account.Username]; ok {
		return false, nil
	}

	d.accounts[account.Username] = account

	return true, nil
}

// Get implements Directory.Get.
func (d *MemoryDirectory) Get(_ context.Context, username string) (domain.Account, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	account, ok := d.accounts[username]

	return account, ok, nil
}

// Authenticate implements Directory.Authenticate.
func (d *MemoryDirectory) Authenticate(_ context.Context, username, password string) (domain.Account, bool, error) {
	d.mu.Lock()
	account, ok := d.accounts[username]
	d.mu.Unlock()

	if !ok || !passwordsEqual(account.Password, password) {
		return domain.Account{}, false, nil
	}

	return account, true, nil
}

// Count implements Directory.Count.
func (d *MemoryDirectory) Count(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.accounts), nil
}

// Close implements Directory.Close. The in-memory store holds no resources.
func (d *MemoryDirectory) Close() error {
	return nil
}

func passwordsEqual(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// SQLiteDirectoryConfig holds configuration for the SQLite directory.
type SQLiteDirectoryConfig struct {
	// DatabasePath is the SQLite DSN; the default keeps the data in process memory
	DatabasePath string `env:"DATABASE_PATH" envDefault:":memory:"`
}

// SQLiteDirectory implements Directory using SQLite as the storage backend.
// The database is reached through a single pooled connection, which also keeps
// an in-memory database alive for the lifetime of the directory.
type SQLiteDirectory struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Directory = (*SQLiteDirectory)(nil)

// SQLiteDirectoryFactory creates a factory function that returns a new SQLiteDirectory.
func SQLiteDirectoryFactory(cfg SQLiteDirectoryConfig) Factory {
	return func() (Directory, error) {
		return NewSQLiteDirectory(cfg)
	}
}

// NewSQLiteDirectory creates a new SQLiteDirectory with the given configuration.
// It opens the database and creates the schema if needed.
func NewSQLiteDirectory(cfg SQLiteDirectoryConfig) (*SQLiteDirectory, error) {
	log := logging.GetLogger("repo.directory.sqlite_directory").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()

		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := initializeDB(db); err != nil {
		db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	log.Debug("directory opened")

	return &SQLiteDirectory{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			username   TEXT    PRIMARY KEY NOT NULL,
			password   TEXT    NOT NULL,
			email      TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Exists implements Directory.Exists using SQLite.
func (d *SQLiteDirectory) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool

	if err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM accounts WHERE username = ?)",
		username,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("query account: %w", err)
	}

	return exists, nil
}

// Insert implements Directory.Insert using SQLite. A primary key conflict
// means the username is taken and is reported as (false, nil).
func (d *SQLiteDirectory) Insert(ctx context.Context, account domain.Account) (bool, error) {
	d.writeLock.Lock()
	defer d.writeLock.Unlock()

	_, err := d.db.ExecContext(ctx,
		"INSERT INTO accounts (username, password, email, created_at) VALUES (?, ?, ?, ?)",
		account.Username,
		account.Password,
		account.Email,
		time.Now().Unix(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				return false, nil
			default:
			}
		}

		return false, fmt.Errorf("insert account: %w", err)
	}

	return true, nil
}

// Get implements Directory.Get using SQLite.
func (d *SQLiteDirectory) Get(ctx context.Context, username string) (domain.Account, bool, error) {
	var account domain.Account

	err := d.db.QueryRowContext(ctx,
		"SELECT username, password, email FROM accounts WHERE username = ?",
		username,
	).Scan(&account.Username, &account.Password, &account.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, false, nil
		}

		return domain.Account{}, false, fmt.Errorf("query account: %w", err)
	}

	return account, true, nil
}

// Authenticate implements Directory.Authenticate using SQLite.
func (d *SQLiteDirectory) Authenticate(ctx context.Context, username, password string) (domain.Account, bool, error) {
	account, ok, err := d.Get(ctx, username)
	if err != nil {
		return domain.Account{}, false, err
	}

	if !ok || !passwordsEqual(account.Password, password) {
		return domain.Account{}, false, nil
	}

	return account, true, nil
}

// Count implements Directory.Count using SQLite.
func (d *SQLiteDirectory) Count(ctx context.Context) (int, error) {
	var count int

	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}

	return count, nil
}

// Close implements Directory.Close by closing the database connection.
func (d *SQLiteDirectory) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

package domain

import "errors"

var (
	// ErrUserAlreadyExists is returned when trying to create an account with an existing username.
	ErrUserAlreadyExists = errors.New("username already exists")
	// ErrUserNotFound is returned when looking up a non-existent account.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrInvalidCredentials is returned when the username/password combination is incorrect.
	// It is also returned for unknown usernames, the two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Validation errors, in the order the registration rules are evaluated.
var (
	ErrEmptyUsername    = errors.New("username must not be empty")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrInvalidEmail     = errors.New("invalid email format")
)

// Account is a single user record held by the directory.
// The username is the directory key and never changes once stored.
type Account struct {
	Username string `json:"username"           cbor:"username"`
	Password string `json:"password,omitempty" cbor:"password,omitempty"` // plaintext, compared by equality
	Email    string `json:"email"              cbor:"email"`
}

// Redacted returns a copy of the account without its password.
// Accounts leave the service only in this form.
func (a Account) Redacted() Account {
	a.Password = ""

	return a
}

// IsValidationError reports whether err is one of the user-correctable
// registration failures, including a duplicate username.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyUsername,
		ErrUsernameTooShort,
		ErrPasswordTooShort,
		ErrInvalidEmail,
		ErrUserAlreadyExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

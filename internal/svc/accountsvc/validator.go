package accountsvc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

//nolint:gochecknoglobals
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)

// Field order is rule order: the first failing field decides the error.
type registration struct {
	Username string `validate:"notblank,min=3"`
	Password string `validate:"min=6"`
	Email    string `validate:"accountemail"`
}

type registrationOptionalEmail struct {
	Username string `validate:"notblank,min=3"`
	Password string `validate:"min=6"`
	Email    string `validate:"omitempty,accountemail"`
}

// Validator checks new accounts before they reach the directory.
// It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the account registration rules.
func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Registration can only fail for an empty tag name or a nil function.
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("accountemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: validate}
}

// ValidateAccount applies the registration rules in order and returns the
// first failing rule's error:
//
//  1. username non-empty after trimming
//  2. username at least 3 characters
//  3. password at least 6 characters
//  4. email shaped like local-part@domain (skipped when empty and not required)
//
// Uniqueness is checked by the service against the directory.
func (v *Validator) ValidateAccount(account domain.Account, emailRequired bool) error {
	var input any = registration(account)
	if !emailRequired {
		input = registrationOptionalEmail(account)
	}

	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate account: %w", err)
	}

	first := fieldErrs[0]

	switch first.Field() + "." + first.Tag() {
	case "Username.notblank":
		return domain.ErrEmptyUsername
	case "Username.min":
		return domain.ErrUsernameTooShort
	case "Password.min":
		return domain.ErrPasswordTooShort
	case "Email.accountemail":
		return domain.ErrInvalidEmail
	default:
		return fmt.Errorf("validate account: %w", err)
	}
}

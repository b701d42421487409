// Package account provides account identity management.
package account

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/tripfolio/tripfolio/internal/platform/errors"
	"github.com/tripfolio/tripfolio/internal/platform/id"
)

var (
	// ErrEmptyEmail indicates a missing email address.
	ErrEmptyEmail = apperrors.New(apperrors.CodeAccountEmptyEmail, "email is required")
	// ErrInvalidEmail indicates an email that does not match the required format.
	ErrInvalidEmail = apperrors.New(apperrors.CodeAccountInvalidEmail, "email must be a valid address")

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Account represents an authenticated identity record.
//
// Handle is the ceremony-scoped user handle presented to authenticators; it is
// stable, opaque, and never reused across accounts. At most one account holds
// IsAdmin as a result of the first-registration bootstrap.
type Account struct {
	ID          string
	Email       string
	Handle      string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateAccountInput describes the metadata needed to create an account.
// Handle is optional; a fresh one is generated when empty.
type CreateAccountInput struct {
	Email       string
	DisplayName string
	Handle      string
}

// ValidateEmail enforces the canonical email shape used for registration and
// invite targeting.
func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return ErrInvalidEmail
	}
	return nil
}

// CreateAccount creates an account identity from validated input.
//
// The admin flag is never set here; promotion is decided by the storage
// layer's bootstrap claim inside the creation transaction.
func CreateAccount(input CreateAccountInput, now func() time.Time, idGenerator func() (string, error)) (Account, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateAccountInput(input)
	if err != nil {
		return Account{}, err
	}

	accountID, err := idGenerator()
	if err != nil {
		return Account{}, fmt.Errorf("generate account id: %w", err)
	}
	handle := normalized.Handle
	if handle == "" {
		handle, err = idGenerator()
		if err != nil {
			return Account{}, fmt.Errorf("generate user handle: %w", err)
		}
	}

	createdAt := now().UTC()
	return Account{
		ID:          accountID,
		Email:       normalized.Email,
		Handle:      handle,
		DisplayName: normalized.DisplayName,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateAccountInput trims and normalizes input before validation.
// A missing display name falls back to the email's local part.
func NormalizeCreateAccountInput(input CreateAccountInput) (CreateAccountInput, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" {
		return CreateAccountInput{}, ErrEmptyEmail
	}
	if err := ValidateEmail(input.Email); err != nil {
		return CreateAccountInput{}, err
	}
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		input.DisplayName = input.Email[:strings.Index(input.Email, "@")]
	}
	input.Handle = strings.TrimSpace(input.Handle)
	return input, nil
}

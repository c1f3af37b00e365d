package auth

import (
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the policy minimum for new passwords.
const MinPasswordLength = 6

// ErrMismatchedHashAndPassword is returned when a password does not match
// its stored hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when asked to hash an empty password.
var ErrNoEmptyString = ValidationError("password must not be empty")

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// ValidateNewPassword enforces the password policy for a new password and
// its confirmation. Each violation gets a distinct, human-readable reason.
func ValidateNewPassword(password, confirmation string) error {
	if password == "" {
		return ValidationError("password must not be empty")
	}
	if len(password) < MinPasswordLength {
		return ValidationError("password must be at least 6 characters")
	}
	if password != confirmation {
		return ValidationError("new passwords do not match")
	}
	return nil
}

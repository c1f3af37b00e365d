package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeDuplicatePhone     = "DUPLICATE_PHONE"
	TextCodePermissionDenied   = "PERMISSION_DENIED"
	TextCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenUnsupported   = "TOKEN_UNSUPPORTED"
	TextCodeSignatureInvalid   = "SIGNATURE_INVALID"
	TextCodeSigningFailed      = "SIGNING_FAILED"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeRoleNotFound       = "ROLE_NOT_FOUND"
	TextCodeDataParseError     = "DATA_PARSE_ERROR"
)

// ErrInvalidCredentials covers both unknown identities and wrong passwords;
// callers must not be able to tell which factor failed.
var ErrInvalidCredentials = errors.New("wrong phone number, email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountLocked is returned when the account exists but is not active.
var ErrAccountLocked = errors.New("account is locked or not yet verified", errors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(errors.CodeForbidden)

// ErrDuplicateEmail is returned when the email is already taken.
var ErrDuplicateEmail = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrDuplicatePhone is returned when the phone number is already taken.
var ErrDuplicatePhone = errors.New("phone number already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicatePhone).
	WithCode(errors.CodeConflict)

// ErrPermissionDenied is returned when registration requests a disallowed role.
var ErrPermissionDenied = errors.New("registering admin accounts is not allowed", errors.CategoryAuthz).
	WithTextCode(TextCodePermissionDenied).
	WithCode(errors.CodeForbidden)

// ErrTokenNotFound is returned when a purpose-scoped token does not exist
// or is of the wrong type.
var ErrTokenNotFound = errors.New("invalid or unknown token", errors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired is returned for expired or already consumed tokens.
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenUnsupported is returned for tokens signed with an unexpected method.
var ErrTokenUnsupported = errors.New("token signing method is not supported", errors.CategoryAuth).
	WithTextCode(TextCodeTokenUnsupported).
	WithCode(errors.CodeUnauthorized)

// ErrSignatureInvalid is returned when the token signature does not verify.
var ErrSignatureInvalid = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeSignatureInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrSigningFailed is returned when a token cannot be issued, usually because
// the configured secret is missing or not valid base64.
var ErrSigningFailed = errors.New("cannot sign session token", errors.CategoryInternal).
	WithTextCode(TextCodeSigningFailed).
	WithCode(errors.CodeInternal)

// ErrUserNotFound is returned when an operation references a missing user.
var ErrUserNotFound = errors.New("user does not exist, please log in again", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrRoleNotFound is returned when a role reference cannot be resolved.
var ErrRoleNotFound = errors.New("role does not exist", errors.CategoryNotFound).
	WithTextCode(TextCodeRoleNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnableToParseBody is returned when a request payload cannot be decoded.
var ErrUnableToParseBody = errors.New("unable to parse request body", errors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError).
	WithCode(errors.CodeBadRequest)

// ValidationError builds a CategoryValidation error naming the violated rule.
func ValidationError(reason string) *errors.Error {
	return errors.New(reason, errors.CategoryValidation).
		WithTextCode("VALIDATION_ERROR").
		WithCode(errors.CodeBadRequest)
}

// IsUniqueViolation reports whether a persistence error looks like a unique
// constraint violation. The service layer relies on this to translate races
// that slip past the optimistic existence checks.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

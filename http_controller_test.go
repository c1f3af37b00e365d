package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/trendora/go-auth"
)

// Every payload failure must surface as a categorized validation error so
// the controller maps it to a 400 instead of a generic 500.

func TestLoginRequestValidation(t *testing.T) {
	err := auth.LoginRequest{Email: "jane@example.com"}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")
	assert.Contains(t, err.Error(), "password")

	err = auth.LoginRequest{Password: "password123"}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	require.NoError(t, auth.LoginRequest{
		Email:    "jane@example.com",
		Password: "password123",
	}.Validate())
}

func TestSocialLoginRequestValidation(t *testing.T) {
	err := auth.SocialLoginRequest{Email: "jane@example.com"}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	// The "0" sentinel does not count as a linked account.
	err = auth.SocialLoginRequest{GoogleAccountID: "0"}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	err = auth.SocialLoginRequest{GoogleAccountID: "g-1", Email: "not-an-email"}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	require.NoError(t, auth.SocialLoginRequest{GoogleAccountID: "g-1"}.Validate())
}

func TestRefreshRequestValidation(t *testing.T) {
	err := auth.RefreshRequest{}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	require.NoError(t, auth.RefreshRequest{RefreshToken: "refresh-1"}.Validate())
}

func TestPasswordResetRequestValidation(t *testing.T) {
	err := auth.PasswordResetRequest{}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	err = auth.PasswordResetRequest{Email: "not-an-email"}.Validate()
	require.Error(t, err)
	assertTextCode(t, err, "VALIDATION_ERROR")

	require.NoError(t, auth.PasswordResetRequest{Email: "jane@example.com"}.Validate())
}

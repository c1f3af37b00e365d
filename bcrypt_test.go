package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/trendora/go-auth"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)

	require.NoError(t, auth.ComparePasswordAndHash("password123", hash))
	require.Error(t, auth.ComparePasswordAndHash("password124", hash))
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	require.Error(t, err)
}

func TestValidateNewPassword(t *testing.T) {
	require.NoError(t, auth.ValidateNewPassword("password123", "password123"))

	err := auth.ValidateNewPassword("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be empty")

	err = auth.ValidateNewPassword("abc", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6")

	err = auth.ValidateNewPassword("password123", "password124")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")
}

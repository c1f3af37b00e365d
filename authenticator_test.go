package auth_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/trendora/go-auth"
)

func newTestAuther(repo *memRepo) *auth.Auther {
	svc := testTokenService()
	resolver := auth.NewIdentityResolver(repo)
	return auth.NewAuthenticator(repo, svc, resolver, testConfig{signingKey: testSecret()})
}

func TestLoginIssuesSession(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	result, err := auther.Login(context.Background(), auth.LoginInput{
		PhoneNumber: "+15550100200",
		Password:    "password123",
		IsMobile:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, user.ID, result.User.ID)

	row, err := repo.Tokens().GetByToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeSession, row.TokenType)
	assert.Equal(t, user.ID, row.UserID)
	assert.True(t, row.IsMobile)
	assert.False(t, row.Revoked)
	assert.Equal(t, result.RefreshToken, row.RefreshToken)
}

func TestLoginSocialIssuesSession(t *testing.T) {
	repo := newMemRepo()
	auther := newTestAuther(repo)

	result, err := auther.LoginSocial(context.Background(), auth.SocialLoginInput{
		GoogleAccountID: "google-123",
		Email:           "new@example.com",
		FullName:        "New Person",
	})
	require.NoError(t, err)
	assert.True(t, result.User.Active)

	row, err := repo.Tokens().GetByToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, row.UserID)
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newMemRepo()
	seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	first, err := auther.Login(context.Background(), auth.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	second, err := auther.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The old refresh token was consumed and cannot be used twice.
	_, err = auther.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeTokenExpired)

	// The new one still works.
	_, err = auther.Refresh(context.Background(), second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshUnknownToken(t *testing.T) {
	repo := newMemRepo()
	auther := newTestAuther(repo)

	_, err := auther.Refresh(context.Background(), "no-such-token")
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeTokenNotFound)
}

func TestLogoutRevokesSession(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	result, err := auther.Login(context.Background(), auth.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	require.NoError(t, auther.ValidateForUser(context.Background(), result.Token, user))

	require.NoError(t, auther.Logout(context.Background(), result.Token))

	// The JWT is still signed and unexpired, but its session row is revoked.
	err = auther.ValidateForUser(context.Background(), result.Token, user)
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeTokenExpired)

	// The paired refresh token died with the session.
	_, err = auther.Refresh(context.Background(), result.RefreshToken)
	require.Error(t, err)
}

func TestValidateForUserRejectsInactive(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	result, err := auther.Login(context.Background(), auth.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	user.Active = false
	_, err = repo.Users().Update(context.Background(), user)
	require.NoError(t, err)

	err = auther.ValidateForUser(context.Background(), result.Token, user)
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeAccountLocked)
}

func TestValidateForUserRejectsLapsedSessionRow(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	result, err := auther.Login(context.Background(), auth.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	// Age the row past its expiration without flipping the revoked or
	// expired flags; the date alone must kill the session.
	row, err := repo.Tokens().GetByToken(context.Background(), result.Token)
	require.NoError(t, err)
	row.ExpirationDate = time.Now().Add(-time.Minute)
	_, err = repo.Tokens().Update(context.Background(), row)
	require.NoError(t, err)

	err = auther.ValidateForUser(context.Background(), result.Token, user)
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeTokenExpired)
}

func TestValidateForUserRejectsForeignToken(t *testing.T) {
	repo := newMemRepo()
	seedUser(t, repo, nil)
	other := seedUser(t, repo, func(u *auth.User) {
		u.PhoneNumber = "+15550100300"
		u.Email = "other@example.com"
	})
	auther := newTestAuther(repo)

	result, err := auther.Login(context.Background(), auth.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	err = auther.ValidateForUser(context.Background(), result.Token, other)
	require.Error(t, err)
}

func TestUserFromTokenNumericSubject(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	result, err := auther.Login(context.Background(), auth.LoginInput{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	got, err := auther.UserFromToken(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserFromTokenLegacyPhoneSubject(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	key, err := base64.StdEncoding.DecodeString(testSecret())
	require.NoError(t, err)

	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "+15550100200",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := legacy.SignedString(key)
	require.NoError(t, err)

	got, err := auther.UserFromToken(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserFromTokenLegacyEmailSubject(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	key, err := base64.StdEncoding.DecodeString(testSecret())
	require.NoError(t, err)

	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "jane@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := legacy.SignedString(key)
	require.NoError(t, err)

	got, err := auther.UserFromToken(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserFromTokenUnknownUser(t *testing.T) {
	repo := newMemRepo()
	auther := newTestAuther(repo)

	signed, err := testTokenService().Generate(&auth.User{ID: 12345})
	require.NoError(t, err)

	_, err = auther.UserFromToken(context.Background(), signed)
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeUserNotFound)
}

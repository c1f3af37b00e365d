package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/trendora/go-auth"
)

func TestAdminResetPasswordRevokesEverything(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	// Two live sessions from different devices.
	first, err := auther.Login(context.Background(), auth.LoginInput{
		Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)
	second, err := auther.Login(context.Background(), auth.LoginInput{
		Email: "jane@example.com", Password: "password123", IsMobile: true,
	})
	require.NoError(t, err)

	handler := auth.NewAdminResetPasswordHandler(repo)
	err = handler.Execute(context.Background(), auth.AdminResetPasswordMessage{
		UserID:         user.ID,
		Password:       "operator-set-1",
		RetypePassword: "operator-set-1",
	})
	require.NoError(t, err)

	updated, err := repo.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, auth.ComparePasswordAndHash("operator-set-1", updated.PasswordHash))

	// Every token row is gone: bearer tokens and refresh tokens alike.
	rows, err := repo.Tokens().ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.Error(t, auther.ValidateForUser(context.Background(), first.Token, updated))
	require.Error(t, auther.ValidateForUser(context.Background(), second.Token, updated))
	_, err = auther.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)
}

func TestAdminResetPasswordUnknownUser(t *testing.T) {
	repo := newMemRepo()
	handler := auth.NewAdminResetPasswordHandler(repo)

	err := handler.Execute(context.Background(), auth.AdminResetPasswordMessage{
		UserID:         404,
		Password:       "operator-set-1",
		RetypePassword: "operator-set-1",
	})
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeUserNotFound)
}

func TestSetUserActiveBlocksWithoutTouchingTokens(t *testing.T) {
	repo := newMemRepo()
	user := seedUser(t, repo, nil)
	auther := newTestAuther(repo)

	session, err := auther.Login(context.Background(), auth.LoginInput{
		Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)

	handler := auth.NewSetUserActiveHandler(repo)
	err = handler.Execute(context.Background(), auth.SetUserActiveMessage{
		UserID: user.ID,
		Active: false,
	})
	require.NoError(t, err)

	// The session row survives, but validation rejects the locked account.
	rows, err := repo.Tokens().ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	blocked, err := repo.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	err = auther.ValidateForUser(context.Background(), session.Token, blocked)
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeAccountLocked)

	// Re-enabling restores access with the same token.
	err = handler.Execute(context.Background(), auth.SetUserActiveMessage{
		UserID: user.ID,
		Active: true,
	})
	require.NoError(t, err)

	enabled, err := repo.Users().GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, auther.ValidateForUser(context.Background(), session.Token, enabled))
}

func TestSetUserActiveUnknownUser(t *testing.T) {
	repo := newMemRepo()
	handler := auth.NewSetUserActiveHandler(repo)

	err := handler.Execute(context.Background(), auth.SetUserActiveMessage{UserID: 404, Active: false})
	require.Error(t, err)
	assertTextCode(t, err, auth.TextCodeUserNotFound)
}

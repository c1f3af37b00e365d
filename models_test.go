package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	auth "github.com/trendora/go-auth"
)

func TestSocialIDLinked(t *testing.T) {
	assert.True(t, auth.SocialIDLinked("google-123"))
	assert.True(t, auth.SocialIDLinked(" google-123 "))

	assert.False(t, auth.SocialIDLinked(""))
	assert.False(t, auth.SocialIDLinked("   "))
	assert.False(t, auth.SocialIDLinked("0"))
	assert.False(t, auth.SocialIDLinked(" 0 "))
}

func TestHasSocialAccount(t *testing.T) {
	assert.False(t, (&auth.User{}).HasSocialAccount())
	assert.False(t, (&auth.User{GoogleAccountID: "0", FacebookAccountID: "0"}).HasSocialAccount())
	assert.True(t, (&auth.User{GoogleAccountID: "g-1"}).HasSocialAccount())
	assert.True(t, (&auth.User{FacebookAccountID: "f-1"}).HasSocialAccount())
}

func TestUserRoleName(t *testing.T) {
	assert.Empty(t, (&auth.User{}).RoleName())
	assert.Equal(t, auth.RoleAdmin, (&auth.User{Role: &auth.Role{Name: "ADMIN"}}).RoleName())
	assert.Equal(t, auth.RoleUser, (&auth.User{Role: &auth.Role{Name: " User "}}).RoleName())
}

func TestTokenIsUsable(t *testing.T) {
	now := time.Now()

	live := &auth.Token{ExpirationDate: now.Add(time.Hour)}
	assert.True(t, live.IsUsable(now))

	past := &auth.Token{ExpirationDate: now.Add(-time.Second)}
	assert.False(t, past.IsUsable(now))

	revoked := &auth.Token{ExpirationDate: now.Add(time.Hour), Revoked: true}
	assert.False(t, revoked.IsUsable(now))

	consumed := (&auth.Token{ExpirationDate: now.Add(time.Hour)}).Consume()
	assert.True(t, consumed.Revoked)
	assert.True(t, consumed.Expired)
	assert.False(t, consumed.IsUsable(now))
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole(" ADMIN ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	role, ok = auth.ParseRole("user")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleUser, role)

	_, ok = auth.ParseRole("superuser")
	assert.False(t, ok)
}

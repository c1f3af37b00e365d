package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of an issued bearer token.
//
// Two generations are in circulation. Current tokens carry a numeric userId
// claim and sub = string(userId). Legacy tokens have no userId claim and
// used the phone number or email as sub; they must keep decoding for as long
// as they live, so resolution prefers the numeric path and only falls back
// to string-subject matching.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID      int64  `json:"userId,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
}

// SubjectUserID returns the numeric user id carried by the claims. It
// prefers the userId claim and falls back to parsing sub. ok is false for
// legacy tokens whose subject is a phone number or email; that is the
// expected back-compat signal, not an error.
func (c *SessionClaims) SubjectUserID() (int64, bool) {
	if c.UserID > 0 {
		return c.UserID, true
	}

	if id, err := strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64); err == nil && id > 0 {
		return id, true
	}

	return 0, false
}

// StringSubject returns the raw subject claim, used by the legacy
// phone-or-email resolution path.
func (c *SessionClaims) StringSubject() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time, zero when absent.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// MatchesUser reports whether the claims bind to the given user, accepting
// both claim generations.
func (c *SessionClaims) MatchesUser(user *User) bool {
	if user == nil {
		return false
	}

	if id, ok := c.SubjectUserID(); ok {
		return id == user.ID
	}

	subject := c.StringSubject()
	if subject == "" {
		return false
	}

	return subject == user.PhoneNumber || subject == user.Email
}

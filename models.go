package auth

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// SocialIDSentinel is a legacy placeholder stored in provider id columns.
// Rows migrated from older schemas carry "0" instead of NULL, so a "0" value
// must be treated as "not linked", never as a real provider identifier.
const SocialIDSentinel = "0"

// User is the canonical identity record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	FullName          string     `bun:"full_name" json:"full_name,omitempty"`
	PhoneNumber       string     `bun:"phone_number" json:"phone_number,omitempty"`
	Email             string     `bun:"email" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	Address           string     `bun:"address" json:"address,omitempty"`
	DateOfBirth       *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	FacebookAccountID string     `bun:"facebook_account_id" json:"facebook_account_id,omitempty"`
	GoogleAccountID   string     `bun:"google_account_id" json:"google_account_id,omitempty"`
	ProfileImage      string     `bun:"profile_image" json:"profile_image,omitempty"`
	Active            bool       `bun:"is_active" json:"is_active"`
	RoleID            int64      `bun:"role_id" json:"role_id,omitempty"`
	Role              *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// SocialIDLinked reports whether a provider id column holds a real link.
// NULL-equivalent empty strings, blanks and the "0" sentinel all count as
// not linked.
func SocialIDLinked(id string) bool {
	trimmed := strings.TrimSpace(id)
	return trimmed != "" && trimmed != SocialIDSentinel
}

// HasSocialAccount reports whether either provider id is linked. Password
// verification is skipped for social accounts, which may carry an empty hash.
func (u *User) HasSocialAccount() bool {
	return SocialIDLinked(u.FacebookAccountID) || SocialIDLinked(u.GoogleAccountID)
}

// RoleName returns the normalized role name, or empty when not loaded.
func (u *User) RoleName() UserRole {
	if u.Role == nil {
		return ""
	}
	return NormalizeRole(u.Role.Name)
}

// Role is a persisted role reference
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name string `bun:"name,notnull,unique" json:"name,omitempty"`
}

// TokenType discriminates purpose-scoped token rows
type TokenType = string

const (
	// TokenTypeVerification activates an account via an email link, 24h TTL
	TokenTypeVerification TokenType = "VERIFICATION"
	// TokenTypeResetPassword authorizes a one-shot password change, 1h TTL
	TokenTypeResetPassword TokenType = "RESET_PASSWORD"
	// TokenTypeSession backs issued bearer tokens so they can be revoked
	TokenTypeSession TokenType = "SESSION"
)

const (
	// VerificationTokenTTL is how long an email verification link stays valid
	VerificationTokenTTL = 24 * time.Hour
	// ResetPasswordTokenTTL is how long a password reset link stays valid
	ResetPasswordTokenTTL = time.Hour
)

// Token is a server-issued artifact with its own lifecycle, distinct from
// the signed bearer token. Verification tokens are deleted on use; reset
// tokens are retained flagged revoked+expired for audit.
type Token struct {
	bun.BaseModel `bun:"table:tokens,alias:tok"`

	ID             int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Token          string     `bun:"token,notnull,unique" json:"token,omitempty"`
	TokenType      TokenType  `bun:"token_type,notnull" json:"token_type,omitempty"`
	UserID         int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	User           *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	ExpirationDate time.Time  `bun:"expiration_date,notnull" json:"expiration_date,omitempty"`
	Revoked        bool       `bun:"revoked" json:"revoked"`
	Expired        bool       `bun:"expired" json:"expired"`
	IsMobile       bool       `bun:"is_mobile" json:"is_mobile"`
	RefreshToken   string     `bun:"refresh_token" json:"refresh_token,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// IsUsable reports whether the row can still be consumed. Expiry is checked
// lazily against the clock; the flags may lag behind.
func (t *Token) IsUsable(now time.Time) bool {
	if t.Revoked || t.Expired {
		return false
	}
	return t.ExpirationDate.After(now)
}

// Consume flags the row revoked and expired without deleting it.
func (t *Token) Consume() *Token {
	t.Revoked = true
	t.Expired = true
	return t
}

package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// ValidateForUser checks that a bearer token is acceptable for the given
// user before any request is served on its behalf. The token must have a
// live session row, the account must be active, the signature and expiry
// must verify, and the claims must identify the same user.
func (a *Auther) ValidateForUser(ctx context.Context, raw string, user *User) error {
	if user == nil {
		return ErrUserNotFound
	}

	row, err := a.repo.Tokens().GetByToken(ctx, raw)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrTokenNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to look up session token")
	}

	if row.Revoked || row.Expired || SessionExpired(row, a.now()) {
		return ErrTokenExpired
	}

	if !user.Active {
		return ErrAccountLocked
	}

	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return err
	}

	if !claims.MatchesUser(user) {
		return errors.New("token does not belong to user", errors.CategoryAuth).
			WithTextCode(TextCodeTokenMalformed).
			WithCode(errors.CodeUnauthorized)
	}

	return nil
}

// SessionExpired reports whether the stored session row has passed its
// expiration date without consulting the JWT payload.
func SessionExpired(row *Token, now time.Time) bool {
	return row == nil || !row.ExpirationDate.After(now)
}

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginResult carries one authenticated session: a signed bearer token, the
// opaque refresh token paired with it, and the resolved user.
type LoginResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Auther authenticates credentials and manages server-side session rows.
// Every issued JWT has a matching row in the tokens table; a token with no
// live row is never honored, however valid its signature.
type Auther struct {
	repo     RepositoryManager
	tokens   TokenService
	resolver *IdentityResolver
	cfg      Config
	logger   Logger
	now      func() time.Time
}

// NewAuthenticator creates an Auther from its collaborators. The token
// service signs and verifies JWTs; the resolver maps credentials to users.
func NewAuthenticator(repo RepositoryManager, tokens TokenService, resolver *IdentityResolver, cfg Config) *Auther {
	return &Auther{
		repo:     repo,
		tokens:   tokens,
		resolver: resolver,
		cfg:      cfg,
		logger:   defLogger{},
		now:      time.Now,
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		a.now = now
	}
	return a
}

// Login authenticates a password login and issues a new session.
func (a *Auther) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := a.resolver.ResolvePassword(ctx, in)
	if err != nil {
		return nil, err
	}

	var result *LoginResult
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err = a.issueSessionTx(ctx, tx, user, in.IsMobile)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// LoginSocial authenticates a provider-validated login, creating or merging
// the account as needed, and issues a new session. Resolution and issuance
// share one transaction.
func (a *Auther) LoginSocial(ctx context.Context, in SocialLoginInput) (*LoginResult, error) {
	var result *LoginResult
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, created, err := a.resolver.ResolveSocialTx(ctx, tx, in)
		if err != nil {
			return err
		}

		if !user.Active {
			return ErrAccountLocked
		}

		if created {
			a.logger.Info("created user %d from social login", user.ID)
		}

		result, err = a.issueSessionTx(ctx, tx, user, in.IsMobile)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Refresh exchanges a refresh token for a new session. The old session row
// is consumed in the same transaction that creates the new one, so each
// refresh token works exactly once.
func (a *Auther) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	row, err := a.repo.Tokens().GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrTokenNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up refresh token")
	}

	if !row.IsUsable(a.now()) {
		return nil, ErrTokenExpired
	}

	user, err := a.repo.Users().GetByID(ctx, row.UserID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session user")
	}

	if !user.Active {
		return nil, ErrAccountLocked
	}

	var result *LoginResult
	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := a.repo.Tokens().UpdateTx(ctx, tx, row.Consume()); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to consume refresh token")
		}

		result, err = a.issueSessionTx(ctx, tx, user, row.IsMobile)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Logout revokes the session row behind a bearer token. The JWT itself
// remains signed and unexpired but will no longer validate.
func (a *Auther) Logout(ctx context.Context, raw string) error {
	row, err := a.repo.Tokens().GetByToken(ctx, raw)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrTokenNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to look up session token")
	}

	if _, err := a.repo.Tokens().Update(ctx, row.Consume()); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session token")
	}

	return nil
}

// UserFromToken decodes a bearer token and loads the user it identifies.
// Current tokens carry a numeric id; legacy tokens identify the user only
// by subject, which may hold a phone number or an email address.
func (a *Auther) UserFromToken(ctx context.Context, raw string) (*User, error) {
	claims, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	if id, ok := claims.SubjectUserID(); ok {
		user, err := a.repo.Users().GetByID(ctx, id)
		if err != nil {
			if IsRecordNotFound(err) {
				return nil, ErrUserNotFound
			}
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
		}
		return user, nil
	}

	return a.userFromLegacySubject(ctx, claims.StringSubject())
}

// userFromLegacySubject resolves pre-migration tokens whose subject is a
// phone number or email. Phone is tried first, matching how those tokens
// were originally minted.
func (a *Auther) userFromLegacySubject(ctx context.Context, subject string) (*User, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ErrUserNotFound
	}

	user, err := a.repo.Users().GetMostRecentByPhoneNumber(ctx, subject)
	if err != nil && !IsRecordNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user by phone")
	}

	if user == nil && isEmailAddress(subject) {
		user, err = a.repo.Users().GetMostRecentByEmail(ctx, subject)
		if err != nil && !IsRecordNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user by email")
		}
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

func (a *Auther) issueSessionTx(ctx context.Context, tx bun.IDB, user *User, isMobile bool) (*LoginResult, error) {
	signed, err := a.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	row := &Token{
		Token:          signed,
		TokenType:      TokenTypeSession,
		UserID:         user.ID,
		ExpirationDate: a.now().Add(a.cfg.GetRefreshTokenExpiration()),
		IsMobile:       isMobile,
		RefreshToken:   uuid.NewString(),
	}

	if _, err := a.repo.Tokens().CreateTx(ctx, tx, row); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to record session token")
	}

	return &LoginResult{
		Token:        signed,
		RefreshToken: row.RefreshToken,
		User:         user,
	}, nil
}

func isEmailAddress(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

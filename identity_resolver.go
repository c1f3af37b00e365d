package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// LoginInput is a password-based login attempt. Either PhoneNumber or Email
// identifies the account; phone takes priority when both are present.
type LoginInput struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	IsMobile    bool   `json:"is_mobile"`
}

// SocialLoginInput is a provider-validated login attempt. Exactly one of the
// provider ids must be set; email, name and image are optional profile data
// reported by the provider.
type SocialLoginInput struct {
	GoogleAccountID   string `json:"google_account_id"`
	FacebookAccountID string `json:"facebook_account_id"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	ProfileImage      string `json:"profile_image"`
	IsMobile          bool   `json:"is_mobile"`
}

func (in SocialLoginInput) provider() (SocialProvider, string, bool) {
	if SocialIDLinked(in.GoogleAccountID) {
		return ProviderGoogle, strings.TrimSpace(in.GoogleAccountID), true
	}
	if SocialIDLinked(in.FacebookAccountID) {
		return ProviderFacebook, strings.TrimSpace(in.FacebookAccountID), true
	}
	return "", "", false
}

// IdentityResolver maps a login attempt to exactly one canonical user
// record, merging social identities into existing password accounts when
// they first appear for a known email.
type IdentityResolver struct {
	repo   RepositoryManager
	logger Logger
}

// NewIdentityResolver creates a resolver backed by the given repositories.
func NewIdentityResolver(repo RepositoryManager) *IdentityResolver {
	return &IdentityResolver{
		repo:   repo,
		logger: defLogger{},
	}
}

func (r *IdentityResolver) WithLogger(logger Logger) *IdentityResolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// ResolvePassword finds and authenticates the account for a password login.
// Lookup misses and password mismatches both fail with the same generic
// error so callers cannot tell which factor was wrong.
func (r *IdentityResolver) ResolvePassword(ctx context.Context, in LoginInput) (*User, error) {
	var user *User
	var err error

	if strings.TrimSpace(in.PhoneNumber) != "" {
		user, err = r.repo.Users().GetByPhoneNumber(ctx, in.PhoneNumber)
		if err != nil && !IsRecordNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user by phone")
		}
	}

	if user == nil && strings.TrimSpace(in.Email) != "" {
		user, err = r.repo.Users().GetByEmail(ctx, in.Email)
		if err != nil && !IsRecordNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user by email")
		}
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Accounts with a real provider link may carry an empty password hash;
	// the provider already vouched for them. The "0" sentinel does not count
	// as a link.
	if !user.HasSocialAccount() {
		if err := ComparePasswordAndHash(in.Password, user.PasswordHash); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	if !user.Active {
		return nil, ErrAccountLocked
	}

	return user, nil
}

// ResolveSocialTx resolves a social login inside the caller's transaction.
// Order matters: provider id first, then merge into an existing account by
// email, then create. The returned flag reports whether a record was created.
func (r *IdentityResolver) ResolveSocialTx(ctx context.Context, tx bun.IDB, in SocialLoginInput) (*User, bool, error) {
	provider, providerID, ok := in.provider()
	if !ok {
		return nil, false, ValidationError("invalid social account information")
	}

	user, err := r.repo.Users().GetByProviderIDTx(ctx, tx, provider, providerID)
	if err != nil && !IsRecordNotFound(err) {
		return nil, false, errors.Wrap(err, errors.CategoryInternal, "failed to look up user by provider id")
	}

	if user != nil {
		return user, false, nil
	}

	if email := strings.TrimSpace(in.Email); email != "" {
		user, err = r.repo.Users().GetMostRecentByEmailTx(ctx, tx, email)
		if err != nil && !IsRecordNotFound(err) {
			return nil, false, errors.Wrap(err, errors.CategoryInternal, "failed to look up user by email")
		}

		if user != nil {
			merged, err := r.mergeTx(ctx, tx, user, provider, providerID, in)
			if err != nil {
				return nil, false, err
			}
			return merged, false, nil
		}
	}

	created, err := r.createFromSocialTx(ctx, tx, provider, providerID, in)
	if err != nil {
		return nil, false, err
	}

	return created, true, nil
}

// mergeTx attaches the provider id to an account discovered by email. The
// provider verified the address, so the account is activated even if email
// verification never completed.
func (r *IdentityResolver) mergeTx(ctx context.Context, tx bun.IDB, user *User, provider SocialProvider, providerID string, in SocialLoginInput) (*User, error) {
	switch provider {
	case ProviderGoogle:
		user.GoogleAccountID = providerID
	case ProviderFacebook:
		user.FacebookAccountID = providerID
	}

	if strings.TrimSpace(user.ProfileImage) == "" {
		user.ProfileImage = in.ProfileImage
	}

	user.Active = true

	updated, err := r.repo.Users().UpdateTx(ctx, tx, user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to link social account")
	}

	r.logger.Info("linked %s account to user %d", string(provider), user.ID)

	return updated, nil
}

func (r *IdentityResolver) createFromSocialTx(ctx context.Context, tx bun.IDB, provider SocialProvider, providerID string, in SocialLoginInput) (*User, error) {
	role, err := r.repo.Roles().GetByNameTx(ctx, tx, RoleUser)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrRoleNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve default role")
	}

	user := &User{
		FullName:     in.FullName,
		Email:        strings.TrimSpace(in.Email),
		ProfileImage: in.ProfileImage,
		PasswordHash: "",
		Active:       true,
		RoleID:       role.ID,
		Role:         role,
	}

	switch provider {
	case ProviderGoogle:
		user.GoogleAccountID = providerID
	case ProviderFacebook:
		user.FacebookAccountID = providerID
	}

	created, err := r.repo.Users().CreateTx(ctx, tx, user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user from social profile")
	}

	return created, nil
}

package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type AdminResetPasswordMessage struct {
	UserID         int64  `json:"user_id"`
	Password       string `json:"password"`
	RetypePassword string `json:"retype_password"`

	OnResponse func(*User) `json:"-"`
}

func (e AdminResetPasswordMessage) Type() string { return "admin.user.reset_password" }

// AdminResetPasswordHandler replaces a user's password on behalf of an
// operator and deletes every token row the user holds, sessions included,
// so nothing issued before the reset keeps working.
type AdminResetPasswordHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewAdminResetPasswordHandler(repo RepositoryManager) *AdminResetPasswordHandler {
	return &AdminResetPasswordHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *AdminResetPasswordHandler) WithLogger(logger Logger) *AdminResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *AdminResetPasswordHandler) Execute(ctx context.Context, event AdminResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during admin password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AdminResetPasswordHandler) execute(ctx context.Context, event AdminResetPasswordMessage) error {
	if err := ValidateNewPassword(event.Password, event.RetypePassword); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByIDTx(ctx, tx, event.UserID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		if user, err = h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		if err := h.repo.Tokens().DeleteByUserTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user tokens")
		}

		h.logger.Info("admin reset password for user %d", user.ID)
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "admin password reset transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

type SetUserActiveMessage struct {
	UserID int64 `json:"user_id"`
	Active bool  `json:"active"`

	OnResponse func(*User) `json:"-"`
}

func (e SetUserActiveMessage) Type() string { return "admin.user.set_active" }

// SetUserActiveHandler blocks or re-enables an account. Existing session
// rows are left alone; validation rejects tokens of inactive users at use.
type SetUserActiveHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewSetUserActiveHandler(repo RepositoryManager) *SetUserActiveHandler {
	return &SetUserActiveHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *SetUserActiveHandler) WithLogger(logger Logger) *SetUserActiveHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SetUserActiveHandler) Execute(ctx context.Context, event SetUserActiveMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled while setting account state",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SetUserActiveHandler) execute(ctx context.Context, event SetUserActiveMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByIDTx(ctx, tx, event.UserID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
		}

		user.Active = event.Active
		if user, err = h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account state")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account state transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

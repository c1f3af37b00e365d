package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token string `json:"token"`

	OnResponse func(*User) `json:"-"`
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

// VerifyEmailHandler activates the account behind a verification token.
// Tokens are single use: the row is deleted on success, and an expired row
// is deleted on sight so it cannot be retried.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) WithClock(now func() time.Time) *VerifyEmailHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	var expired bool

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := h.repo.Tokens().GetByTokenAndTypeTx(ctx, tx, event.Token, TokenTypeVerification)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrTokenNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
		}

		// The expired-row delete must commit, so it cannot share its fate
		// with the error return. The failure surfaces after the transaction.
		if !row.ExpirationDate.After(h.now()) {
			expired = true
			if err := h.repo.Tokens().DeleteTx(ctx, tx, row); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete expired token")
			}
			return nil
		}

		user, err = h.repo.Users().GetByIDTx(ctx, tx, row.UserID)
		if err != nil {
			if IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
		}

		user.Active = true
		if user, err = h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user")
		}

		if err := h.repo.Tokens().DeleteTx(ctx, tx, row); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	if expired {
		return ErrTokenExpired
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

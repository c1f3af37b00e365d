package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type UpdateUserMessage struct {
	UserID          int64      `json:"user_id"`
	FullName        string     `json:"full_name"`
	PhoneNumber     string     `json:"phone_number"`
	Address         string     `json:"address"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	ProfileImage    string     `json:"profile_image"`
	CurrentPassword string     `json:"current_password"`
	Password        string     `json:"password"`
	RetypePassword  string     `json:"retype_password"`

	OnResponse func(*User) `json:"-"`
}

func (e UpdateUserMessage) Type() string { return "user.update" }

// UpdateUserHandler applies a partial profile update. Blank fields are left
// untouched; a password change additionally requires the current password.
type UpdateUserHandler struct {
	repo        RepositoryManager
	logger      Logger
	phoneRegion string
}

func NewUpdateUserHandler(repo RepositoryManager) *UpdateUserHandler {
	return &UpdateUserHandler{
		repo:        repo,
		logger:      defLogger{},
		phoneRegion: "US",
	}
}

func (h *UpdateUserHandler) WithLogger(logger Logger) *UpdateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateUserHandler) WithPhoneRegion(region string) *UpdateUserHandler {
	if region != "" {
		h.phoneRegion = region
	}
	return h
}

func (e UpdateUserMessage) wantsPasswordChange() bool {
	return e.Password != "" || e.RetypePassword != ""
}

func (h *UpdateUserHandler) Execute(ctx context.Context, event UpdateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateUserHandler) execute(ctx context.Context, event UpdateUserMessage) error {
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

		if err := h.applyProfile(ctx, tx, user, event); err != nil {
			return err
		}

		if event.wantsPasswordChange() {
			if err := h.applyPassword(user, event); err != nil {
				return err
			}
		}

		if user, err = h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicatePhone
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *UpdateUserHandler) applyProfile(ctx context.Context, tx bun.IDB, user *User, event UpdateUserMessage) error {
	if strings.TrimSpace(event.FullName) != "" {
		user.FullName = event.FullName
	}

	if strings.TrimSpace(event.Address) != "" {
		user.Address = event.Address
	}

	if event.DateOfBirth != nil {
		user.DateOfBirth = event.DateOfBirth
	}

	if strings.TrimSpace(event.ProfileImage) != "" {
		user.ProfileImage = event.ProfileImage
	}

	if strings.TrimSpace(event.PhoneNumber) == "" {
		return nil
	}

	phone, err := NormalizePhoneNumber(event.PhoneNumber, h.phoneRegion)
	if err != nil {
		return err
	}

	if phone == user.PhoneNumber {
		return nil
	}

	owner, err := h.repo.Users().GetByPhoneNumberTx(ctx, tx, phone)
	if err != nil && !IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check phone number")
	}

	if owner != nil && owner.ID != user.ID {
		return ErrDuplicatePhone
	}

	user.PhoneNumber = phone
	return nil
}

func (h *UpdateUserHandler) applyPassword(user *User, event UpdateUserMessage) error {
	if event.CurrentPassword == "" {
		return ValidationError("current password is required to change password")
	}

	if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
		return ValidationError("current password is incorrect")
	}

	if err := ValidateNewPassword(event.Password, event.RetypePassword); err != nil {
		return err
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user.PasswordHash = hash
	return nil
}

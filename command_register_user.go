package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FullName          string     `json:"full_name"`
	PhoneNumber       string     `json:"phone_number"`
	Email             string     `json:"email"`
	Password          string     `json:"password"`
	RetypePassword    string     `json:"retype_password"`
	Address           string     `json:"address"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	FacebookAccountID string     `json:"facebook_account_id"`
	GoogleAccountID   string     `json:"google_account_id"`
	ProfileImage      string     `json:"profile_image"`
	RoleID            int64      `json:"role_id"`

	OnResponse func(*User) `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// social registrations arrive with a provider id and no password
func (e RegisterUserMessage) isSocial() bool {
	return SocialIDLinked(e.GoogleAccountID) || SocialIDLinked(e.FacebookAccountID)
}

func (e RegisterUserMessage) Validate() error {
	if err := validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	); err != nil {
		return ValidationError(err.Error())
	}

	if !e.isSocial() {
		if err := ValidateNewPassword(e.Password, e.RetypePassword); err != nil {
			return err
		}
	}

	return nil
}

// RegisterUserHandler creates a new inactive account and mails it a
// verification link. Social registrations skip the password and start
// active credentials-wise but still verify by email.
type RegisterUserHandler struct {
	repo        RepositoryManager
	mailer      Mailer
	logger      Logger
	phoneRegion string
	now         func() time.Time
}

func NewRegisterUserHandler(repo RepositoryManager, mailer Mailer) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:        repo,
		mailer:      mailer,
		logger:      defLogger{},
		phoneRegion: "US",
		now:         time.Now,
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) WithPhoneRegion(region string) *RegisterUserHandler {
	if region != "" {
		h.phoneRegion = region
	}
	return h
}

func (h *RegisterUserHandler) WithClock(now func() time.Time) *RegisterUserHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	phone, err := NormalizePhoneNumber(event.PhoneNumber, h.phoneRegion)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if exists, err := h.repo.Users().ExistsByEmail(ctx, event.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
	} else if exists {
		return ErrDuplicateEmail
	}

	if phone != "" {
		if exists, err := h.repo.Users().ExistsByPhoneNumber(ctx, phone); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check phone number")
		} else if exists {
			return ErrDuplicatePhone
		}
	}

	role, err := h.repo.Roles().GetByID(ctx, event.RoleID)
	if err != nil {
		if IsRecordNotFound(err) {
			return ErrRoleNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve role")
	}

	// Admin accounts are provisioned out of band, never self-registered.
	if NormalizeRole(role.Name) == RoleAdmin {
		return ErrPermissionDenied
	}

	user := &User{
		FullName:          event.FullName,
		PhoneNumber:       phone,
		Email:             event.Email,
		Address:           event.Address,
		DateOfBirth:       event.DateOfBirth,
		FacebookAccountID: event.FacebookAccountID,
		GoogleAccountID:   event.GoogleAccountID,
		ProfileImage:      event.ProfileImage,
		Active:            false,
		RoleID:            role.ID,
		Role:              role,
	}

	verification := uuid.NewString()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if !event.isSocial() {
			hash, err := HashPassword(event.Password)
			if err != nil {
				var richErr *goerrors.Error
				if goerrors.As(err, &richErr) {
					return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}
			user.PasswordHash = hash
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if IsUniqueViolation(err) {
				if strings.Contains(strings.ToLower(err.Error()), "phone") {
					return ErrDuplicatePhone
				}
				return ErrDuplicateEmail
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		token := &Token{
			Token:          verification,
			TokenType:      TokenTypeVerification,
			UserID:         user.ID,
			ExpirationDate: h.now().Add(VerificationTokenTTL),
		}

		if _, err = h.repo.Tokens().CreateTx(ctx, tx, token); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	// Token row is committed before the send, so a delivery failure leaves
	// a resendable registration rather than rolling it back.
	if err := h.mailer.SendVerification(ctx, user.Email, verification); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification email")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

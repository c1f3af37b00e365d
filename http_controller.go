package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes names the paths the controller mounts. Defaults
// match DefaultBypassRoutes, change both together.
type AuthControllerRoutes struct {
	Login         string
	SocialLogin   string
	Refresh       string
	Logout        string
	Register      string
	VerifyEmail   string
	PasswordReset string
	Profile       string
	AdminUsers    string
}

// AuthController serves the JSON endpoints for login, registration, and
// account management. Admin routes check the caller's role on top of the
// session the middleware already validated.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *Auther
	Mailer       Mailer
	ContextKey   string
	PhoneRegion  string
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler

	register      *RegisterUserHandler
	verify        *VerifyEmailHandler
	resetInit     *InitializePasswordResetHandler
	resetFinalize *FinalizePasswordResetHandler
	update        *UpdateUserHandler
	adminReset    *AdminResetPasswordHandler
	setActive     *SetUserActiveHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerPhoneRegion(region string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if region != "" {
			c.PhoneRegion = region
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:      defLogger{},
		ContextKey:  "user",
		PhoneRegion: "US",
		Routes: &AuthControllerRoutes{
			Login:         "/auth/login",
			SocialLogin:   "/auth/login/social",
			Refresh:       "/auth/refresh",
			Logout:        "/auth/logout",
			Register:      "/users",
			VerifyEmail:   "/users/verify-email",
			PasswordReset: "/users/password-reset",
			Profile:       "/users/me",
			AdminUsers:    "/admin/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Mailer == nil {
		c.Mailer = LogMailer{Logger: c.Logger}
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.respondError
	}

	c.register = NewRegisterUserHandler(c.Repo, c.Mailer).WithLogger(c.Logger).WithPhoneRegion(c.PhoneRegion)
	c.verify = NewVerifyEmailHandler(c.Repo).WithLogger(c.Logger)
	c.resetInit = NewInitializePasswordResetHandler(c.Repo, c.Mailer).WithLogger(c.Logger)
	c.resetFinalize = NewFinalizePasswordResetHandler(c.Repo).WithLogger(c.Logger)
	c.update = NewUpdateUserHandler(c.Repo).WithLogger(c.Logger).WithPhoneRegion(c.PhoneRegion)
	c.adminReset = NewAdminResetPasswordHandler(c.Repo).WithLogger(c.Logger)
	c.setActive = NewSetUserActiveHandler(c.Repo).WithLogger(c.Logger)

	return c
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.Login).SetName("auth.login")
	app.Post(controller.Routes.SocialLogin, controller.SocialLogin).SetName("auth.login.social")
	app.Post(controller.Routes.Refresh, controller.Refresh).SetName("auth.refresh")
	app.Post(controller.Routes.Logout, controller.Logout).SetName("auth.logout")

	app.Post(controller.Routes.Register, controller.Register).SetName("users.register")
	app.Get(controller.Routes.VerifyEmail, controller.VerifyEmail).SetName("users.verify-email")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetInitialize).SetName("users.pwd-reset.init")
	app.Post(controller.Routes.PasswordReset+"/finalize", controller.PasswordResetFinalize).SetName("users.pwd-reset.finalize")
	app.Put(controller.Routes.Profile, controller.UpdateProfile).SetName("users.profile.update")

	app.Get(controller.Routes.AdminUsers, controller.SearchUsers).SetName("admin.users.search")
	app.Post(controller.Routes.AdminUsers+"/:id/reset-password", controller.AdminResetPassword).SetName("admin.users.reset-password")
	app.Post(controller.Routes.AdminUsers+"/:id/active", controller.SetUserActive).SetName("admin.users.set-active")
}

// LoginRequest payload
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	IsMobile    bool   `json:"is_mobile"`
}

func (r LoginRequest) Validate() error {
	if r.PhoneNumber == "" && r.Email == "" {
		return ValidationError("phone number or email is required")
	}
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
	); err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := LoginRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Auther.Login(ctx.Context(), LoginInput{
		PhoneNumber: payload.PhoneNumber,
		Email:       payload.Email,
		Password:    payload.Password,
		IsMobile:    payload.IsMobile,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// SocialLoginRequest payload
type SocialLoginRequest struct {
	GoogleAccountID   string `json:"google_account_id"`
	FacebookAccountID string `json:"facebook_account_id"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	ProfileImage      string `json:"profile_image"`
	IsMobile          bool   `json:"is_mobile"`
}

func (r SocialLoginRequest) Validate() error {
	if !SocialIDLinked(r.GoogleAccountID) && !SocialIDLinked(r.FacebookAccountID) {
		return ValidationError("a social account id is required")
	}
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	); err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func (a *AuthController) SocialLogin(ctx router.Context) error {
	payload := SocialLoginRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Auther.LoginSocial(ctx.Context(), SocialLoginInput{
		GoogleAccountID:   payload.GoogleAccountID,
		FacebookAccountID: payload.FacebookAccountID,
		Email:             payload.Email,
		FullName:          payload.FullName,
		ProfileImage:      payload.ProfileImage,
		IsMobile:          payload.IsMobile,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	); err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func (a *AuthController) Refresh(ctx router.Context) error {
	payload := RefreshRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	result, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (a *AuthController) Logout(ctx router.Context) error {
	raw, err := bearerToken(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Auther.Logout(ctx.Context(), raw); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "logged out"})
}

func (a *AuthController) Register(ctx router.Context) error {
	msg := RegisterUserMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	var created *User
	msg.OnResponse = func(u *User) { created = u }

	if err := a.register.Execute(ctx.Context(), msg); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, created)
}

func (a *AuthController) VerifyEmail(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return a.ErrorHandler(ctx, ValidationError("token is required"))
	}

	if err := a.verify.Execute(ctx.Context(), VerifyEmailMessage{Token: token}); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "email verified"})
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

func (r PasswordResetRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	); err != nil {
		return ValidationError(err.Error())
	}
	return nil
}

func (a *AuthController) PasswordResetInitialize(ctx router.Context) error {
	payload := PasswordResetRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	err := a.resetInit.Execute(ctx.Context(), InitializePasswordResetMessage{Email: payload.Email})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "reset email sent"})
}

func (a *AuthController) PasswordResetFinalize(ctx router.Context) error {
	msg := FinalizePasswordResetMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	if err := a.resetFinalize.Execute(ctx.Context(), msg); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "password updated"})
}

func (a *AuthController) UpdateProfile(ctx router.Context) error {
	user, ok := GetRouterUser(ctx, a.ContextKey)
	if !ok {
		return a.ErrorHandler(ctx, ErrUserNotFound)
	}

	msg := UpdateUserMessage{}
	if err := ctx.Bind(&msg); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}
	msg.UserID = user.ID

	var updated *User
	msg.OnResponse = func(u *User) { updated = u }

	if err := a.update.Execute(ctx.Context(), msg); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated)
}

func (a *AuthController) SearchUsers(ctx router.Context) error {
	if !IsAdminFromRouter(ctx, a.ContextKey) {
		return a.ErrorHandler(ctx, ErrPermissionDenied)
	}

	keyword := ctx.Query("keyword", "")
	page := ctx.QueryInt("page", 0)
	perPage := ctx.QueryInt("per_page", 20)

	users, total, err := a.Repo.Users().Search(ctx.Context(), keyword, page, perPage)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"items": users,
		"total": total,
	})
}

type AdminResetPasswordRequest struct {
	Password       string `json:"password"`
	RetypePassword string `json:"retype_password"`
}

func (a *AuthController) AdminResetPassword(ctx router.Context) error {
	if !IsAdminFromRouter(ctx, a.ContextKey) {
		return a.ErrorHandler(ctx, ErrPermissionDenied)
	}

	id := ctx.ParamsInt("id", 0)
	if id <= 0 {
		return a.ErrorHandler(ctx, ValidationError("invalid user id"))
	}

	payload := AdminResetPasswordRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	msg := AdminResetPasswordMessage{
		UserID:         int64(id),
		Password:       payload.Password,
		RetypePassword: payload.RetypePassword,
	}

	if err := a.adminReset.Execute(ctx.Context(), msg); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "password reset"})
}

type SetUserActiveRequest struct {
	Active bool `json:"active"`
}

func (a *AuthController) SetUserActive(ctx router.Context) error {
	if !IsAdminFromRouter(ctx, a.ContextKey) {
		return a.ErrorHandler(ctx, ErrPermissionDenied)
	}

	id := ctx.ParamsInt("id", 0)
	if id <= 0 {
		return a.ErrorHandler(ctx, ValidationError("invalid user id"))
	}

	payload := SetUserActiveRequest{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, ErrUnableToParseBody)
	}

	msg := SetUserActiveMessage{UserID: int64(id), Active: payload.Active}

	if err := a.setActive.Execute(ctx.Context(), msg); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"message": "account updated"})
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "unexpected error").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = router.StatusInternalServerError
	}

	if a.Debug {
		a.Logger.Error("%s %s failed: %s", ctx.Method(), ctx.Path(), richErr.Message)
	}

	return ctx.JSON(status, map[string]any{
		"message": richErr.Message,
		"status":  status,
	})
}

func bearerToken(ctx router.Context) (string, error) {
	header := ctx.GetString(router.HeaderAuthorization, "")
	const scheme = "Bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", ErrTokenNotFound
	}
	return strings.TrimSpace(header[len(scheme):]), nil
}

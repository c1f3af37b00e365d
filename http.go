package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/trendora/go-auth/middleware/jwtware"
)

// RouteAuthenticator wires the Auther into HTTP middleware. Every rejected
// request gets the same JSON body so clients have one shape to parse.
type RouteAuthenticator struct {
	auth         *Auther
	cfg          Config
	bypass       []jwtware.RoutePattern
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewHTTPAuthenticator creates the HTTP layer over an Auther. Bypass routes
// default to DefaultBypassRoutes("/api/v1").
func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput)
	}

	a := &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		bypass: DefaultBypassRoutes("/api/v1"),
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a *RouteAuthenticator) WithBypassRoutes(routes []jwtware.RoutePattern) *RouteAuthenticator {
	a.bypass = routes
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// Middleware returns the authentication middleware for the whole API
// surface. Routes on the bypass list pass through without a token.
func (a *RouteAuthenticator) Middleware() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		Bypass:       a.bypass,
		ErrorHandler: a.ErrorHandler,
		AuthScheme:   a.cfg.GetAuthScheme(),
		ContextKey:   a.cfg.GetContextKey(),
		TokenLookup:  a.cfg.GetTokenLookup(),
		Resolver:     bearerResolver{auth: a.auth},
	})
}

// CurrentUser returns the user attached to the request, if any.
func (a *RouteAuthenticator) CurrentUser(c router.Context) (*User, bool) {
	user, ok := c.Locals(a.cfg.GetContextKey()).(*User)
	return user, ok
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"rejected %s %s: %s %s",
		c.Method(),
		c.Path(),
		richErr.Message,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(router.StatusUnauthorized, map[string]any{
		"message": richErr.Message,
		"status":  router.StatusUnauthorized,
	})
}

// DefaultBypassRoutes lists the endpoints that must work without a session:
// login, registration, email verification, password reset, and the API docs.
func DefaultBypassRoutes(prefix string) []jwtware.RoutePattern {
	return []jwtware.RoutePattern{
		{Method: "POST", Path: prefix + "/auth/login"},
		{Method: "POST", Path: prefix + "/auth/login/social"},
		{Method: "POST", Path: prefix + "/auth/refresh"},
		{Method: "POST", Path: prefix + "/users"},
		{Method: "GET", Path: prefix + "/users/verify-email"},
		{Method: "POST", Path: prefix + "/users/password-reset"},
		{Method: "POST", Path: prefix + "/users/password-reset/**"},
		{Method: "*", Path: "/swagger/**"},
		{Method: "*", Path: "/docs/**"},
	}
}

// bearerResolver adapts the Auther to the middleware's resolver interface.
type bearerResolver struct {
	auth *Auther
}

func (r bearerResolver) UserFromBearer(ctx context.Context, token string) (jwtware.AuthUser, error) {
	user, err := r.auth.UserFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r bearerResolver) ValidateBearerForUser(ctx context.Context, token string, user jwtware.AuthUser) error {
	u, ok := user.(*User)
	if !ok {
		return ErrUserNotFound
	}
	return r.auth.ValidateForUser(ctx, token, u)
}

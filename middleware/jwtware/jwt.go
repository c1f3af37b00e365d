package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// AuthUser is whatever the resolver considers a user record. The middleware
// never inspects it, only attaches it to the request context.
type AuthUser = any

// UserResolver maps bearer tokens to users and validates them without
// importing the auth package, which would create a cycle.
type UserResolver interface {
	UserFromBearer(ctx context.Context, token string) (AuthUser, error)
	ValidateBearerForUser(ctx context.Context, token string, user AuthUser) error
}

// RoutePattern names a route the middleware lets through unauthenticated.
// Method "*" matches every verb. A path ending in "**" matches the prefix
// before the wildcard; any other path must match exactly.
type RoutePattern struct {
	Method string
	Path   string
}

func (p RoutePattern) Matches(method, path string) bool {
	if p.Method != "*" && !strings.EqualFold(p.Method, method) {
		return false
	}

	if prefix, ok := strings.CutSuffix(p.Path, "**"); ok {
		return strings.HasPrefix(path, prefix)
	}

	return p.Path == path
}

type Config struct {
	// Filter skips the middleware entirely when it returns true.
	Filter func(router.Context) bool
	// Bypass routes are served without requiring a token.
	Bypass         []RoutePattern
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	Resolver       UserResolver
}

// New builds the authentication middleware. Requests on bypass routes pass
// through untouched; everything else must present a bearer token that
// resolves to a user and validates for that user.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			if cfg.bypassed(ctx.Method(), ctx.Path()) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			user, err := cfg.Resolver.UserFromBearer(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			// A user attached by an earlier middleware wins; re-attaching
			// here could swap identities mid-request.
			if ctx.Locals(cfg.ContextKey) != nil {
				return cfg.SuccessHandler(ctx)
			}

			// A token that resolves but fails validation leaves the request
			// unauthenticated rather than rejected; downstream authorization
			// decides whether an anonymous request is acceptable.
			if err := cfg.Resolver.ValidateBearerForUser(ctx.Context(), raw, user); err != nil {
				return cfg.SuccessHandler(ctx)
			}

			ctx.Locals(cfg.ContextKey, user)

			return cfg.SuccessHandler(ctx)
		}
	}
}

func (cfg *Config) bypassed(method, path string) bool {
	for _, pattern := range cfg.Bypass {
		if pattern.Matches(method, path) {
			return true
		}
	}
	return false
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.JSON(router.StatusUnauthorized, map[string]any{
				"message": err.Error(),
				"status":  router.StatusUnauthorized,
			})
		}
	}

	if cfg.Resolver == nil {
		panic("AUTH: JWT middleware configuration: Resolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		authScheme = strings.TrimSpace(authScheme)
		l := len(authScheme)
		if l == 0 {
			return "", ErrJWTMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig satisfies Config from environment variables. Durations use Go
// syntax, e.g. JWT_EXPIRATION=720h.
type EnvConfig struct {
	SigningKey             string        `env:"JWT_SECRET_KEY"`
	TokenExpiration        time.Duration `env:"JWT_EXPIRATION" envDefault:"720h"`
	RefreshTokenExpiration time.Duration `env:"JWT_REFRESH_EXPIRATION" envDefault:"1440h"`
	TokenLookup            string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme             string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	ContextKey             string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	FrontendURL            string        `env:"APP_FRONTEND_URL" envDefault:"http://localhost:4200"`
	PhoneRegion            string        `env:"AUTH_PHONE_REGION" envDefault:"US"`

	SMTP SMTPConfig `envPrefix:"SMTP_"`
}

// SMTPConfig configures the outgoing mail server.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// LoadConfig reads configuration from the environment. The signing key is
// the only hard requirement.
func LoadConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to parse auth configuration")
	}

	if cfg.SigningKey == "" {
		return nil, errors.New("JWT_SECRET_KEY is required", errors.CategoryOperation)
	}

	return &cfg, nil
}

func (c *EnvConfig) GetSigningKey() string                    { return c.SigningKey }
func (c *EnvConfig) GetTokenExpiration() time.Duration        { return c.TokenExpiration }
func (c *EnvConfig) GetRefreshTokenExpiration() time.Duration { return c.RefreshTokenExpiration }
func (c *EnvConfig) GetTokenLookup() string                   { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string                    { return c.AuthScheme }
func (c *EnvConfig) GetContextKey() string                    { return c.ContextKey }
func (c *EnvConfig) GetFrontendURL() string                   { return c.FrontendURL }
func (c *EnvConfig) GetPhoneRegion() string                   { return c.PhoneRegion }

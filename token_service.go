package auth

import (
	"encoding/base64"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService issues and validates signed bearer tokens.
type TokenService interface {
	Generate(user *User) (string, error)
	Validate(tokenString string) (*SessionClaims, error)
	SubjectUserID(tokenString string) (int64, bool)
	IsExpired(tokenString string) bool
}

// TokenServiceImpl signs HS256 tokens with a key derived from a
// base64-encoded secret.
type TokenServiceImpl struct {
	secret          string
	tokenExpiration time.Duration
	logger          Logger
	now             func() time.Time
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(secret string, tokenExpiration time.Duration, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		secret:          secret,
		tokenExpiration: tokenExpiration,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock overrides the clock, useful for tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Generate creates a bearer token for the user. The subject is the numeric
// user id so sessions survive phone or email changes; phone and email ride
// along as informational claims.
func (ts *TokenServiceImpl) Generate(user *User) (string, error) {
	now := ts.now()

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.tokenExpiration)),
		},
		UserID:      user.ID,
		PhoneNumber: user.PhoneNumber,
		Email:       user.Email,
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary session claims using the configured secret.
func (ts *TokenServiceImpl) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	key, err := ts.signingKey()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, ErrSigningFailed.Category, ErrSigningFailed.Message).
			WithTextCode(ErrSigningFailed.TextCode)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning structured claims.
// Signature and structural checks happen before any claim is trusted.
func (ts *TokenServiceImpl) Validate(tokenString string) (*SessionClaims, error) {
	key, err := ts.signingKey()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, ErrTokenUnsupported
		}
		return key, nil
	}, jwt.WithTimeFunc(ts.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenUnverifiable), errors.Is(err, ErrTokenUnsupported):
			return nil, ErrTokenUnsupported
		default:
			return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode claims")
	return nil, ErrTokenMalformed
}

// SubjectUserID resolves the numeric user id from a token. ok is false when
// the token is a legacy one whose subject is a phone number or email, or
// when the token does not validate at all.
func (ts *TokenServiceImpl) SubjectUserID(tokenString string) (int64, bool) {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		return 0, false
	}
	return claims.SubjectUserID()
}

// IsExpired compares the claim expiry against the current time. Tokens that
// fail validation for structural reasons are reported as expired only when
// the expiry itself is the failure.
func (ts *TokenServiceImpl) IsExpired(tokenString string) bool {
	_, err := ts.Validate(tokenString)
	return errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, ErrTokenExpired)
}

func (ts *TokenServiceImpl) signingKey() ([]byte, error) {
	if ts.secret == "" {
		return nil, ErrSigningFailed
	}

	key, err := base64.StdEncoding.DecodeString(ts.secret)
	if err != nil {
		return nil, errors.Wrap(err, ErrSigningFailed.Category, "signing secret is not valid base64").
			WithTextCode(ErrSigningFailed.TextCode)
	}

	return key, nil
}

var _ TokenService = (*TokenServiceImpl)(nil)

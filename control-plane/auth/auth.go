// Package auth verifies tenant passwords at the HTTP boundary and issues
// the optional bearer tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("credentials not valid")
	ErrTokensDisabled     = errors.New("bearer tokens are disabled")
)

const tokenIssuer = "fedsdn"

// PasswordSource returns the stored password of a tenant.
type PasswordSource interface {
	Password(ctx context.Context, name string) (string, error)
}

// IsHash reports whether a stored password is a bcrypt hash.
func IsHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// VerifyPassword compares a presented password with the stored one, which
// may be plain text or a bcrypt hash.
func VerifyPassword(stored, given string) bool {
	if IsHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// HashPassword returns a bcrypt hash suitable for the root_password setting.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticator checks Basic credentials against the tenant registry and
// signs bearer tokens for authenticated tenants.
type Authenticator struct {
	passwords PasswordSource
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

// New creates an Authenticator. An empty secret disables bearer tokens.
func New(passwords PasswordSource, secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{
		passwords: passwords,
		secret:    []byte(secret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// TokensEnabled reports whether bearer tokens can be issued.
func (a *Authenticator) TokensEnabled() bool {
	return len(a.secret) > 0
}

// CheckPassword authenticates a tenant by name and password. Unknown
// tenants and wrong passwords are indistinguishable to the caller.
func (a *Authenticator) CheckPassword(ctx context.Context, name, password string) error {
	if name == "" {
		return ErrInvalidCredentials
	}
	stored, err := a.passwords.Password(ctx, name)
	if err != nil || !VerifyPassword(stored, password) {
		return ErrInvalidCredentials
	}
	return nil
}

// IssueToken signs a bearer token for name.
func (a *Authenticator) IssueToken(name string) (string, time.Time, error) {
	if !a.TokensEnabled() {
		return "", time.Time{}, ErrTokensDisabled
	}
	now := a.now()
	expires := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// VerifyToken returns the tenant name a valid token was issued for.
func (a *Authenticator) VerifyToken(raw string) (string, error) {
	if !a.TokensEnabled() {
		return "", ErrTokensDisabled
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidCredentials, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// Package security issues the HMAC service tokens that gate administrative
// endpoints.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultServiceTokenTTL = time.Hour

// ErrMissingSecret is returned when the issuer is constructed without a secret.
var ErrMissingSecret = errors.New("security: jwt secret is required")

// ServiceTokenIssuer mints short-lived HS256 bearer tokens for operators and
// internal services calling the administrative API.
type ServiceTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewServiceTokenIssuer constructs an issuer. TTL defaults to one hour.
func NewServiceTokenIssuer(secret, issuer string, ttl time.Duration) (*ServiceTokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = defaultServiceTokenTTL
	}

	return &ServiceTokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (i *ServiceTokenIssuer) WithClock(now func() time.Time) *ServiceTokenIssuer {
	if now != nil {
		i.now = now
	}
	return i
}

// Issue signs a token naming the subject, valid from now until now+TTL.
func (i *ServiceTokenIssuer) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("security: token subject is required")
	}

	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

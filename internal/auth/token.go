package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken means the Authorization header was absent, empty,
	// or not a bearer scheme.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken covers every way a presented token can be bad:
	// malformed, tampered signature, wrong algorithm, expired. Callers
	// must not distinguish further in anything client-visible.
	ErrInvalidToken = errors.New("token expired or invalid")
)

// Issuer mints and validates the short-lived capability tokens that guard
// the ingestion path. Tokens carry a fixed demo subject; they grant the
// write capability, they are not a user identity.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	subject string
	now     func() time.Time
}

// NewIssuer returns an issuer signing HS256 tokens with secret that expire
// ttl after issuance.
func NewIssuer(secret string, ttl time.Duration, subject string) *Issuer {
	return &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		subject: subject,
		now:     time.Now,
	}
}

type capabilityClaims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// Issue returns a fresh signed token.
func (i *Issuer) Issue() (string, error) {
	now := i.now()
	claims := capabilityClaims{
		User: i.subject,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate checks raw against the shared secret and the current time and
// returns the subject claim. Validation is a pure function of the token,
// the secret, and the clock.
func (i *Issuer) Validate(raw string) (string, error) {
	var claims capabilityClaims
	token, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.User, nil
}

// BearerToken extracts the token value from an Authorization header.
// Anything other than a non-empty "Bearer <value>" is ErrMissingToken.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrMissingToken
	}
	return value, nil
}

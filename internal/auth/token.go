// Package auth verifies the bearer tokens issued by the external account
// service. This service never mints user tokens; it only reads the role
// claim out of them.
package auth

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"component-catalog-service/internal/domain"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the token payload this service cares about. Anything else in the
// token is ignored.
type Claims struct {
	Role string `json:"role"`

	jwtlib.RegisteredClaims
}

// Verifier validates HMAC-signed bearer tokens and extracts the caller role.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a Verifier sharing the HS256 secret with the account
// service.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// RoleFor extracts the caller role from a bearer token. Any problem with the
// token degrades to anonymous rather than failing the request; browsing is
// open, the role only widens it.
func (v *Verifier) RoleFor(tokenString string) domain.Role {
	if tokenString == "" {
		return domain.RoleAnonymous
	}

	claims, err := v.Validate(tokenString)
	if err != nil {
		return domain.RoleAnonymous
	}

	return domain.ParseRole(claims.Role)
}

// Validate parses and verifies a token, returning its claims.
func (v *Verifier) Validate(tokenString string) (Claims, error) {
	if len(v.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}

	p := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(v.now),
	)

	var c Claims
	tok, err := p.ParseWithClaims(tokenString, &c, func(token *jwtlib.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}

	return c, nil
}

// Sign mints a token with the given role and lifetime. Production tokens come
// from the account service; this exists for tests and local development.
func (v *Verifier) Sign(subject, role string, ttl time.Duration) (string, error) {
	now := v.now().UTC()

	c := Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return t.SignedString(v.secret)
}

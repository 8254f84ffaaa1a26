// Package auth handles passwords, session tokens and the middleware that
// turns a session cookie into a user ID on the request context.
//
// SESSION FLOW:
//  1. POST /accounts/login with username + password
//  2. AccountService verifies the bcrypt hash (PasswordService)
//  3. The handler issues a signed JWT (TokenService) and stores it in the
//     HttpOnly "session" cookie (SetSessionCookie)
//  4. On every later request, Authenticate reads the cookie, validates the
//     JWT and puts the user ID on the context
//  5. Routes flagged Auth in the route table add RequireAuth, which sends
//     anonymous visitors to the login page
//
// WHY JWT IN A COOKIE?
// The token is stateless: no session table, no lookup per request. The
// signature guarantees the user ID in it wasn't tampered with. Keeping it in
// an HttpOnly cookie means page scripts can't read it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "inkwell"

	// DefaultSessionTTL is used when NewTokenService gets a zero TTL.
	DefaultSessionTTL = 24 * time.Hour
)

// TokenService mints and checks session tokens. The user ID rides in the
// "sub" claim and nothing else is stored in the token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService takes SESSION_SECRET and SESSION_TTL from config.
// config.Validate already demands 32+ characters in production; the 16
// character floor here catches tests and hand-built services.
//
//	SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens from Generate. The session cookie uses the
// same value for Max-Age so both expire together.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims only uses the registered fields: sub, iss, iat, exp.
type claims struct {
	jwt.RegisteredClaims
}

// Generate is called once per successful login.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration is Generate with an explicit lifetime. A negative d
// yields a token that is already expired.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session for %s: %w", userID, err)
	}
	return signed, nil
}

// Validate returns the user ID of a session cookie value. The token must
// be HS256, signed with our secret, issued by "inkwell", carry an expiry
// that hasn't passed, and name a subject. Any other "alg" is refused, which
// shuts out unsigned "none" tokens.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.New("auth: session expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	switch {
	case !ok || !token.Valid:
		return "", errors.New("auth: invalid token claims")
	case c.Subject == "":
		return "", errors.New("auth: session token has no user")
	}
	return c.Subject, nil
}

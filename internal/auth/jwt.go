// Package auth handles identity: the Kakao OAuth flow, signed session
// tokens, token revocation, and the middleware that resolves a request to
// a user.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /auth/kakao → redirected to Kakao's consent page
//  2. Kakao calls back /auth/kakao/callback with a code
//  3. Server exchanges the code for the Kakao profile, upserts the user
//  4. Server issues a JWT session token and stores it in an HttpOnly cookie
//  5. Protected routes read the cookie (or a Bearer header), validate the
//     JWT, check it wasn't revoked, and put the session in the context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<kakaoId>","jti":"<uuid>","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
//
// "jti" gives every token its own id so a single token can be revoked on
// logout without invalidating the user's other sessions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "challenge-tracker"

// DefaultTokenTTL is used when NewTokenService gets a non-positive ttl.
const DefaultTokenTTL = 24 * time.Hour

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// Session is what a valid token resolves to.
type Session struct {
	UserID    string    // Kakao id
	TokenID   string    // jti
	ExpiresAt time.Time // exp
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. The secret must be at least 16 characters.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid. The session cookie uses the
// same lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a new session token for userID using the service TTL.
func (s *TokenService) Generate(userID string) (string, *Session, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, *Session, error) {
	now := time.Now()
	session := &Session{
		UserID:    userID,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(d).Truncate(time.Second),
	}

	c := jwt.RegisteredClaims{
		ID:        session.TokenID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, session, nil
}

// Validate parses and verifies a JWT string.
//
// The library checks the signature, expiry and issuer. WithValidMethods
// pins HS256 so a token claiming "alg":"none" is rejected.
func (s *TokenService) Validate(tokenStr string) (*Session, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
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
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	if c.ID == "" {
		return nil, errors.New("auth: token has no id")
	}

	return &Session{
		UserID:    c.Subject,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

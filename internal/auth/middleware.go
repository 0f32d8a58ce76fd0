package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// CookieName is the HttpOnly cookie carrying the session token.
const CookieName = "token"

// contextKey is unexported so only this package can read or write the
// session stored in a request context.
type contextKey string

const sessionKey contextKey = "session"

var errNoToken = errors.New("auth: no token presented")

// Authenticator resolves a request to a Session: token lookup, JWT
// validation, then the revocation check.
type Authenticator struct {
	tokens  *TokenService
	revoked RevocationStore
	logger  *slog.Logger
}

func NewAuthenticator(tokens *TokenService, revoked RevocationStore, logger *slog.Logger) *Authenticator {
	if revoked == nil {
		revoked = NopRevocationStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, revoked: revoked, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid,
// unrevoked session token.
//
// MIDDLEWARE PATTERN:
//
//	func(next http.Handler) http.Handler
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","message":"로그인이 필요합니다."}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// OptionalAuth attaches the session when a valid token is present and
// lets the request through anonymously otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithSession(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate validates the token carried by r.
//
// A revocation store that can't be reached fails closed: the request is
// treated as unauthenticated rather than trusting a possibly revoked token.
func (a *Authenticator) Authenticate(r *http.Request) (*Session, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return nil, errNoToken
	}

	session, err := a.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := a.revoked.IsRevoked(r.Context(), session.TokenID)
	if err != nil {
		a.logger.Error("revocation check failed", "error", err)
		return nil, err
	}
	if revoked {
		return nil, errors.New("auth: token revoked")
	}

	return session, nil
}

// tokenFromRequest prefers the cookie the login flow sets, then falls back
// to "Authorization: Bearer <jwt>" for non-browser clients.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the session RequireAuth or OptionalAuth
// stored, or (nil, false) for an anonymous request.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}

// UserIDFromContext is a shorthand for the session's Kakao id.
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok || s.UserID == "" {
		return "", false
	}
	return s.UserID, true
}

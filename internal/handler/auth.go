package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/service"
)

const (
	stateCookieName = "oauth_state"

	loginFailedMessage = "카카오 로그인 중 오류가 발생했습니다."
)

// KakaoLogin is the part of *auth.KakaoProvider the handler needs.
// Tests substitute a fake so no request ever leaves the process.
type KakaoLogin interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.KakaoProfile, error)
}

var _ KakaoLogin = (*auth.KakaoProvider)(nil)

// AuthCookieConfig controls the session cookie the callback sets.
type AuthCookieConfig struct {
	FrontendURL string // base of the post-login redirect
	Secure      bool   // set on HTTPS deployments
}

// AuthHandler manages the Kakao OAuth login flow and session management.
//
// HANDLER RESPONSIBILITIES:
//   - HandleKakaoLogin    → redirect the browser to Kakao's consent page
//   - HandleKakaoCallback → receive the code, log the user in, set the cookie
//   - HandleUserDetails   → public profile of any user
//   - HandleMe            → profile of the logged-in user
//   - HandleLogout        → clear the cookie and revoke the token
type AuthHandler struct {
	kakao   KakaoLogin
	service *service.AuthService
	cookies AuthCookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(kakao KakaoLogin, svc *service.AuthService, cookies AuthCookieConfig, logger *slog.Logger) *AuthHandler {
	cookies.FrontendURL = strings.TrimRight(cookies.FrontendURL, "/")
	return &AuthHandler{
		kakao:   kakao,
		service: svc,
		cookies: cookies,
		logger:  logger,
	}
}

// HandleKakaoLogin redirects the user to Kakao's authorization page.
//
// HTTP: GET /auth/kakao
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived cookie and sent to Kakao.
// HandleKakaoCallback only accepts a callback that echoes the same value.
func (h *AuthHandler) HandleKakaoLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.kakao.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleKakaoCallback completes the OAuth login flow.
//
// HTTP: GET /auth/kakao/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Kakao profile
//  3. Upsert the user and issue a session token (AuthService)
//  4. Store the token in an HttpOnly cookie
//  5. Redirect to {FRONTEND_URL}/login/success?userId=<kakaoId>
func (h *AuthHandler) HandleKakaoCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", stateCookie.Value),
			slog.String("got", r.URL.Query().Get("state")),
		)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	// The user pressed "cancel" on the consent page.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		metrics.LoginsTotal.WithLabelValues("denied").Inc()
		http.Redirect(w, r, h.cookies.FrontendURL+"/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	// --- Steps 2 and 3 ---
	profile, err := h.kakao.Exchange(r.Context(), code)
	if err != nil {
		h.loginFailed(w, "Kakao exchange failed", err)
		return
	}

	result, err := h.service.LoginOrRegisterKakao(r.Context(), profile)
	if err != nil {
		h.loginFailed(w, "login failed", err)
		return
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	// --- Step 4: Session cookie ---
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		MaxAge:   int(time.Until(result.Session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	// --- Step 5: Back to the frontend ---
	target := h.cookies.FrontendURL + "/login/success?userId=" + url.QueryEscape(result.User.KakaoID)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, msg string, err error) {
	metrics.LoginsTotal.WithLabelValues("failure").Inc()
	h.logger.Error("auth callback: "+msg, slog.String("error", err.Error()))
	http.Error(w, loginFailedMessage, http.StatusInternalServerError)
}

// HandleUserDetails returns a user's public profile.
//
// HTTP: GET /auth/user-details/{kakaoId}
func (h *AuthHandler) HandleUserDetails(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserDetails(r.Context(), chi.URLParam(r, "kakaoId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth puts the session in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "로그인이 필요합니다.",
		})
		return
	}

	user, err := h.service.GetUserDetails(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie and revokes the token it carried.
//
// HTTP: POST /auth/logout
// Auth: Optional. Without a session there is nothing to revoke, but the
// cookie is still cleared.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if session, ok := auth.SessionFromContext(r.Context()); ok {
		if err := h.service.Logout(r.Context(), session); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "로그아웃되었습니다."})
}

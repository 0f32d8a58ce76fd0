package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/handler"
	"github.com/sakif/challenge-tracker/internal/model"
	sqliteRepo "github.com/sakif/challenge-tracker/internal/repository/sqlite"
	"github.com/sakif/challenge-tracker/internal/service"
)

// MockKakao stands in for the Kakao provider.
type MockKakao struct {
	CapturedState string
	CapturedCode  string
	ReturnProfile *auth.KakaoProfile
	ReturnErr     error
}

func (m *MockKakao) AuthURL(state string) string {
	m.CapturedState = state
	return "https://kauth.example/authorize?state=" + state
}

func (m *MockKakao) Exchange(_ context.Context, code string) (*auth.KakaoProfile, error) {
	m.CapturedCode = code
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnProfile, nil
}

// memoryRevocations records revoked token ids in a map.
type memoryRevocations struct {
	ids map[string]bool
	err error
}

func (m *memoryRevocations) Revoke(_ context.Context, id string, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.ids[id] = true
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	return m.ids[id], nil
}

var errKakaoDown = errors.New("kakao is down")

// testEnv is the full handler stack over an in-memory database.
type testEnv struct {
	router      chi.Router
	db          *sqliteRepo.DB
	tokens      *auth.TokenService
	kakao       *MockKakao
	revocations *memoryRevocations
	progress    *service.ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliteRepo.New(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	env := &testEnv{
		db:          db,
		tokens:      tokens,
		kakao:       &MockKakao{},
		revocations: &memoryRevocations{ids: map[string]bool{}},
	}

	authSvc := service.NewAuthService(db.Users(), tokens, env.revocations, logger)
	challengeSvc := service.NewChallengeService(db.Challenges(), logger)
	env.progress = service.NewProgressService(db.Challenges(), db.Users(), db.Progress(), time.UTC, logger)
	communitySvc := service.NewCommunityService(db.Progress(), logger)

	authHandler := handler.NewAuthHandler(env.kakao, authSvc, handler.AuthCookieConfig{
		FrontendURL: "http://frontend.test/",
	}, logger)
	challengeHandler := handler.NewChallengeHandler(challengeSvc, logger)
	progressHandler := handler.NewProgressHandler(env.progress, communitySvc, logger)
	authn := auth.NewAuthenticator(tokens, env.revocations, logger)

	r := chi.NewRouter()
	r.Get("/auth/kakao", authHandler.HandleKakaoLogin)
	r.Get("/auth/kakao/callback", authHandler.HandleKakaoCallback)
	r.Get("/auth/user-details/{kakaoId}", authHandler.HandleUserDetails)
	r.With(authn.RequireAuth).Get("/auth/me", authHandler.HandleMe)
	r.With(authn.OptionalAuth).Post("/auth/logout", authHandler.HandleLogout)

	r.Get("/challenges", challengeHandler.HandleList)
	r.Post("/challenges", challengeHandler.HandleCreate)
	r.Get("/challenges/{id}", challengeHandler.HandleGet)
	r.Put("/challenges/{id}", challengeHandler.HandleUpdate)
	r.Delete("/challenges/{id}", challengeHandler.HandleDelete)
	r.With(authn.RequireAuth).Post("/challenges/{id}/status", progressHandler.HandleUpdateStatus)
	r.Get("/challenges/{id}/user-status/{userId}", progressHandler.HandleUserStatus)
	r.Get("/challenges/{id}/community-status", progressHandler.HandleCommunityStatus)
	r.Get("/challenges/{id}/participants", progressHandler.HandleParticipants)

	env.router = r
	return env
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string; token, when set, goes in the session cookie.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// login issues a session token for a user that exists in the database.
func (e *testEnv) login(t *testing.T, kakaoID, nickname string) string {
	t.Helper()
	_, err := e.db.Users().EnsureExists(context.Background(), &model.User{KakaoID: kakaoID, Nickname: nickname})
	require.NoError(t, err)
	token, _, err := e.tokens.Generate(kakaoID)
	require.NoError(t, err)
	return token
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/repository"
)

// AuthService is the business side of login:
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT)
//	                               ↘ RevocationStore (logout)
//
// It never touches cookies or redirects; those are HTTP concerns.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	revocations auth.RevocationStore
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	revocations auth.RevocationStore,
	logger *slog.Logger,
) *AuthService {
	if revocations == nil {
		revocations = auth.NopRevocationStore{}
	}
	return &AuthService{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
	}
}

// AuthResult bundles the stored user and the issued session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User    *model.User
	Token   string
	Session *auth.Session
}

// LoginOrRegisterKakao completes a Kakao login: exactly one upsert keyed by
// the Kakao id (first login creates the row, later logins refresh nickname,
// email and avatar), then a fresh session token.
func (s *AuthService) LoginOrRegisterKakao(ctx context.Context, profile *auth.KakaoProfile) (*AuthResult, error) {
	if profile == nil || profile.ID == "" {
		return nil, errors.New("service: Kakao profile must carry an id")
	}

	user := &model.User{
		KakaoID:           profile.ID,
		Email:             profile.Email,
		Nickname:          profile.Nickname,
		ProfilePictureURL: profile.ProfileImage,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service: upserting user %s: %w", profile.ID, err)
	}

	s.logger.Info("user authenticated via Kakao",
		slog.String("kakaoID", user.KakaoID),
		slog.String("nickname", user.Nickname),
	)

	token, session, err := s.tokens.Generate(user.KakaoID)
	if err != nil {
		return nil, fmt.Errorf("service: issuing token for %s: %w", user.KakaoID, err)
	}

	return &AuthResult{User: user, Token: token, Session: session}, nil
}

// GetUserDetails returns the public profile of a user.
func (s *AuthService) GetUserDetails(ctx context.Context, kakaoID string) (*model.User, error) {
	if kakaoID == "" {
		return nil, apperror.NotFound("사용자를 찾을 수 없습니다.")
	}

	user, err := s.users.GetByKakaoID(ctx, kakaoID)
	if err != nil {
		return nil, fmt.Errorf("service: fetching user %s: %w", kakaoID, err)
	}
	return user, nil
}

// Logout revokes the session's token. Without a revocation store this is a
// no-op and the token lapses at its expiry.
func (s *AuthService) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return fmt.Errorf("service: logging out %s: %w", session.UserID, err)
	}
	s.logger.Info("user logged out", slog.String("kakaoID", session.UserID))
	return nil
}

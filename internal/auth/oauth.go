package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// Kakao production endpoints.
const (
	KakaoAuthURL    = "https://kauth.kakao.com/oauth/authorize"
	KakaoTokenURL   = "https://kauth.kakao.com/oauth/token"
	KakaoProfileURL = "https://kapi.kakao.com/v2/user/me"
)

// KakaoProfile is the part of Kakao's /v2/user/me response we store.
// Email and ProfileImage are nil when the user didn't consent to share them.
type KakaoProfile struct {
	ID           string
	Nickname     string
	Email        *string
	ProfileImage *string
}

// kakaoUserResponse mirrors the JSON Kakao returns. Kakao exposes the
// nickname and avatar twice: under "properties" (legacy) and under
// "kakao_account.profile". We prefer the first and fall back to the second.
//
// Kakao API docs: https://developers.kakao.com/docs/latest/en/kakaologin/rest-api#req-user-info
type kakaoUserResponse struct {
	ID         int64 `json:"id"`
	Properties struct {
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
	} `json:"properties"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (r *kakaoUserResponse) profile() *KakaoProfile {
	p := &KakaoProfile{
		ID:       strconv.FormatInt(r.ID, 10),
		Nickname: firstNonEmpty(r.Properties.Nickname, r.KakaoAccount.Profile.Nickname),
	}
	if email := r.KakaoAccount.Email; email != "" {
		p.Email = &email
	}
	if img := firstNonEmpty(r.Properties.ProfileImage, r.KakaoAccount.Profile.ProfileImageURL); img != "" {
		p.ProfileImage = &img
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// KakaoConfig holds the app credentials from the Kakao developer console.
// The three URLs default to Kakao production when empty; tests point them
// at an httptest server.
type KakaoConfig struct {
	ClientID     string // REST API key
	ClientSecret string // optional, only if enabled in the console
	RedirectURL  string // must match the registered redirect URI exactly
	AuthURL      string
	TokenURL     string
	ProfileURL   string
}

// KakaoProvider runs the Authorization Code flow against Kakao.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Redirect the user to Kakao's authorize endpoint with our client id.
//  2. The user consents on Kakao.
//  3. Kakao redirects back to RedirectURL with a short-lived "code".
//  4. We exchange the code for an access token (server to server).
//  5. We call the profile API with that token.
//
// Nothing is retried: a failure anywhere surfaces as an error and the user
// starts the login again.
type KakaoProvider struct {
	config     *oauth2.Config
	profileURL string
}

func NewKakaoProvider(cfg KakaoConfig) *KakaoProvider {
	authURL := firstNonEmpty(cfg.AuthURL, KakaoAuthURL)
	tokenURL := firstNonEmpty(cfg.TokenURL, KakaoTokenURL)

	return &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
				// Kakao expects client_id (and client_secret) as form
				// parameters, not HTTP Basic auth.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: firstNonEmpty(cfg.ProfileURL, KakaoProfileURL),
	}
}

// AuthURL returns the consent page URL: client_id, redirect_uri,
// response_type=code and the CSRF state.
func (p *KakaoProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for the user's Kakao profile.
func (p *KakaoProvider) Exchange(ctx context.Context, code string) (*KakaoProfile, error) {
	if code == "" {
		return nil, errors.New("auth: missing authorization code")
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging Kakao code: %w", err)
	}

	// config.Client adds "Authorization: Bearer <token>" to every request;
	// resty sits on top of it for the request/response plumbing.
	client := resty.NewWithClient(p.config.Client(ctx, token))

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(p.profileURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Kakao profile API: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("auth: Kakao profile API returned status %d", resp.StatusCode())
	}

	var raw kakaoUserResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("auth: decoding Kakao profile: %w", err)
	}
	if raw.ID == 0 {
		return nil, errors.New("auth: Kakao returned an invalid user (id = 0)")
	}

	return raw.profile(), nil
}

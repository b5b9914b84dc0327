package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/catalogman/internal/model"
)

const (
	defaultGoogleTokenURL     = "https://oauth2.googleapis.com/token"
	defaultGoogleTokenInfoURL = "https://www.googleapis.com/oauth2/v1/tokeninfo"
	defaultGoogleUserInfoURL  = "https://www.googleapis.com/oauth2/v1/userinfo"
	defaultGoogleRevokeURL    = "https://accounts.google.com/o/oauth2/revoke"
)

// GoogleConfig はGoogleプロバイダーの設定。
type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	// テスト用にオーバーライド可能なURL
	TokenURL     string
	TokenInfoURL string
	UserInfoURL  string
	RevokeURL    string

	// HTTPClient は外部呼び出しに使用するクライアント。
	// タイムアウトはこのクライアントの責務。未設定時は10秒タイムアウト。
	HTTPClient *http.Client
}

// GoogleProvider はGoogle OAuth 2.0による認証を提供する。
//
// 交換は3段階で行う: 認可コードのトークン交換（クロスオリジン埋め込み用の
// postmessageリダイレクトモード）、tokeninfoエンドポイントでの検証
// （subject・audienceの一致確認）、userinfoエンドポイントでのプロフィール取得。
type GoogleProvider struct {
	config GoogleConfig
	client *http.Client
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.TokenInfoURL == "" {
		config.TokenInfoURL = defaultGoogleTokenInfoURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	if config.RevokeURL == "" {
		config.RevokeURL = defaultGoogleRevokeURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleProvider{config: config, client: client}
}

// Name はプロバイダー種別を返す。
func (p *GoogleProvider) Name() model.Provider {
	return model.ProviderGoogle
}

// googleTokenResponse はトークンエンドポイントのレスポンス。
type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

// googleTokenInfo はtokeninfoエンドポイントのレスポンス。
type googleTokenInfo struct {
	Error    string `json:"error"`
	UserID   string `json:"user_id"`
	IssuedTo string `json:"issued_to"`
}

// googleUserInfo はuserinfoエンドポイントのレスポンス。
type googleUserInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// Exchange は一回限りの認可コードを交換し、検証済みプロフィールを返す。
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	// 1. 認可コードをアクセストークンに交換
	tokenResp, sub, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// 2. tokeninfoエンドポイントでトークンを検証
	if err := p.verifyToken(ctx, tokenResp.AccessToken, sub); err != nil {
		return nil, err
	}

	// 3. プロフィールを取得
	userInfo, err := p.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Profile{
		AccessToken:      tokenResp.AccessToken,
		ProviderIdentity: sub,
		Username:         userInfo.Name,
		Email:            userInfo.Email,
		Picture:          userInfo.Picture,
	}, nil
}

// exchangeCode は認可コードをアクセストークンに交換し、
// IDトークンからsubject識別子を抽出する。
func (p *GoogleProvider) exchangeCode(ctx context.Context, code string) (*googleTokenResponse, string, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		// postmessage: ブラウザリダイレクトを伴わないクロスオリジン埋め込みモード
		"redirect_uri": {"postmessage"},
		"grant_type":   {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("google token request failed", slog.String("error", err.Error()))
		return nil, "", model.NewExchangeFailedError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("google token exchange rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, "", model.NewExchangeFailedError()
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, "", model.NewMalformedProviderResponseError()
	}
	if tokenResp.AccessToken == "" || tokenResp.IDToken == "" {
		return nil, "", model.NewExchangeFailedError()
	}

	sub, err := subjectFromIDToken(tokenResp.IDToken)
	if err != nil {
		slog.Warn("failed to parse google id_token", slog.String("error", err.Error()))
		return nil, "", model.NewMalformedProviderResponseError()
	}

	return &tokenResp, sub, nil
}

// verifyToken はtokeninfoエンドポイントでトークンを検証する。
// errorフィールドの不在、subjectの一致、audienceの一致を確認する。
func (p *GoogleProvider) verifyToken(ctx context.Context, accessToken, sub string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.TokenInfoURL+"?access_token="+url.QueryEscape(accessToken), nil)
	if err != nil {
		return fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("google tokeninfo request failed", slog.String("error", err.Error()))
		return model.NewExchangeFailedError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read tokeninfo response: %w", err)
	}

	var info googleTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return model.NewMalformedProviderResponseError()
	}

	if info.Error != "" {
		slog.Warn("google tokeninfo returned error", slog.String("error", info.Error))
		return model.NewExchangeFailedError()
	}

	// トークン置換攻撃の防止: トークンのsubjectがIDトークンのsubと一致すること
	if info.UserID != sub {
		return model.NewIdentityMismatchError()
	}

	// 別アプリケーション向けに発行されたトークンの排除
	if info.IssuedTo != p.config.ClientID {
		slog.Warn("google token issued to different client",
			slog.String("issued_to", info.IssuedTo),
		)
		return model.NewAudienceMismatchError()
	}

	return nil
}

// fetchUserInfo は検証済みアクセストークンでプロフィールを取得する。
func (p *GoogleProvider) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	params := url.Values{
		"access_token": {accessToken},
		"alt":          {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.UserInfoURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("google userinfo request failed", slog.String("error", err.Error()))
		return nil, model.NewMalformedProviderResponseError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("google userinfo fetch failed", slog.Int("status", resp.StatusCode))
		return nil, model.NewMalformedProviderResponseError()
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, model.NewMalformedProviderResponseError()
	}

	return &userInfo, nil
}

// Revoke はトークン失効エンドポイントを呼び出す。
// 200以外の応答はREVOKE_FAILEDエラーとなる。
func (p *GoogleProvider) Revoke(ctx context.Context, _ string, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.RevokeURL+"?token="+url.QueryEscape(accessToken), nil)
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("google revoke request failed", slog.String("error", err.Error()))
		return model.NewRevokeFailedError()
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		slog.Warn("google revoke rejected", slog.Int("status", resp.StatusCode))
		return model.NewRevokeFailedError()
	}

	return nil
}

// subjectFromIDToken はIDトークン（JWT）のペイロードからsubクレームを取り出す。
// 署名検証は行わない。subjectはこの後tokeninfoの検証結果と突き合わせる。
func subjectFromIDToken(idToken string) (string, error) {
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed id_token: expected 3 segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode id_token payload: %w", err)
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("failed to parse id_token claims: %w", err)
	}
	if claims.Sub == "" {
		return "", fmt.Errorf("empty sub claim in id_token")
	}

	return claims.Sub, nil
}

// compile-time interface check
var _ Provider = (*GoogleProvider)(nil)

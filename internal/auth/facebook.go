package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/catalogman/internal/model"
)

const (
	defaultFacebookTokenURL   = "https://graph.facebook.com/oauth/access_token"
	defaultFacebookProfileURL = "https://graph.facebook.com/v2.8/me"
	defaultFacebookPictureURL = "https://graph.facebook.com/v2.8/me/picture"
	defaultFacebookGraphURL   = "https://graph.facebook.com/v2.8"
)

// FacebookConfig はFacebookプロバイダーの設定。
type FacebookConfig struct {
	AppID     string
	AppSecret string

	// テスト用にオーバーライド可能なURL
	TokenURL   string
	ProfileURL string
	PictureURL string
	// GraphURL はpermissions削除エンドポイントのベースURL。
	GraphURL string

	// HTTPClient は外部呼び出しに使用するクライアント。未設定時は10秒タイムアウト。
	HTTPClient *http.Client
}

// FacebookProvider はFacebook Graph APIによる認証を提供する。
//
// クライアントSDKが取得した短命トークンをfb_exchange_tokenグラントで
// 長命トークンに交換する。交換レスポンスはクエリ文字列形式
// （access_token=...&expires=...）で返り、expiresは破棄する。
// プロフィール画像は別エンドポイントから200x200固定・リダイレクトなしで取得する。
type FacebookProvider struct {
	config FacebookConfig
	client *http.Client
}

// NewFacebookProvider はFacebookProviderを生成する。
func NewFacebookProvider(config FacebookConfig) *FacebookProvider {
	if config.TokenURL == "" {
		config.TokenURL = defaultFacebookTokenURL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = defaultFacebookProfileURL
	}
	if config.PictureURL == "" {
		config.PictureURL = defaultFacebookPictureURL
	}
	if config.GraphURL == "" {
		config.GraphURL = defaultFacebookGraphURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FacebookProvider{config: config, client: client}
}

// Name はプロバイダー種別を返す。
func (p *FacebookProvider) Name() model.Provider {
	return model.ProviderFacebook
}

// facebookProfile は/meエンドポイントのレスポンス。
type facebookProfile struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Email string `json:"email"`
}

// facebookPicture は/me/pictureエンドポイントの非リダイレクトレスポンス。
type facebookPicture struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Exchange は短命トークンを長命トークンに交換し、検証済みプロフィールを返す。
func (p *FacebookProvider) Exchange(ctx context.Context, shortLivedToken string) (*Profile, error) {
	// 1. 短命トークンを長命トークンに交換
	longLivedToken, err := p.exchangeToken(ctx, shortLivedToken)
	if err != nil {
		return nil, err
	}

	// 2. プロフィールを取得
	profile, err := p.fetchProfile(ctx, longLivedToken)
	if err != nil {
		return nil, err
	}

	// 3. プロフィール画像URLを取得
	pictureURL, err := p.fetchPictureURL(ctx, longLivedToken)
	if err != nil {
		return nil, err
	}

	return &Profile{
		AccessToken:      longLivedToken,
		ProviderIdentity: profile.ID,
		Username:         profile.Name,
		Email:            profile.Email,
		Picture:          pictureURL,
	}, nil
}

// exchangeToken はfb_exchange_tokenグラントで長命トークンを取得する。
// レスポンスボディはクエリ文字列形式。expiresフィールドは破棄する。
func (p *FacebookProvider) exchangeToken(ctx context.Context, shortLivedToken string) (string, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {p.config.AppID},
		"client_secret":     {p.config.AppSecret},
		"fb_exchange_token": {shortLivedToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.TokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("facebook token request failed", slog.String("error", err.Error()))
		return "", model.NewExchangeFailedError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("facebook token exchange rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return "", model.NewExchangeFailedError()
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", model.NewMalformedProviderResponseError()
	}
	token := values.Get("access_token")
	if token == "" {
		slog.Warn("facebook token response missing access_token")
		return "", model.NewMalformedProviderResponseError()
	}

	return token, nil
}

// fetchProfile は/meエンドポイントからname, id, emailを取得する。
func (p *FacebookProvider) fetchProfile(ctx context.Context, accessToken string) (*facebookProfile, error) {
	params := url.Values{
		"access_token": {accessToken},
		"fields":       {"name,id,email"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.ProfileURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("facebook profile request failed", slog.String("error", err.Error()))
		return nil, model.NewMalformedProviderResponseError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("facebook profile fetch failed", slog.Int("status", resp.StatusCode))
		return nil, model.NewMalformedProviderResponseError()
	}

	var profile facebookProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, model.NewMalformedProviderResponseError()
	}
	if profile.ID == "" {
		slog.Warn("facebook profile response missing id")
		return nil, model.NewMalformedProviderResponseError()
	}

	return &profile, nil
}

// fetchPictureURL は/me/pictureエンドポイントから画像URLを取得する。
// redirect=0で画像本体ではなくURLを含むJSONを受け取る。
func (p *FacebookProvider) fetchPictureURL(ctx context.Context, accessToken string) (string, error) {
	params := url.Values{
		"access_token": {accessToken},
		"redirect":     {"0"},
		"height":       {"200"},
		"width":        {"200"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.PictureURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create picture request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("facebook picture request failed", slog.String("error", err.Error()))
		return "", model.NewMalformedProviderResponseError()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read picture response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("facebook picture fetch failed", slog.Int("status", resp.StatusCode))
		return "", model.NewMalformedProviderResponseError()
	}

	var picture facebookPicture
	if err := json.Unmarshal(body, &picture); err != nil {
		return "", model.NewMalformedProviderResponseError()
	}
	if picture.Data.URL == "" {
		slog.Warn("facebook picture response missing url")
		return "", model.NewMalformedProviderResponseError()
	}

	return picture.Data.URL, nil
}

// Revoke はpermissions削除エンドポイントを呼び出す。
// プロバイダー応答の成否に関わらず常に成功を返す。
// 失敗はログに残すのみでログアウト処理を妨げない。
func (p *FacebookProvider) Revoke(ctx context.Context, providerIdentity, accessToken string) error {
	endpoint := fmt.Sprintf("%s/%s/permissions?access_token=%s",
		p.config.GraphURL, url.PathEscape(providerIdentity), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		slog.Warn("failed to create facebook revoke request", slog.String("error", err.Error()))
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("facebook revoke request failed", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		slog.Warn("facebook revoke rejected", slog.Int("status", resp.StatusCode))
	}

	return nil
}

// compile-time interface check
var _ Provider = (*FacebookProvider)(nil)

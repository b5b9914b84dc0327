package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/catalogman/internal/auth"
	"github.com/hitoshi/catalogman/internal/middleware"
	"github.com/hitoshi/catalogman/internal/model"
)

// mockAuthService はAuthServiceInterfaceのテスト用モック。
type mockAuthService struct {
	beginLoginFn func(ctx context.Context, session *model.Session) (string, error)
	connectFn    func(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error)
	disconnectFn func(ctx context.Context, session *model.Session, providerName model.Provider) error
	logoutFn     func(ctx context.Context, session *model.Session) error
}

func (m *mockAuthService) BeginLogin(ctx context.Context, session *model.Session) (string, error) {
	return m.beginLoginFn(ctx, session)
}

func (m *mockAuthService) Connect(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error) {
	return m.connectFn(ctx, session, providerName, state, artifact)
}

func (m *mockAuthService) Disconnect(ctx context.Context, session *model.Session, providerName model.Provider) error {
	return m.disconnectFn(ctx, session, providerName)
}

func (m *mockAuthService) Logout(ctx context.Context, session *model.Session) error {
	return m.logoutFn(ctx, session)
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testAuthConfig() AuthHandlerConfig {
	return AuthHandlerConfig{
		GoogleClientID:  "google-client-id.apps.googleusercontent.com",
		FacebookAppID:   "1234567890",
		CatalogHomePath: "/catalog",
	}
}

// requestWithSession はセッションをコンテキストに載せたリクエストを生成する。
func requestWithSession(method, target string, body string, session *model.Session) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.ContextWithSession(req.Context(), session))
}

func TestAuthHandler_LoginPage(t *testing.T) {
	t.Run("stateトークンを発行してログインページを描画する", func(t *testing.T) {
		service := &mockAuthService{
			beginLoginFn: func(ctx context.Context, session *model.Session) (string, error) {
				return "AbCd1234EfGh5678IjKl9012MnOp3456", nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/login", "", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.LoginPage(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q, want text/html", ct)
		}

		html := rec.Body.String()
		if !strings.Contains(html, `data-state="AbCd1234EfGh5678IjKl9012MnOp3456"`) {
			t.Error("login page should embed the state token")
		}
		if !strings.Contains(html, "google-client-id.apps.googleusercontent.com") {
			t.Error("login page should embed the Google client ID")
		}
		if !strings.Contains(html, "1234567890") {
			t.Error("login page should embed the Facebook app ID")
		}
	})

	t.Run("stateトークン発行に失敗した場合は500を返す", func(t *testing.T) {
		service := &mockAuthService{
			beginLoginFn: func(ctx context.Context, session *model.Session) (string, error) {
				return "", context.DeadlineExceeded
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/login", "", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.LoginPage(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestAuthHandler_Connect(t *testing.T) {
	t.Run("Googleログイン成功時は挨拶HTMLフラグメントを返す", func(t *testing.T) {
		var gotProvider model.Provider
		var gotState, gotArtifact string
		service := &mockAuthService{
			connectFn: func(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error) {
				gotProvider = providerName
				gotState = state
				gotArtifact = artifact
				return &auth.ConnectResult{
					Username: "田中太郎",
					Picture:  "https://lh3.example.com/photo.jpg",
				}, nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodPost, "/gconnect?state=token123", "auth-code-xyz", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.GConnect(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if gotProvider != model.ProviderGoogle {
			t.Errorf("provider = %q, want %q", gotProvider, model.ProviderGoogle)
		}
		if gotState != "token123" {
			t.Errorf("state = %q, want %q", gotState, "token123")
		}
		if gotArtifact != "auth-code-xyz" {
			t.Errorf("artifact = %q, want %q", gotArtifact, "auth-code-xyz")
		}

		html := rec.Body.String()
		if !strings.Contains(html, "田中太郎") {
			t.Error("greeting should contain the username")
		}
		if !strings.Contains(html, "https://lh3.example.com/photo.jpg") {
			t.Error("greeting should contain the profile picture URL")
		}
	})

	t.Run("FacebookコールバックはFacebookプロバイダーで処理される", func(t *testing.T) {
		var gotProvider model.Provider
		service := &mockAuthService{
			connectFn: func(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error) {
				gotProvider = providerName
				return &auth.ConnectResult{Username: "user", Picture: "https://example.com/p.jpg"}, nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodPost, "/fbconnect?state=token123", "short-lived-token", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.FBConnect(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if gotProvider != model.ProviderFacebook {
			t.Errorf("provider = %q, want %q", gotProvider, model.ProviderFacebook)
		}
	})

	t.Run("stateトークン不一致時は401を返す", func(t *testing.T) {
		service := &mockAuthService{
			connectFn: func(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error) {
				return nil, model.NewInvalidStateError()
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodPost, "/gconnect?state=wrong", "auth-code", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.GConnect(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["message"] != "Invalid state parameter." {
			t.Errorf("message = %q, want %q", body["message"], "Invalid state parameter.")
		}
		if body["code"] != model.ErrCodeInvalidState {
			t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidState)
		}
	})

	t.Run("同一アイデンティティでの再ログインは200で短絡する", func(t *testing.T) {
		service := &mockAuthService{
			connectFn: func(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error) {
				return &auth.ConnectResult{AlreadyConnected: true, Username: "田中太郎"}, nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodPost, "/gconnect?state=token123", "auth-code", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.GConnect(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["message"] != "Current user is already connected." {
			t.Errorf("message = %q, want %q", body["message"], "Current user is already connected.")
		}
	})

	t.Run("交換失敗時は401を返す", func(t *testing.T) {
		service := &mockAuthService{
			connectFn: func(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error) {
				return nil, model.NewExchangeFailedError()
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodPost, "/gconnect?state=token123", "bad-code", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.GConnect(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})
}

func TestAuthHandler_Disconnect(t *testing.T) {
	t.Run("切断成功時は200とメッセージを返す", func(t *testing.T) {
		var gotProvider model.Provider
		service := &mockAuthService{
			disconnectFn: func(ctx context.Context, session *model.Session, providerName model.Provider) error {
				gotProvider = providerName
				return nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/gdisconnect", "", &model.Session{ID: "sess-1", Provider: model.ProviderGoogle})
		rec := httptest.NewRecorder()
		h.GDisconnect(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if gotProvider != model.ProviderGoogle {
			t.Errorf("provider = %q, want %q", gotProvider, model.ProviderGoogle)
		}

		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["message"] != "Successfully disconnected." {
			t.Errorf("message = %q, want %q", body["message"], "Successfully disconnected.")
		}
	})

	t.Run("未接続セッションの切断は401を返す", func(t *testing.T) {
		service := &mockAuthService{
			disconnectFn: func(ctx context.Context, session *model.Session, providerName model.Provider) error {
				return model.NewNotConnectedError()
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/gdisconnect", "", &model.Session{ID: "sess-1"})
		rec := httptest.NewRecorder()
		h.GDisconnect(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("トークン失効の失敗は400を返す", func(t *testing.T) {
		service := &mockAuthService{
			disconnectFn: func(ctx context.Context, session *model.Session, providerName model.Provider) error {
				return model.NewRevokeFailedError()
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/gdisconnect", "", &model.Session{ID: "sess-1", Provider: model.ProviderGoogle})
		rec := httptest.NewRecorder()
		h.GDisconnect(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("FacebookエンドポイントはFacebookプロバイダーで処理される", func(t *testing.T) {
		var gotProvider model.Provider
		service := &mockAuthService{
			disconnectFn: func(ctx context.Context, session *model.Session, providerName model.Provider) error {
				gotProvider = providerName
				return nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/fbdisconnect", "", &model.Session{ID: "sess-1", Provider: model.ProviderFacebook})
		rec := httptest.NewRecorder()
		h.FBDisconnect(rec, req)

		if gotProvider != model.ProviderFacebook {
			t.Errorf("provider = %q, want %q", gotProvider, model.ProviderFacebook)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("フラッシュメッセージを設定してカタログホームへリダイレクトする", func(t *testing.T) {
		service := &mockAuthService{
			logoutFn: func(ctx context.Context, session *model.Session) error {
				return nil
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/logout", "", &model.Session{ID: "sess-1", Provider: model.ProviderGoogle})
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
		}
		if loc := rec.Header().Get("Location"); loc != "/catalog" {
			t.Errorf("Location = %q, want %q", loc, "/catalog")
		}

		var flash *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "flash" {
				flash = c
			}
		}
		if flash == nil {
			t.Fatal("flash cookie should be set")
		}
		message, err := url.QueryUnescape(flash.Value)
		if err != nil {
			t.Fatalf("failed to unescape flash cookie: %v", err)
		}
		if message != "You have successfully been logged out." {
			t.Errorf("flash = %q, want %q", message, "You have successfully been logged out.")
		}
	})

	t.Run("ログアウト処理に失敗した場合は500を返す", func(t *testing.T) {
		service := &mockAuthService{
			logoutFn: func(ctx context.Context, session *model.Session) error {
				return context.DeadlineExceeded
			},
		}
		h := NewAuthHandler(service, testAuthConfig())

		req := requestWithSession(http.MethodGet, "/logout", "", &model.Session{ID: "sess-1", Provider: model.ProviderGoogle})
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}

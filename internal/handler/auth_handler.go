// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/catalogman/internal/auth"
	"github.com/hitoshi/catalogman/internal/handler/templates"
	"github.com/hitoshi/catalogman/internal/middleware"
	"github.com/hitoshi/catalogman/internal/model"
)

// maxArtifactSize はコールバックボディ（認可コード／短命トークン）の最大サイズ。
const maxArtifactSize = 4096

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, session *model.Session) (string, error)
	Connect(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*auth.ConnectResult, error)
	Disconnect(ctx context.Context, session *model.Session, providerName model.Provider) error
	Logout(ctx context.Context, session *model.Session) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
// クライアントIDはログインページのSDKブートストラップに埋め込まれる。
type AuthHandlerConfig struct {
	GoogleClientID  string
	FacebookAppID   string
	CatalogHomePath string
}

// AuthHandler は外部プロバイダー認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// LoginPage はstateトークンを発行してログインページを描画する。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	state, err := h.service.BeginLogin(r.Context(), session)
	if err != nil {
		slog.Error("failed to begin login", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.LoginPage(templates.LoginPageParams{
		State:          state,
		GoogleClientID: h.config.GoogleClientID,
		FacebookAppID:  h.config.FacebookAppID,
	})
	if err := page.Render(r.Context(), w); err != nil {
		slog.Error("failed to render login page", slog.String("error", err.Error()))
	}
}

// GConnect はGoogleのOAuthコールバックを処理する。
// POST /gconnect?state=<token>  ボディ = 一度限りの認可コード
func (h *AuthHandler) GConnect(w http.ResponseWriter, r *http.Request) {
	h.connect(w, r, model.ProviderGoogle)
}

// FBConnect はFacebookのOAuthコールバックを処理する。
// POST /fbconnect?state=<token>  ボディ = 短命アクセストークン
func (h *AuthHandler) FBConnect(w http.ResponseWriter, r *http.Request) {
	h.connect(w, r, model.ProviderFacebook)
}

// connect はプロバイダー共通のコールバック処理。
// 成功時は認証済みアイデンティティを確認するHTMLフラグメントを返す。
func (h *AuthHandler) connect(w http.ResponseWriter, r *http.Request, providerName model.Provider) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	artifact, err := io.ReadAll(io.LimitReader(r.Body, maxArtifactSize))
	if err != nil {
		middleware.WriteAPIError(w, model.NewExchangeFailedError())
		return
	}

	state := r.URL.Query().Get("state")
	result, err := h.service.Connect(r.Context(), session, providerName, state, string(artifact))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if result.AlreadyConnected {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"message": "Current user is already connected.",
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	greeting := templates.Greeting(result.Username, result.Picture)
	if err := greeting.Render(r.Context(), w); err != nil {
		slog.Error("failed to render greeting", slog.String("error", err.Error()))
	}
}

// GDisconnect はGoogleとの接続を解除する。
// GET /gdisconnect
func (h *AuthHandler) GDisconnect(w http.ResponseWriter, r *http.Request) {
	h.disconnect(w, r, model.ProviderGoogle)
}

// FBDisconnect はFacebookとの接続を解除する。
// GET /fbdisconnect
func (h *AuthHandler) FBDisconnect(w http.ResponseWriter, r *http.Request) {
	h.disconnect(w, r, model.ProviderFacebook)
}

// disconnect はプロバイダー共通の接続解除処理。
func (h *AuthHandler) disconnect(w http.ResponseWriter, r *http.Request, providerName model.Provider) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.service.Disconnect(r.Context(), session, providerName); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Successfully disconnected.",
	})
}

// Logout は現在のプロバイダーに応じた接続解除を試みた後、
// セッションを消去してカタログホームにリダイレクトする。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.service.Logout(r.Context(), session); err != nil {
		slog.Error("logout failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// フラッシュメッセージ用Cookie。リダイレクト先で1回表示されて消える。
	http.SetCookie(w, &http.Cookie{
		Name:   "flash",
		Value:  url.QueryEscape("You have successfully been logged out."),
		Path:   "/",
		MaxAge: 60,
	})

	http.Redirect(w, r, h.config.CatalogHomePath, http.StatusFound)
}

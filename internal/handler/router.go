package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/catalogman/internal/metrics"
	"github.com/hitoshi/catalogman/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なDB疎通確認のインターフェース。
// *sql.DB がそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HealthChecker     HealthChecker
	MetricsGatherer   prometheus.Gatherer
	SessionStore      middleware.SessionStore
	SessionConfig     middleware.SessionConfig
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カタログ
	CatalogService  CatalogServiceInterface
	CategoryService CategoryServiceInterface
	ItemService     ItemServiceInterface
	RecentItems     RecentItemLister
	BaseURL         string

	// 画像
	ImageStore   ImageSaver
	ImageOpener  ImageOpener
	ImageFetcher ImageFetcherInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging →
//	  Session → CSRF（OAuthコールバックは除外） →
//	    [認証ルートのみ] LoginMiddleware
//	    [変更系APIのみ] RequireAuth → GeneralMiddleware
//
// /uploads はセッション不要の静的配信としてチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.RecentItems, deps.BaseURL)
	categoryHandler := NewCategoryHandler(deps.CategoryService)
	itemHandler := NewItemHandler(deps.ItemService, deps.ImageStore, deps.ImageFetcher)
	uploadsHandler := NewUploadsHandler(deps.ImageOpener)

	// --- セッション付きルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionStore, deps.SessionConfig))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 認証フロー（ログイン系はIPベースのレート制限を追加）
		r.With(deps.RateLimiter.LoginMiddleware()).Get("/login", authHandler.LoginPage)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/gconnect", authHandler.GConnect)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/fbconnect", authHandler.FBConnect)
		r.Get("/gdisconnect", authHandler.GDisconnect)
		r.Get("/fbdisconnect", authHandler.FBDisconnect)
		r.Get("/logout", authHandler.Logout)

		// 認証不要の閲覧ルート
		r.Get("/catalog", catalogHandler.Overview)
		r.Get("/catalog/json", catalogHandler.FullCatalog)
		r.Get("/catalog/recent.atom", catalogHandler.RecentAtom)
		r.Get("/api/categories/{name}", categoryHandler.Get)
		r.Get("/api/items/{name}", itemHandler.Get)
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// --- 認証が必要な変更系ルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth())
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Post("/api/categories", categoryHandler.Create)
			r.Patch("/api/categories/{name}", categoryHandler.Rename)
			r.Delete("/api/categories/{name}", categoryHandler.Delete)

			r.Post("/api/items", itemHandler.Create)
			r.Patch("/api/items/{name}", itemHandler.Update)
			r.Delete("/api/items/{name}", itemHandler.Delete)
		})
	})

	// アップロード済み画像の配信
	r.Get("/uploads/{filename}", uploadsHandler.Serve)

	// 運用エンドポイント（セッション不要）
	r.Get("/health", newHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

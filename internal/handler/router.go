package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paxsolutions/anm/internal/metrics"
	"github.com/paxsolutions/anm/internal/middleware"
	"github.com/paxsolutions/anm/internal/storage"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	SessionCookieName string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// レコード照会
	NannyService NannyServiceInterface

	// ストレージ
	Presigner storage.Presigner

	// ヘルスチェック
	DB Pinger

	// メトリクス
	Metrics  metrics.MetricsCollector // nil可
	Gatherer prometheus.Gatherer      // nilの場合は/metricsを公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → (Session → RateLimit)
//
// 認証ルート（/auth/*）、/api/health、/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	nannyHandler := NewNannyHandler(deps.NannyService)
	fileHandler := NewFileHandler(deps.Presigner, deps.Metrics)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 認証不要のルート ---

	// 認証ルート（OAuthフロー・トークン検証）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.Post("/validate_token", authHandler.ValidateToken)
		r.Get("/current_user", authHandler.CurrentUser)
	})

	// ヘルスチェック
	r.Get("/api/health", healthHandler.Health)

	// Prometheusスクレイプ
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.SessionCookieName))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// レコード照会
		r.Route("/api/nannies", func(r chi.Router) {
			r.Get("/", nannyHandler.List)
			r.Get("/{id}", nannyHandler.Get)
		})

		// ファイルダウンロード（発行専用レート制限を追加）
		r.With(deps.RateLimiter.PresignMiddleware()).
			Get("/api/files/presigned-url", fileHandler.PresignedURL)
	})

	return r
}

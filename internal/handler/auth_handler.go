// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/paxsolutions/anm/internal/auth"
	"github.com/paxsolutions/anm/internal/middleware"
	"github.com/paxsolutions/anm/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.CallbackResult, error)
	ValidateToken(ctx context.Context, token string) (*auth.ValidateResult, error)
	CurrentUser(ctx context.Context, sessionID string) (*model.UserProfile, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthMetrics は認証ハンドラーが記録するメトリクスのインターフェース。
type AuthMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordTokenValidation(result string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL   string
	CookieDomain  string
	CookieSecure  bool
	CookieName    string // セッションCookieの名前
	SessionMaxAge int    // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics AuthMetrics // nilの場合はメトリクスを記録しない
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.service.GetLoginURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// 成功時はフォールバックトークンをクエリに付与してフロントエンドへリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.recordLoginFailure("state_mismatch")
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		h.recordLoginFailure("missing_code")
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理
	result, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.recordLoginFailure("exchange_failed")
		http.Redirect(w, r, h.config.FrontendURL+"/login?error=auth_failed", http.StatusFound)
		return
	}

	// 4. セッションが永続化できた場合のみセッションCookieを設定（HTTP Only）
	if result.SessionSaved {
		h.setSessionCookie(w, result.Session.ID)
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	// 5. フォールバックトークン付きでフロントエンドにリダイレクト
	redirectURL := h.config.FrontendURL + "?token=" + url.QueryEscape(result.Token)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Logout はセッションを破棄する。
// GET /auth/logout
// 発行済みのフォールバックトークンは失効しない。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// セッションCookieの取得
	cookie, err := r.Cookie(h.config.CookieName)
	if err == nil && cookie.Value != "" {
		// セッションをストアから削除
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, h.config.FrontendURL, http.StatusFound)
}

// validateTokenRequest はPOST /auth/validate_tokenのリクエストボディ。
type validateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateToken はフォールバックトークンを検証し、プロファイルを返す。
// POST /auth/validate_token
// レスポンスはpassportプロファイル互換のワイヤ形式。
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		h.recordTokenValidation("missing")
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewTokenMissingError())
		return
	}

	result, err := h.service.ValidateToken(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenMissing):
			h.recordTokenValidation("missing")
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewTokenMissingError())
		case errors.Is(err, auth.ErrTokenExpired):
			h.recordTokenValidation("expired")
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenExpiredError())
		default:
			h.recordTokenValidation("invalid")
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
		}
		return
	}

	h.recordTokenValidation("valid")

	// セッションが再確立できた場合はCookieも更新する
	if result.SessionSaved {
		h.setSessionCookie(w, result.Session.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":          result.Profile.ID,
		"displayName": result.Profile.Name,
		"emails":      []map[string]string{{"value": result.Profile.Email}},
	})
}

// CurrentUser は現在のログインユーザー情報を返す。
// GET /auth/current_user
// 有効なセッションがない場合は401を返す。
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	var sessionID string
	if cookie, err := r.Cookie(h.config.CookieName); err == nil {
		sessionID = cookie.Value
	}

	profile, err := h.service.CurrentUser(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	if profile == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// setSessionCookie はセッションCookieを設定する。
// クロスサイトのSPAからcredentials付きで送信できるよう、
// Secureが有効な場合はSameSite=Noneにする。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	sameSite := http.SameSiteLaxMode
	if h.config.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: sameSite,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if h.config.CookieSecure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: sameSite,
	})
}

func (h *AuthHandler) recordLoginFailure(reason string) {
	if h.metrics != nil {
		h.metrics.RecordLoginFailure(reason)
	}
}

func (h *AuthHandler) recordTokenValidation(result string) {
	if h.metrics != nil {
		h.metrics.RecordTokenValidation(result)
	}
}

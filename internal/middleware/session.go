// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/paxsolutions/anm/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// profileContextKey はリクエストコンテキストに認証済みプロフィールを格納するためのキー。
var profileContextKey = contextKey("user_profile")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みプロフィールをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder, cookieName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. セッションの有効性を検証
			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 認証済みプロフィールをコンテキストに注入
			ctx := ContextWithProfile(r.Context(), &session.Profile)

			// 上流のロギングミドルウェアへプロフィールを書き戻す
			if holder, ok := r.Context().Value(profileHolderKey).(*profileHolder); ok {
				holder.profile = &session.Profile
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProfileFromContext はリクエストコンテキストから認証済みプロフィールを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ProfileFromContext(ctx context.Context) (*model.UserProfile, error) {
	profile, ok := ctx.Value(profileContextKey).(*model.UserProfile)
	if !ok || profile == nil || profile.ID == "" {
		return nil, fmt.Errorf("user profile not found in context")
	}
	return profile, nil
}

// ContextWithProfile はコンテキストにプロフィールを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithProfile(ctx context.Context, profile *model.UserProfile) context.Context {
	return context.WithValue(ctx, profileContextKey, profile)
}

// Package auth はOAuth認証フロー、セッション管理、フォールバックトークンを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/paxsolutions/anm/internal/model"
	"github.com/paxsolutions/anm/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	sessionRepo repository.SessionRepository
	tokens      *TokenCodec
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	sessionRepo repository.SessionRepository,
	tokens *TokenCodec,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		sessionRepo: sessionRepo,
		tokens:      tokens,
		config:      config,
	}
}

// CallbackResult はOAuthコールバック処理の結果を表す。
// セッション永続化は失敗してもコールバック全体を失敗させず、
// SessionSaved=falseとして呼び出し側に型付きで通知する。
// その場合クライアントはフォールバックトークンのみで認証を継続する。
type CallbackResult struct {
	Profile      model.UserProfile
	Session      *model.Session // SessionSaved=falseの場合はnil
	Token        string
	SessionSaved bool
}

// GetLoginURL はOAuth認証URLを生成する。ローカル状態は変更しない。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理する。
// 認可コードをプロバイダーで交換してプロファイルを構築し、
// 署名付きフォールバックトークンを発行し、セッションをベストエフォートで永続化する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*CallbackResult, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	profile := model.UserProfile{
		ID:    userInfo.ProviderUserID,
		Name:  userInfo.Name,
		Email: userInfo.Email,
	}

	token, err := s.tokens.Issue(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to issue fallback token: %w", err)
	}

	result := &CallbackResult{
		Profile: profile,
		Token:   token,
	}

	session, err := s.createSession(ctx, profile)
	if err != nil {
		// セッション永続化失敗はトークンのみの認証に縮退する。
		slog.Warn("session persistence failed, continuing token-only",
			slog.String("user_id", profile.ID),
			slog.String("error", err.Error()),
		)
		return result, nil
	}

	result.Session = session
	result.SessionSaved = true

	slog.Info("user logged in",
		slog.String("user_id", profile.ID),
		slog.String("email", profile.Email),
	)

	return result, nil
}

// ValidateResult はフォールバックトークン検証の結果を表す。
type ValidateResult struct {
	Profile      model.UserProfile
	Session      *model.Session
	SessionSaved bool
}

// ValidateToken はフォールバックトークンを検証し、プロファイルを返す。
// 検証成功時はトークンに埋め込まれたプロファイルからセッションを
// ベストエフォートで再確立する。
// 失敗はErrTokenMissing、ErrTokenExpired、ErrTokenInvalidのいずれか。
func (s *Service) ValidateToken(ctx context.Context, token string) (*ValidateResult, error) {
	profile, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	result := &ValidateResult{Profile: *profile}

	session, err := s.createSession(ctx, *profile)
	if err != nil {
		slog.Warn("session re-establishment failed, continuing token-only",
			slog.String("user_id", profile.ID),
			slog.String("error", err.Error()),
		)
		return result, nil
	}

	result.Session = session
	result.SessionSaved = true
	return result, nil
}

// CurrentUser はセッションから現在のユーザープロファイルを取得する。
// 有効なセッションが存在しない場合は(nil, nil)を返す。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.UserProfile, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	profile := session.Profile
	return &profile, nil
}

// Logout はセッションを破棄する。
// 発行済みのフォールバックトークンは失効しない（自然期限切れまで有効なまま）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, profile model.UserProfile) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		Profile:   profile,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SessionStore はセッションストアのバッキング種別を表す。
type SessionStore string

const (
	// SessionStorePostgres はPostgreSQLバックのセッションストアを示す。
	SessionStorePostgres SessionStore = "postgres"
	// SessionStoreMemory は開発用のインメモリセッションストアを示す。
	// プロセス再起動でセッションは消失する。
	SessionStoreMemory SessionStore = "memory"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "anm.session.id"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// コンポーネントはConfigへの参照を受け取り、os.Getenvを直接読まない。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret        string
	SessionMaxAge        int // 秒
	SessionSweepInterval time.Duration
	SessionStore         SessionStore

	// Fallback Token
	TokenMaxAge       time.Duration
	AllowLegacyTokens bool

	// S3
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	PresignTTL time.Duration

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitPresign int

	// Server
	ServerPort  string
	FrontendURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.FrontendURL = os.Getenv("FRONTEND_URL")
	if cfg.FrontendURL == "" {
		missing = append(missing, "FRONTEND_URL")
	}

	cfg.S3Bucket = os.Getenv("S3_BUCKET_NAME")
	if cfg.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET_NAME")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute)
	cfg.TokenMaxAge = getEnvDuration("TOKEN_MAX_AGE", 24*time.Hour)
	cfg.AllowLegacyTokens = getEnvBool("ALLOW_LEGACY_TOKENS", false)
	cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
	cfg.S3Endpoint = getEnvString("S3_ENDPOINT", "")
	cfg.PresignTTL = getEnvDuration("PRESIGN_TTL", 15*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPresign = getEnvInt("RATE_LIMIT_PRESIGN", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.FrontendURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.FrontendURL)

	store := SessionStore(getEnvString("SESSION_STORE", string(SessionStorePostgres)))
	if store != SessionStorePostgres && store != SessionStoreMemory {
		return nil, fmt.Errorf("invalid SESSION_STORE: %q (postgres or memory)", store)
	}
	cfg.SessionStore = store

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, record, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTokenMissing   = "TOKEN_MISSING"
	ErrCodeTokenExpired   = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid   = "TOKEN_INVALID"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeInvalidSortKey = "INVALID_SORT_KEY"
	ErrCodeNannyNotFound  = "NANNY_NOT_FOUND"
	ErrCodeQueryFailed    = "QUERY_FAILED"
	ErrCodeKeyRequired    = "KEY_REQUIRED"
	ErrCodeObjectNotFound = "OBJECT_NOT_FOUND"
	ErrCodePresignFailed  = "PRESIGN_FAILED"
	ErrCodeRateLimited    = "RATE_LIMITED"
)

// NewTokenMissingError はトークン未指定エラーを生成する。
func NewTokenMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenMissing,
		Message:  "トークンが指定されていません。",
		Category: "auth",
		Action:   "リクエストボディにtokenフィールドを含めてください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewTokenInvalidError はトークン不正エラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "トークンを検証できませんでした。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidSortKeyError は未対応のソートキーエラーを生成する。
func NewInvalidSortKeyError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSortKey,
		Message:  fmt.Sprintf("無効なソートキーです: %s", key),
		Category: "validation",
		Action:   "ソートキーには id、first_name、last_name、email、state、favourite、create_time のいずれかを指定してください。",
	}
}

// NewNannyNotFoundError はレコード未検出エラーを生成する。
func NewNannyNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeNannyNotFound,
		Message:  fmt.Sprintf("指定されたレコードが見つかりません: %d", id),
		Category: "record",
		Action:   "レコードIDを確認してください。",
	}
}

// NewQueryFailedError はクエリ失敗エラーを生成する。
// DBドライバのエラー詳細はログにのみ記録し、クライアントには返さない。
func NewQueryFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeQueryFailed,
		Message:  "データの取得に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewKeyRequiredError はkeyパラメータ未指定エラーを生成する。
func NewKeyRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeKeyRequired,
		Message:  "keyパラメータが指定されていません。",
		Category: "validation",
		Action:   "ダウンロード対象のオブジェクトキーを指定してください。",
	}
}

// NewObjectNotFoundError はオブジェクト未検出エラーを生成する。
func NewObjectNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeObjectNotFound,
		Message:  fmt.Sprintf("指定されたオブジェクトが見つかりません: %s", key),
		Category: "storage",
		Action:   "オブジェクトキーを確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewPresignFailedError は署名付きURL生成失敗エラーを生成する。
func NewPresignFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePresignFailed,
		Message:  "ダウンロードURLの生成に失敗しました。",
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

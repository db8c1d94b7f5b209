package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/paxsolutions/anm/internal/model"
)

// フォールバックトークンの検証エラー。ハンドラー層でAPIErrorにマップする。
var (
	// ErrTokenMissing はトークンが指定されていないことを示す。
	ErrTokenMissing = errors.New("token is required")
	// ErrTokenExpired はトークンの有効期限切れを示す。
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid はデコード・パース・署名検証の失敗を示す。
	ErrTokenInvalid = errors.New("token invalid")
)

// tokenPayload はフォールバックトークンに埋め込むプロファイル情報。
// ワイヤフォーマットは移行元と互換（id, email, name, timestampミリ秒）。
type tokenPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// TokenCodec はフォールバックトークンの発行と検証を提供する。
// クロスオリジンのCookie制限でセッションCookieが届かない場合に、
// URL経由で運べる自己完結トークンとして使用する。
// ペイロードはHMAC-SHA256で署名され、無署名のレガシー形式は
// allowLegacyが有効な場合のみ互換目的で受理する。
type TokenCodec struct {
	secret      []byte
	maxAge      time.Duration
	allowLegacy bool

	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewTokenCodec はTokenCodecを生成する。
func NewTokenCodec(secret string, maxAge time.Duration, allowLegacy bool) *TokenCodec {
	return &TokenCodec{
		secret:      []byte(secret),
		maxAge:      maxAge,
		allowLegacy: allowLegacy,
		now:         time.Now,
	}
}

// Issue はプロファイルから署名付きフォールバックトークンを発行する。
// 形式: base64url(payload) + "." + base64url(HMAC-SHA256(payload))
func (c *TokenCodec) Issue(profile model.UserProfile) (string, error) {
	payload := tokenPayload{
		ID:        profile.ID,
		Email:     profile.Email,
		Name:      profile.Name,
		Timestamp: c.now().UnixMilli(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return encoded + "." + c.sign(encoded), nil
}

// Validate はトークンを検証し、埋め込まれたプロファイルを返す。
// 年齢がmaxAgeを超えた場合のみ期限切れとする（ちょうどmaxAgeは有効）。
func (c *TokenCodec) Validate(token string) (*model.UserProfile, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	raw, err := c.decode(token)
	if err != nil {
		return nil, err
	}

	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrTokenInvalid
	}
	if payload.ID == "" {
		return nil, ErrTokenInvalid
	}

	age := c.now().Sub(time.UnixMilli(payload.Timestamp))
	if age > c.maxAge {
		return nil, ErrTokenExpired
	}

	return &model.UserProfile{
		ID:    payload.ID,
		Name:  payload.Name,
		Email: payload.Email,
	}, nil
}

// decode はトークン形式を判別してペイロードのバイト列を返す。
func (c *TokenCodec) decode(token string) ([]byte, error) {
	encoded, sig, signed := strings.Cut(token, ".")

	if signed {
		if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
			return nil, ErrTokenInvalid
		}
		raw, err := base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, ErrTokenInvalid
		}
		return raw, nil
	}

	// 無署名のレガシー形式（標準base64の単一セグメント）。
	// 偽造可能なため、明示的に許可された場合のみ受理する。
	if !c.allowLegacy {
		return nil, ErrTokenInvalid
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return raw, nil
}

// sign はペイロードのHMAC-SHA256署名をbase64urlで返す。
func (c *TokenCodec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

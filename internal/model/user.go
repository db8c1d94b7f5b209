// Package model はドメインモデルを定義する。
package model

import "time"

// UserProfile はIdPから取得したユーザー情報のスナップショットを表す。
// 独立したusersテーブルは持たず、セッションレコードとフォールバックトークンの
// 中にのみ保持される。
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session はユーザーのログインセッションを表す。
// ProfileはセッションレコードのdataカラムにJSONとして永続化される。
type Session struct {
	ID        string
	Profile   UserProfile
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

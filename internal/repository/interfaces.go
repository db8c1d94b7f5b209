// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/paxsolutions/anm/internal/model"
)

// SessionRepository はセッションデータの永続化インターフェース。
// PostgreSQLバック（本番）とインメモリバック（開発）の両方が実装する。
// 呼び出し側はどちらのバッキングでも動作しなければならず、
// プロセス再起動後の永続性を仮定してはならない。
type SessionRepository interface {
	// Create はセッションを作成する。プロファイルのスナップショットを含めて永続化する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。存在しない・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// NannyQuery は一覧取得の検索・ソート・ページネーション条件を表す。
// SortColumnは呼び出し側で許可リスト検証済みのカラム識別子でなければならない。
type NannyQuery struct {
	Search     string
	SortColumn string
	Order      model.SortOrder
	Limit      int
	Offset     int
}

// NannyRepository はnannyレコードの読み取りインターフェース。
// 書き込み系の操作は提供しない。
type NannyRepository interface {
	// List は条件に一致するレコード一覧とフィルタ後の総件数を返す。
	List(ctx context.Context, query NannyQuery) ([]*model.Nanny, int, error)
	// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Nanny, error)
}

package model

import "time"

// Nanny はnannies_nannyテーブルの1行を表す。
// 検索・ソートに使うカラム以外は表示用の不透明なデータとして扱う。
type Nanny struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Zip        string    `json:"zip"`
	Favourite  string    `json:"favourite"`
	Notes      string    `json:"notes"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

// SortOrder は一覧のソート方向を表す。
type SortOrder string

const (
	// SortOrderAsc は昇順ソートを示す。
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc は降順ソートを示す。
	SortOrderDesc SortOrder = "desc"
)

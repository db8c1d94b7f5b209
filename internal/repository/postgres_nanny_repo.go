package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paxsolutions/anm/internal/model"
)

// nannyColumns はSELECT句で使用するカラムリスト。
const nannyColumns = `id, first_name, last_name, email, phone, address, city, state, zip, favourite, notes, create_time, update_time`

// nannySearchExpr は部分一致検索の対象カラムを連結した式。
// ILIKEにより大文字小文字を区別しない。
const nannySearchExpr = `concat_ws('', favourite, first_name, last_name, email, state)`

// PostgresNannyRepo はPostgreSQLを使用したnannyリポジトリ。
// 読み取り専用で、書き込み系のクエリは発行しない。
type PostgresNannyRepo struct {
	db *sql.DB
}

// NewPostgresNannyRepo はPostgresNannyRepoを生成する。
func NewPostgresNannyRepo(db *sql.DB) *PostgresNannyRepo {
	return &PostgresNannyRepo{db: db}
}

// List は条件に一致するレコード一覧とフィルタ後の総件数を返す。
// query.SortColumnは呼び出し側（サービス層の許可リスト）で検証済みの
// カラム識別子でなければならない。検索語のみプレースホルダで渡す。
func (r *PostgresNannyRepo) List(ctx context.Context, query NannyQuery) ([]*model.Nanny, int, error) {
	order := "DESC"
	if query.Order == model.SortOrderAsc {
		order = "ASC"
	}

	listSQL := fmt.Sprintf(
		`SELECT %s FROM nannies_nanny
		 WHERE %s ILIKE '%%' || $1 || '%%'
		 ORDER BY %s %s
		 LIMIT $2 OFFSET $3`,
		nannyColumns, nannySearchExpr, query.SortColumn, order,
	)

	rows, err := r.db.QueryContext(ctx, listSQL, query.Search, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list nannies: %w", err)
	}
	defer rows.Close()

	nannies := make([]*model.Nanny, 0)
	for rows.Next() {
		nanny := &model.Nanny{}
		if err := scanNanny(rows, nanny); err != nil {
			return nil, 0, fmt.Errorf("failed to scan nanny row: %w", err)
		}
		nannies = append(nannies, nanny)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate nanny rows: %w", err)
	}

	countSQL := fmt.Sprintf(
		`SELECT count(*) FROM nannies_nanny WHERE %s ILIKE '%%' || $1 || '%%'`,
		nannySearchExpr,
	)

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, query.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count nannies: %w", err)
	}

	return nannies, total, nil
}

// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
func (r *PostgresNannyRepo) FindByID(ctx context.Context, id int64) (*model.Nanny, error) {
	nanny := &model.Nanny{}
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM nannies_nanny WHERE id = $1`, nannyColumns),
		id,
	)

	err := scanNanny(row, nanny)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find nanny by ID: %w", err)
	}

	return nanny, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの両方のScanを受け付ける。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanNanny は1行分のnannyレコードを読み取る。
func scanNanny(row rowScanner, nanny *model.Nanny) error {
	return row.Scan(
		&nanny.ID,
		&nanny.FirstName,
		&nanny.LastName,
		&nanny.Email,
		&nanny.Phone,
		&nanny.Address,
		&nanny.City,
		&nanny.State,
		&nanny.Zip,
		&nanny.Favourite,
		&nanny.Notes,
		&nanny.CreateTime,
		&nanny.UpdateTime,
	)
}

// compile-time interface check
var _ NannyRepository = (*PostgresNannyRepo)(nil)

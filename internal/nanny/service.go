// Package nanny はナニーレコード照会のドメインロジックを提供する。
package nanny

import (
	"context"
	"log/slog"
	"strings"

	"github.com/paxsolutions/anm/internal/model"
	"github.com/paxsolutions/anm/internal/repository"
)

const (
	defaultSort  = "create_time"
	defaultLimit = 100
	maxLimit     = 500
)

// sortColumns はORDER BY句に使用を許可するカラムの集合。
// ここにないキーはSQLに到達する前に拒否される。
var sortColumns = map[string]struct{}{
	"id":          {},
	"first_name":  {},
	"last_name":   {},
	"email":       {},
	"state":       {},
	"favourite":   {},
	"create_time": {},
}

// ListParams は一覧取得のリクエストパラメータ。
// ゼロ値のフィールドにはデフォルトが適用される。
type ListParams struct {
	Search string
	Sort   string
	Order  string
	Page   int
	Limit  int
}

// ListResult は一覧取得の結果。
type ListResult struct {
	Data  []*model.Nanny `json:"data"`
	Total int            `json:"total"`
}

// Service はナニーレコード照会のサービス層。
type Service struct {
	repo repository.NannyRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.NannyRepository) *Service {
	return &Service{repo: repo}
}

// List は検索・ソート・ページング条件に従ってレコード一覧を返す。
// ソートキーは許可リストで検証し、未知のキーはINVALID_SORT_KEYエラーになる。
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	sort := params.Sort
	if sort == "" {
		sort = defaultSort
	}
	if _, ok := sortColumns[sort]; !ok {
		return nil, model.NewInvalidSortKeyError(params.Sort)
	}

	order := model.SortOrderDesc
	if strings.EqualFold(params.Order, "asc") {
		order = model.SortOrderAsc
	}

	page := params.Page
	if page < 1 {
		page = 1
	}

	limit := params.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := repository.NannyQuery{
		Search:     strings.TrimSpace(params.Search),
		SortColumn: sort,
		Order:      order,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	nannies, total, err := s.repo.List(ctx, query)
	if err != nil {
		slog.Error("nanny list query failed",
			slog.String("sort", sort),
			slog.String("error", err.Error()))
		return nil, model.NewQueryFailedError()
	}

	if nannies == nil {
		nannies = []*model.Nanny{}
	}
	return &ListResult{Data: nannies, Total: total}, nil
}

// Get はIDでレコードを1件取得する。見つからない場合はNANNY_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Nanny, error) {
	nanny, err := s.repo.FindByID(ctx, id)
	if err != nil {
		slog.Error("nanny lookup failed",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		return nil, model.NewQueryFailedError()
	}
	if nanny == nil {
		return nil, model.NewNannyNotFoundError(id)
	}
	return nanny, nil
}

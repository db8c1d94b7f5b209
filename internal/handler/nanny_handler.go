package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paxsolutions/anm/internal/middleware"
	"github.com/paxsolutions/anm/internal/model"
	"github.com/paxsolutions/anm/internal/nanny"
)

// NannyServiceInterface はナニーハンドラーが必要とするサービスインターフェース。
type NannyServiceInterface interface {
	List(ctx context.Context, params nanny.ListParams) (*nanny.ListResult, error)
	Get(ctx context.Context, id int64) (*model.Nanny, error)
}

// NannyHandler はナニーレコード照会のHTTPハンドラー。
type NannyHandler struct {
	service NannyServiceInterface
}

// NewNannyHandler はNannyHandlerを生成する。
func NewNannyHandler(service NannyServiceInterface) *NannyHandler {
	return &NannyHandler{service: service}
}

// List はレコード一覧を返す。
// GET /api/nannies?search=&sort=&order=&page=&limit=
func (h *NannyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := nanny.ListParams{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	}
	if page := q.Get("page"); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil {
			writeInvalidParamError(w, "page")
			return
		}
		params.Page = n
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			writeInvalidParamError(w, "limit")
			return
		}
		params.Limit = n
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Get はIDで指定したレコードを返す。
// GET /api/nannies/{id}
func (h *NannyHandler) Get(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeInvalidParamError(w, "id")
		return
	}

	result, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// writeInvalidParamError は数値パラメータの形式不正エラーを書き込む。
func writeInvalidParamError(w http.ResponseWriter, name string) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_PARAMETER",
		Message:  "パラメータの形式が不正です: " + name,
		Category: "validation",
		Action:   name + "には数値を指定してください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeTokenMissing, model.ErrCodeInvalidSortKey, model.ErrCodeKeyRequired:
		return http.StatusBadRequest
	case model.ErrCodeTokenExpired, model.ErrCodeTokenInvalid, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeNannyNotFound, model.ErrCodeObjectNotFound:
		return http.StatusNotFound
	case model.ErrCodeQueryFailed, model.ErrCodePresignFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/paxsolutions/anm/internal/middleware"
	"github.com/paxsolutions/anm/internal/model"
	"github.com/paxsolutions/anm/internal/storage"
)

// PresignMetrics はファイルハンドラーが記録するメトリクスのインターフェース。
type PresignMetrics interface {
	RecordPresignIssued()
	RecordPresignFailure()
}

// FileHandler はS3オブジェクトの署名付きURL発行ハンドラー。
type FileHandler struct {
	presigner storage.Presigner
	metrics   PresignMetrics // nilの場合はメトリクスを記録しない
}

// NewFileHandler はFileHandlerを生成する。
func NewFileHandler(presigner storage.Presigner, metrics PresignMetrics) *FileHandler {
	return &FileHandler{
		presigner: presigner,
		metrics:   metrics,
	}
}

// PresignedURL は指定キーのダウンロードURLを発行する。
// GET /api/files/presigned-url?key=xxx
// keyが未指定の場合はストレージへ問い合わせる前に400を返す。
func (h *FileHandler) PresignedURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewKeyRequiredError())
		return
	}

	url, err := h.presigner.PresignDownload(r.Context(), key)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordPresignFailure()
		}

		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
			return
		}

		slog.Error("presigned URL generation failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewPresignFailedError())
		return
	}

	if h.metrics != nil {
		h.metrics.RecordPresignIssued()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

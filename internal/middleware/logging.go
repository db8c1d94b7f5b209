package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/paxsolutions/anm/internal/model"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// profileHolder は下流のセッションミドルウェアが解決したプロフィールを
// 上流のロギングミドルウェアへ受け渡すための入れ物。
// コンテキスト値は下流にしか流れないため、ポインタ経由で書き戻す。
type profileHolder struct {
	profile *model.UserProfile
}

// profileHolderKey はリクエストコンテキストにprofileHolderを格納するためのキー。
var profileHolderKey = contextKey("profile_holder")

// RequestMetrics はリクエスト単位のメトリクス記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type RequestMetrics interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（認証済みの場合）を含む。
// metricsが非nilの場合、ステータスコードとレイテンシも記録する。
func NewLoggingMiddleware(logger *slog.Logger, metrics RequestMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			holder := &profileHolder{}
			ctx := context.WithValue(r.Context(), profileHolderKey, holder)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			if metrics != nil {
				metrics.RecordHTTPStatus(rec.statusCode)
				metrics.RecordRequestLatency(duration)
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			// 下流のセッションミドルウェアが解決したプロフィールを優先し、
			// 上流で既にコンテキストに載っている場合はそちらを使う
			if holder.profile != nil {
				attrs = append(attrs, slog.String("user_id", holder.profile.ID))
			} else if profile, err := ProfileFromContext(r.Context()); err == nil {
				attrs = append(attrs, slog.String("user_id", profile.ID))
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			// slog.Attr をany スライスに変換
			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordTokenValidation(result string)
	RecordPresignIssued()
	RecordPresignFailure()
	RecordSessionsSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	loginSuccess    prometheus.Counter
	loginFail       *prometheus.CounterVec
	tokenValidation *prometheus.CounterVec
	presignIssued   prometheus.Counter
	presignFail     prometheus.Counter
	sessionsSwept   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anm_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anm_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anm_login_success_total",
			Help: "Googleログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anm_login_fail_total",
			Help: "Googleログイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		tokenValidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anm_token_validation_total",
			Help: "フォールバックトークン検証の合計数（結果別）",
		}, []string{"result"}),
		presignIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anm_presign_issued_total",
			Help: "発行された署名付きURLの合計数",
		}),
		presignFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anm_presign_fail_total",
			Help: "署名付きURL発行失敗の合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anm_sessions_swept_total",
			Help: "スイープで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.loginSuccess,
		c.loginFail,
		c.tokenValidation,
		c.presignIssued,
		c.presignFail,
		c.sessionsSwept,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を理由付きで記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordTokenValidation はトークン検証の結果を記録する。
// resultはvalid、expired、invalid、missingのいずれか。
func (c *Collector) RecordTokenValidation(result string) {
	c.tokenValidation.WithLabelValues(result).Inc()
}

// RecordPresignIssued は署名付きURL発行成功を記録する。
func (c *Collector) RecordPresignIssued() {
	c.presignIssued.Inc()
}

// RecordPresignFailure は署名付きURL発行失敗を記録する。
func (c *Collector) RecordPresignFailure() {
	c.presignFail.Inc()
}

// RecordSessionsSwept はスイープで削除されたセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

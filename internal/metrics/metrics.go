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
// 認証サービスやミドルウェアから利用する。
type MetricsCollector interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string, reason string)
	RecordRevokeFailure(provider string)
	RecordUserCreated()
	RecordHTTPStatus(statusCode int)
	RecordLoginLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess *prometheus.CounterVec
	loginFail    *prometheus.CounterVec
	revokeFail   *prometheus.CounterVec
	usersCreated prometheus.Counter
	httpStatus   *prometheus.CounterVec
	loginLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogman_login_success_total",
			Help: "プロバイダー別ログイン成功の合計数",
		}, []string{"provider"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogman_login_failure_total",
			Help: "プロバイダー別・失敗理由別ログイン失敗の合計数",
		}, []string{"provider", "reason"}),
		revokeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogman_revoke_failure_total",
			Help: "プロバイダー別トークン失効失敗の合計数",
		}, []string{"provider"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogman_users_created_total",
			Help: "初回ログインで作成されたユーザーの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogman_login_latency_seconds",
			Help:    "ログインコールバック処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.revokeFail,
		c.usersCreated,
		c.httpStatus,
		c.loginLatency,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(provider string) {
	c.loginSuccess.WithLabelValues(provider).Inc()
}

// RecordLoginFailure はログイン失敗を失敗理由（エラーコード）付きで記録する。
func (c *Collector) RecordLoginFailure(provider string, reason string) {
	c.loginFail.WithLabelValues(provider, reason).Inc()
}

// RecordRevokeFailure はトークン失効失敗を記録する。
func (c *Collector) RecordRevokeFailure(provider string) {
	c.revokeFail.WithLabelValues(provider).Inc()
}

// RecordUserCreated は初回ログインによるユーザー作成を記録する。
func (c *Collector) RecordUserCreated() {
	c.usersCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLoginLatency はログインコールバック処理のレイテンシを記録する。
func (c *Collector) RecordLoginLatency(duration time.Duration) {
	c.loginLatency.Observe(duration.Seconds())
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

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

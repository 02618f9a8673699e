// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 各サービス層が必要とする記録インターフェースをすべて満たす。
type Collector struct {
	votesCast         *prometheus.CounterVec
	discoveryRequests prometheus.Counter
	discoveryLatency  prometheus.Histogram
	downgrades        prometheus.Counter
	listsPrivatized   prometheus.Counter
	webhookEvents     *prometheus.CounterVec
	checkoutSessions  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyshare_votes_cast_total",
			Help: "キャストされた投票の合計数（種別別）",
		}, []string{"type"}),
		discoveryRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyshare_discovery_requests_total",
			Help: "発見フィード取得の合計数",
		}),
		discoveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studyshare_discovery_latency_seconds",
			Help:    "発見フィード構築のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		downgrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyshare_downgrades_total",
			Help: "実行されたダウングレード調整の合計数",
		}),
		listsPrivatized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyshare_lists_privatized_total",
			Help: "ダウングレードで強制公開されたリストの合計数",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyshare_webhook_events_total",
			Help: "受信したWebhookイベントの合計数（種別別）",
		}, []string{"event_type"}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyshare_checkout_sessions_total",
			Help: "作成されたチェックアウトセッションの合計数（種別別）",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.votesCast,
		c.discoveryRequests,
		c.discoveryLatency,
		c.downgrades,
		c.listsPrivatized,
		c.webhookEvents,
		c.checkoutSessions,
	)

	return c
}

// RecordVoteCast は投票のキャストを記録する。
func (c *Collector) RecordVoteCast(voteType string) {
	c.votesCast.WithLabelValues(voteType).Inc()
}

// RecordDiscoveryRequest は発見フィード取得とそのレイテンシを記録する。
func (c *Collector) RecordDiscoveryRequest(duration time.Duration) {
	c.discoveryRequests.Inc()
	c.discoveryLatency.Observe(duration.Seconds())
}

// RecordDowngrade はダウングレード調整の実行と強制公開リスト数を記録する。
func (c *Collector) RecordDowngrade(privatizedCount int) {
	c.downgrades.Inc()
	c.listsPrivatized.Add(float64(privatizedCount))
}

// RecordWebhookEvent は受信Webhookイベントを記録する。
func (c *Collector) RecordWebhookEvent(eventType string) {
	c.webhookEvents.WithLabelValues(eventType).Inc()
}

// RecordCheckoutSession はチェックアウトセッション作成を記録する。
// kindはmonthly、yearly、lifetimeのいずれか。
func (c *Collector) RecordCheckoutSession(kind string) {
	c.checkoutSessions.WithLabelValues(kind).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

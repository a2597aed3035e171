package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rushteam/movierec/pipeline"
)

// Metrics 是引擎与推荐链路的 Prometheus 指标。nil *Metrics 的所有方法都是空操作。
type Metrics struct {
	RebuildsTotal   *prometheus.CounterVec
	RebuildDuration prometheus.Histogram

	SnapshotUsers   prometheus.Gauge
	SnapshotItems   prometheus.Gauge
	SnapshotRatings prometheus.Gauge
	SnapshotVersion prometheus.Gauge

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	NodeDuration *prometheus.HistogramVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RebuildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "movierec_rebuilds_total",
			Help: "Total number of snapshot rebuilds by result",
		}, []string{"result"}),
		RebuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "movierec_rebuild_duration_seconds",
			Help:    "Snapshot rebuild duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SnapshotUsers: f.NewGauge(prometheus.GaugeOpts{
			Name: "movierec_snapshot_users",
			Help: "Number of users in the current snapshot",
		}),
		SnapshotItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "movierec_snapshot_items",
			Help: "Number of movies in the current snapshot",
		}),
		SnapshotRatings: f.NewGauge(prometheus.GaugeOpts{
			Name: "movierec_snapshot_ratings",
			Help: "Number of ratings in the current snapshot",
		}),
		SnapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "movierec_snapshot_version",
			Help: "Version of the current snapshot",
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "movierec_requests_total",
			Help: "Total number of recommendation requests by operation and result",
		}, []string{"operation", "result"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "movierec_request_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		NodeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "movierec_pipeline_node_duration_seconds",
			Help:    "Pipeline node processing duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"node", "kind"}),
	}
}

func (m *Metrics) observeRebuild(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RebuildsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		m.RebuildDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeSnapshot(st Stats) {
	if m == nil {
		return
	}
	m.SnapshotUsers.Set(float64(st.Users))
	m.SnapshotItems.Set(float64(st.Items))
	m.SnapshotRatings.Set(float64(st.Ratings))
	m.SnapshotVersion.Set(float64(st.Version))
}

// ObserveRequest 记录一次推荐请求。
func (m *Metrics) ObserveRequest(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// PipelineObserver 返回记录每个节点耗时的 pipeline.Observer；m 为 nil 时返回 nil。
func (m *Metrics) PipelineObserver() pipeline.Observer {
	if m == nil {
		return nil
	}
	return func(node pipeline.Node, _, _ int, elapsed time.Duration, _ error) {
		m.NodeDuration.WithLabelValues(node.Name(), string(node.Kind())).Observe(elapsed.Seconds())
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

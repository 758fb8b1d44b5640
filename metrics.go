package healthshare

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh tick outcomes.
const (
	RefreshSuccess   = "success"
	RefreshTransient = "transient"
	RefreshError     = "error"
)

// Reasons an entry is left out of ReadAll.
const (
	DropStale     = "stale"
	DropNotMember = "not_member"
)

var allStatuses = []Status{StatusGreen, StatusYellow, StatusRed}

// Metrics exposes health sharing state to Prometheus. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal  *prometheus.CounterVec
	LocalStatus   *prometheus.GaugeVec
	ClusterNodes  *prometheus.GaugeVec
	DroppedTotal  *prometheus.CounterVec
	LastPublishMs prometheus.Gauge
}

// NewMetrics creates the metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healthshare_refresh_total",
			Help: "Refresh ticks by outcome",
		}, []string{"result"}),

		LocalStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "healthshare_local_status",
			Help: "1 for the status last published by this node, 0 otherwise",
		}, []string{"status"}),

		ClusterNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "healthshare_cluster_nodes",
			Help: "Live nodes by status as seen by the last read",
		}, []string{"status"}),

		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healthshare_read_dropped_total",
			Help: "Entries left out of cluster reads by reason",
		}, []string{"reason"}),

		LastPublishMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "healthshare_last_publish_timestamp_ms",
			Help: "Cluster time of the last successful publish",
		}),
	}

	registry.MustRegister(
		m.RefreshTotal,
		m.LocalStatus,
		m.ClusterNodes,
		m.DroppedTotal,
		m.LastPublishMs,
	)

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRefresh counts a refresh tick outcome.
func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

// SetLocalStatus records the status published by this node.
func (m *Metrics) SetLocalStatus(status Status, publishedAt int64) {
	if m == nil {
		return
	}
	for _, s := range allStatuses {
		val := 0.0
		if s == status {
			val = 1.0
		}
		m.LocalStatus.WithLabelValues(string(s)).Set(val)
	}
	m.LastPublishMs.Set(float64(publishedAt))
}

// SetClusterNodes records the per-status node counts of a cluster read.
func (m *Metrics) SetClusterNodes(nodes []NodeHealth) {
	if m == nil {
		return
	}
	counts := make(map[Status]int, len(allStatuses))
	for _, n := range nodes {
		counts[n.Status()]++
	}
	for _, s := range allStatuses {
		m.ClusterNodes.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// AddDropped counts entries left out of a cluster read.
func (m *Metrics) AddDropped(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.DroppedTotal.WithLabelValues(reason).Add(float64(n))
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the monitor's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	cycles           *prometheus.CounterVec // monitoring cycles
	cycleDuration    prometheus.Histogram   // time per cycle
	domainChecks     *prometheus.CounterVec // per-domain verdicts
	endpointRequests *prometheus.CounterVec // authority requests
	transitions      prometheus.Counter     // unblocked -> blocked
	notifications    *prometheus.CounterVec // operator deliveries
	registryDomains  *prometheus.GaugeVec   // domains per list
}

func (m *Metrics) IncCycle(status string) {
	if m == nil || !isValidCycleStatus(status) {
		return
	}
	m.cycles.WithLabelValues(status).Inc()
}

func (m *Metrics) SetCycleDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) IncDomainCheck(blocked bool) {
	if m == nil {
		return
	}
	result := "unblocked"
	if blocked {
		result = "blocked"
	}
	m.domainChecks.WithLabelValues(result).Inc()
}

// IncEndpointRequest counts one authority request. status is "ok",
// "unreachable" or "malformed".
func (m *Metrics) IncEndpointRequest(endpoint, status string) {
	if m == nil || endpoint == "" {
		return
	}
	m.endpointRequests.WithLabelValues(endpoint, status).Inc()
}

func (m *Metrics) AddTransitions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.transitions.Add(float64(n))
}

func (m *Metrics) IncNotification(success bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(boolToResult(success)).Inc()
}

func (m *Metrics) SetRegistryDomains(list string, count int) {
	if m == nil || list == "" {
		return
	}
	m.registryDomains.WithLabelValues(list).Set(float64(count))
}

func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidCycleStatus(s string) bool {
	switch s {
	case "clean", "alerted", "canceled":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "blockwatch"

	m := &Metrics{
		registry: registry,

		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of monitoring cycles",
		}, []string{"status"}),

		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of monitoring cycles in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		domainChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_checks_total",
			Help:      "Total domain checks by verdict",
		}, []string{"result"}),

		endpointRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_requests_total",
			Help:      "Total requests to authority endpoints",
		}, []string{"endpoint", "status"}),

		transitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total domains that transitioned to blocked",
		}),

		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total alert deliveries to operators",
		}, []string{"status"}),

		registryDomains: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_domains",
			Help:      "Current number of monitored domains per list",
		}, []string{"list"}),
	}

	if register {
		registry.MustRegister(
			m.cycles,
			m.cycleDuration,
			m.domainChecks,
			m.endpointRequests,
			m.transitions,
			m.notifications,
			m.registryDomains,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

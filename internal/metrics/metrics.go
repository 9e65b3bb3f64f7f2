// Package metrics instruments duwop with prometheus/client_golang,
// rebuilt on the teacher's internal/metrics counters-and-gauge shape
// (a process-wide op counter plus a live gauge) but swapped from the
// teacher's hand-rolled syncMap[K,V] placeholder onto the real
// prometheus client the rest of the pack reaches for, per spec C-METRICS.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reloads counts every completed registry reload, successful or not.
	Reloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duwop_reloads_total",
		Help: "Total number of service registry reload attempts.",
	})

	// RegistrySize tracks the current number of registered service entries.
	RegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duwop_registry_size",
		Help: "Current number of entries in the service registry.",
	})

	// ProxyErrors counts reverse proxy upstream failures.
	ProxyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duwop_proxy_errors_total",
		Help: "Total number of reverse proxy upstream errors.",
	})

	// DNSQueries counts DNS responses by rcode.
	DNSQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duwop_dns_queries_total",
		Help: "Total number of DNS queries served, labeled by rcode.",
	}, []string{"rcode"})
)

// ObserveDNSQuery records one completed DNS response for the given rcode
// name (e.g. "NOERROR", "SERVFAIL", "NOTIMP").
func ObserveDNSQuery(rcode string) {
	DNSQueries.WithLabelValues(rcode).Inc()
}

// Handler serves the default registry in Prometheus exposition format.
// spec.md's Non-goals exclude an always-on metrics surface, so callers
// only mount this behind Config.MetricsAddr when explicitly enabled.
func Handler() http.Handler {
	return promhttp.Handler()
}

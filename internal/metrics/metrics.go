// Package metrics exposes prometheus counters for the authorization
// pipeline and the audit retention job.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionsTotal counts terminal authorization outcomes by path taken.
	// outcome: allowed | denied | error | unauthenticated
	// source: policy | bypass | fallback
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Terminal authorization decisions by outcome and source.",
		},
		[]string{"outcome", "source"},
	)

	// PDPUnavailableTotal counts requests that hit the degraded path.
	PDPUnavailableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authz_pdp_unavailable_total",
		Help: "Requests served while the PDP was reported unavailable.",
	})

	// RetentionDeletedTotal counts audit records purged by the retention job.
	RetentionDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_retention_deleted_total",
		Help: "Audit records deleted by the retention job.",
	})

	// AuditDroppedTotal counts audit records dropped because the queue was full.
	AuditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_records_dropped_total",
		Help: "Audit records dropped on enqueue.",
	})
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		DecisionsTotal,
		PDPUnavailableTotal,
		RetentionDeletedTotal,
		AuditDroppedTotal,
	)
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

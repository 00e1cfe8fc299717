// Package metrics exposes Prometheus instruments for the API and batch jobs.
// The API serves Registry on /metrics; batch CLIs push it to a Pushgateway.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds every monbudget metric.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// RecurrencesProcessed counts recurrence outcomes (executed, skipped, failed).
var RecurrencesProcessed = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "monbudget",
	Subsystem: "recurrences",
	Name:      "processed_total",
	Help:      "Recurrence occurrences processed, by outcome.",
}, []string{"outcome"})

// BudgetAlertsEmitted counts notifications created, by threshold type.
var BudgetAlertsEmitted = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "monbudget",
	Subsystem: "budget",
	Name:      "alerts_total",
	Help:      "Budget notifications created, by threshold type.",
}, []string{"type"})

// BudgetChecks counts budget evaluations, by result (ok, error).
var BudgetChecks = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "monbudget",
	Subsystem: "budget",
	Name:      "checks_total",
	Help:      "Budget status evaluations, by result.",
}, []string{"result"})

// JobDuration observes batch job run time.
var JobDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "monbudget",
	Subsystem: "job",
	Name:      "duration_seconds",
	Help:      "Batch job duration in seconds.",
	Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
}, []string{"job"})

// JobLastSuccess records the unix time of the last successful run of a job.
var JobLastSuccess = factory.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "monbudget",
	Subsystem: "job",
	Name:      "last_success_timestamp_seconds",
	Help:      "Unix time of the last successful run.",
}, []string{"job"})

// HTTPRequests counts API requests.
var HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "monbudget",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests, by method, route and status.",
}, []string{"method", "route", "status"})

// HTTPErrors counts error responses, by application error code.
var HTTPErrors = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "monbudget",
	Subsystem: "http",
	Name:      "errors_total",
	Help:      "Error responses, by application error code.",
}, []string{"code"})

// HTTPDuration observes API latency.
var HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "monbudget",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Push sends the registry to a Pushgateway under the given job name.
// It is a no-op when url is empty.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(Registry).Push(); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

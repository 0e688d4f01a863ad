package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "status_relay"

var (
	WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Webhook deliveries by event type and routing outcome.",
	}, []string{"event", "outcome"})

	StatusWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_writes_total",
		Help:      "Commit status writes by state and result.",
	}, []string{"state", "result"})

	TokenMints = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_mints_total",
		Help:      "Installation token exchanges by result.",
	}, []string{"result"})

	GraphResolutionSteps = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graph_resolution_steps",
		Help:      "Commits fetched per base-branch resolution.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

func init() {
	prometheus.MustRegister(WebhookDeliveries, StatusWrites, TokenMints, GraphResolutionSteps)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

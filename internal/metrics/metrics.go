package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	WebhooksProcessed *prometheus.CounterVec
	StatusUpdates     *prometheus.CounterVec
	DemoCleared       prometheus.Counter
	EventErrors       prometheus.Counter
	HTTPLatencySec    *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ordercrm_webhooks_processed_total",
		Help: "Order payloads ingested, by source and result.",
	}, []string{"source", "result"})
	statusUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ordercrm_status_updates_total",
		Help: "Local status changes, by target status.",
	}, []string{"status"})
	demoCleared := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordercrm_demo_orders_cleared_total"})
	eventErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordercrm_event_publish_errors_total"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordercrm_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})

	r.MustRegister(webhooks, statusUpdates, demoCleared, eventErrors, httpLatency)
	return &Registry{
		reg:               r,
		WebhooksProcessed: webhooks,
		StatusUpdates:     statusUpdates,
		DemoCleared:       demoCleared,
		EventErrors:       eventErrors,
		HTTPLatencySec:    httpLatency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Package prometheus exports cached provider events as Prometheus metrics.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krisalay/cached-provider/types"
)

var defaultBuckets = []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10}

// observer implements types.Observer using Prometheus.
type observer struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	valueAge        *prometheus.GaugeVec
}

// NewObserver registers the provider metrics on reg. name distinguishes
// providers sharing a registry and becomes the "provider" label.
func NewObserver(reg prometheus.Registerer, name string) types.Observer {
	labels := prometheus.Labels{"provider": name}

	o := &observer{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "cache_request_duration_seconds",
			Help:        "Get/Update latency in seconds",
			Buckets:     defaultBuckets,
			ConstLabels: labels,
		}, []string{"method", "event"}),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "cache_requests_total",
			Help:        "Total number of Get/Update calls by outcome",
			ConstLabels: labels,
		}, []string{"method", "event"}),

		valueAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "cache_value_age_seconds",
			Help:        "Age of the served value when the call returned",
			ConstLabels: labels,
		}, []string{"method"}),
	}

	reg.MustRegister(
		o.requestDuration,
		o.requestsTotal,
		o.valueAge,
	)

	return o
}

func (o *observer) Observe(ev types.Event) {
	method, event := ev.Method.String(), ev.Type.String()

	o.requestDuration.WithLabelValues(method, event).Observe(ev.Latency().Seconds())
	o.requestsTotal.WithLabelValues(method, event).Inc()
	o.valueAge.WithLabelValues(method).Set(ev.ResponseAt.Sub(ev.CachedAt).Seconds())
}

var _ types.Observer = (*observer)(nil)

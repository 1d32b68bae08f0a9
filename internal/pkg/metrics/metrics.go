// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyport.io/keyport/internal/domain"
)

const namespace = "keyport"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route template, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route template and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	domainEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "domain_events_total",
		Help:      "Domain events dispatched, by type.",
	}, []string{"type"})

	passwordHashDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Time spent in bcrypt hash or verify, queueing included.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5},
	})
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, domainEvents, passwordHashDuration)
}

// ObserveHTTP records one finished request. route is the matched template,
// never the raw path, to keep label cardinality bounded.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObservePasswordHash records one bcrypt operation.
func ObservePasswordHash(elapsed time.Duration) {
	passwordHashDuration.Observe(elapsed.Seconds())
}

// RecordEvent is a domain.EventHandler counting events by type.
func RecordEvent(_ context.Context, event *domain.DomainEvent) error {
	domainEvents.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

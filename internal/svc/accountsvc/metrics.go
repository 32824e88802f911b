package accountsvc

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// Transport labels.
const (
	TransportSocket = "socket"
	TransportHTTP   = "http"
)

// Metrics holds the service collectors. The zero value is not usable,
// create it with NewMetrics.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request collectors and registers them, together with
// the process and Go runtime collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "accountsvc",
				Name:      "requests_total",
				Help:      "Total number of account requests handled.",
			},
			[]string{"transport", "action", "success"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "accountsvc",
				Name:      "request_duration_seconds",
				Help:      "Duration of account requests.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"transport", "action"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe records one handled request.
func (m *Metrics) Observe(transport string, action domain.Action, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(transport, string(action), strconv.FormatBool(success)).Inc()
	m.duration.WithLabelValues(transport, string(action)).Observe(elapsed.Seconds())
}

// WatchDirectory registers a gauge reporting the number of stored accounts.
func (m *Metrics) WatchDirectory(svc *AccountService) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "accountsvc",
			Name:      "directory_accounts",
			Help:      "Number of accounts held by the directory.",
		},
		func() float64 {
			count, err := svc.Count(context.Background())
			if err != nil {
				return 0
			}

			return float64(count)
		},
	))
}

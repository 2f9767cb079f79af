package webrouter

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// routerMetrics holds the Prometheus collectors a Router reports to. A nil
// *routerMetrics records nothing.
type routerMetrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	compressed prometheus.Counter
}

func newRouterMetrics(reg prometheus.Registerer) (*routerMetrics, error) {
	m := &routerMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webrouter",
			Name:      "requests_total",
			Help:      "Requests answered, by method and status code.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webrouter",
			Name:      "request_duration_seconds",
			Help:      "Time from request receipt to response write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		compressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webrouter",
			Name:      "compressed_responses_total",
			Help:      "Responses sent with Content-Encoding: gzip.",
		}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.compressed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *routerMetrics) observe(method string, status StatusCode, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(int(status))).Inc()
	m.duration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

func (m *routerMetrics) observeCompressed() {
	if m == nil {
		return
	}
	m.compressed.Inc()
}

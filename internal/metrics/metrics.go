package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormdrain",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stormdrain",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
	}, []string{"method", "path"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormdrain",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Calls to external APIs by upstream and outcome",
	}, []string{"upstream", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormdrain",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stormdrain",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Backend snapshot sync runs by outcome",
	}, []string{"outcome"})

	DrainsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stormdrain",
		Subsystem: "sync",
		Name:      "drains_upserted_total",
		Help:      "Storm drains written to the snapshot",
	})

	AlertsRaised = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stormdrain",
		Subsystem: "alerts",
		Name:      "raised_total",
		Help:      "High-risk alerts broadcast to subscribers",
	})

	AlertSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stormdrain",
		Subsystem: "alerts",
		Name:      "subscribers",
		Help:      "Open alert stream connections",
	})

	RouteStops = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stormdrain",
		Subsystem: "route",
		Name:      "stops",
		Help:      "Number of stops per computed route",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, path string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func Handler() http.Handler { return promhttp.Handler() }

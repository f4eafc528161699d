package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	writeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "write",
		Name:      "rejections_total",
		Help:      "Total number of rejected mutating operations broken down by operation and error code.",
	}, []string{"op", "code"})

	txRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "tx",
		Name:      "retries_total",
		Help:      "Total number of transactions retried after a concurrency conflict.",
	}, []string{"op"})

	sequenceAllocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "registry",
		Subsystem: "sequence",
		Name:      "allocations_total",
		Help:      "Total number of committed sequence allocations broken down by counter.",
	}, []string{"counter"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "registry",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency broken down by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

func RecordRejection(op, code string) {
	if code == "" {
		code = "other"
	}
	writeRejections.WithLabelValues(op, code).Inc()
}

func RecordRetry(op string) {
	txRetries.WithLabelValues(op).Inc()
}

func RecordSequenceAllocation(counter string) {
	sequenceAllocations.WithLabelValues(counter).Inc()
}

func ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

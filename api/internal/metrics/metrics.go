package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry exposed on /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		AnalysesTotal, ModelCallDuration, HTTPRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// AnalysesTotal counts finished analyses by engine and outcome.
var AnalysesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "calc_analyses_total",
		Help: "Analyses by engine and outcome.",
	},
	[]string{"engine", "outcome"}, // parsed | no_list | malformed | error
)

var ModelCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "calc_model_call_duration_seconds",
		Help:    "Latency of the hosted model call.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
	},
	[]string{"engine"},
)

var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "calc_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	},
	[]string{"path", "status"},
)

func ObserveAnalysis(engine, outcome string) {
	AnalysesTotal.WithLabelValues(engine, outcome).Inc()
}

func ObserveModelCall(engine string, d time.Duration) {
	ModelCallDuration.WithLabelValues(engine).Observe(d.Seconds())
}

func ObserveHTTP(path string, status int) {
	HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

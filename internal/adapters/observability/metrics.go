package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	ExternalRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_retries_total", Help: "Outbound request retries."},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)

	// pipeline
	PipelineRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "pipeline_records_total", Help: "Records per source, stage and outcome."},
		[]string{"source", "stage", "outcome"},
	)
	LoadBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "load_batches_total", Help: "Loader batch transactions."},
		[]string{"source", "outcome"}, // outcome: committed|rolled_back
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

// Serve exposes the default registry on addr in the background. Empty addr disables it.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// MustRegisterDefault registers every collector with the default registry used by Serve.
func MustRegisterDefault() {
	prometheus.MustRegister(collectors()...)
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors()...)
	return reg
}

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, ExternalRetries, CacheEvents,
		PipelineRecords, LoadBatches, StageDuration,
	}
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

// ObserveRetry counts one repeated attempt of an outbound request.
func ObserveRetry(service, endpoint string) {
	ExternalRetries.WithLabelValues(service, endpoint).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveRecords adds n records to the (source, stage, outcome) counter; n <= 0 is ignored.
func ObserveRecords(source, stage, outcome string, n int) {
	if n <= 0 {
		return
	}
	PipelineRecords.WithLabelValues(source, stage, outcome).Add(float64(n))
}

func ObserveBatch(source string, committed bool) {
	outcome := "committed"
	if !committed {
		outcome = "rolled_back"
	}
	LoadBatches.WithLabelValues(source, outcome).Inc()
}

func ObserveStage(stage string, dur time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(dur.Seconds())
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}

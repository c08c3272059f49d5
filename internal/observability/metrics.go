package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	pipelineStageTotal  *prometheus.CounterVec
	deadlinesExtracted  prometheus.Counter
	deadlinesKept       prometheus.Counter
	calendarEventsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		pipelineStageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deadline_pipeline_stage_total",
			Help: "Pipeline stage outcomes by stage and status.",
		}, []string{"stage", "status"})

		deadlinesExtracted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deadlines_extracted_total",
			Help: "Deadlines that passed the extraction gate.",
		})

		deadlinesKept = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deadlines_kept_total",
			Help: "Deadlines kept after deduplication.",
		})

		calendarEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_events_total",
			Help: "Calendar event operations by kind and result.",
		}, []string{"kind", "result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			pipelineStageTotal,
			deadlinesExtracted,
			deadlinesKept,
			calendarEventsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// PipelineStages counts stage outcomes, e.g. stage=dedup status=fail_open.
func PipelineStages() *prometheus.CounterVec {
	RegisterMetrics()
	return pipelineStageTotal
}

func DeadlinesExtracted() prometheus.Counter {
	RegisterMetrics()
	return deadlinesExtracted
}

func DeadlinesKept() prometheus.Counter {
	RegisterMetrics()
	return deadlinesKept
}

// CalendarEvents counts event inserts and deletes.
func CalendarEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return calendarEventsTotal
}

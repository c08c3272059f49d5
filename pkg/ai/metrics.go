package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "deadlines",
		Subsystem: "ai",
		Name:      "inference_duration_seconds",
		Help:      "Duration of inference requests",
	}, []string{"provider", "model"})

	inferenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deadlines",
		Subsystem: "ai",
		Name:      "inference_failures_total",
		Help:      "Number of failed inference requests",
	}, []string{"provider", "model"})
)

func recordFailure(span trace.Span, provider, model string, err error) {
	inferenceFailures.WithLabelValues(provider, model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

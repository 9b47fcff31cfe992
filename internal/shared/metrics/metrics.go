package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	ingestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_ingestions_total",
			Help: "Document ingestions by final outcome",
		},
		[]string{"outcome"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "document_stage_duration_seconds",
			Help:    "Time spent per ingestion stage",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "LLM calls by task and outcome",
		},
		[]string{"task", "outcome"},
	)

	ocrRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_requests_total",
			Help: "OCR provider requests by outcome",
		},
		[]string{"outcome"},
	)

	admissionRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestion_admission_rejected_total",
			Help: "Uploads rejected because too many ingestions were in flight",
		},
	)

	inFlightIngestions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingestions_in_flight",
			Help: "Ingestions currently running",
		},
	)
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ingestionsTotal,
		stageDuration,
		llmCallsTotal,
		ocrRequestsTotal,
		admissionRejectedTotal,
		inFlightIngestions,
	)
}

// IncIngestion counts a finished ingestion (completed, failed, empty).
func IncIngestion(outcome string) {
	ingestionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncLLMCall counts a single LLM completion attempt.
func IncLLMCall(task, outcome string) {
	llmCallsTotal.WithLabelValues(task, outcome).Inc()
}

// IncOCR counts a single OCR provider request.
func IncOCR(outcome string) {
	ocrRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncAdmissionRejected counts an upload turned away by admission control.
func IncAdmissionRejected() {
	admissionRejectedTotal.Inc()
}

// IngestionStarted bumps the in-flight gauge and returns the matching decrement.
func IngestionStarted() func() {
	inFlightIngestions.Inc()
	return inFlightIngestions.Dec
}

// Registry exposes the registry for tests and custom collectors.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

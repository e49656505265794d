package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// PrometheusRecorder exports orchestration metrics.
type PrometheusRecorder struct {
	categorized   *prometheus.CounterVec
	aiCalls       *prometheus.CounterVec
	batchDuration prometheus.Histogram
	persistErrors prometheus.Counter
}

// NewPrometheusRecorder registers the categorization metrics on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		categorized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spice_categorized_total",
				Help: "Total number of transactions categorized, by source",
			},
			[]string{"source"},
		),
		aiCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spice_ai_calls_total",
				Help: "Total number of external classifier calls, by status",
			},
			[]string{"status"},
		),
		batchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spice_batch_duration_seconds",
				Help:    "Categorization batch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		persistErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "spice_persist_errors_total",
				Help: "Total number of failed transaction category writes",
			},
		),
	}
}

// Categorized implements Recorder.
func (r *PrometheusRecorder) Categorized(source model.Source, n int) {
	if n > 0 {
		r.categorized.WithLabelValues(string(source)).Add(float64(n))
	}
}

// AICall implements Recorder.
func (r *PrometheusRecorder) AICall(status string) {
	r.aiCalls.WithLabelValues(status).Inc()
}

// BatchDuration implements Recorder.
func (r *PrometheusRecorder) BatchDuration(d time.Duration) {
	r.batchDuration.Observe(d.Seconds())
}

// PersistError implements Recorder.
func (r *PrometheusRecorder) PersistError() {
	r.persistErrors.Inc()
}

type nopRecorder struct{}

func (nopRecorder) Categorized(model.Source, int) {}
func (nopRecorder) AICall(string)                 {}
func (nopRecorder) BatchDuration(time.Duration)   {}
func (nopRecorder) PersistError()                 {}

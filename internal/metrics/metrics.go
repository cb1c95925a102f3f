// Package metrics exposes Prometheus instrumentation for the generation
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsTotal counts finished generation jobs by source (topic, file) and
	// outcome (completed, failed).
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examgen_jobs_total",
		Help: "Finished generation jobs by source and outcome.",
	}, []string{"source", "outcome"})

	// ActiveJobs tracks whether a generation job currently holds the gate.
	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "examgen_active_jobs",
		Help: "Number of generation jobs currently running (0 or 1).",
	})

	// JobDuration observes end-to-end job duration in seconds by source.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "examgen_job_duration_seconds",
		Help:    "End-to-end generation job duration in seconds.",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
	}, []string{"source"})

	// QuestionsGenerated counts questions delivered in finished exams.
	QuestionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examgen_questions_generated_total",
		Help: "Questions delivered in finished exams.",
	})

	// RegenerationsTotal counts single-question regenerations by outcome.
	RegenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examgen_regenerations_total",
		Help: "Single-question regenerations by outcome.",
	}, []string{"outcome"})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	jobsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ontomap_jobs_submitted_total",
		Help: "Jobs accepted into the ledger, by kind.",
	}, []string{"kind"})

	jobsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ontomap_jobs_finished_total",
		Help: "Jobs reaching a terminal state, by kind and status.",
	}, []string{"kind", "status"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ontomap_job_duration_seconds",
		Help:    "Wall-clock job execution time from claim to terminal state.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"kind"})

	recordsMaterialized = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ontomap_records_materialized_total",
		Help: "Canonical records committed to the graph.",
	})

	ontologyVersionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ontomap_ontology_versions_accepted_total",
		Help: "Ontology versions promoted to active.",
	})
)

func init() {
	prometheus.MustRegister(
		jobsSubmitted,
		jobsFinished,
		jobDuration,
		recordsMaterialized,
		ontologyVersionsAccepted,
	)
}

func JobSubmitted(kind string) {
	jobsSubmitted.WithLabelValues(kind).Inc()
}

func JobFinished(kind, status string, took time.Duration) {
	jobsFinished.WithLabelValues(kind, status).Inc()
	if took > 0 {
		jobDuration.WithLabelValues(kind).Observe(took.Seconds())
	}
}

func RecordsMaterialized(n int) {
	if n > 0 {
		recordsMaterialized.Add(float64(n))
	}
}

func OntologyVersionAccepted() {
	ontologyVersionsAccepted.Inc()
}

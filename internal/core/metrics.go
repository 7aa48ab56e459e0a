package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission pipeline.
type Metrics struct {
	SubmissionsStarted  prometheus.Counter
	SubmissionsFinished *prometheus.CounterVec
	RowOutcomes         *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	ActivePipelines     prometheus.Gauge
	BatchesResolved     *prometheus.CounterVec
	ReportsPurged       prometheus.Counter
	StaleBatches        prometheus.Gauge
}

// NewMetrics registers the pipeline metrics with reg. A nil reg creates
// unregistered collectors, which tests use to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SubmissionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "busreg_submissions_started_total",
			Help: "Total number of submissions accepted for processing",
		}),
		SubmissionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busreg_submissions_finished_total",
			Help: "Submissions finished, by report status and failure kind",
		}, []string{"status", "failure_kind"}),
		RowOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busreg_row_outcomes_total",
			Help: "Rows processed, by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busreg_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		ActivePipelines: f.NewGauge(prometheus.GaugeOpts{
			Name: "busreg_active_pipelines",
			Help: "Number of submissions currently being processed",
		}),
		BatchesResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busreg_batches_resolved_total",
			Help: "Staging batches resolved, by decision",
		}, []string{"decision"}),
		ReportsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "busreg_reports_purged_total",
			Help: "Unread reports deleted by maintenance",
		}),
		StaleBatches: f.NewGauge(prometheus.GaugeOpts{
			Name: "busreg_stale_batches",
			Help: "In-progress staging batches older than the stale threshold",
		}),
	}
}

// ObserveStage records the duration of a pipeline stage.
// Call with time.Now() at the start of the stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ObserveReport counts a finished submission and its row outcomes.
func (m *Metrics) ObserveReport(r *Report) {
	kind := ""
	if r.Failure != nil {
		kind = string(r.Failure.Kind)
	}
	m.SubmissionsFinished.WithLabelValues(string(r.Status), kind).Inc()

	m.RowOutcomes.WithLabelValues(OutcomeAccepted.String()).Add(float64(r.Accepted))
	m.RowOutcomes.WithLabelValues(OutcomeRejectedStructural.String()).Add(float64(len(r.RejectedStructural)))
	m.RowOutcomes.WithLabelValues(OutcomeRejectedDuplicate.String()).Add(float64(len(r.RejectedDuplicate)))
	m.RowOutcomes.WithLabelValues(OutcomeRejectedAuthority.String()).Add(float64(len(r.RejectedAuthority)))
	m.RowOutcomes.WithLabelValues(OutcomeRejectedConflict.String()).Add(float64(len(r.RejectedConflict)))
	m.RowOutcomes.WithLabelValues(OutcomeFailed.String()).Add(float64(len(r.FailedRows)))
}

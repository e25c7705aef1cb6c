// Package telemetry bridges generation attempts into prometheus metrics.
// Counters are fed from reconciliation reports and attempt outcomes; the
// engine itself never branches on them.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"pagecraft/internal/generate"
)

// Collector implements generate.Recorder on top of prometheus collectors.
type Collector struct {
	attempts        *prometheus.CounterVec
	modelCalls      prometheus.Counter
	duration        *prometheus.HistogramVec
	reportCounters  *prometheus.CounterVec
	droppedSections prometheus.Counter
}

// NewCollector builds the collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagecraft_attempts_total",
				Help: "Generation attempts by template kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		modelCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagecraft_model_calls_total",
				Help: "Model calls across all attempts, repair phases included",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagecraft_attempt_duration_seconds",
				Help:    "Wall time of generation attempts",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"kind"},
		),
		reportCounters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagecraft_reconcile_sections_total",
				Help: "Reconciliation section counters by kind",
			},
			[]string{"counter"},
		),
		droppedSections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pagecraft_dropped_sections_recorded_total",
				Help: "Dropped sections individually recorded in reports",
			},
		),
	}
	reg.MustRegister(c.attempts, c.modelCalls, c.duration, c.reportCounters, c.droppedSections)
	return c
}

// RecordAttempt feeds one finished attempt into the metrics.
func (c *Collector) RecordAttempt(ctx context.Context, a *generate.Attempt) error {
	c.attempts.WithLabelValues(string(a.Kind), a.Outcome).Inc()
	c.modelCalls.Add(float64(a.ModelCalls))
	c.duration.WithLabelValues(string(a.Kind)).Observe(a.Duration.Seconds())

	if r := a.Report; r != nil {
		c.reportCounters.WithLabelValues("restored").Add(float64(r.RestoredSections))
		c.reportCounters.WithLabelValues("dropped_extra").Add(float64(r.DroppedExtraSections))
		c.reportCounters.WithLabelValues("restored_image_slots").Add(float64(r.RestoredImageSlots))
		c.reportCounters.WithLabelValues("upgraded_base").Add(float64(r.UpgradedBaseSections))
		c.reportCounters.WithLabelValues("dropped_upgraded_base").Add(float64(r.DroppedUpgradedBaseSections))
		c.droppedSections.Add(float64(len(r.Dropped)))
	}
	return nil
}

var _ generate.Recorder = (*Collector)(nil)

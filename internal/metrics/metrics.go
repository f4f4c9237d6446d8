// Package metrics exports scoring and report telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kagehq/kage/internal/model"
)

// Observer captures telemetry for submissions and report builds.
type Observer interface {
	RecordSubmission(instrument model.InstrumentID, variant model.Variant, err error)
	RecordReport(duration time.Duration, cached bool, err error)
	RecordRisk(level model.RiskLevel)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordSubmission(model.InstrumentID, model.Variant, error) {}
func (Nop) RecordReport(time.Duration, bool, error) {}
func (Nop) RecordRisk(model.RiskLevel) {}

// PrometheusObserver exports metrics to Prometheus.
type PrometheusObserver struct {
	submissions    *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	reportDuration prometheus.Histogram
	reportsTotal   *prometheus.CounterVec
	riskClassified *prometheus.CounterVec
}

// NewPrometheusObserver registers the kage metrics with reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "kage"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Accepted assessment submissions.",
		}, []string{"instrument", "variant"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Submissions rejected by validation or storage.",
		}, []string{"instrument"}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_build_duration_seconds",
			Help:      "Latency of report requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Report requests by outcome.",
		}, []string{"outcome"}),
		riskClassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_classifications_total",
			Help:      "Risk levels assigned to built reports.",
		}, []string{"level"}),
	}
	collectors := []prometheus.Collector{o.submissions, o.rejected, o.reportDuration, o.reportsTotal, o.riskClassified}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return nil, fmt.Errorf("metrics already registered under namespace %q: %w", namespace, err)
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return o, nil
}

// RecordSubmission counts an accepted or rejected submission.
func (o *PrometheusObserver) RecordSubmission(instrument model.InstrumentID, variant model.Variant, err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.rejected.WithLabelValues(string(instrument)).Inc()
		return
	}
	o.submissions.WithLabelValues(string(instrument), string(variant)).Inc()
}

// RecordReport tracks report latency and whether the cache served it.
func (o *PrometheusObserver) RecordReport(duration time.Duration, cached bool, err error) {
	if o == nil {
		return
	}
	o.reportDuration.Observe(duration.Seconds())
	outcome := "built"
	switch {
	case err != nil:
		outcome = "error"
	case cached:
		outcome = "cached"
	}
	o.reportsTotal.WithLabelValues(outcome).Inc()
}

// RecordRisk counts a risk classification. Reports without one are skipped.
func (o *PrometheusObserver) RecordRisk(level model.RiskLevel) {
	if o == nil || level == "" {
		return
	}
	o.riskClassified.WithLabelValues(string(level)).Inc()
}

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	phasePrimary  = "primary"
	phaseDeferred = "deferred"
	phaseManual   = "manual"
)

// Metrics holds Prometheus metrics for the audit committer.
type Metrics struct {
	RecordsPersisted     *prometheus.CounterVec
	PrimaryFailures      prometheus.Counter
	FinalizationFailures prometheus.Counter
	EmptyDiffs           prometheus.Counter
	CommitDuration       prometheus.Histogram
}

// NewMetrics registers the audit metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RecordsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companyapp_audit_records_persisted_total",
			Help: "Audit records persisted, by commit phase",
		}, []string{"phase"}),
		PrimaryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "companyapp_audit_primary_commit_failures_total",
			Help: "Commits whose business mutations were rolled back",
		}),
		FinalizationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "companyapp_audit_finalization_failures_total",
			Help: "Commits whose deferred audit records were lost after the business data committed",
		}),
		EmptyDiffs: factory.NewCounter(prometheus.CounterOpts{
			Name: "companyapp_audit_empty_diff_total",
			Help: "Modified entries recorded without any differing property",
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "companyapp_audit_commit_duration_seconds",
			Help:    "Duration of audited commits, both phases included",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AddPersisted(phase string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsPersisted.WithLabelValues(phase).Add(float64(n))
}

func (m *Metrics) IncPrimaryFailures() {
	if m != nil {
		m.PrimaryFailures.Inc()
	}
}

func (m *Metrics) IncFinalizationFailures() {
	if m != nil {
		m.FinalizationFailures.Inc()
	}
}

func (m *Metrics) IncEmptyDiffs() {
	if m != nil {
		m.EmptyDiffs.Inc()
	}
}

func (m *Metrics) ObserveCommitDuration(seconds float64) {
	if m != nil {
		m.CommitDuration.Observe(seconds)
	}
}

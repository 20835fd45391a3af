package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics using Prometheus with zero-allocation hot path
type PrometheusMetrics struct {
	// Hot path counters (atomic, no allocations)
	checksPassed atomic.Uint64
	checksFailed atomic.Uint64

	// Check metrics
	checksTotal     *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
	checkErrors     *prometheus.CounterVec
	checkDuration   prometheus.Histogram

	// Audit ledger metrics
	ledgerAppends     prometheus.Counter
	sequenceConflicts prometheus.Counter
	chainFaults       *prometheus.CounterVec
	ledgerSize        prometheus.Gauge

	// Rule metrics
	ruleReloads *prometheus.CounterVec
	activeRules prometheus.Gauge

	// Lifecycle metrics
	escalations    *prometheus.CounterVec
	openViolations *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total number of compliance checks by type and result",
		},
		[]string{"check_type", "result"},
	)

	violationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of violations detected by severity",
		},
		[]string{"severity"},
	)

	checkErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_errors_total",
			Help:      "Total number of check failures by type",
		},
		[]string{"type"},
	)

	// Check latency: evaluation is in-memory, persistence dominates
	checkDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_milliseconds",
			Help:      "Compliance check latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)

	ledgerAppends := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "appends_total",
			Help:      "Total number of audit ledger appends",
		},
	)

	sequenceConflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "sequence_conflicts_total",
			Help:      "Total number of lost append races retried against a new tail",
		},
	)

	chainFaults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "chain_faults_total",
			Help:      "Total number of integrity faults found during verification",
		},
		[]string{"class"},
	)

	ledgerSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tail_sequence",
			Help:      "Sequence number of the last appended ledger entry",
		},
	)

	ruleReloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "reloads_total",
			Help:      "Total number of rule bundle reloads by outcome",
		},
		[]string{"outcome"},
	)

	activeRules := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "active",
			Help:      "Number of loaded compliance rules",
		},
	)

	escalations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "violations",
			Name:      "escalations_total",
			Help:      "Total number of violations flagged as overdue by severity",
		},
		[]string{"severity"},
	)

	openViolations := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "violations",
			Name:      "open",
			Help:      "Number of unresolved violations by severity",
		},
		[]string{"severity"},
	)

	registry.MustRegister(
		checksTotal,
		violationsTotal,
		checkErrors,
		checkDuration,
		ledgerAppends,
		sequenceConflicts,
		chainFaults,
		ledgerSize,
		ruleReloads,
		activeRules,
		escalations,
		openViolations,
	)

	return &PrometheusMetrics{
		checksTotal:       checksTotal,
		violationsTotal:   violationsTotal,
		checkErrors:       checkErrors,
		checkDuration:     checkDuration,
		ledgerAppends:     ledgerAppends,
		sequenceConflicts: sequenceConflicts,
		chainFaults:       chainFaults,
		ledgerSize:        ledgerSize,
		ruleReloads:       ruleReloads,
		activeRules:       activeRules,
		escalations:       escalations,
		openViolations:    openViolations,
		registry:          registry,
	}
}

// RecordCheck records a completed compliance check (atomic fast path plus
// the labeled Prometheus counters).
func (p *PrometheusMetrics) RecordCheck(checkType string, passed bool, duration time.Duration) {
	result := "failed"
	if passed {
		p.checksPassed.Add(1)
		result = "passed"
	} else {
		p.checksFailed.Add(1)
	}

	p.checksTotal.WithLabelValues(checkType, result).Inc()
	p.checkDuration.Observe(float64(duration.Milliseconds()))
}

// RecordViolation records one detected violation
func (p *PrometheusMetrics) RecordViolation(severity string) {
	p.violationsTotal.WithLabelValues(severity).Inc()
}

// RecordCheckError records a check that could not complete
func (p *PrometheusMetrics) RecordCheckError(errorType string) {
	p.checkErrors.WithLabelValues(errorType).Inc()
}

// RecordLedgerAppend records one audit ledger append
func (p *PrometheusMetrics) RecordLedgerAppend() {
	p.ledgerAppends.Inc()
}

// RecordSequenceConflict records a lost append race
func (p *PrometheusMetrics) RecordSequenceConflict() {
	p.sequenceConflicts.Inc()
}

// RecordChainFault records one verification fault by class
func (p *PrometheusMetrics) RecordChainFault(class string) {
	p.chainFaults.WithLabelValues(class).Inc()
}

// UpdateLedgerSize updates the chain tail sequence gauge
func (p *PrometheusMetrics) UpdateLedgerSize(sequence int64) {
	p.ledgerSize.Set(float64(sequence))
}

// RecordRuleReload records a rule bundle reload attempt
func (p *PrometheusMetrics) RecordRuleReload(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	p.ruleReloads.WithLabelValues(outcome).Inc()
}

// UpdateActiveRules updates the loaded rule count
func (p *PrometheusMetrics) UpdateActiveRules(count int) {
	p.activeRules.Set(float64(count))
}

// RecordEscalation records an overdue violation by severity
func (p *PrometheusMetrics) RecordEscalation(severity string) {
	p.escalations.WithLabelValues(severity).Inc()
}

// UpdateOpenViolations updates the unresolved violation gauge for a severity
func (p *PrometheusMetrics) UpdateOpenViolations(severity string, count int) {
	p.openViolations.WithLabelValues(severity).Set(float64(count))
}

// HTTPHandler returns the Prometheus HTTP handler for /metrics endpoint
func (p *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

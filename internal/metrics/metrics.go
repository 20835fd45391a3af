// Package metrics provides observability for the compliance engine
package metrics

import (
	"net/http"
	"time"
)

// Metrics provides observability for the compliance engine
type Metrics interface {
	// Check metrics
	RecordCheck(checkType string, passed bool, duration time.Duration)
	RecordViolation(severity string)
	RecordCheckError(errorType string)

	// Audit ledger metrics
	RecordLedgerAppend()
	RecordSequenceConflict()
	RecordChainFault(class string)
	UpdateLedgerSize(sequence int64)

	// Rule metrics
	RecordRuleReload(success bool)
	UpdateActiveRules(count int)

	// Lifecycle metrics
	RecordEscalation(severity string)
	UpdateOpenViolations(severity string, count int)

	// HTTP handler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOpMetrics provides a no-op implementation for testing/disabled monitoring
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new no-op metrics instance
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (n *NoOpMetrics) RecordCheck(checkType string, passed bool, duration time.Duration) {}
func (n *NoOpMetrics) RecordViolation(severity string)                                   {}
func (n *NoOpMetrics) RecordCheckError(errorType string)                                 {}
func (n *NoOpMetrics) RecordLedgerAppend()                                               {}
func (n *NoOpMetrics) RecordSequenceConflict()                                           {}
func (n *NoOpMetrics) RecordChainFault(class string)                                     {}
func (n *NoOpMetrics) UpdateLedgerSize(sequence int64)                                   {}
func (n *NoOpMetrics) RecordRuleReload(success bool)                                     {}
func (n *NoOpMetrics) UpdateActiveRules(count int)                                       {}
func (n *NoOpMetrics) RecordEscalation(severity string)                                  {}
func (n *NoOpMetrics) UpdateOpenViolations(severity string, count int)                   {}

// HTTPHandler returns a no-op handler
func (n *NoOpMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("# NoOp metrics - monitoring disabled\n"))
	})
}

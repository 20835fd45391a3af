package metrics

import (
	"testing"
	"time"
)

// BenchmarkMetrics_RecordCheck measures overhead of recording compliance checks
func BenchmarkMetrics_RecordCheck(b *testing.B) {
	scenarios := []struct {
		name    string
		metrics Metrics
	}{
		{"NoOp", &NoOpMetrics{}},
		{"Prometheus", NewPrometheusMetrics("bench")},
	}

	for _, scenario := range scenarios {
		b.Run(scenario.name, func(b *testing.B) {
			m := scenario.metrics
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				m.RecordCheck("LABOR_LAW", i%2 == 0, 5*time.Millisecond)
			}
		})
	}
}

// BenchmarkMetrics_RecordCheck_Parallel measures concurrent metric recording
func BenchmarkMetrics_RecordCheck_Parallel(b *testing.B) {
	m := NewPrometheusMetrics("bench_parallel")

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.RecordCheck("FINANCIAL_IFRS", true, time.Millisecond)
			m.RecordViolation("HIGH")
		}
	})
}

package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliance-engine/go-core/pkg/types"
)

func TestDetectPatterns(t *testing.T) {
	store := NewMemoryStore()
	tr := NewTracker(store, nil)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	ctx := context.Background()

	record := func(code, standard, resourceID string, age time.Duration) {
		v := testViolation()
		v.Code = code
		v.Standard = standard
		v.ResourceID = resourceID
		v.DetectedAt = now.Add(-age)
		require.NoError(t, tr.Record(ctx, v))
	}

	// five meal break violations in the window: systemic
	for i := 0; i < 5; i++ {
		record("MEAL_BREAK_NOT_TAKEN", types.StandardCALabor512, fmt.Sprintf("ts-%d", i), time.Duration(i)*24*time.Hour)
	}
	// two overtime violations: a pattern but not systemic
	record("OVERTIME_UNPAID", types.StandardFLSAOvertime, "ts-0", 24*time.Hour)
	record("OVERTIME_UNPAID", types.StandardFLSAOvertime, "ts-1", 48*time.Hour)
	// outside the 30-day window: ignored
	record("MEAL_BREAK_NOT_TAKEN", types.StandardCALabor512, "ts-old", 45*24*time.Hour)

	patterns, err := tr.DetectPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	meal := patterns[0]
	assert.Equal(t, "MEAL_BREAK_NOT_TAKEN", meal.Code)
	assert.Equal(t, 5, meal.Count)
	assert.True(t, meal.Systemic)
	assert.NotEmpty(t, meal.Recommendation)
	assert.Len(t, meal.Resources, 5)
	assert.True(t, meal.FirstSeen.Before(meal.LastSeen))

	overtime := patterns[1]
	assert.Equal(t, "OVERTIME_UNPAID", overtime.Code)
	assert.Equal(t, 2, overtime.Count)
	assert.False(t, overtime.Systemic)
	assert.Empty(t, overtime.Recommendation)
}

func TestReport(t *testing.T) {
	store := NewMemoryStore()
	tr := NewTracker(store, nil)
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	ctx := context.Background()

	record := func(code string, severity types.Severity, resourceID string, age time.Duration) *types.Violation {
		v := testViolation()
		v.Code = code
		v.Standard = "OTHER"
		v.Severity = severity
		v.ResourceID = resourceID
		v.DetectedAt = now.Add(-age)
		require.NoError(t, tr.Record(ctx, v))
		return v
	}

	v1 := record("MEAL_BREAK_NOT_TAKEN", types.SeverityHigh, "ts-1", 48*time.Hour)
	record("MEAL_BREAK_NOT_TAKEN", types.SeverityHigh, "ts-1", 24*time.Hour)
	record("OVERTIME_UNPAID", types.SeverityCritical, "ts-2", 24*time.Hour)

	// resolve one, 24 hours after detection
	tr.now = func() time.Time { return v1.DetectedAt.Add(24 * time.Hour) }
	_, err := tr.Resolve(ctx, v1.ID, "premium paid")
	require.NoError(t, err)
	tr.now = func() time.Time { return now }

	report, err := tr.Report(ctx, now.Add(-7*24*time.Hour), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 2, report.Unresolved)
	assert.InDelta(t, 24, report.AvgResolutionHours, 0.01)

	assert.Equal(t, 2, report.ByType["MEAL_BREAK_NOT_TAKEN"])
	assert.Equal(t, 1, report.ByType["OVERTIME_UNPAID"])
	assert.Equal(t, 2, report.BySeverity[string(types.SeverityHigh)])
	assert.Equal(t, 1, report.BySeverity[string(types.SeverityCritical)])
	assert.Equal(t, 3, report.ByStandard["OTHER"])

	require.NotEmpty(t, report.TopResources)
	assert.Equal(t, "timesheet/ts-1", report.TopResources[0].Resource)
	assert.Equal(t, 2, report.TopResources[0].Count)

	require.Len(t, report.DailyTrend, 2)
	assert.Equal(t, "2026-06-13", report.DailyTrend[0].Date)
	assert.Equal(t, 1, report.DailyTrend[0].Count)
	assert.Equal(t, "2026-06-14", report.DailyTrend[1].Date)
	assert.Equal(t, 2, report.DailyTrend[1].Count)
}

func TestReportEmptyWindow(t *testing.T) {
	tr, _ := newTestTracker(t)

	report, err := tr.Report(context.Background(), time.Now().Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.AvgResolutionHours)
}

package labor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliance-engine/go-core/pkg/types"
)

func newFLSAEvaluator(t *testing.T) *FLSAEvaluator {
	t.Helper()
	ev, err := NewFLSAEvaluator(DefaultFLSAParams(), nil)
	require.NoError(t, err)
	return ev
}

func TestWeeklyOvertime(t *testing.T) {
	ev := newFLSAEvaluator(t)

	regular, overtime := ev.WeeklyOvertime(45)
	assert.InDelta(t, 40.0, regular, 1e-9)
	assert.InDelta(t, 5.0, overtime, 1e-9)

	regular, overtime = ev.WeeklyOvertime(38)
	assert.InDelta(t, 38.0, regular, 1e-9)
	assert.Zero(t, overtime)

	regular, overtime = ev.WeeklyOvertime(40)
	assert.InDelta(t, 40.0, regular, 1e-9)
	assert.Zero(t, overtime)
}

func TestCompensatoryTime(t *testing.T) {
	ev := newFLSAEvaluator(t)

	hours, err := ev.CompensatoryTime(10, true)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, hours, 1e-9)

	hours, err = ev.CompensatoryTime(10, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public sector")
	assert.Zero(t, hours)
}

func TestCheckMinimumWage_FederalFloor(t *testing.T) {
	ev := newFLSAEvaluator(t)

	// $400 for 40 hours is $10/hour: clears the $7.25 federal floor.
	rec := types.PayRecord{
		TotalPay:    400,
		HoursWorked: 40,
		WorkerClass: types.WorkerStandard,
	}
	assert.Empty(t, ev.CheckMinimumWage(rec))
}

func TestCheckMinimumWage_StateFloorWins(t *testing.T) {
	ev := newFLSAEvaluator(t)

	// The same $10/hour fails against a $16.00 state floor. The higher
	// floor always governs.
	rec := types.PayRecord{
		TotalPay:         400,
		HoursWorked:      40,
		State:            "CA",
		StateMinimumWage: 16.00,
		WorkerClass:      types.WorkerStandard,
	}
	violations := ev.CheckMinimumWage(rec)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeMinimumWage, violations[0].Code)
	assert.Equal(t, types.SeverityCritical, violations[0].Severity)
	assert.Equal(t, types.StandardFLSAMinWage, violations[0].Standard)
	require.NotNil(t, violations[0].FinancialImpact)
	assert.InDelta(t, 240.00, *violations[0].FinancialImpact, 1e-6, "(16.00-10.00)*40")
}

func TestCheckMinimumWage_TippedWorker(t *testing.T) {
	ev := newFLSAEvaluator(t)

	t.Run("tip credit covers the floor", func(t *testing.T) {
		rec := types.PayRecord{
			TotalPay:     2.13 * 30,
			HoursWorked:  30,
			WorkerClass:  types.WorkerTipped,
			TipsReceived: 200,
		}
		assert.Empty(t, ev.CheckMinimumWage(rec))
	})

	t.Run("cash plus tips below the floor", func(t *testing.T) {
		rec := types.PayRecord{
			TotalPay:     2.13 * 30,
			HoursWorked:  30,
			WorkerClass:  types.WorkerTipped,
			TipsReceived: 50,
		}
		violations := ev.CheckMinimumWage(rec)
		require.Len(t, violations, 1)
		assert.Equal(t, types.SeverityCritical, violations[0].Severity)
	})
}

func TestCheckMinimumWage_ZeroHours(t *testing.T) {
	ev := newFLSAEvaluator(t)
	assert.Empty(t, ev.CheckMinimumWage(types.PayRecord{TotalPay: 100}))
}

func TestCheckExemption(t *testing.T) {
	ev := newFLSAEvaluator(t)

	t.Run("executive exemption holds", func(t *testing.T) {
		exempt, violations := ev.CheckExemption(types.ExemptionInput{
			Claimed:           types.ExemptExecutive,
			WeeklySalary:      900,
			PaidOnSalaryBasis: true,
			GuaranteedWeekly:  900,
			JobTitle:          "Operations Manager",
			JobDuties:         []string{"supervise warehouse staff"},
		})
		assert.True(t, exempt)
		assert.Empty(t, violations)
	})

	t.Run("salary level failure", func(t *testing.T) {
		exempt, violations := ev.CheckExemption(types.ExemptionInput{
			Claimed:           types.ExemptExecutive,
			WeeklySalary:      600,
			PaidOnSalaryBasis: true,
			GuaranteedWeekly:  600,
			JobTitle:          "Manager",
		})
		assert.False(t, exempt)
		require.Len(t, violations, 1)
		assert.Equal(t, CodeExemptionMisclass, violations[0].Code)
		assert.Equal(t, types.SeverityHigh, violations[0].Severity)
	})

	t.Run("duties test failure", func(t *testing.T) {
		exempt, violations := ev.CheckExemption(types.ExemptionInput{
			Claimed:           types.ExemptExecutive,
			WeeklySalary:      900,
			PaidOnSalaryBasis: true,
			GuaranteedWeekly:  900,
			JobTitle:          "Cashier",
			JobDuties:         []string{"operate register"},
		})
		assert.False(t, exempt)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0].Description, "duties test")
	})

	t.Run("highly compensated skips duties test", func(t *testing.T) {
		exempt, violations := ev.CheckExemption(types.ExemptionInput{
			Claimed:            types.ExemptHighlyCompensated,
			AnnualCompensation: 120000,
			PaidOnSalaryBasis:  true,
		})
		assert.True(t, exempt)
		assert.Empty(t, violations)
	})

	t.Run("hourly pay fails salary basis", func(t *testing.T) {
		exempt, _ := ev.CheckExemption(types.ExemptionInput{
			Claimed:      types.ExemptProfessional,
			WeeklySalary: 1200,
			JobDuties:    []string{"advanced knowledge of science"},
		})
		assert.False(t, exempt)
	})
}

func TestCheckChildLabor(t *testing.T) {
	ev := newFLSAEvaluator(t)

	t.Run("under minimum age", func(t *testing.T) {
		violations := ev.CheckChildLabor(types.MinorWorkRecord{Age: 13})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeUnderageWorker, violations[0].Code)
		assert.Equal(t, types.SeverityCritical, violations[0].Severity)
		assert.Equal(t, types.StandardFLSAChildLabor, violations[0].Standard)
	})

	t.Run("hazardous work under eighteen", func(t *testing.T) {
		violations := ev.CheckChildLabor(types.MinorWorkRecord{
			Age: 17, HazardousWork: true,
			ShiftStartHour: 9, ShiftEndHour: 17,
		})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeHazardousOccupation, violations[0].Code)
	})

	t.Run("school day hour limit", func(t *testing.T) {
		violations := ev.CheckChildLabor(types.MinorWorkRecord{
			Age: 15, SchoolDay: true, SchoolInSession: true,
			HoursDay: 4, HoursWeek: 12,
			ShiftStartHour: 15, ShiftEndHour: 19,
		})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeChildLaborHours, violations[0].Code)
		assert.Equal(t, types.SeverityHigh, violations[0].Severity)
	})

	t.Run("evening work outside window", func(t *testing.T) {
		violations := ev.CheckChildLabor(types.MinorWorkRecord{
			Age: 14, HoursDay: 3, HoursWeek: 10,
			ShiftStartHour: 17, ShiftEndHour: 20.5,
		})
		require.Len(t, violations, 1)
		assert.Equal(t, CodeChildLaborTimeWindow, violations[0].Code)
	})

	t.Run("summer extends the evening window", func(t *testing.T) {
		violations := ev.CheckChildLabor(types.MinorWorkRecord{
			Age: 14, Summer: true, HoursDay: 8, HoursWeek: 35,
			ShiftStartHour: 12, ShiftEndHour: 20.5,
		})
		assert.Empty(t, violations)
	})

	t.Run("adult worker has no limits", func(t *testing.T) {
		violations := ev.CheckChildLabor(types.MinorWorkRecord{
			Age: 22, HoursDay: 12, HoursWeek: 60,
			ShiftStartHour: 22, ShiftEndHour: 6,
		})
		assert.Empty(t, violations)
	})
}

func TestCheckRecordkeeping(t *testing.T) {
	ev := newFLSAEvaluator(t)

	complete := map[string]interface{}{
		"full_name":              "Dana Smith",
		"social_security_number": "xxx-xx-1234",
		"address":                "1 Main St",
		"occupation":             "clerk",
		"workweek_hours":         40.0,
		"regular_rate":           18.50,
		"total_wages":            740.0,
		"overtime_earnings":      0.0,
	}
	assert.Empty(t, ev.CheckRecordkeeping(complete))

	incomplete := map[string]interface{}{
		"full_name": "Dana Smith",
		"address":   "",
	}
	violations := ev.CheckRecordkeeping(incomplete)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeRecordkeeping, violations[0].Code)
	assert.Equal(t, types.SeverityHigh, violations[0].Severity)
	assert.Contains(t, violations[0].Description, "social_security_number")
	assert.Contains(t, violations[0].Description, "address")
}

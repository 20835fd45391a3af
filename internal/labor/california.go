// Package labor implements wage-and-hour compliance evaluators. Evaluators
// are pure: they classify hours and report violations but never persist
// anything and never block.
package labor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

// Violation codes emitted by the California evaluator.
const (
	CodeMealBreakNotTaken       = "MEAL_BREAK_NOT_TAKEN"
	CodeMealBreakTooShort       = "MEAL_BREAK_TOO_SHORT"
	CodeMealBreakLate           = "MEAL_BREAK_LATE"
	CodeSecondMealNotTaken      = "SECOND_MEAL_BREAK_NOT_TAKEN"
	CodeSecondMealLate          = "SECOND_MEAL_BREAK_LATE"
	CodeRestBreakNotTaken       = "REST_BREAK_NOT_TAKEN"
	CodeRestBreakTooShort       = "REST_BREAK_TOO_SHORT"
	CodeSeventhDayWork          = "SEVENTH_DAY_WORK"
)

// CaliforniaParams are the statutory thresholds for the California
// evaluator. Loaded from rule configuration so wage orders can be updated
// without a deploy.
type CaliforniaParams struct {
	DailyOvertimeThreshold   float64 `yaml:"daily_overtime_threshold"`
	DailyDoubletimeThreshold float64 `yaml:"daily_doubletime_threshold"`
	WeeklyOvertimeThreshold  float64 `yaml:"weekly_overtime_threshold"`
	SeventhDayDoubleAfter    float64 `yaml:"seventh_day_double_after"`
	MealBreakRequiredAfter   float64 `yaml:"meal_break_required_after"`
	SecondMealRequiredAfter  float64 `yaml:"second_meal_required_after"`
	MealBreakMinutes         float64 `yaml:"meal_break_minutes"`
	RestBreakMinutes         float64 `yaml:"rest_break_minutes"`
	MinimumWage              float64 `yaml:"minimum_wage"`
}

// DefaultCaliforniaParams returns the current statutory values.
func DefaultCaliforniaParams() CaliforniaParams {
	return CaliforniaParams{
		DailyOvertimeThreshold:   8,
		DailyDoubletimeThreshold: 12,
		WeeklyOvertimeThreshold:  40,
		SeventhDayDoubleAfter:    8,
		MealBreakRequiredAfter:   5,
		SecondMealRequiredAfter:  10,
		MealBreakMinutes:         30,
		RestBreakMinutes:         10,
		MinimumWage:              16.00,
	}
}

// Validate checks the parameter set for internal consistency.
func (p CaliforniaParams) Validate() error {
	if p.DailyOvertimeThreshold <= 0 || p.DailyDoubletimeThreshold <= p.DailyOvertimeThreshold {
		return fmt.Errorf("labor: doubletime threshold %.1f must exceed overtime threshold %.1f",
			p.DailyDoubletimeThreshold, p.DailyOvertimeThreshold)
	}
	if p.WeeklyOvertimeThreshold <= 0 {
		return fmt.Errorf("labor: weekly overtime threshold must be positive")
	}
	if p.MealBreakMinutes <= 0 || p.RestBreakMinutes <= 0 {
		return fmt.Errorf("labor: break durations must be positive")
	}
	if p.MinimumWage <= 0 {
		return fmt.Errorf("labor: minimum wage must be positive")
	}
	return nil
}

// CaliforniaEvaluator applies California daily/weekly overtime, seventh-day,
// and meal/rest break rules to a timesheet.
type CaliforniaEvaluator struct {
	params CaliforniaParams
	logger *zap.Logger
}

// NewCaliforniaEvaluator creates an evaluator with the given thresholds.
func NewCaliforniaEvaluator(params CaliforniaParams, logger *zap.Logger) (*CaliforniaEvaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaliforniaEvaluator{params: params, logger: logger}, nil
}

// ClassifyDay splits one day's hours into pay tiers. On a seventh
// consecutive workday there are no regular hours: the first eight are
// overtime and the rest doubletime.
func (e *CaliforniaEvaluator) ClassifyDay(hours float64, seventhDay bool) types.DayBreakdown {
	bd := types.DayBreakdown{SeventhDay: seventhDay}
	if hours <= 0 {
		return bd
	}

	if seventhDay {
		bd.OvertimeHalf = math.Min(hours, e.params.SeventhDayDoubleAfter)
		bd.OvertimeDouble = math.Max(0, hours-e.params.SeventhDayDoubleAfter)
		return bd
	}

	bd.Regular = math.Min(hours, e.params.DailyOvertimeThreshold)
	if hours > e.params.DailyOvertimeThreshold {
		bd.OvertimeHalf = math.Min(hours, e.params.DailyDoubletimeThreshold) - e.params.DailyOvertimeThreshold
	}
	if hours > e.params.DailyDoubletimeThreshold {
		bd.OvertimeDouble = hours - e.params.DailyDoubletimeThreshold
	}
	return bd
}

// ClassifyWeek applies the daily breakdown to every day, tracks consecutive
// workdays across the sheet, and then reconciles against the 40-hour weekly
// threshold: regular hours beyond the threshold are promoted to 1.5x
// overtime. Hours the daily rules already classified as overtime are not
// counted toward the weekly excess again.
func (e *CaliforniaEvaluator) ClassifyWeek(ts *types.Timesheet) *types.WeekBreakdown {
	days := make([]types.WorkDay, len(ts.Days))
	copy(days, ts.Days)
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	week := &types.WeekBreakdown{}
	consecutive := 0
	var prevDate *types.WorkDay

	for i := range days {
		day := days[i]
		if day.Hours <= 0 {
			// A recorded zero-hour day is a gap: the consecutive count resets.
			consecutive = 0
			prevDate = nil
			continue
		}

		if prevDate != nil && isNextCalendarDay(prevDate.Date, day.Date) {
			consecutive++
		} else {
			consecutive = 1
		}
		prevDate = &days[i]

		bd := e.ClassifyDay(day.Hours, consecutive >= 7)
		bd.Date = day.Date
		week.Days = append(week.Days, bd)

		week.Regular += bd.Regular
		week.OvertimeHalf += bd.OvertimeHalf
		week.OvertimeDouble += bd.OvertimeDouble
		week.Total += day.Hours
	}

	if week.Regular > e.params.WeeklyOvertimeThreshold {
		convert := week.Regular - e.params.WeeklyOvertimeThreshold
		week.Regular -= convert
		week.OvertimeHalf += convert
	}

	return week
}

// CheckMealBreaks flags missing, short, or late meal periods for one day.
func (e *CaliforniaEvaluator) CheckMealBreaks(day types.WorkDay) []types.Violation {
	var violations []types.Violation
	p := e.params

	if day.Hours > p.MealBreakRequiredAfter {
		if len(day.MealBreaks) == 0 {
			violations = append(violations, caViolation(
				CodeMealBreakNotTaken, types.SeverityCritical, types.StandardCALabor512,
				fmt.Sprintf("no meal period recorded for a %.1f hour shift; a 30-minute meal period must begin before the end of the 5th hour", day.Hours),
			))
		} else {
			first := day.MealBreaks[0]
			if first.Minutes < p.MealBreakMinutes {
				violations = append(violations, caViolation(
					CodeMealBreakTooShort, types.SeverityHigh, types.StandardCALabor512,
					fmt.Sprintf("first meal period lasted %.0f minutes; at least %.0f required", first.Minutes, p.MealBreakMinutes),
				))
			}
			if first.StartHour > p.MealBreakRequiredAfter {
				violations = append(violations, caViolation(
					CodeMealBreakLate, types.SeverityHigh, types.StandardCALabor512,
					fmt.Sprintf("first meal period began %.1f hours into the shift; it must begin before the end of the 5th hour", first.StartHour),
				))
			}
		}
	}

	if day.Hours > p.SecondMealRequiredAfter {
		if len(day.MealBreaks) < 2 {
			violations = append(violations, caViolation(
				CodeSecondMealNotTaken, types.SeverityCritical, types.StandardCALabor512,
				fmt.Sprintf("no second meal period recorded for a %.1f hour shift; one is required before the end of the 10th hour", day.Hours),
			))
		} else {
			second := day.MealBreaks[1]
			if second.StartHour > p.SecondMealRequiredAfter {
				violations = append(violations, caViolation(
					CodeSecondMealLate, types.SeverityHigh, types.StandardCALabor512,
					fmt.Sprintf("second meal period began %.1f hours into the shift; it must begin before the end of the 10th hour", second.StartHour),
				))
			}
			if second.Minutes < p.MealBreakMinutes {
				violations = append(violations, caViolation(
					CodeMealBreakTooShort, types.SeverityHigh, types.StandardCALabor512,
					fmt.Sprintf("second meal period lasted %.0f minutes; at least %.0f required", second.Minutes, p.MealBreakMinutes),
				))
			}
		}
	}

	return violations
}

// RequiredRestBreaks returns how many paid rest periods a shift of the given
// length requires: one per four hours plus one more for each major fraction
// (strictly more than two hours) beyond, none for shifts under 3.5 hours,
// capped at three.
func (e *CaliforniaEvaluator) RequiredRestBreaks(hours float64) int {
	if hours < 3.5 {
		return 0
	}
	required := int(math.Ceil((hours - 2) / 4))
	if required < 1 {
		required = 1
	}
	if required > 3 {
		required = 3
	}
	return required
}

// CheckRestBreaks flags missing or short rest periods for one day.
func (e *CaliforniaEvaluator) CheckRestBreaks(day types.WorkDay) []types.Violation {
	var violations []types.Violation
	required := e.RequiredRestBreaks(day.Hours)

	if len(day.RestBreaks) < required {
		violations = append(violations, caViolation(
			CodeRestBreakNotTaken, types.SeverityHigh, types.StandardCARestBreaks,
			fmt.Sprintf("%d rest period(s) recorded for a %.1f hour shift; %d required", len(day.RestBreaks), day.Hours, required),
		))
	}
	for _, rb := range day.RestBreaks {
		if rb.Minutes < e.params.RestBreakMinutes {
			violations = append(violations, caViolation(
				CodeRestBreakTooShort, types.SeverityMedium, types.StandardCARestBreaks,
				fmt.Sprintf("rest period lasted %.0f minutes; at least %.0f required", rb.Minutes, e.params.RestBreakMinutes),
			))
		}
	}
	return violations
}

// Evaluate runs every California check against a timesheet and returns the
// violations plus the overtime classification for the week. Break premium
// pay accrues one hour at the regular rate per violated break class per day;
// it is attached to the first violation of that class for the day.
func (e *CaliforniaEvaluator) Evaluate(ts *types.Timesheet) ([]types.Violation, *types.WeekBreakdown) {
	week := e.ClassifyWeek(ts)

	var violations []types.Violation
	for _, day := range ts.Days {
		if day.Hours <= 0 {
			continue
		}

		meal := e.CheckMealBreaks(day)
		rest := e.CheckRestBreaks(day)
		if len(meal) > 0 && ts.HourlyRate > 0 {
			premium := ts.HourlyRate
			meal[0].FinancialImpact = &premium
		}
		if len(rest) > 0 && ts.HourlyRate > 0 {
			premium := ts.HourlyRate
			rest[0].FinancialImpact = &premium
		}
		violations = append(violations, meal...)
		violations = append(violations, rest...)
	}

	for _, bd := range week.Days {
		if bd.SeventhDay {
			violations = append(violations, caViolation(
				CodeSeventhDayWork, types.SeverityHigh, types.StandardCALabor512,
				fmt.Sprintf("work performed on a seventh consecutive day (%s)", bd.Date.Format("2006-01-02")),
			))
		}
	}

	e.logger.Debug("California labor evaluation complete",
		zap.String("employee_id", ts.EmployeeID),
		zap.Float64("total_hours", week.Total),
		zap.Int("violations", len(violations)),
	)
	return violations, week
}

// PremiumPay totals the break premium dollars attached to a violation set.
func PremiumPay(violations []types.Violation) float64 {
	var total float64
	for _, v := range violations {
		if v.FinancialImpact != nil {
			total += *v.FinancialImpact
		}
	}
	return total
}

func caViolation(code string, severity types.Severity, standard, description string) types.Violation {
	return types.Violation{
		Category:    types.CategoryLaborLaw,
		Code:        code,
		Severity:    severity,
		Standard:    standard,
		Description: description,
	}
}

// isNextCalendarDay reports whether b is the calendar day after a.
func isNextCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	next := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC).Equal(next)
}

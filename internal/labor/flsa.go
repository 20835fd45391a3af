package labor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

// Violation codes emitted by the FLSA evaluator.
const (
	CodeMinimumWage          = "MINIMUM_WAGE_VIOLATION"
	CodeExemptionMisclass    = "EXEMPTION_MISCLASSIFICATION"
	CodeUnderageWorker       = "UNDERAGE_WORKER"
	CodeHazardousOccupation  = "HAZARDOUS_OCCUPATION"
	CodeChildLaborHours      = "CHILD_LABOR_HOURS_EXCEEDED"
	CodeChildLaborTimeWindow = "CHILD_LABOR_TIME_WINDOW"
	CodeRecordkeeping        = "RECORDKEEPING_VIOLATION"
)

// FLSAParams are the federal thresholds for the FLSA evaluator.
type FLSAParams struct {
	FederalMinimumWage      float64 `yaml:"federal_minimum_wage"`
	TippedCashWage          float64 `yaml:"tipped_cash_wage"`
	YouthWage               float64 `yaml:"youth_wage"`
	WeeklyOvertimeThreshold float64 `yaml:"weekly_overtime_threshold"`
	ExemptWeeklySalary      float64 `yaml:"exempt_weekly_salary"`
	HighlyCompensatedAnnual float64 `yaml:"highly_compensated_annual"`
	MinimumWorkingAge       int     `yaml:"minimum_working_age"`
}

// DefaultFLSAParams returns the current federal values.
func DefaultFLSAParams() FLSAParams {
	return FLSAParams{
		FederalMinimumWage:      7.25,
		TippedCashWage:          2.13,
		YouthWage:               4.25,
		WeeklyOvertimeThreshold: 40,
		ExemptWeeklySalary:      684.00,
		HighlyCompensatedAnnual: 107432.00,
		MinimumWorkingAge:       14,
	}
}

// Validate checks the parameter set for internal consistency.
func (p FLSAParams) Validate() error {
	if p.FederalMinimumWage <= 0 {
		return fmt.Errorf("labor: federal minimum wage must be positive")
	}
	if p.TippedCashWage <= 0 || p.TippedCashWage > p.FederalMinimumWage {
		return fmt.Errorf("labor: tipped cash wage %.2f must be positive and below the federal minimum", p.TippedCashWage)
	}
	if p.WeeklyOvertimeThreshold <= 0 {
		return fmt.Errorf("labor: weekly overtime threshold must be positive")
	}
	if p.ExemptWeeklySalary <= 0 || p.HighlyCompensatedAnnual < p.ExemptWeeklySalary*52 {
		return fmt.Errorf("labor: exemption salary thresholds are inconsistent")
	}
	return nil
}

// exemptionDuties maps each exemption category to the duty keywords that
// satisfy its duties test. Highly compensated employees have no duties test.
var exemptionDuties = map[types.ExemptionType][]string{
	types.ExemptExecutive:      {"manage", "supervise", "director", "manager"},
	types.ExemptAdministrative: {"administrative", "policy", "business operations"},
	types.ExemptProfessional:   {"professional", "advanced knowledge", "science", "learning"},
	types.ExemptComputer:       {"systems analysis", "programming", "software", "engineer"},
	types.ExemptOutsideSales:   {"sales", "customer site", "away from employer"},
}

// FLSAEvaluator applies federal wage-and-hour rules: weekly overtime,
// minimum wage floors, the white-collar exemption tests, child labor limits,
// and payroll recordkeeping completeness.
type FLSAEvaluator struct {
	params FLSAParams
	logger *zap.Logger
}

// NewFLSAEvaluator creates an evaluator with the given thresholds.
func NewFLSAEvaluator(params FLSAParams, logger *zap.Logger) (*FLSAEvaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FLSAEvaluator{params: params, logger: logger}, nil
}

// WeeklyOvertime splits a week's hours at the federal threshold. Everything
// beyond the threshold is paid at time and a half; federal law has no daily
// tiers.
func (e *FLSAEvaluator) WeeklyOvertime(totalHours float64) (regular, overtime float64) {
	if totalHours <= 0 {
		return 0, 0
	}
	regular = math.Min(totalHours, e.params.WeeklyOvertimeThreshold)
	overtime = math.Max(0, totalHours-e.params.WeeklyOvertimeThreshold)
	return regular, overtime
}

// CompensatoryTime converts overtime hours into compensatory time off at
// time and a half. Only public sector employers may substitute comp time for
// overtime pay.
func (e *FLSAEvaluator) CompensatoryTime(overtimeHours float64, publicSector bool) (float64, error) {
	if !publicSector {
		return 0, fmt.Errorf("labor: compensatory time is only allowed for public sector employees")
	}
	return overtimeHours * 1.5, nil
}

// FederalFloor returns the federal minimum cash wage for a worker class.
func (e *FLSAEvaluator) FederalFloor(class types.WorkerClass) float64 {
	switch class {
	case types.WorkerTipped:
		return e.params.TippedCashWage
	case types.WorkerYouth:
		return e.params.YouthWage
	default:
		return e.params.FederalMinimumWage
	}
}

// CheckMinimumWage compares the effective hourly rate against the higher of
// the applicable federal floor and the state floor. For tipped workers the
// cash wage may drop to the tipped floor only if cash plus tips still clears
// the full minimum.
func (e *FLSAEvaluator) CheckMinimumWage(rec types.PayRecord) []types.Violation {
	if rec.HoursWorked <= 0 {
		return nil
	}

	effective := rec.TotalPay / rec.HoursWorked
	floor := math.Max(e.FederalFloor(rec.WorkerClass), rec.StateMinimumWage)

	if rec.WorkerClass == types.WorkerTipped {
		withTips := (rec.TotalPay + rec.TipsReceived) / rec.HoursWorked
		fullFloor := math.Max(e.params.FederalMinimumWage, rec.StateMinimumWage)
		if withTips+1e-9 < fullFloor {
			shortfall := (fullFloor - withTips) * rec.HoursWorked
			v := flsaViolation(CodeMinimumWage, types.SeverityCritical, types.StandardFLSAMinWage,
				fmt.Sprintf("tipped employee earned $%.2f/hour including tips against a $%.2f floor", withTips, fullFloor))
			v.FinancialImpact = &shortfall
			return []types.Violation{v}
		}
	}

	if effective+1e-9 < floor {
		shortfall := (floor - effective) * rec.HoursWorked
		v := flsaViolation(CodeMinimumWage, types.SeverityCritical, types.StandardFLSAMinWage,
			fmt.Sprintf("effective rate $%.2f/hour is below the $%.2f/hour floor for %.1f hours", effective, floor, rec.HoursWorked))
		v.FinancialImpact = &shortfall
		return []types.Violation{v}
	}
	return nil
}

// CheckExemption runs the three-part white-collar exemption test: salary
// level, salary basis, and duties. It returns whether the claimed exemption
// holds and, when it does not, a misclassification violation (an employee
// wrongly treated as exempt is owed overtime).
func (e *FLSAEvaluator) CheckExemption(in types.ExemptionInput) (bool, []types.Violation) {
	var failures []string

	if in.Claimed == types.ExemptHighlyCompensated {
		if in.AnnualCompensation+1e-9 < e.params.HighlyCompensatedAnnual {
			failures = append(failures, fmt.Sprintf(
				"annual compensation $%.2f is below the $%.2f highly compensated threshold",
				in.AnnualCompensation, e.params.HighlyCompensatedAnnual))
		}
	} else if in.WeeklySalary+1e-9 < e.params.ExemptWeeklySalary {
		failures = append(failures, fmt.Sprintf(
			"weekly salary $%.2f is below the $%.2f salary level", in.WeeklySalary, e.params.ExemptWeeklySalary))
	}

	if !in.PaidOnSalaryBasis {
		failures = append(failures, "employee is not paid on a salary basis")
	} else if in.Claimed != types.ExemptHighlyCompensated && in.GuaranteedWeekly+1e-9 < e.params.ExemptWeeklySalary {
		failures = append(failures, fmt.Sprintf(
			"guaranteed weekly salary $%.2f is below the $%.2f salary level", in.GuaranteedWeekly, e.params.ExemptWeeklySalary))
	}

	if keywords, hasDutiesTest := exemptionDuties[in.Claimed]; hasDutiesTest {
		if !dutiesMatch(in.JobDuties, in.JobTitle, keywords) {
			failures = append(failures, fmt.Sprintf("job duties do not satisfy the %s duties test", in.Claimed))
		}
	} else if in.Claimed != types.ExemptHighlyCompensated {
		failures = append(failures, fmt.Sprintf("unknown exemption category %q", in.Claimed))
	}

	if len(failures) == 0 {
		return true, nil
	}

	return false, []types.Violation{flsaViolation(
		CodeExemptionMisclass, types.SeverityHigh, types.StandardFLSAExemption,
		fmt.Sprintf("claimed %s exemption does not hold: %s", in.Claimed, strings.Join(failures, "; ")),
	)}
}

func dutiesMatch(duties []string, title string, keywords []string) bool {
	haystack := strings.ToLower(title + " " + strings.Join(duties, " "))
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// CheckChildLabor applies the federal youth employment limits.
func (e *FLSAEvaluator) CheckChildLabor(rec types.MinorWorkRecord) []types.Violation {
	var violations []types.Violation

	if rec.Age < e.params.MinimumWorkingAge {
		violations = append(violations, flsaViolation(
			CodeUnderageWorker, types.SeverityCritical, types.StandardFLSAChildLabor,
			fmt.Sprintf("worker is %d years old; the minimum age for non-agricultural work is %d", rec.Age, e.params.MinimumWorkingAge),
		))
		return violations
	}

	if rec.Age < 18 && rec.HazardousWork {
		violations = append(violations, flsaViolation(
			CodeHazardousOccupation, types.SeverityCritical, types.StandardFLSAChildLabor,
			fmt.Sprintf("worker aged %d assigned to a hazardous occupation; prohibited under 18", rec.Age),
		))
	}

	if rec.Age >= 14 && rec.Age <= 15 {
		violations = append(violations, e.checkYoungWorkerHours(rec)...)
	}

	return violations
}

// checkYoungWorkerHours enforces the hour and time-of-day limits for 14 and
// 15 year olds.
func (e *FLSAEvaluator) checkYoungWorkerHours(rec types.MinorWorkRecord) []types.Violation {
	var violations []types.Violation

	dailyLimit, weeklyLimit := 8.0, 40.0
	if rec.SchoolDay {
		dailyLimit = 3.0
	}
	if rec.SchoolInSession {
		weeklyLimit = 18.0
	}

	if rec.HoursDay > dailyLimit {
		violations = append(violations, flsaViolation(
			CodeChildLaborHours, types.SeverityHigh, types.StandardFLSAChildLabor,
			fmt.Sprintf("%.1f hours worked in one day; the limit is %.0f for a %s", rec.HoursDay, dailyLimit, schoolDayLabel(rec.SchoolDay)),
		))
	}
	if rec.HoursWeek > weeklyLimit {
		violations = append(violations, flsaViolation(
			CodeChildLaborHours, types.SeverityHigh, types.StandardFLSAChildLabor,
			fmt.Sprintf("%.1f hours worked in one week; the limit is %.0f when school is %s", rec.HoursWeek, weeklyLimit, schoolWeekLabel(rec.SchoolInSession)),
		))
	}

	latestEnd := 19.0 // 7pm
	if rec.Summer {
		latestEnd = 21.0 // 9pm from June 1 through Labor Day
	}
	if rec.ShiftStartHour < 7.0 || rec.ShiftEndHour > latestEnd {
		violations = append(violations, flsaViolation(
			CodeChildLaborTimeWindow, types.SeverityHigh, types.StandardFLSAChildLabor,
			fmt.Sprintf("shift %.1f-%.1f falls outside the permitted 7am-%.0fpm window", rec.ShiftStartHour, rec.ShiftEndHour, latestEnd-12),
		))
	}

	return violations
}

func schoolDayLabel(schoolDay bool) string {
	if schoolDay {
		return "school day"
	}
	return "non-school day"
}

func schoolWeekLabel(inSession bool) string {
	if inSession {
		return "in session"
	}
	return "not in session"
}

// requiredPayrollFields are the records an employer must keep for every
// non-exempt worker.
var requiredPayrollFields = []string{
	"full_name",
	"social_security_number",
	"address",
	"occupation",
	"workweek_hours",
	"regular_rate",
	"total_wages",
	"overtime_earnings",
}

// CheckRecordkeeping verifies a payroll record carries every required field.
func (e *FLSAEvaluator) CheckRecordkeeping(record map[string]interface{}) []types.Violation {
	var missing []string
	for _, field := range requiredPayrollFields {
		value, ok := record[field]
		if !ok || value == nil || value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return []types.Violation{flsaViolation(
		CodeRecordkeeping, types.SeverityHigh, types.StandardFLSARecords,
		fmt.Sprintf("payroll record is missing required fields: %s", strings.Join(missing, ", ")),
	)}
}

func flsaViolation(code string, severity types.Severity, standard, description string) types.Violation {
	return types.Violation{
		Category:    types.CategoryLaborLaw,
		Code:        code,
		Severity:    severity,
		Standard:    standard,
		Description: description,
	}
}

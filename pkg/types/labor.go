package types

import "time"

// Break is a meal or rest period taken during a shift. StartHour is the
// offset in hours from the start of the shift.
type Break struct {
	StartHour float64 `json:"start_hour" yaml:"start_hour"`
	Minutes   float64 `json:"minutes" yaml:"minutes"`
}

// WorkDay is one day of a timesheet.
type WorkDay struct {
	Date       time.Time `json:"date" yaml:"date"`
	Hours      float64   `json:"hours" yaml:"hours"`
	StartHour  float64   `json:"start_hour,omitempty" yaml:"start_hour,omitempty"`
	MealBreaks []Break   `json:"meal_breaks,omitempty" yaml:"meal_breaks,omitempty"`
	RestBreaks []Break   `json:"rest_breaks,omitempty" yaml:"rest_breaks,omitempty"`
}

// Timesheet is the labor-time snapshot a check runs against. Days must be in
// chronological order; gap days are simply absent.
type Timesheet struct {
	EmployeeID string    `json:"employee_id"`
	State      string    `json:"state"`
	HourlyRate float64   `json:"hourly_rate"`
	WeekStart  time.Time `json:"week_start"`
	Days       []WorkDay `json:"days"`
}

// DayBreakdown classifies one day's hours into pay tiers.
type DayBreakdown struct {
	Date           time.Time `json:"date"`
	Regular        float64   `json:"regular_hours"`
	OvertimeHalf   float64   `json:"overtime_hours"`        // paid at 1.5x
	OvertimeDouble float64   `json:"doubletime_hours"`      // paid at 2.0x
	SeventhDay     bool      `json:"seventh_consecutive_day"`
}

// WeekBreakdown is the overtime classification for a full work week.
type WeekBreakdown struct {
	Days           []DayBreakdown `json:"days"`
	Regular        float64        `json:"regular_hours"`
	OvertimeHalf   float64        `json:"overtime_hours"`
	OvertimeDouble float64        `json:"doubletime_hours"`
	Total          float64        `json:"total_hours"`
}

// WorkerClass selects which statutory minimum wage floor applies.
type WorkerClass string

const (
	WorkerStandard WorkerClass = "STANDARD"
	WorkerTipped   WorkerClass = "TIPPED"
	WorkerYouth    WorkerClass = "YOUTH"
)

// PayRecord is the input for a minimum-wage check over a pay period.
type PayRecord struct {
	EmployeeID       string      `json:"employee_id"`
	TotalPay         float64     `json:"total_pay"`
	HoursWorked      float64     `json:"hours_worked"`
	State            string      `json:"state"`
	StateMinimumWage float64     `json:"state_minimum_wage"`
	WorkerClass      WorkerClass `json:"worker_class"`
	TipsReceived     float64     `json:"tips_received,omitempty"`
}

// ExemptionType names the white-collar exemption categories.
type ExemptionType string

const (
	ExemptExecutive         ExemptionType = "EXECUTIVE"
	ExemptAdministrative    ExemptionType = "ADMINISTRATIVE"
	ExemptProfessional      ExemptionType = "PROFESSIONAL"
	ExemptComputer          ExemptionType = "COMPUTER"
	ExemptOutsideSales      ExemptionType = "OUTSIDE_SALES"
	ExemptHighlyCompensated ExemptionType = "HIGHLY_COMPENSATED"
)

// ExemptionInput describes an employee claimed exempt from overtime. The
// exemption holds only if the salary level, salary basis, and duties tests
// all pass.
type ExemptionInput struct {
	EmployeeID         string        `json:"employee_id"`
	Claimed            ExemptionType `json:"claimed_exemption"`
	WeeklySalary       float64       `json:"weekly_salary"`
	AnnualCompensation float64       `json:"annual_compensation"`
	PaidOnSalaryBasis  bool          `json:"paid_on_salary_basis"`
	GuaranteedWeekly   float64       `json:"guaranteed_weekly_salary"`
	JobTitle           string        `json:"job_title"`
	JobDuties          []string      `json:"job_duties"`
}

// MinorWorkRecord is the input for a child-labor check on one worker.
type MinorWorkRecord struct {
	EmployeeID      string  `json:"employee_id"`
	Age             int     `json:"age"`
	HazardousWork   bool    `json:"hazardous_work"`
	SchoolDay       bool    `json:"school_day"`
	SchoolInSession bool    `json:"school_in_session"`
	Summer          bool    `json:"summer"`
	HoursDay        float64 `json:"hours_day"`
	HoursWeek       float64 `json:"hours_week"`
	ShiftStartHour  float64 `json:"shift_start_hour"` // 24h clock, fractional
	ShiftEndHour    float64 `json:"shift_end_hour"`
}

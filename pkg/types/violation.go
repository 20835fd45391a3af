package types

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades how serious a compliance violation is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities so they can be compared; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ViolationStatus is the lifecycle state of a tracked violation.
//
// Transitions: OPEN -> IN_PROGRESS -> RESOLVED, and OPEN/IN_PROGRESS ->
// DISMISSED. RESOLVED and DISMISSED are terminal.
type ViolationStatus string

const (
	StatusOpen       ViolationStatus = "OPEN"
	StatusInProgress ViolationStatus = "IN_PROGRESS"
	StatusResolved   ViolationStatus = "RESOLVED"
	StatusDismissed  ViolationStatus = "DISMISSED"
)

// Terminal reports whether the status admits no further transitions.
func (s ViolationStatus) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// ViolationCategory is the broad family a violation belongs to.
type ViolationCategory string

const (
	CategoryLaborLaw  ViolationCategory = "LABOR_LAW"
	CategoryFinancial ViolationCategory = "FINANCIAL"
	CategoryOther     ViolationCategory = "OTHER"
)

// Regulatory standard identifiers referenced by violations and rules.
const (
	StandardCALabor512     = "CA_LABOR_CODE_512"
	StandardCARestBreaks   = "CA_LABOR_CODE_REST_BREAKS"
	StandardFLSAOvertime   = "FLSA_OVERTIME"
	StandardFLSAMinWage    = "FLSA_MINIMUM_WAGE"
	StandardFLSAExemption  = "FLSA_EXEMPTION"
	StandardFLSAChildLabor = "FLSA_CHILD_LABOR"
	StandardFLSARecords    = "FLSA_RECORDKEEPING"
)

// Violation is a single detected breach of a compliance standard.
//
// Evaluators produce violations with the descriptive fields populated; the
// orchestrator assigns identity, status, and the audit back-reference when it
// persists them.
type Violation struct {
	ID              uuid.UUID         `json:"id"`
	Category        ViolationCategory `json:"category"`
	Code            string            `json:"violation_type"`
	Severity        Severity          `json:"severity"`
	Standard        string            `json:"standard"`
	Description     string            `json:"description"`
	ResourceType    string            `json:"resource_type"`
	ResourceID      string            `json:"resource_id"`
	DetectedAt      time.Time         `json:"detected_at"`
	FinancialImpact *float64          `json:"financial_impact,omitempty"`
	Status          ViolationStatus   `json:"status"`
	AssignedTo      *string           `json:"assigned_to,omitempty"`
	ResolutionNotes *string           `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
	AuditEntryID    *uuid.UUID        `json:"audit_entry_id,omitempty"`
}

// CheckLog records that a compliance check ran, whether or not it found
// anything. Check logs are the evidence trail that checks actually happen.
type CheckLog struct {
	ID              uuid.UUID `json:"id"`
	CheckType       string    `json:"check_type"`
	ResourceType    string    `json:"resource_type"`
	ResourceID      string    `json:"resource_id"`
	CheckedAt       time.Time `json:"checked_at"`
	Passed          bool      `json:"passed"`
	ViolationsFound int       `json:"violations_found"`
	ExecutionTimeMs int64     `json:"execution_time_ms"`
	CheckedBy       string    `json:"checked_by,omitempty"`
}

// CheckResult is what a compliance check returns to its caller.
type CheckResult struct {
	CheckType    string        `json:"check_type"`
	ResourceType string        `json:"resource_type"`
	ResourceID   string        `json:"resource_id"`
	Passed       bool          `json:"passed"`
	Violations   []Violation   `json:"violations"`
	Inconclusive []string      `json:"inconclusive,omitempty"`
	Duration     time.Duration `json:"-"`
	CheckLogID   uuid.UUID     `json:"check_log_id"`
}

package types

import (
	"time"
)

// RuleFamily groups rules by the subsystem that evaluates them.
type RuleFamily string

const (
	FamilyLabor     RuleFamily = "LABOR"
	FamilyFinancial RuleFamily = "FINANCIAL"
)

// Rule is a configurable compliance rule. The Code selects the evaluator
// strategy; Parameters carry the thresholds that evaluator understands and
// are validated against its typed schema when the rule is loaded, not at
// evaluation time.
type Rule struct {
	Code           string                 `json:"rule_code" yaml:"rule_code"`
	Family         RuleFamily             `json:"rule_type" yaml:"rule_type"`
	Standard       string                 `json:"standard" yaml:"standard"`
	Description    string                 `json:"description" yaml:"description"`
	Severity       Severity               `json:"severity" yaml:"severity"`
	Active         bool                   `json:"is_active" yaml:"is_active"`
	Parameters     map[string]interface{} `json:"parameters" yaml:"parameters"`
	Condition      string                 `json:"condition,omitempty" yaml:"condition,omitempty"`
	EffectiveDate  *time.Time             `json:"effective_date,omitempty" yaml:"effective_date,omitempty"`
	ExpirationDate *time.Time             `json:"expiration_date,omitempty" yaml:"expiration_date,omitempty"`
}

// InEffect reports whether the rule is active and within its effective
// window at the given instant.
func (r *Rule) InEffect(at time.Time) bool {
	if !r.Active {
		return false
	}
	if r.EffectiveDate != nil && at.Before(*r.EffectiveDate) {
		return false
	}
	if r.ExpirationDate != nil && at.After(*r.ExpirationDate) {
		return false
	}
	return true
}

package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/compliance-engine/go-core/internal/financial"
	"github.com/compliance-engine/go-core/internal/labor"
	"github.com/compliance-engine/go-core/pkg/types"
)

// decodeParams round-trips a rule's loosely typed parameter map through YAML
// into an evaluator's typed parameter struct. Fields the rule omits keep the
// default values already present in out.
func decodeParams(params map[string]interface{}, out interface{}) error {
	if len(params) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	return nil
}

// CaliforniaParams resolves a rule's parameters over the statutory defaults.
func CaliforniaParams(rule *types.Rule) (labor.CaliforniaParams, error) {
	p := labor.DefaultCaliforniaParams()
	if err := decodeParams(rule.Parameters, &p); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	return p, nil
}

// FLSAParams resolves a rule's parameters over the federal defaults.
func FLSAParams(rule *types.Rule) (labor.FLSAParams, error) {
	p := labor.DefaultFLSAParams()
	if err := decodeParams(rule.Parameters, &p); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	return p, nil
}

// GAAPParams resolves a rule's parameters over the conventional tolerances.
func GAAPParams(rule *types.Rule) (financial.GAAPParams, error) {
	p := financial.DefaultGAAPParams()
	if err := decodeParams(rule.Parameters, &p); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	return p, nil
}

// IFRSParams resolves a rule's parameters over the conventional tolerances.
func IFRSParams(rule *types.Rule) (financial.IFRSParams, error) {
	p := financial.DefaultIFRSParams()
	if err := decodeParams(rule.Parameters, &p); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("rule %s: %w", rule.Code, err)
	}
	return p, nil
}

// ValidateParameters decodes a rule's parameters against the typed schema
// for its family, so malformed thresholds are rejected at load time rather
// than at evaluation time.
func ValidateParameters(rule *types.Rule) error {
	switch rule.Family {
	case types.FamilyLabor:
		if _, err := CaliforniaParams(rule); err != nil {
			return err
		}
		_, err := FLSAParams(rule)
		return err
	case types.FamilyFinancial:
		if _, err := GAAPParams(rule); err != nil {
			return err
		}
		_, err := IFRSParams(rule)
		return err
	default:
		return fmt.Errorf("rule %s: unknown family %q", rule.Code, rule.Family)
	}
}

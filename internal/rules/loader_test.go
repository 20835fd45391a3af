package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliance-engine/go-core/pkg/types"
)

const laborBundle = `
rules:
  - rule_code: CA_MEAL_BREAKS
    rule_type: LABOR
    standard: CA_LABOR_CODE_512
    description: California meal break requirements
    severity: HIGH
    is_active: true
    parameters:
      meal_break_required_after: 5
    condition: resource["state"] == "CA"
  - rule_code: FLSA_MIN_WAGE
    rule_type: LABOR
    standard: FLSA_MINIMUM_WAGE
    description: Federal minimum wage floor
    severity: CRITICAL
    is_active: true
`

func writeBundle(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeBundle(t, dir, "labor.yaml", laborBundle)

	l := NewLoader(nil)
	rules, err := l.LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "CA_MEAL_BREAKS", rules[0].Code)
	assert.Equal(t, types.FamilyLabor, rules[0].Family)
	assert.Equal(t, types.SeverityHigh, rules[0].Severity)
	assert.InDelta(t, 5.0, rules[0].Parameters["meal_break_required_after"], 0.001)

	// the condition was compiled during load
	assert.Equal(t, 1, l.CacheSize())
}

func TestLoadFromFileRejectsBadRules(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(nil)

	t.Run("missing code", func(t *testing.T) {
		path := writeBundle(t, dir, "nocode.yaml", `
rules:
  - rule_type: LABOR
    standard: CA_LABOR_CODE_512
    severity: HIGH
`)
		_, err := l.LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("bad severity", func(t *testing.T) {
		path := writeBundle(t, dir, "badsev.yaml", `
rules:
  - rule_code: X
    rule_type: LABOR
    standard: CA_LABOR_CODE_512
    severity: SEVERE
`)
		_, err := l.LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("bad parameters", func(t *testing.T) {
		path := writeBundle(t, dir, "badparams.yaml", `
rules:
  - rule_code: X
    rule_type: LABOR
    standard: CA_LABOR_CODE_512
    severity: HIGH
    parameters:
      meal_break_required_after: -2
`)
		_, err := l.LoadFromFile(path)
		assert.Error(t, err)
	})

	t.Run("non-boolean condition", func(t *testing.T) {
		path := writeBundle(t, dir, "badcond.yaml", `
rules:
  - rule_code: X
    rule_type: LABOR
    standard: CA_LABOR_CODE_512
    severity: HIGH
    condition: '"CA"'
`)
		_, err := l.LoadFromFile(path)
		assert.Error(t, err)
	})
}

func TestLoadFromDirectorySkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "labor.yaml", laborBundle)
	writeBundle(t, dir, "broken.yaml", "rules: [{rule_code: ''}]")
	writeBundle(t, dir, "notes.txt", "not a rule file")

	l := NewLoader(nil)
	rules, err := l.LoadFromDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestApplies(t *testing.T) {
	l := NewLoader(nil)

	rule := &types.Rule{
		Code:      "CA_MEAL_BREAKS",
		Family:    types.FamilyLabor,
		Standard:  types.StandardCALabor512,
		Severity:  types.SeverityHigh,
		Condition: `resource["state"] == "CA"`,
	}
	require.NoError(t, l.CompileCondition(rule.Condition))

	applies, err := l.Applies(rule, map[string]interface{}{"state": "CA"}, nil)
	require.NoError(t, err)
	assert.True(t, applies)

	applies, err = l.Applies(rule, map[string]interface{}{"state": "NY"}, nil)
	require.NoError(t, err)
	assert.False(t, applies)
}

func TestAppliesWithoutCondition(t *testing.T) {
	l := NewLoader(nil)

	applies, err := l.Applies(&types.Rule{Code: "X"}, nil, nil)
	require.NoError(t, err)
	assert.True(t, applies)
}

func TestAppliesCompilesOnDemand(t *testing.T) {
	l := NewLoader(nil)

	rule := &types.Rule{Code: "X", Condition: `context["dry_run"] == true`}
	applies, err := l.Applies(rule, nil, map[string]interface{}{"dry_run": true})
	require.NoError(t, err)
	assert.True(t, applies)
	assert.Equal(t, 1, l.CacheSize())

	l.ClearCache()
	assert.Zero(t, l.CacheSize())
}

func TestTypedParams(t *testing.T) {
	t.Run("california overrides", func(t *testing.T) {
		rule := laborRule("CA_MEAL_BREAKS")
		rule.Parameters = map[string]interface{}{"minimum_wage": 17.5}
		p, err := CaliforniaParams(rule)
		require.NoError(t, err)
		assert.InDelta(t, 17.5, p.MinimumWage, 0.001)
		// untouched fields keep the statutory defaults
		assert.InDelta(t, 8, p.DailyOvertimeThreshold, 0.001)
	})

	t.Run("flsa overrides", func(t *testing.T) {
		rule := laborRule("FLSA_MIN_WAGE")
		rule.Parameters = map[string]interface{}{"federal_minimum_wage": 9.50}
		p, err := FLSAParams(rule)
		require.NoError(t, err)
		assert.InDelta(t, 9.50, p.FederalMinimumWage, 0.001)
	})

	t.Run("financial overrides", func(t *testing.T) {
		rule := &types.Rule{
			Code: "GAAP_EQUATION", Family: types.FamilyFinancial,
			Standard: types.StandardGAAPEquation, Severity: types.SeverityCritical,
			Parameters: map[string]interface{}{"tolerance": 0.05},
		}
		gp, err := GAAPParams(rule)
		require.NoError(t, err)
		assert.InDelta(t, 0.05, gp.Tolerance, 0.0001)

		ip, err := IFRSParams(rule)
		require.NoError(t, err)
		assert.InDelta(t, 0.05, ip.Tolerance, 0.0001)
	})
}

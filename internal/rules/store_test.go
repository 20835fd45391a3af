package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliance-engine/go-core/pkg/types"
)

func laborRule(code string) *types.Rule {
	return &types.Rule{
		Code:     code,
		Family:   types.FamilyLabor,
		Standard: types.StandardCALabor512,
		Severity: types.SeverityHigh,
		Active:   true,
	}
}

func TestMemoryStoreAddGet(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Add(laborRule("CA_MEAL_BREAKS")))
	assert.Equal(t, 1, s.Count())

	rule, err := s.Get("CA_MEAL_BREAKS")
	require.NoError(t, err)
	assert.Equal(t, types.FamilyLabor, rule.Family)

	_, err = s.Get("MISSING")
	assert.Error(t, err)
}

func TestMemoryStoreAddValidates(t *testing.T) {
	s := NewMemoryStore()

	assert.Error(t, s.Add(&types.Rule{Family: types.FamilyLabor}))
	assert.Error(t, s.Add(&types.Rule{Code: "X", Family: "WEATHER"}))
}

func TestMemoryStoreReplaceKeepsFamilyIndexClean(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Add(laborRule("CA_MEAL_BREAKS")))
	replacement := laborRule("CA_MEAL_BREAKS")
	replacement.Severity = types.SeverityCritical
	require.NoError(t, s.Add(replacement))

	assert.Equal(t, 1, s.Count())
	byFamily := s.FindByFamily(types.FamilyLabor)
	require.Len(t, byFamily, 1)
	assert.Equal(t, types.SeverityCritical, byFamily[0].Severity)
}

func TestMemoryStoreFindByFamily(t *testing.T) {
	s := NewMemoryStore()

	require.NoError(t, s.Add(laborRule("CA_MEAL_BREAKS")))
	require.NoError(t, s.Add(&types.Rule{
		Code:     "GAAP_EQUATION",
		Family:   types.FamilyFinancial,
		Standard: types.StandardGAAPEquation,
		Severity: types.SeverityCritical,
		Active:   true,
	}))

	assert.Len(t, s.FindByFamily(types.FamilyLabor), 1)
	assert.Len(t, s.FindByFamily(types.FamilyFinancial), 1)

	require.NoError(t, s.Remove("CA_MEAL_BREAKS"))
	assert.Empty(t, s.FindByFamily(types.FamilyLabor))

	s.Clear()
	assert.Zero(t, s.Count())
}

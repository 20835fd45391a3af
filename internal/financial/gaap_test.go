package financial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compliance-engine/go-core/pkg/types"
)

func newGAAP(t *testing.T) *GAAPEvaluator {
	t.Helper()
	e, err := NewGAAPEvaluator(DefaultGAAPParams(), nil)
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestGAAPParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultGAAPParams().Validate())

	bad := DefaultGAAPParams()
	bad.Tolerance = 0
	assert.Error(t, bad.Validate())

	bad = DefaultGAAPParams()
	bad.MaterialityThreshold = 1.5
	assert.Error(t, bad.Validate())
}

func TestCheckBalanceSheet(t *testing.T) {
	e := newGAAP(t)

	t.Run("balanced", func(t *testing.T) {
		vs := e.CheckBalanceSheet(types.BalanceSheet{
			TotalAssets:      180000,
			TotalLiabilities: 70000,
			TotalEquity:      110000,
		})
		assert.Empty(t, vs)
	})

	t.Run("imbalanced", func(t *testing.T) {
		vs := e.CheckBalanceSheet(types.BalanceSheet{
			TotalAssets:      180000,
			TotalLiabilities: 70000,
			TotalEquity:      100000,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeBalanceSheetImbalance, vs[0].Code)
		assert.Equal(t, types.SeverityCritical, vs[0].Severity)
		assert.Equal(t, types.StandardGAAPEquation, vs[0].Standard)
		require.NotNil(t, vs[0].FinancialImpact)
		assert.InDelta(t, 10000, *vs[0].FinancialImpact, 0.001)
	})

	t.Run("within tolerance", func(t *testing.T) {
		vs := e.CheckBalanceSheet(types.BalanceSheet{
			TotalAssets:      100000.005,
			TotalLiabilities: 60000,
			TotalEquity:      40000,
		})
		assert.Empty(t, vs)
	})
}

func TestCheckRevenueRecord(t *testing.T) {
	e := newGAAP(t)
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("earned and timely", func(t *testing.T) {
		vs := e.CheckRevenueRecord(types.RevenueRecord{
			Amount:          5000,
			TransactionDate: jan,
			RecognitionDate: jan.AddDate(0, 0, 5),
			GoodsDelivered:  true,
		})
		assert.Empty(t, vs)
	})

	t.Run("not earned", func(t *testing.T) {
		vs := e.CheckRevenueRecord(types.RevenueRecord{
			Amount:          5000,
			TransactionDate: jan,
			RecognitionDate: jan,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeRevenueNotEarned, vs[0].Code)
		require.NotNil(t, vs[0].FinancialImpact)
		assert.InDelta(t, 5000, *vs[0].FinancialImpact, 0.001)
	})

	t.Run("premature recognition", func(t *testing.T) {
		vs := e.CheckRevenueRecord(types.RevenueRecord{
			Amount:           5000,
			TransactionDate:  jan,
			RecognitionDate:  jan.AddDate(0, 0, -3),
			ServicesRendered: true,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodePrematureRecognition, vs[0].Code)
	})
}

func TestCheckRevenueContractGAAP(t *testing.T) {
	e := newGAAP(t)

	valid := types.RevenueContract{
		ContractID:       "c-1",
		CustomerID:       "cust-1",
		ContractExists:   true,
		TransactionPrice: 1000,
		Obligations: []types.PerformanceObligation{
			{Description: "license", AllocatedAmount: 600, Method: types.SatisfyPointInTime},
			{Description: "support", AllocatedAmount: 400, Method: types.SatisfyOverTime},
		},
	}
	assert.Empty(t, e.CheckRevenueContract(valid))

	t.Run("no contract", func(t *testing.T) {
		c := valid
		c.ContractExists = false
		vs := e.CheckRevenueContract(c)
		require.Len(t, vs, 1)
		assert.Equal(t, CodeNoContract, vs[0].Code)
		assert.Equal(t, types.StandardGAAPASC606Step1, vs[0].Standard)
	})

	t.Run("no obligations", func(t *testing.T) {
		c := valid
		c.Obligations = nil
		vs := e.CheckRevenueContract(c)
		require.Len(t, vs, 1)
		assert.Equal(t, CodeNoObligations, vs[0].Code)
	})

	t.Run("invalid price", func(t *testing.T) {
		c := valid
		c.TransactionPrice = 0
		vs := e.CheckRevenueContract(c)
		require.Len(t, vs, 1)
		assert.Equal(t, CodeInvalidPrice, vs[0].Code)
	})

	t.Run("allocation mismatch", func(t *testing.T) {
		c := valid
		c.Obligations = []types.PerformanceObligation{
			{Description: "license", AllocatedAmount: 700, Method: types.SatisfyPointInTime},
		}
		vs := e.CheckRevenueContract(c)
		require.Len(t, vs, 1)
		assert.Equal(t, CodeAllocationMismatch, vs[0].Code)
	})

	t.Run("future satisfaction", func(t *testing.T) {
		future := e.now().AddDate(0, 1, 0)
		c := valid
		c.Obligations = []types.PerformanceObligation{
			{Description: "license", AllocatedAmount: 1000, Method: types.SatisfyPointInTime,
				ControlTransferred: true, SatisfactionDate: &future},
		}
		vs := e.CheckRevenueContract(c)
		require.Len(t, vs, 1)
		assert.Equal(t, CodeFutureSatisfaction, vs[0].Code)
	})
}

func TestCheckMatching(t *testing.T) {
	e := newGAAP(t)

	assert.Empty(t, e.CheckMatching(types.ExpenseRecord{
		Amount: 100, ExpensePeriod: "2026-Q1", RevenuePeriod: "2026-Q1",
	}))
	assert.Empty(t, e.CheckMatching(types.ExpenseRecord{
		Amount: 100, ExpensePeriod: "2026-Q1",
	}))

	vs := e.CheckMatching(types.ExpenseRecord{
		Amount: 100, ExpensePeriod: "2026-Q2", RevenuePeriod: "2026-Q1",
	})
	require.Len(t, vs, 1)
	assert.Equal(t, CodePeriodMismatch, vs[0].Code)
	assert.Equal(t, types.SeverityMedium, vs[0].Severity)
}

func TestCheckInventoryGAAP(t *testing.T) {
	e := newGAAP(t)

	t.Run("identity holds", func(t *testing.T) {
		vs := e.CheckInventory(types.InventoryRecord{
			Beginning: 1000, Purchases: 5000, Ending: 1500, ReportedCOGS: 4500,
		})
		assert.Empty(t, vs)
	})

	t.Run("cogs mismatch", func(t *testing.T) {
		vs := e.CheckInventory(types.InventoryRecord{
			Beginning: 1000, Purchases: 5000, Ending: 1500, ReportedCOGS: 4000,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeCOGSMismatch, vs[0].Code)
		require.NotNil(t, vs[0].FinancialImpact)
		assert.InDelta(t, 500, *vs[0].FinancialImpact, 0.001)
	})

	t.Run("negative ending", func(t *testing.T) {
		vs := e.CheckInventory(types.InventoryRecord{
			Beginning: 1000, Purchases: 5000, Ending: -200, ReportedCOGS: 6200,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeNegativeInventory, vs[0].Code)
		assert.Equal(t, types.SeverityCritical, vs[0].Severity)
	})
}

func TestDepreciation(t *testing.T) {
	e := newGAAP(t)

	t.Run("straight line", func(t *testing.T) {
		asset := types.FixedAsset{Cost: 10000, SalvageValue: 1000, UsefulLifeYears: 5, YearsInService: 3}
		assert.InDelta(t, 5400, e.StraightLineDepreciation(asset), 0.001)

		asset.YearsInService = 8
		assert.InDelta(t, 9000, e.StraightLineDepreciation(asset), 0.001)
	})

	t.Run("double declining", func(t *testing.T) {
		asset := types.FixedAsset{Cost: 10000, SalvageValue: 1000, UsefulLifeYears: 5, YearsInService: 2}
		// year 1: 4000, year 2: 2400
		assert.InDelta(t, 6400, e.DoubleDecliningDepreciation(asset), 0.001)
	})

	t.Run("recorded matches", func(t *testing.T) {
		vs := e.CheckDepreciation(types.FixedAsset{
			Cost: 10000, SalvageValue: 1000, UsefulLifeYears: 5, YearsInService: 3,
			AccumulatedDepreciation: 5400, Method: types.DepreciationStraightLine,
		})
		assert.Empty(t, vs)
	})

	t.Run("mismatch", func(t *testing.T) {
		vs := e.CheckDepreciation(types.FixedAsset{
			Cost: 10000, SalvageValue: 1000, UsefulLifeYears: 5, YearsInService: 3,
			AccumulatedDepreciation: 3000, Method: types.DepreciationStraightLine,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeDepreciationMismatch, vs[0].Code)
	})

	t.Run("over depreciated", func(t *testing.T) {
		vs := e.CheckDepreciation(types.FixedAsset{
			Cost: 10000, SalvageValue: 1000, UsefulLifeYears: 5, YearsInService: 5,
			AccumulatedDepreciation: 9500, Method: types.DepreciationStraightLine,
		})
		require.NotEmpty(t, vs)
		assert.Equal(t, CodeOverDepreciation, vs[0].Code)
	})

	t.Run("invalid salvage", func(t *testing.T) {
		vs := e.CheckDepreciation(types.FixedAsset{
			Cost: 10000, SalvageValue: 12000, UsefulLifeYears: 5,
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeInvalidSalvage, vs[0].Code)
	})
}

func TestCheckJournalEntry(t *testing.T) {
	e := newGAAP(t)
	entryDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("balanced entry", func(t *testing.T) {
		vs := e.CheckJournalEntry(types.JournalEntry{
			EntryID: "je-1", EntryDate: entryDate, Description: "office rent for June",
			Lines: []types.JournalLine{
				{Account: "rent_expense", Debit: 2000},
				{Account: "cash", Credit: 2000},
			},
		})
		assert.Empty(t, vs)
	})

	t.Run("unbalanced", func(t *testing.T) {
		vs := e.CheckJournalEntry(types.JournalEntry{
			EntryID: "je-2", EntryDate: entryDate, Description: "office rent for June",
			Lines: []types.JournalLine{
				{Account: "rent_expense", Debit: 2000},
				{Account: "cash", Credit: 1800},
			},
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeUnbalancedEntry, vs[0].Code)
		require.NotNil(t, vs[0].FinancialImpact)
		assert.InDelta(t, 200, *vs[0].FinancialImpact, 0.001)
	})

	t.Run("one sided", func(t *testing.T) {
		vs := e.CheckJournalEntry(types.JournalEntry{
			EntryID: "je-3", EntryDate: entryDate, Description: "cash receipt entry",
			Lines: []types.JournalLine{{Account: "cash", Debit: 500}},
		})
		require.Len(t, vs, 1)
		assert.Equal(t, CodeNoCredits, vs[0].Code)
	})

	t.Run("future dated and terse", func(t *testing.T) {
		vs := e.CheckJournalEntry(types.JournalEntry{
			EntryID: "je-4", EntryDate: e.now().AddDate(0, 0, 10), Description: "adj",
			Lines: []types.JournalLine{
				{Account: "a", Debit: 100},
				{Account: "b", Credit: 100},
			},
		})
		require.Len(t, vs, 2)
		codes := []string{vs[0].Code, vs[1].Code}
		assert.Contains(t, codes, CodeFutureDatedEntry)
		assert.Contains(t, codes, CodeShortDescription)
	})
}

func TestCheckClassification(t *testing.T) {
	e := newGAAP(t)

	vs := e.CheckClassification([]types.ClassificationItem{
		{Name: "accounts receivable", ReportedCurrent: true, SettlementDays: 60},
		{Name: "term loan", ReportedCurrent: true, SettlementDays: 1095, IsLiability: true},
		{Name: "supplier payable", ReportedCurrent: false, SettlementDays: 30, IsLiability: true},
	})
	require.Len(t, vs, 2)
	for _, v := range vs {
		assert.Equal(t, CodeMisclassifiedItem, v.Code)
	}
}

func TestIsMaterial(t *testing.T) {
	e := newGAAP(t)
	bs := types.BalanceSheet{TotalAssets: 100000, TotalRevenue: 40000}

	assert.True(t, e.IsMaterial(5000, bs))  // 5% of assets
	assert.True(t, e.IsMaterial(2000, bs))  // 5% of revenue
	assert.True(t, e.IsMaterial(-2000, bs)) // sign does not matter
	assert.False(t, e.IsMaterial(1500, bs))
}

func TestCheckGoingConcern(t *testing.T) {
	e := newGAAP(t)

	assert.Empty(t, e.CheckGoingConcern(types.BalanceSheet{
		CurrentAssets: 50000, CurrentLiabilities: 30000,
		NetIncome: 10000, OperatingCashFlow: 8000,
	}))

	vs := e.CheckGoingConcern(types.BalanceSheet{
		CurrentAssets: 20000, CurrentLiabilities: 30000,
		NetIncome: -5000, OperatingCashFlow: -1000,
	})
	require.Len(t, vs, 3)
	assert.Equal(t, CodeLowCurrentRatio, vs[0].Code)
	assert.Equal(t, CodeNegativeNetIncome, vs[1].Code)
	assert.Equal(t, CodeNegativeCashFlow, vs[2].Code)
}

func TestCheckConsistency(t *testing.T) {
	e := newGAAP(t)

	assert.Empty(t, e.CheckConsistency(types.PolicyChange{Area: "inventory"}))
	assert.Empty(t, e.CheckConsistency(types.PolicyChange{
		Area: "inventory", Changed: true, Justification: "more faithful representation", Disclosed: true,
	}))

	vs := e.CheckConsistency(types.PolicyChange{Area: "depreciation", Changed: true})
	require.Len(t, vs, 2)
	assert.Equal(t, CodeUnjustifiedChange, vs[0].Code)
	assert.Equal(t, CodeUndisclosedChange, vs[1].Code)
}

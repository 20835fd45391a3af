// Package financial implements accounting-standard compliance evaluators
// for GAAP and IFRS. Like the labor evaluators they are pure functions over
// snapshots: input in, violations out, nothing persisted.
package financial

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

// Violation codes emitted by the GAAP evaluator.
const (
	CodeBalanceSheetImbalance = "BALANCE_SHEET_IMBALANCE"
	CodeRevenueNotEarned      = "REVENUE_NOT_EARNED"
	CodePrematureRecognition  = "PREMATURE_RECOGNITION"
	CodeNoContract            = "NO_CONTRACT"
	CodeNoObligations         = "NO_PERFORMANCE_OBLIGATIONS"
	CodeInvalidPrice          = "INVALID_TRANSACTION_PRICE"
	CodeAllocationMismatch    = "ALLOCATION_MISMATCH"
	CodeFutureSatisfaction    = "FUTURE_SATISFACTION_DATE"
	CodePeriodMismatch        = "EXPENSE_PERIOD_MISMATCH"
	CodeCOGSMismatch          = "COGS_MISMATCH"
	CodeNegativeInventory     = "NEGATIVE_ENDING_INVENTORY"
	CodeDepreciationMismatch  = "DEPRECIATION_MISMATCH"
	CodeOverDepreciation      = "OVER_DEPRECIATION"
	CodeInvalidSalvage        = "INVALID_SALVAGE_VALUE"
	CodeUnbalancedEntry       = "UNBALANCED_ENTRY"
	CodeNoDebits              = "NO_DEBITS"
	CodeNoCredits             = "NO_CREDITS"
	CodeFutureDatedEntry      = "FUTURE_DATED_ENTRY"
	CodeShortDescription      = "INADEQUATE_DESCRIPTION"
	CodeMisclassifiedItem     = "MISCLASSIFIED_ITEM"
	CodeLowCurrentRatio       = "LOW_CURRENT_RATIO"
	CodeNegativeNetIncome     = "NEGATIVE_NET_INCOME"
	CodeNegativeCashFlow      = "NEGATIVE_OPERATING_CASH_FLOW"
	CodeUnjustifiedChange     = "UNJUSTIFIED_METHOD_CHANGE"
	CodeUndisclosedChange     = "UNDISCLOSED_METHOD_CHANGE"
)

// GAAPParams carries the tolerances used by the GAAP checks.
type GAAPParams struct {
	// Tolerance is the rounding allowance, in dollars, for identities that
	// must otherwise hold exactly.
	Tolerance float64 `yaml:"tolerance"`
	// DepreciationTolerance is the fractional allowance on recomputed
	// depreciation (0.01 = one percent).
	DepreciationTolerance float64 `yaml:"depreciation_tolerance"`
	// MaterialityThreshold is the fraction of total assets or revenue above
	// which an amount is material (0.05 = five percent).
	MaterialityThreshold float64 `yaml:"materiality_threshold"`
	// CurrentHorizonDays separates current from non-current items.
	CurrentHorizonDays int `yaml:"current_horizon_days"`
	// MinDescriptionLen is the shortest acceptable journal entry description.
	MinDescriptionLen int `yaml:"min_description_len"`
}

// DefaultGAAPParams returns the conventional tolerances.
func DefaultGAAPParams() GAAPParams {
	return GAAPParams{
		Tolerance:             0.01,
		DepreciationTolerance: 0.01,
		MaterialityThreshold:  0.05,
		CurrentHorizonDays:    365,
		MinDescriptionLen:     5,
	}
}

// Validate checks the parameter set.
func (p GAAPParams) Validate() error {
	if p.Tolerance <= 0 || p.DepreciationTolerance <= 0 {
		return fmt.Errorf("financial: tolerances must be positive")
	}
	if p.MaterialityThreshold <= 0 || p.MaterialityThreshold >= 1 {
		return fmt.Errorf("financial: materiality threshold must be in (0,1)")
	}
	if p.CurrentHorizonDays <= 0 {
		return fmt.Errorf("financial: current horizon must be positive")
	}
	return nil
}

// GAAPEvaluator applies US GAAP checks to financial snapshots.
type GAAPEvaluator struct {
	params GAAPParams
	logger *zap.Logger
	now    func() time.Time
}

// NewGAAPEvaluator creates an evaluator with the given tolerances.
func NewGAAPEvaluator(params GAAPParams, logger *zap.Logger) (*GAAPEvaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GAAPEvaluator{params: params, logger: logger, now: time.Now}, nil
}

// CheckBalanceSheet verifies the fundamental equation: assets must equal
// liabilities plus equity to the cent.
func (e *GAAPEvaluator) CheckBalanceSheet(bs types.BalanceSheet) []types.Violation {
	diff := bs.TotalAssets - (bs.TotalLiabilities + bs.TotalEquity)
	if math.Abs(diff) <= e.params.Tolerance {
		return nil
	}

	impact := math.Abs(diff)
	v := gaapViolation(CodeBalanceSheetImbalance, types.SeverityCritical, types.StandardGAAPEquation,
		fmt.Sprintf("assets %.2f do not equal liabilities %.2f plus equity %.2f (difference %.2f)",
			bs.TotalAssets, bs.TotalLiabilities, bs.TotalEquity, diff))
	v.FinancialImpact = &impact
	return []types.Violation{v}
}

// CheckRevenueRecord verifies a booked revenue transaction was earned before
// recognition and not recognized before the underlying transaction.
func (e *GAAPEvaluator) CheckRevenueRecord(rec types.RevenueRecord) []types.Violation {
	var violations []types.Violation

	if !rec.GoodsDelivered && !rec.ServicesRendered {
		v := gaapViolation(CodeRevenueNotEarned, types.SeverityHigh, types.StandardGAAPRevenue,
			fmt.Sprintf("revenue of %.2f recognized before goods were delivered or services rendered", rec.Amount))
		v.FinancialImpact = &rec.Amount
		violations = append(violations, v)
	}
	if rec.RecognitionDate.Before(rec.TransactionDate) {
		violations = append(violations, gaapViolation(
			CodePrematureRecognition, types.SeverityHigh, types.StandardGAAPRevenue,
			fmt.Sprintf("revenue recognized on %s, before the transaction date %s",
				rec.RecognitionDate.Format("2006-01-02"), rec.TransactionDate.Format("2006-01-02"))))
	}
	return violations
}

// CheckRevenueContract walks the five recognition steps for a contract:
// identify the contract, identify the obligations, determine the price,
// allocate the price, recognize on satisfaction.
func (e *GAAPEvaluator) CheckRevenueContract(c types.RevenueContract) []types.Violation {
	var violations []types.Violation

	if !c.ContractExists {
		violations = append(violations, gaapViolation(
			CodeNoContract, types.SeverityCritical, types.StandardGAAPASC606Step1,
			"no enforceable contract identified for the arrangement"))
	}
	if len(c.Obligations) == 0 {
		violations = append(violations, gaapViolation(
			CodeNoObligations, types.SeverityCritical, types.StandardGAAPASC606Step2,
			"no performance obligations identified in the contract"))
	}
	if c.TransactionPrice <= 0 {
		violations = append(violations, gaapViolation(
			CodeInvalidPrice, types.SeverityCritical, types.StandardGAAPASC606Step3,
			fmt.Sprintf("transaction price %.2f is not a valid consideration amount", c.TransactionPrice)))
	}

	if len(c.Obligations) > 0 && c.TransactionPrice > 0 {
		var allocated float64
		for _, ob := range c.Obligations {
			allocated += ob.AllocatedAmount
		}
		if math.Abs(allocated-c.TransactionPrice) > e.params.Tolerance {
			violations = append(violations, gaapViolation(
				CodeAllocationMismatch, types.SeverityHigh, types.StandardGAAPASC606Step4,
				fmt.Sprintf("allocated amounts total %.2f but the transaction price is %.2f", allocated, c.TransactionPrice)))
		}
	}

	now := e.now()
	for _, ob := range c.Obligations {
		if ob.SatisfactionDate != nil && ob.SatisfactionDate.After(now) && ob.ControlTransferred {
			violations = append(violations, gaapViolation(
				CodeFutureSatisfaction, types.SeverityHigh, types.StandardGAAPASC606Step5,
				fmt.Sprintf("obligation %q marked satisfied on the future date %s",
					ob.Description, ob.SatisfactionDate.Format("2006-01-02"))))
		}
	}

	return violations
}

// CheckMatching verifies an expense was recorded in the period of the
// revenue it helped generate.
func (e *GAAPEvaluator) CheckMatching(rec types.ExpenseRecord) []types.Violation {
	if rec.RevenuePeriod == "" || rec.ExpensePeriod == rec.RevenuePeriod {
		return nil
	}
	return []types.Violation{gaapViolation(
		CodePeriodMismatch, types.SeverityMedium, types.StandardGAAPMatching,
		fmt.Sprintf("expense %.2f recorded in %s but matched to revenue in %s",
			rec.Amount, rec.ExpensePeriod, rec.RevenuePeriod))}
}

// CheckInventory verifies the cost of goods sold identity: beginning
// inventory plus purchases less ending inventory.
func (e *GAAPEvaluator) CheckInventory(inv types.InventoryRecord) []types.Violation {
	var violations []types.Violation

	if inv.Ending < 0 {
		violations = append(violations, gaapViolation(
			CodeNegativeInventory, types.SeverityCritical, types.StandardGAAPInventory,
			fmt.Sprintf("ending inventory is negative (%.2f)", inv.Ending)))
	}

	expectedCOGS := inv.Beginning + inv.Purchases - inv.Ending
	if math.Abs(expectedCOGS-inv.ReportedCOGS) > e.params.Tolerance {
		diff := math.Abs(expectedCOGS - inv.ReportedCOGS)
		v := gaapViolation(CodeCOGSMismatch, types.SeverityHigh, types.StandardGAAPInventory,
			fmt.Sprintf("reported COGS %.2f differs from computed %.2f (beginning %.2f + purchases %.2f - ending %.2f)",
				inv.ReportedCOGS, expectedCOGS, inv.Beginning, inv.Purchases, inv.Ending))
		v.FinancialImpact = &diff
		violations = append(violations, v)
	}

	return violations
}

// StraightLineDepreciation returns the expected accumulated depreciation for
// an asset at its years in service, capped at the depreciable base.
func (e *GAAPEvaluator) StraightLineDepreciation(asset types.FixedAsset) float64 {
	if asset.UsefulLifeYears <= 0 {
		return 0
	}
	base := asset.Cost - asset.SalvageValue
	expected := base / asset.UsefulLifeYears * asset.YearsInService
	return math.Min(expected, base)
}

// DoubleDecliningDepreciation returns the expected accumulated depreciation
// under the double-declining balance method, floored at salvage value.
func (e *GAAPEvaluator) DoubleDecliningDepreciation(asset types.FixedAsset) float64 {
	if asset.UsefulLifeYears <= 0 {
		return 0
	}
	rate := 2.0 / asset.UsefulLifeYears
	bookValue := asset.Cost
	var accumulated float64

	years := int(asset.YearsInService)
	for y := 0; y < years; y++ {
		annual := bookValue * rate
		if bookValue-annual < asset.SalvageValue {
			annual = bookValue - asset.SalvageValue
		}
		if annual <= 0 {
			break
		}
		accumulated += annual
		bookValue -= annual
	}
	return accumulated
}

// CheckDepreciation recomputes depreciation under the asset's stated method
// and compares the recorded accumulated depreciation against it.
func (e *GAAPEvaluator) CheckDepreciation(asset types.FixedAsset) []types.Violation {
	var violations []types.Violation

	if asset.SalvageValue >= asset.Cost && asset.Cost > 0 {
		violations = append(violations, gaapViolation(
			CodeInvalidSalvage, types.SeverityHigh, types.StandardGAAPDepreciation,
			fmt.Sprintf("salvage value %.2f is not below cost %.2f", asset.SalvageValue, asset.Cost)))
		return violations
	}

	base := asset.Cost - asset.SalvageValue
	if asset.AccumulatedDepreciation > base+e.params.Tolerance {
		over := asset.AccumulatedDepreciation - base
		v := gaapViolation(CodeOverDepreciation, types.SeverityHigh, types.StandardGAAPDepreciation,
			fmt.Sprintf("accumulated depreciation %.2f exceeds the depreciable base %.2f",
				asset.AccumulatedDepreciation, base))
		v.FinancialImpact = &over
		violations = append(violations, v)
	}

	var expected float64
	switch asset.Method {
	case types.DepreciationDoubleDeclining:
		expected = e.DoubleDecliningDepreciation(asset)
	default:
		expected = e.StraightLineDepreciation(asset)
	}

	allowance := math.Max(expected*e.params.DepreciationTolerance, e.params.Tolerance)
	if math.Abs(asset.AccumulatedDepreciation-expected) > allowance {
		violations = append(violations, gaapViolation(
			CodeDepreciationMismatch, types.SeverityMedium, types.StandardGAAPDepreciation,
			fmt.Sprintf("recorded accumulated depreciation %.2f differs from the %.2f expected under %s after %.1f years",
				asset.AccumulatedDepreciation, expected, asset.Method, asset.YearsInService)))
	}

	return violations
}

// CheckJournalEntry validates the double-entry discipline of one entry.
func (e *GAAPEvaluator) CheckJournalEntry(je types.JournalEntry) []types.Violation {
	var violations []types.Violation

	var debits, credits float64
	for _, line := range je.Lines {
		debits += line.Debit
		credits += line.Credit
	}

	if debits == 0 {
		violations = append(violations, gaapViolation(
			CodeNoDebits, types.SeverityCritical, types.StandardGAAPRecords,
			"journal entry has no debit lines"))
	}
	if credits == 0 {
		violations = append(violations, gaapViolation(
			CodeNoCredits, types.SeverityCritical, types.StandardGAAPRecords,
			"journal entry has no credit lines"))
	}
	if debits > 0 && credits > 0 && math.Abs(debits-credits) > e.params.Tolerance {
		diff := math.Abs(debits - credits)
		v := gaapViolation(CodeUnbalancedEntry, types.SeverityCritical, types.StandardGAAPEquation,
			fmt.Sprintf("debits %.2f do not equal credits %.2f", debits, credits))
		v.FinancialImpact = &diff
		violations = append(violations, v)
	}

	if je.EntryDate.After(e.now()) {
		violations = append(violations, gaapViolation(
			CodeFutureDatedEntry, types.SeverityHigh, types.StandardGAAPPeriodCutoff,
			fmt.Sprintf("entry dated %s is in the future", je.EntryDate.Format("2006-01-02"))))
	}
	if len(je.Description) < e.params.MinDescriptionLen {
		violations = append(violations, gaapViolation(
			CodeShortDescription, types.SeverityMedium, types.StandardGAAPRecords,
			fmt.Sprintf("entry description %q is too short to document the transaction", je.Description)))
	}

	return violations
}

// CheckClassification verifies current versus non-current presentation
// against the one-year settlement horizon.
func (e *GAAPEvaluator) CheckClassification(items []types.ClassificationItem) []types.Violation {
	var violations []types.Violation
	for _, item := range items {
		shouldBeCurrent := item.SettlementDays <= e.params.CurrentHorizonDays
		if item.ReportedCurrent == shouldBeCurrent {
			continue
		}
		want := "non-current"
		if shouldBeCurrent {
			want = "current"
		}
		violations = append(violations, gaapViolation(
			CodeMisclassifiedItem, types.SeverityMedium, types.StandardGAAPClassify,
			fmt.Sprintf("%q settles in %d days and should be presented as %s", item.Name, item.SettlementDays, want)))
	}
	return violations
}

// IsMaterial reports whether an amount is material relative to the entity:
// at or above the threshold fraction of total assets or total revenue.
func (e *GAAPEvaluator) IsMaterial(amount float64, bs types.BalanceSheet) bool {
	amount = math.Abs(amount)
	if bs.TotalAssets > 0 && amount >= bs.TotalAssets*e.params.MaterialityThreshold {
		return true
	}
	if bs.TotalRevenue > 0 && amount >= bs.TotalRevenue*e.params.MaterialityThreshold {
		return true
	}
	return false
}

// CheckGoingConcern surfaces the standard going-concern indicators.
func (e *GAAPEvaluator) CheckGoingConcern(bs types.BalanceSheet) []types.Violation {
	var violations []types.Violation

	if bs.CurrentLiabilities > 0 {
		ratio := bs.CurrentAssets / bs.CurrentLiabilities
		if ratio < 1 {
			violations = append(violations, gaapViolation(
				CodeLowCurrentRatio, types.SeverityHigh, types.StandardGAAPGoingConcern,
				fmt.Sprintf("current ratio %.2f is below 1.0", ratio)))
		}
	}
	if bs.NetIncome < 0 {
		violations = append(violations, gaapViolation(
			CodeNegativeNetIncome, types.SeverityMedium, types.StandardGAAPGoingConcern,
			fmt.Sprintf("net income is negative (%.2f)", bs.NetIncome)))
	}
	if bs.OperatingCashFlow < 0 {
		violations = append(violations, gaapViolation(
			CodeNegativeCashFlow, types.SeverityHigh, types.StandardGAAPGoingConcern,
			fmt.Sprintf("operating cash flow is negative (%.2f)", bs.OperatingCashFlow)))
	}
	return violations
}

// CheckConsistency verifies that a change in accounting method is justified
// and disclosed.
func (e *GAAPEvaluator) CheckConsistency(change types.PolicyChange) []types.Violation {
	if !change.Changed {
		return nil
	}
	var violations []types.Violation
	if change.Justification == "" {
		violations = append(violations, gaapViolation(
			CodeUnjustifiedChange, types.SeverityHigh, types.StandardGAAPConsistency,
			fmt.Sprintf("accounting method change in %q has no stated justification", change.Area)))
	}
	if !change.Disclosed {
		violations = append(violations, gaapViolation(
			CodeUndisclosedChange, types.SeverityMedium, types.StandardGAAPDisclosure,
			fmt.Sprintf("accounting method change in %q was not disclosed", change.Area)))
	}
	return violations
}

func gaapViolation(code string, severity types.Severity, standard, description string) types.Violation {
	return types.Violation{
		Category:    types.CategoryFinancial,
		Code:        code,
		Severity:    severity,
		Standard:    standard,
		Description: description,
	}
}

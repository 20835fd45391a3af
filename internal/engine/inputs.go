package engine

import (
	"context"
	"sync"

	"github.com/compliance-engine/go-core/pkg/types"
)

// LaborInput carries one employee's records for a labor law check. The
// timesheet is required; every other field is optional and enables the
// corresponding check when set.
type LaborInput struct {
	Timesheet     *types.Timesheet
	Pay           *types.PayRecord
	Exemption     *types.ExemptionInput
	Minor         *types.MinorWorkRecord
	PayrollRecord map[string]interface{}
}

// GAAPInput carries financial snapshots for a US GAAP check. ResourceID is
// required; each non-nil field enables the corresponding check.
type GAAPInput struct {
	ResourceID     string
	JournalEntry   *types.JournalEntry
	BalanceSheet   *types.BalanceSheet
	Revenue        *types.RevenueRecord
	Contract       *types.RevenueContract
	Expense        *types.ExpenseRecord
	Inventory      *types.InventoryRecord
	Asset          *types.FixedAsset
	Classification []types.ClassificationItem
	PolicyChange   *types.PolicyChange
}

func (in *GAAPInput) resourceType() string {
	switch {
	case in.JournalEntry != nil:
		return "journal_entry"
	case in.BalanceSheet != nil:
		return "balance_sheet"
	case in.Contract != nil || in.Revenue != nil:
		return "revenue"
	case in.Inventory != nil:
		return "inventory"
	case in.Asset != nil:
		return "fixed_asset"
	default:
		return "financial_record"
	}
}

// IFRSInput carries financial snapshots for an IFRS check. ResourceID is
// required; each non-nil field enables the corresponding check.
type IFRSInput struct {
	ResourceID string
	Inventory  *types.InventoryRecord
	PPE        *types.FixedAsset
	Intangible *types.IntangibleAsset
	Contract   *types.RevenueContract
	Instrument *types.FinancialInstrument
	Statements *types.StatementSet
	FairValue  *types.FairValueMeasurement
	Lease      *types.Lease
	Impairment *types.ImpairmentInput
}

func (in *IFRSInput) resourceType() string {
	switch {
	case in.Inventory != nil:
		return "inventory"
	case in.PPE != nil:
		return "fixed_asset"
	case in.Intangible != nil:
		return "intangible_asset"
	case in.Contract != nil:
		return "revenue"
	case in.Instrument != nil:
		return "financial_instrument"
	case in.Statements != nil:
		return "statement_set"
	case in.FairValue != nil:
		return "fair_value"
	case in.Lease != nil:
		return "lease"
	case in.Impairment != nil:
		return "impairment"
	default:
		return "financial_record"
	}
}

// BatchResult pairs one batch item's result with its error.
type BatchResult struct {
	Index  int
	Result *types.CheckResult
	Err    error
}

// CheckLaborBatch runs labor checks for many employees on the worker pool.
// Results are returned in input order.
func (e *Engine) CheckLaborBatch(ctx context.Context, inputs []*LaborInput) []BatchResult {
	results := make([]BatchResult, len(inputs))

	var wg sync.WaitGroup
	for i, in := range inputs {
		i, in := i, in
		wg.Add(1)
		e.pool.Submit(func() {
			defer wg.Done()
			result, err := e.CheckLabor(ctx, in)
			results[i] = BatchResult{Index: i, Result: result, Err: err}
		})
	}
	wg.Wait()

	return results
}

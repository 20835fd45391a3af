package financial

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

// Violation codes emitted by the IFRS evaluator.
const (
	CodeLIFOProhibited        = "LIFO_PROHIBITED"
	CodeInvalidCostingMethod  = "INVALID_COSTING_METHOD"
	CodeInventoryOverstated   = "INVENTORY_OVERSTATED"
	CodeCarryingMismatch      = "CARRYING_AMOUNT_MISMATCH"
	CodeMissingFairValue      = "MISSING_FAIR_VALUE"
	CodeRevaluationOutOfBand  = "REVALUATION_OUTSIDE_BAND"
	CodeComponentCostMismatch = "COMPONENT_COST_MISMATCH"
	CodeIndefiniteAmortized   = "INDEFINITE_LIFE_AMORTIZED"
	CodeImpairmentTestMissing = "IMPAIRMENT_TEST_MISSING"
	CodeFiniteNotAmortized    = "FINITE_LIFE_NOT_AMORTIZED"
	CodeNoCustomer            = "NO_CUSTOMER"
	CodeNoSubstance           = "NO_COMMERCIAL_SUBSTANCE"
	CodePaymentNotProbable    = "PAYMENT_NOT_PROBABLE"
	CodeInvalidMethod         = "INVALID_SATISFACTION_METHOD"
	CodeInvalidProgress       = "INVALID_PROGRESS"
	CodeBasisMismatch         = "MEASUREMENT_BASIS_MISMATCH"
	CodeInvalidClass          = "INVALID_CLASSIFICATION"
	CodeMissingValue          = "MISSING_MEASUREMENT_VALUE"
	CodeMissingStatement      = "MISSING_STATEMENT"
	CodeLevel3Inputs          = "LEVEL_3_INPUTS_ONLY"
	CodeMissingTechnique      = "MISSING_VALUATION_TECHNIQUE"
	CodeFairValueMismatch     = "FAIR_VALUE_MISMATCH"
	CodeInvalidLeaseTerms     = "INVALID_LEASE_TERMS"
	CodeLeaseNotRecognized    = "LEASE_NOT_RECOGNIZED"
	CodeLeaseMismeasured      = "LEASE_MISMEASURED"
	CodeImpairmentMissed      = "IMPAIRMENT_NOT_RECOGNIZED"
	CodeIncorrectImpairment   = "INCORRECT_IMPAIRMENT"
	CodeInvalidCarrying       = "INVALID_CARRYING_AMOUNT"
	CodeMissingRecoverable    = "MISSING_RECOVERABLE_AMOUNT"
)

// IFRSParams carries the tolerances and exemption thresholds used by the
// IFRS checks.
type IFRSParams struct {
	Tolerance         float64 `yaml:"tolerance"`
	RevaluationBand   float64 `yaml:"revaluation_band"`    // fraction of fair value
	ShortTermMonths   int     `yaml:"short_term_months"`   // IFRS 16 short-term exemption
	LowValueThreshold float64 `yaml:"low_value_threshold"` // IFRS 16 low-value exemption
}

// DefaultIFRSParams returns the conventional values.
func DefaultIFRSParams() IFRSParams {
	return IFRSParams{
		Tolerance:         0.01,
		RevaluationBand:   0.05,
		ShortTermMonths:   12,
		LowValueThreshold: 5000,
	}
}

// Validate checks the parameter set.
func (p IFRSParams) Validate() error {
	if p.Tolerance <= 0 {
		return fmt.Errorf("financial: tolerance must be positive")
	}
	if p.RevaluationBand <= 0 || p.RevaluationBand >= 1 {
		return fmt.Errorf("financial: revaluation band must be in (0,1)")
	}
	if p.ShortTermMonths <= 0 || p.LowValueThreshold <= 0 {
		return fmt.Errorf("financial: lease exemption thresholds must be positive")
	}
	return nil
}

// IFRSEvaluator applies IFRS checks to financial snapshots.
type IFRSEvaluator struct {
	params IFRSParams
	logger *zap.Logger
	now    func() time.Time
}

// NewIFRSEvaluator creates an evaluator with the given parameters.
func NewIFRSEvaluator(params IFRSParams, logger *zap.Logger) (*IFRSEvaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IFRSEvaluator{params: params, logger: logger, now: time.Now}, nil
}

// CheckInventory applies IAS 2: LIFO is prohibited, only the permitted
// cost-flow methods may be used, and inventory is carried at the lower of
// cost and net realizable value.
func (e *IFRSEvaluator) CheckInventory(inv types.InventoryRecord) []types.Violation {
	var violations []types.Violation

	switch inv.Method {
	case types.InventoryLIFO:
		violations = append(violations, ifrsViolation(
			CodeLIFOProhibited, types.SeverityCritical, types.StandardIAS2Inventories,
			"LIFO cost flow is prohibited under IAS 2"))
	case types.InventoryFIFO, types.InventoryAverage, types.InventorySpecific:
		// permitted
	default:
		violations = append(violations, ifrsViolation(
			CodeInvalidCostingMethod, types.SeverityHigh, types.StandardIAS2Inventories,
			fmt.Sprintf("unrecognized inventory costing method %q", inv.Method)))
	}

	ceiling := math.Min(inv.Cost, inv.NetRealizableValue)
	if inv.CarryingAmount > ceiling+e.params.Tolerance {
		over := inv.CarryingAmount - ceiling
		v := ifrsViolation(CodeInventoryOverstated, types.SeverityHigh, types.StandardIAS2Inventories,
			fmt.Sprintf("inventory carried at %.2f exceeds the lower of cost (%.2f) and net realizable value (%.2f)",
				inv.CarryingAmount, inv.Cost, inv.NetRealizableValue))
		v.FinancialImpact = &over
		violations = append(violations, v)
	}

	return violations
}

// CheckPPE applies IAS 16 measurement: under the cost model the carrying
// amount must equal cost less accumulated depreciation; under the
// revaluation model it must track fair value within the tolerance band.
// Component costs, when itemized, must sum to the asset's total cost.
func (e *IFRSEvaluator) CheckPPE(asset types.FixedAsset) []types.Violation {
	var violations []types.Violation

	if asset.RevaluationModel {
		if asset.FairValue == nil {
			violations = append(violations, ifrsViolation(
				CodeMissingFairValue, types.SeverityHigh, types.StandardIAS16PPE,
				"revaluation model elected but no fair value measurement provided"))
		} else if *asset.FairValue > 0 {
			band := *asset.FairValue * e.params.RevaluationBand
			if math.Abs(asset.CarryingAmount-*asset.FairValue) > band {
				violations = append(violations, ifrsViolation(
					CodeRevaluationOutOfBand, types.SeverityMedium, types.StandardIAS16PPE,
					fmt.Sprintf("carrying amount %.2f deviates from fair value %.2f by more than %.0f%%",
						asset.CarryingAmount, *asset.FairValue, e.params.RevaluationBand*100)))
			}
		}
	} else {
		expected := asset.Cost - asset.AccumulatedDepreciation
		if math.Abs(asset.CarryingAmount-expected) > e.params.Tolerance {
			violations = append(violations, ifrsViolation(
				CodeCarryingMismatch, types.SeverityHigh, types.StandardIAS16PPE,
				fmt.Sprintf("carrying amount %.2f does not equal cost %.2f less accumulated depreciation %.2f",
					asset.CarryingAmount, asset.Cost, asset.AccumulatedDepreciation)))
		}
	}

	if len(asset.Components) > 0 {
		var sum float64
		for _, c := range asset.Components {
			sum += c.Cost
		}
		if math.Abs(sum-asset.Cost) > e.params.Tolerance {
			violations = append(violations, ifrsViolation(
				CodeComponentCostMismatch, types.SeverityHigh, types.StandardIAS16PPE,
				fmt.Sprintf("component costs total %.2f but the asset cost is %.2f", sum, asset.Cost)))
		}
	}

	return violations
}

// CheckIntangible applies IAS 38: indefinite-life intangibles are not
// amortized but must be tested for impairment annually; finite-life
// intangibles must be amortized.
func (e *IFRSEvaluator) CheckIntangible(asset types.IntangibleAsset) []types.Violation {
	var violations []types.Violation

	switch asset.Life {
	case types.LifeIndefinite:
		if asset.AmortizationRecorded {
			violations = append(violations, ifrsViolation(
				CodeIndefiniteAmortized, types.SeverityHigh, types.StandardIAS38Intangibles,
				"indefinite-life intangible must not be amortized"))
		}
		if !asset.AnnualImpairmentTested {
			violations = append(violations, ifrsViolation(
				CodeImpairmentTestMissing, types.SeverityHigh, types.StandardIAS38Intangibles,
				"indefinite-life intangible requires an annual impairment test"))
		}
	case types.LifeFinite:
		if !asset.AmortizationRecorded {
			violations = append(violations, ifrsViolation(
				CodeFiniteNotAmortized, types.SeverityHigh, types.StandardIAS38Intangibles,
				fmt.Sprintf("finite-life intangible (%.0f years) must be amortized over its useful life", asset.UsefulLifeYears)))
		}
	}

	return violations
}

// CheckRevenueContract applies the IFRS 15 five-step gates and validates
// each obligation's satisfaction method.
func (e *IFRSEvaluator) CheckRevenueContract(c types.RevenueContract) []types.Violation {
	var violations []types.Violation

	if c.CustomerID == "" {
		violations = append(violations, ifrsViolation(
			CodeNoCustomer, types.SeverityCritical, types.StandardIFRS15Identify,
			"no customer identified for the contract"))
	}
	if !c.CommercialSubstance {
		violations = append(violations, ifrsViolation(
			CodeNoSubstance, types.SeverityCritical, types.StandardIFRS15Identify,
			"the contract lacks commercial substance"))
	}
	if !c.PaymentProbable {
		violations = append(violations, ifrsViolation(
			CodePaymentNotProbable, types.SeverityHigh, types.StandardIFRS15Identify,
			"collection of consideration is not probable"))
	}
	if len(c.Obligations) == 0 {
		violations = append(violations, ifrsViolation(
			CodeNoObligations, types.SeverityCritical, types.StandardIFRS15Obligations,
			"no performance obligations identified"))
	}
	if c.TransactionPrice <= 0 {
		violations = append(violations, ifrsViolation(
			CodeInvalidPrice, types.SeverityCritical, types.StandardIFRS15Price,
			fmt.Sprintf("transaction price %.2f is invalid", c.TransactionPrice)))
	}

	if len(c.Obligations) > 0 && c.TransactionPrice > 0 {
		var allocated float64
		for _, ob := range c.Obligations {
			allocated += ob.AllocatedAmount
		}
		if math.Abs(allocated-c.TransactionPrice) > e.params.Tolerance {
			violations = append(violations, ifrsViolation(
				CodeAllocationMismatch, types.SeverityHigh, types.StandardIFRS15Allocation,
				fmt.Sprintf("allocation total %.2f does not reconcile to the transaction price %.2f", allocated, c.TransactionPrice)))
		}
	}

	for _, ob := range c.Obligations {
		switch ob.Method {
		case types.SatisfyOverTime:
			if ob.ProgressPercent < 0 || ob.ProgressPercent > 100 {
				violations = append(violations, ifrsViolation(
					CodeInvalidProgress, types.SeverityHigh, types.StandardIFRS15Recognition,
					fmt.Sprintf("obligation %q reports progress of %.1f%%; progress must be between 0 and 100", ob.Description, ob.ProgressPercent)))
			}
		case types.SatisfyPointInTime:
			// nothing further to validate here
		default:
			violations = append(violations, ifrsViolation(
				CodeInvalidMethod, types.SeverityHigh, types.StandardIFRS15Recognition,
				fmt.Sprintf("obligation %q has unknown satisfaction method %q", ob.Description, ob.Method)))
		}
	}

	return violations
}

// RecognizableRevenue computes how much of the contract price may be
// recognized now: over-time obligations contribute their allocation scaled
// by progress, point-in-time obligations contribute fully once control has
// transferred.
func (e *IFRSEvaluator) RecognizableRevenue(c types.RevenueContract) float64 {
	var total float64
	for _, ob := range c.Obligations {
		switch ob.Method {
		case types.SatisfyOverTime:
			progress := math.Min(math.Max(ob.ProgressPercent, 0), 100)
			total += ob.AllocatedAmount * progress / 100
		case types.SatisfyPointInTime:
			if ob.ControlTransferred {
				total += ob.AllocatedAmount
			}
		}
	}
	return total
}

// CheckInstrument applies IFRS 9: the measurement basis must follow the
// classification and a measured value must be present.
func (e *IFRSEvaluator) CheckInstrument(inst types.FinancialInstrument) []types.Violation {
	var violations []types.Violation

	switch inst.Classification {
	case types.ClassAmortizedCost, types.ClassFVOCI, types.ClassFVTPL:
	default:
		violations = append(violations, ifrsViolation(
			CodeInvalidClass, types.SeverityHigh, types.StandardIFRS9Instruments,
			fmt.Sprintf("unknown instrument classification %q", inst.Classification)))
		return violations
	}

	if inst.MeasurementBasis != inst.Classification {
		violations = append(violations, ifrsViolation(
			CodeBasisMismatch, types.SeverityHigh, types.StandardIFRS9Instruments,
			fmt.Sprintf("instrument classified as %s but measured at %s", inst.Classification, inst.MeasurementBasis)))
	}
	if inst.ReportedValue == nil {
		violations = append(violations, ifrsViolation(
			CodeMissingValue, types.SeverityHigh, types.StandardIFRS9Instruments,
			"no measured value reported for the instrument"))
	}

	return violations
}

// CheckStatementSet applies IAS 1: a complete set of financial statements.
// The three primary statements are non-negotiable; the equity statement,
// notes, and comparatives are still required but rank below them.
func (e *IFRSEvaluator) CheckStatementSet(set types.StatementSet) []types.Violation {
	var violations []types.Violation

	missing := func(name string, severity types.Severity) {
		violations = append(violations, ifrsViolation(
			CodeMissingStatement, severity, types.StandardIAS1Presentation,
			fmt.Sprintf("reporting package is missing the %s", name)))
	}

	if !set.BalanceSheet {
		missing("statement of financial position", types.SeverityCritical)
	}
	if !set.IncomeStatement {
		missing("statement of profit or loss", types.SeverityCritical)
	}
	if !set.CashFlowStatement {
		missing("statement of cash flows", types.SeverityCritical)
	}
	if !set.EquityStatement {
		missing("statement of changes in equity", types.SeverityHigh)
	}
	if !set.Notes {
		missing("notes to the financial statements", types.SeverityHigh)
	}
	if !set.Comparatives {
		missing("comparative information for the preceding period", types.SeverityHigh)
	}

	return violations
}

// ExpectedFairValue recomputes a level 2 or level 3 measurement from its
// inputs. Level 1 quotes and unknown techniques return ok=false.
func (e *IFRSEvaluator) ExpectedFairValue(m types.FairValueMeasurement) (float64, bool) {
	switch m.Level {
	case 2:
		if len(m.ComparablePrices) == 0 {
			return 0, false
		}
		var sum float64
		for _, p := range m.ComparablePrices {
			sum += p
		}
		return sum/float64(len(m.ComparablePrices)) + m.Adjustments, true
	case 3:
		switch m.ValuationTechnique {
		case "cost_approach":
			return m.ReplacementCost - m.AccumulatedDepreciation, true
		case "income_approach":
			rate := m.DiscountRatePercent / 100
			var pv float64
			for i, cf := range m.CashFlows {
				pv += cf / math.Pow(1+rate, float64(i+1))
			}
			return pv, true
		}
	}
	return 0, false
}

// CheckFairValue applies IFRS 13: the hierarchy level must be valid, a
// valuation technique must be stated for unobservable inputs, recomputable
// measurements must reconcile, and level-3-only measurements draw an
// advisory to seek more observable inputs.
func (e *IFRSEvaluator) CheckFairValue(m types.FairValueMeasurement) []types.Violation {
	var violations []types.Violation

	if m.Level < 1 || m.Level > 3 {
		violations = append(violations, ifrsViolation(
			CodeInvalidClass, types.SeverityHigh, types.StandardIFRS13FairValue,
			fmt.Sprintf("fair value hierarchy level %d is not valid", m.Level)))
		return violations
	}

	if m.Level > 1 && m.ValuationTechnique == "" {
		violations = append(violations, ifrsViolation(
			CodeMissingTechnique, types.SeverityMedium, types.StandardIFRS13FairValue,
			"no valuation technique disclosed for a measurement using unobservable inputs"))
	}

	if expected, ok := e.ExpectedFairValue(m); ok {
		if math.Abs(expected-m.ReportedValue) > e.params.Tolerance {
			diff := math.Abs(expected - m.ReportedValue)
			v := ifrsViolation(CodeFairValueMismatch, types.SeverityHigh, types.StandardIFRS13FairValue,
				fmt.Sprintf("reported fair value %.2f differs from the %.2f produced by the %s", m.ReportedValue, expected, m.ValuationTechnique))
			v.FinancialImpact = &diff
			violations = append(violations, v)
		}
	}

	if m.Level == 3 {
		violations = append(violations, ifrsViolation(
			CodeLevel3Inputs, types.SeverityLow, types.StandardIFRS13FairValue,
			"measurement relies entirely on level 3 inputs; consider whether more observable inputs are available"))
	}

	return violations
}

// MeasureLease recomputes the IFRS 16 position for a lease: the liability is
// the present value of the payment annuity at the incremental borrowing
// rate and the right-of-use asset adds direct costs and prepayments less
// incentives. Short-term and low-value leases with the exemption elected
// recognize nothing.
func (e *IFRSEvaluator) MeasureLease(lease types.Lease) (types.LeaseMeasurement, []types.Violation) {
	var violations []types.Violation

	if lease.TermMonths <= 0 || lease.MonthlyPayment <= 0 || lease.AnnualRatePercent < 0 {
		violations = append(violations, ifrsViolation(
			CodeInvalidLeaseTerms, types.SeverityCritical, types.StandardIFRS16Leases,
			fmt.Sprintf("lease terms are invalid: %d months at %.2f/month, %.2f%% discount rate",
				lease.TermMonths, lease.MonthlyPayment, lease.AnnualRatePercent)))
		return types.LeaseMeasurement{}, violations
	}

	if lease.ShortTermElected && lease.TermMonths <= e.params.ShortTermMonths {
		return types.LeaseMeasurement{Exempt: true, ExemptionReason: "short-term lease"}, nil
	}
	if lease.LowValueElected && lease.UnderlyingAssetValue > 0 && lease.UnderlyingAssetValue <= e.params.LowValueThreshold {
		return types.LeaseMeasurement{Exempt: true, ExemptionReason: "low-value underlying asset"}, nil
	}

	monthlyRate := lease.AnnualRatePercent / 12 / 100
	var liability float64
	if monthlyRate == 0 {
		liability = lease.MonthlyPayment * float64(lease.TermMonths)
	} else {
		pvFactor := (1 - math.Pow(1+monthlyRate, -float64(lease.TermMonths))) / monthlyRate
		liability = lease.MonthlyPayment * pvFactor
	}

	rou := liability + lease.InitialDirectCosts + lease.Prepayments - lease.Incentives

	return types.LeaseMeasurement{Liability: liability, RightOfUseAsset: rou}, violations
}

// CheckLease compares the recognized lease position against the recomputed
// measurement.
func (e *IFRSEvaluator) CheckLease(lease types.Lease) []types.Violation {
	measurement, violations := e.MeasureLease(lease)
	if len(violations) > 0 {
		return violations
	}

	if measurement.Exempt {
		if lease.RecognizedLiability != nil && *lease.RecognizedLiability != 0 {
			violations = append(violations, ifrsViolation(
				CodeLeaseMismeasured, types.SeverityMedium, types.StandardIFRS16Leases,
				fmt.Sprintf("%s exemption elected but a liability of %.2f was recognized",
					measurement.ExemptionReason, *lease.RecognizedLiability)))
		}
		return violations
	}

	if lease.RecognizedLiability == nil {
		violations = append(violations, ifrsViolation(
			CodeLeaseNotRecognized, types.SeverityHigh, types.StandardIFRS16Leases,
			fmt.Sprintf("no lease liability recognized; expected %.2f", measurement.Liability)))
	} else if math.Abs(*lease.RecognizedLiability-measurement.Liability) > e.params.Tolerance {
		violations = append(violations, ifrsViolation(
			CodeLeaseMismeasured, types.SeverityHigh, types.StandardIFRS16Leases,
			fmt.Sprintf("recognized liability %.2f differs from the computed %.2f", *lease.RecognizedLiability, measurement.Liability)))
	}

	if lease.RecognizedRightOfUse == nil {
		violations = append(violations, ifrsViolation(
			CodeLeaseNotRecognized, types.SeverityHigh, types.StandardIFRS16Leases,
			fmt.Sprintf("no right-of-use asset recognized; expected %.2f", measurement.RightOfUseAsset)))
	} else if math.Abs(*lease.RecognizedRightOfUse-measurement.RightOfUseAsset) > e.params.Tolerance {
		violations = append(violations, ifrsViolation(
			CodeLeaseMismeasured, types.SeverityHigh, types.StandardIFRS16Leases,
			fmt.Sprintf("recognized right-of-use asset %.2f differs from the computed %.2f", *lease.RecognizedRightOfUse, measurement.RightOfUseAsset)))
	}

	return violations
}

// CheckImpairment applies IAS 36: the recoverable amount is the higher of
// fair value less costs of disposal and value in use; any excess of carrying
// amount over recoverable amount must be recognized as a loss, and no loss
// may be recognized when none exists.
func (e *IFRSEvaluator) CheckImpairment(in types.ImpairmentInput) []types.Violation {
	var violations []types.Violation

	if in.CarryingAmount <= 0 {
		violations = append(violations, ifrsViolation(
			CodeInvalidCarrying, types.SeverityHigh, types.StandardIAS36Impairment,
			fmt.Sprintf("carrying amount %.2f is not positive", in.CarryingAmount)))
		return violations
	}
	if in.FairValueLessCosts == 0 && in.ValueInUse == 0 {
		violations = append(violations, ifrsViolation(
			CodeMissingRecoverable, types.SeverityCritical, types.StandardIAS36Impairment,
			"neither fair value less costs of disposal nor value in use is available"))
		return violations
	}

	recoverable := math.Max(in.FairValueLessCosts, in.ValueInUse)
	loss := math.Max(0, in.CarryingAmount-recoverable)

	switch {
	case loss > 0 && in.RecognizedLoss < loss-e.params.Tolerance:
		short := loss - in.RecognizedLoss
		v := ifrsViolation(CodeImpairmentMissed, types.SeverityCritical, types.StandardIAS36Impairment,
			fmt.Sprintf("impairment loss of %.2f required (carrying %.2f, recoverable %.2f) but only %.2f recognized",
				loss, in.CarryingAmount, recoverable, in.RecognizedLoss))
		v.FinancialImpact = &short
		violations = append(violations, v)
	case loss == 0 && in.RecognizedLoss > e.params.Tolerance:
		violations = append(violations, ifrsViolation(
			CodeIncorrectImpairment, types.SeverityHigh, types.StandardIAS36Impairment,
			fmt.Sprintf("impairment loss of %.2f recognized although the recoverable amount %.2f covers the carrying amount %.2f",
				in.RecognizedLoss, recoverable, in.CarryingAmount)))
	case loss > 0 && in.RecognizedLoss > loss+e.params.Tolerance:
		violations = append(violations, ifrsViolation(
			CodeIncorrectImpairment, types.SeverityHigh, types.StandardIAS36Impairment,
			fmt.Sprintf("recognized impairment %.2f exceeds the required loss %.2f", in.RecognizedLoss, loss)))
	}

	return violations
}

func ifrsViolation(code string, severity types.Severity, standard, description string) types.Violation {
	return types.Violation{
		Category:    types.CategoryFinancial,
		Code:        code,
		Severity:    severity,
		Standard:    standard,
		Description: description,
	}
}

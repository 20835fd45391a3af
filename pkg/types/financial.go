package types

import "time"

// Financial reporting standard identifiers.
const (
	StandardGAAPEquation      = "GAAP_FUNDAMENTAL_EQUATION"
	StandardGAAPRevenue       = "GAAP_REVENUE_RECOGNITION"
	StandardGAAPASC606Step1   = "GAAP_ASC_606_STEP_1"
	StandardGAAPASC606Step2   = "GAAP_ASC_606_STEP_2"
	StandardGAAPASC606Step3   = "GAAP_ASC_606_STEP_3"
	StandardGAAPASC606Step4   = "GAAP_ASC_606_STEP_4"
	StandardGAAPASC606Step5   = "GAAP_ASC_606_STEP_5"
	StandardGAAPMatching      = "GAAP_MATCHING_PRINCIPLE"
	StandardGAAPInventory     = "GAAP_INVENTORY"
	StandardGAAPDepreciation  = "GAAP_DEPRECIATION"
	StandardGAAPPeriodCutoff  = "GAAP_PERIOD_CUTOFF"
	StandardGAAPRecords       = "GAAP_RECORDKEEPING"
	StandardGAAPClassify      = "GAAP_CLASSIFICATION"
	StandardGAAPMateriality   = "GAAP_MATERIALITY"
	StandardGAAPGoingConcern  = "GAAP_GOING_CONCERN"
	StandardGAAPConsistency   = "GAAP_CONSISTENCY"
	StandardGAAPDisclosure    = "GAAP_FULL_DISCLOSURE"
	StandardIAS1Presentation  = "IAS_1_PRESENTATION"
	StandardIAS2Inventories   = "IAS_2_INVENTORIES"
	StandardIAS16PPE          = "IAS_16_PPE"
	StandardIAS36Impairment   = "IAS_36_IMPAIRMENT"
	StandardIAS38Intangibles  = "IAS_38_INTANGIBLES"
	StandardIFRS9Instruments  = "IFRS_9_INSTRUMENTS"
	StandardIFRS13FairValue   = "IFRS_13_FAIR_VALUE"
	StandardIFRS15Identify    = "IFRS_15_IDENTIFICATION"
	StandardIFRS15Obligations = "IFRS_15_OBLIGATIONS"
	StandardIFRS15Price       = "IFRS_15_PRICE"
	StandardIFRS15Allocation  = "IFRS_15_ALLOCATION"
	StandardIFRS15Recognition = "IFRS_15_RECOGNITION"
	StandardIFRS16Leases      = "IFRS_16_LEASES"
)

// JournalLine is one leg of a journal entry.
type JournalLine struct {
	Account string  `json:"account"`
	Debit   float64 `json:"debit"`
	Credit  float64 `json:"credit"`
}

// JournalEntry is a double-entry bookkeeping record.
type JournalEntry struct {
	EntryID     string        `json:"entry_id"`
	EntryDate   time.Time     `json:"entry_date"`
	Description string        `json:"description"`
	Lines       []JournalLine `json:"lines"`
}

// BalanceSheet carries the statement figures used by the fundamental
// equation, classification, going-concern, and materiality checks.
type BalanceSheet struct {
	AsOf               time.Time `json:"as_of"`
	TotalAssets        float64   `json:"total_assets"`
	TotalLiabilities   float64   `json:"total_liabilities"`
	TotalEquity        float64   `json:"total_equity"`
	CurrentAssets      float64   `json:"current_assets"`
	CurrentLiabilities float64   `json:"current_liabilities"`
	NetIncome          float64   `json:"net_income"`
	OperatingCashFlow  float64   `json:"operating_cash_flow"`
	TotalRevenue       float64   `json:"total_revenue"`
}

// RevenueRecord is a booked revenue transaction checked for earned status
// and recognition timing.
type RevenueRecord struct {
	TransactionID    string    `json:"transaction_id"`
	Amount           float64   `json:"amount"`
	TransactionDate  time.Time `json:"transaction_date"`
	RecognitionDate  time.Time `json:"recognition_date"`
	GoodsDelivered   bool      `json:"goods_delivered"`
	ServicesRendered bool      `json:"services_rendered"`
}

// SatisfactionMethod is how a performance obligation is satisfied.
type SatisfactionMethod string

const (
	SatisfyOverTime    SatisfactionMethod = "over_time"
	SatisfyPointInTime SatisfactionMethod = "point_in_time"
)

// PerformanceObligation is one distinct promise in a revenue contract.
type PerformanceObligation struct {
	Description        string             `json:"description"`
	AllocatedAmount    float64            `json:"allocated_amount"`
	Method             SatisfactionMethod `json:"satisfaction_method"`
	ProgressPercent    float64            `json:"progress_percent"`
	ControlTransferred bool               `json:"control_transferred"`
	SatisfactionDate   *time.Time         `json:"satisfaction_date,omitempty"`
}

// RevenueContract is the input for the five-step revenue recognition checks
// (ASC 606 and IFRS 15 share this shape).
type RevenueContract struct {
	ContractID          string                  `json:"contract_id"`
	CustomerID          string                  `json:"customer_id"`
	ContractExists      bool                    `json:"contract_exists"`
	CommercialSubstance bool                    `json:"commercial_substance"`
	PaymentProbable     bool                    `json:"payment_probable"`
	TransactionPrice    float64                 `json:"transaction_price"`
	ContractDate        time.Time               `json:"contract_date"`
	Obligations         []PerformanceObligation `json:"performance_obligations"`
}

// ExpenseRecord is checked against the matching principle: the expense must
// land in the same period as the revenue it helped generate.
type ExpenseRecord struct {
	ExpenseID     string  `json:"expense_id"`
	Amount        float64 `json:"amount"`
	ExpensePeriod string  `json:"expense_period"`
	RevenuePeriod string  `json:"revenue_period"`
}

// InventoryMethod is a cost-flow assumption for inventory.
type InventoryMethod string

const (
	InventoryFIFO     InventoryMethod = "FIFO"
	InventoryLIFO     InventoryMethod = "LIFO"
	InventoryAverage  InventoryMethod = "AVERAGE_COST"
	InventorySpecific InventoryMethod = "SPECIFIC_IDENTIFICATION"
)

// InventoryRecord carries both the valuation inputs and the period flow used
// to recompute cost of goods sold.
type InventoryRecord struct {
	Method             InventoryMethod `json:"method"`
	Cost               float64         `json:"cost"`
	NetRealizableValue float64         `json:"net_realizable_value"`
	CarryingAmount     float64         `json:"carrying_amount"`
	Beginning          float64         `json:"beginning_inventory"`
	Purchases          float64         `json:"purchases"`
	Ending             float64         `json:"ending_inventory"`
	ReportedCOGS       float64         `json:"reported_cogs"`
}

// DepreciationMethod selects how an asset's cost is allocated over its life.
type DepreciationMethod string

const (
	DepreciationStraightLine    DepreciationMethod = "STRAIGHT_LINE"
	DepreciationDoubleDeclining DepreciationMethod = "DOUBLE_DECLINING"
)

// AssetComponent is a separately depreciable part of a larger asset.
type AssetComponent struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// FixedAsset is the input for depreciation and IAS 16 measurement checks.
type FixedAsset struct {
	AssetID                 string             `json:"asset_id"`
	Cost                    float64            `json:"cost"`
	SalvageValue            float64            `json:"salvage_value"`
	UsefulLifeYears         float64            `json:"useful_life_years"`
	YearsInService          float64            `json:"years_in_service"`
	AccumulatedDepreciation float64            `json:"accumulated_depreciation"`
	Method                  DepreciationMethod `json:"method"`
	CarryingAmount          float64            `json:"carrying_amount"`
	RevaluationModel        bool               `json:"revaluation_model"`
	FairValue               *float64           `json:"fair_value,omitempty"`
	Components              []AssetComponent   `json:"components,omitempty"`
}

// IntangibleLife distinguishes finite from indefinite useful lives.
type IntangibleLife string

const (
	LifeFinite     IntangibleLife = "FINITE"
	LifeIndefinite IntangibleLife = "INDEFINITE"
)

// IntangibleAsset is the input for the IAS 38 amortization checks.
type IntangibleAsset struct {
	AssetID                string         `json:"asset_id"`
	Life                   IntangibleLife `json:"life"`
	UsefulLifeYears        float64        `json:"useful_life_years"`
	AmortizationRecorded   bool           `json:"amortization_recorded"`
	AnnualImpairmentTested bool           `json:"annual_impairment_tested"`
}

// InstrumentClass classifies a financial instrument under IFRS 9.
type InstrumentClass string

const (
	ClassAmortizedCost InstrumentClass = "AMORTIZED_COST"
	ClassFVOCI         InstrumentClass = "FVOCI"
	ClassFVTPL         InstrumentClass = "FVTPL"
)

// FinancialInstrument is the input for measurement-consistency checks.
type FinancialInstrument struct {
	InstrumentID     string          `json:"instrument_id"`
	Classification   InstrumentClass `json:"classification"`
	MeasurementBasis InstrumentClass `json:"measurement_basis"`
	ReportedValue    *float64        `json:"reported_value,omitempty"`
}

// StatementSet records which primary statements a reporting package includes.
type StatementSet struct {
	BalanceSheet      bool `json:"balance_sheet"`
	IncomeStatement   bool `json:"income_statement"`
	CashFlowStatement bool `json:"cash_flow_statement"`
	EquityStatement   bool `json:"equity_statement"`
	Notes             bool `json:"notes"`
	Comparatives      bool `json:"comparatives"`
}

// FairValueMeasurement is the input for IFRS 13 hierarchy checks and
// recomputation of level 2/3 valuations.
type FairValueMeasurement struct {
	ItemID                  string    `json:"item_id"`
	Level                   int       `json:"level"`
	ValuationTechnique      string    `json:"valuation_technique"`
	ReportedValue           float64   `json:"reported_value"`
	ComparablePrices        []float64 `json:"comparable_prices,omitempty"`
	Adjustments             float64   `json:"adjustments"`
	ReplacementCost         float64   `json:"replacement_cost"`
	AccumulatedDepreciation float64   `json:"accumulated_depreciation"`
	CashFlows               []float64 `json:"cash_flows,omitempty"`
	DiscountRatePercent     float64   `json:"discount_rate_percent"`
}

// Lease is the input for IFRS 16 recognition and measurement checks.
type Lease struct {
	LeaseID               string   `json:"lease_id"`
	TermMonths            int      `json:"term_months"`
	MonthlyPayment        float64  `json:"monthly_payment"`
	AnnualRatePercent     float64  `json:"annual_discount_rate_percent"`
	InitialDirectCosts    float64  `json:"initial_direct_costs"`
	Prepayments           float64  `json:"prepayments"`
	Incentives            float64  `json:"incentives"`
	UnderlyingAssetValue  float64  `json:"underlying_asset_value"`
	ShortTermElected      bool     `json:"short_term_elected"`
	LowValueElected       bool     `json:"low_value_elected"`
	RecognizedLiability   *float64 `json:"recognized_liability,omitempty"`
	RecognizedRightOfUse  *float64 `json:"recognized_right_of_use,omitempty"`
}

// LeaseMeasurement is the recomputed IFRS 16 position for a lease.
type LeaseMeasurement struct {
	Liability       float64 `json:"lease_liability"`
	RightOfUseAsset float64 `json:"right_of_use_asset"`
	Exempt          bool    `json:"exempt"`
	ExemptionReason string  `json:"exemption_reason,omitempty"`
}

// ImpairmentInput is the input for IAS 36 impairment testing.
type ImpairmentInput struct {
	AssetID            string  `json:"asset_id"`
	CarryingAmount     float64 `json:"carrying_amount"`
	FairValueLessCosts float64 `json:"fair_value_less_costs"`
	ValueInUse         float64 `json:"value_in_use"`
	RecognizedLoss     float64 `json:"recognized_loss"`
}

// ClassificationItem is a balance sheet line checked for current versus
// non-current presentation.
type ClassificationItem struct {
	Name            string `json:"name"`
	ReportedCurrent bool   `json:"reported_current"`
	SettlementDays  int    `json:"settlement_days"`
	IsLiability     bool   `json:"is_liability"`
}

// PolicyChange records a change in accounting method for consistency checks.
type PolicyChange struct {
	Area          string `json:"area"`
	Changed       bool   `json:"changed"`
	Justification string `json:"justification"`
	Disclosed     bool   `json:"disclosed"`
}

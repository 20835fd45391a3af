// Package engine orchestrates compliance checks: it dispatches snapshots to
// the labor and financial evaluators, then persists the violations, the
// check log, and the tamper-evident audit entries as one atomic unit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/internal/audit"
	"github.com/compliance-engine/go-core/internal/financial"
	"github.com/compliance-engine/go-core/internal/labor"
	"github.com/compliance-engine/go-core/internal/metrics"
	"github.com/compliance-engine/go-core/internal/rules"
	"github.com/compliance-engine/go-core/internal/tracker"
	"github.com/compliance-engine/go-core/pkg/types"
)

// Check type identifiers recorded in check logs.
const (
	CheckTypeLabor = "LABOR_LAW"
	CheckTypeGAAP  = "FINANCIAL_GAAP"
	CheckTypeIFRS  = "FINANCIAL_IFRS"
)

// ActionViolationDetected is the audit action recorded for each persisted
// violation.
const ActionViolationDetected = "COMPLIANCE_VIOLATION_DETECTED"

// adultAge is the age at which FLSA child labor rules stop applying.
const adultAge = 18

// Config configures the compliance engine.
type Config struct {
	California labor.CaliforniaParams
	FLSA       labor.FLSAParams
	GAAP       financial.GAAPParams
	IFRS       financial.IFRSParams
	// ParallelWorkers is the number of workers for batch checks.
	ParallelWorkers int
	// CheckedBy is recorded on check logs as the initiating system.
	CheckedBy string
}

// DefaultConfig returns the statutory defaults.
func DefaultConfig() Config {
	return Config{
		California:      labor.DefaultCaliforniaParams(),
		FLSA:            labor.DefaultFLSAParams(),
		GAAP:            financial.DefaultGAAPParams(),
		IFRS:            financial.DefaultIFRSParams(),
		ParallelWorkers: 16,
		CheckedBy:       "compliance-engine",
	}
}

// Engine is the compliance check orchestrator.
type Engine struct {
	california *labor.CaliforniaEvaluator
	flsa       *labor.FLSAEvaluator
	gaap       *financial.GAAPEvaluator
	ifrs       *financial.IFRSEvaluator

	persister Persister
	ledger    *audit.Ledger
	tracker   *tracker.Tracker

	ruleStore  rules.Store
	ruleLoader *rules.Loader

	pool    *WorkerPool
	config  Config
	metrics metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules attaches a rule store and loader. When present, active rules
// override the configured evaluator parameters per check, gated by their CEL
// applicability conditions.
func WithRules(store rules.Store, loader *rules.Loader) Option {
	return func(e *Engine) {
		e.ruleStore = store
		e.ruleLoader = loader
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// New creates a compliance engine.
func New(cfg Config, persister Persister, ledger *audit.Ledger, trk *tracker.Tracker, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if persister == nil || ledger == nil || trk == nil {
		return nil, fmt.Errorf("engine: persister, ledger, and tracker are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	california, err := labor.NewCaliforniaEvaluator(cfg.California, logger)
	if err != nil {
		return nil, err
	}
	flsa, err := labor.NewFLSAEvaluator(cfg.FLSA, logger)
	if err != nil {
		return nil, err
	}
	gaap, err := financial.NewGAAPEvaluator(cfg.GAAP, logger)
	if err != nil {
		return nil, err
	}
	ifrs, err := financial.NewIFRSEvaluator(cfg.IFRS, logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		california: california,
		flsa:       flsa,
		gaap:       gaap,
		ifrs:       ifrs,
		persister:  persister,
		ledger:     ledger,
		tracker:    trk,
		pool:       NewWorkerPool(cfg.ParallelWorkers),
		config:     cfg,
		metrics:    metrics.NewNoOpMetrics(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close stops the engine's workers.
func (e *Engine) Close() {
	e.pool.Stop()
}

// CheckLabor runs the labor law checks on one employee's records: California
// daily/weekly overtime and break rules when the employee works in
// California, the federal minimum wage and overtime floors, the exemption
// tests when an exemption is claimed, and child labor restrictions for
// workers under eighteen.
func (e *Engine) CheckLabor(ctx context.Context, in *LaborInput) (*types.CheckResult, error) {
	if in == nil || in.Timesheet == nil {
		return nil, fmt.Errorf("engine: labor input requires a timesheet")
	}

	resource := map[string]interface{}{
		"state":       in.Timesheet.State,
		"employee_id": in.Timesheet.EmployeeID,
	}

	return e.runCheck(ctx, CheckTypeLabor, "timesheet", in.Timesheet.EmployeeID, func() []types.Violation {
		california, flsa := e.laborEvaluators(resource)
		var violations []types.Violation

		if in.Timesheet.State == "CA" {
			caViolations, _ := california.Evaluate(in.Timesheet)
			violations = append(violations, caViolations...)
		}

		if in.Pay != nil {
			violations = append(violations, flsa.CheckMinimumWage(*in.Pay)...)
		}
		if in.Exemption != nil {
			_, exemptionViolations := flsa.CheckExemption(*in.Exemption)
			violations = append(violations, exemptionViolations...)
		}
		if in.Minor != nil && in.Minor.Age < adultAge {
			violations = append(violations, flsa.CheckChildLabor(*in.Minor)...)
		}
		if in.PayrollRecord != nil {
			violations = append(violations, flsa.CheckRecordkeeping(in.PayrollRecord)...)
		}

		return violations
	})
}

// CheckFinancialGAAP runs the US GAAP checks over whichever snapshots the
// input carries.
func (e *Engine) CheckFinancialGAAP(ctx context.Context, in *GAAPInput) (*types.CheckResult, error) {
	if in == nil || in.ResourceID == "" {
		return nil, fmt.Errorf("engine: financial input requires a resource id")
	}

	resource := map[string]interface{}{"resource_id": in.ResourceID}

	return e.runCheck(ctx, CheckTypeGAAP, in.resourceType(), in.ResourceID, func() []types.Violation {
		gaap, _ := e.financialEvaluators(resource)
		var violations []types.Violation

		if in.JournalEntry != nil {
			violations = append(violations, gaap.CheckJournalEntry(*in.JournalEntry)...)
		}
		if in.BalanceSheet != nil {
			violations = append(violations, gaap.CheckBalanceSheet(*in.BalanceSheet)...)
			violations = append(violations, gaap.CheckGoingConcern(*in.BalanceSheet)...)
		}
		if in.Revenue != nil {
			violations = append(violations, gaap.CheckRevenueRecord(*in.Revenue)...)
		}
		if in.Contract != nil {
			violations = append(violations, gaap.CheckRevenueContract(*in.Contract)...)
		}
		if in.Expense != nil {
			violations = append(violations, gaap.CheckMatching(*in.Expense)...)
		}
		if in.Inventory != nil {
			violations = append(violations, gaap.CheckInventory(*in.Inventory)...)
		}
		if in.Asset != nil {
			violations = append(violations, gaap.CheckDepreciation(*in.Asset)...)
		}
		if len(in.Classification) > 0 {
			violations = append(violations, gaap.CheckClassification(in.Classification)...)
		}
		if in.PolicyChange != nil {
			violations = append(violations, gaap.CheckConsistency(*in.PolicyChange)...)
		}

		return violations
	})
}

// CheckFinancialIFRS runs the IFRS checks over whichever snapshots the input
// carries.
func (e *Engine) CheckFinancialIFRS(ctx context.Context, in *IFRSInput) (*types.CheckResult, error) {
	if in == nil || in.ResourceID == "" {
		return nil, fmt.Errorf("engine: financial input requires a resource id")
	}

	resource := map[string]interface{}{"resource_id": in.ResourceID}

	return e.runCheck(ctx, CheckTypeIFRS, in.resourceType(), in.ResourceID, func() []types.Violation {
		_, ifrs := e.financialEvaluators(resource)
		var violations []types.Violation

		if in.Inventory != nil {
			violations = append(violations, ifrs.CheckInventory(*in.Inventory)...)
		}
		if in.PPE != nil {
			violations = append(violations, ifrs.CheckPPE(*in.PPE)...)
		}
		if in.Intangible != nil {
			violations = append(violations, ifrs.CheckIntangible(*in.Intangible)...)
		}
		if in.Contract != nil {
			violations = append(violations, ifrs.CheckRevenueContract(*in.Contract)...)
		}
		if in.Instrument != nil {
			violations = append(violations, ifrs.CheckInstrument(*in.Instrument)...)
		}
		if in.Statements != nil {
			violations = append(violations, ifrs.CheckStatementSet(*in.Statements)...)
		}
		if in.FairValue != nil {
			violations = append(violations, ifrs.CheckFairValue(*in.FairValue)...)
		}
		if in.Lease != nil {
			violations = append(violations, ifrs.CheckLease(*in.Lease)...)
		}
		if in.Impairment != nil {
			violations = append(violations, ifrs.CheckImpairment(*in.Impairment)...)
		}

		return violations
	})
}

// runCheck executes one evaluator pass with panic recovery, then persists
// the outcome. A panicking evaluator yields an inconclusive result rather
// than a crashed check: the check log still records that the check ran.
func (e *Engine) runCheck(ctx context.Context, checkType, resourceType, resourceID string, eval func() []types.Violation) (*types.CheckResult, error) {
	start := e.now()

	result := &types.CheckResult{
		CheckType:    checkType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}

	violations, inconclusive := e.safeEval(checkType, resourceID, eval)
	result.Violations = violations
	result.Inconclusive = inconclusive
	result.Passed = len(violations) == 0 && len(inconclusive) == 0
	result.Duration = e.now().Sub(start)

	if len(inconclusive) > 0 {
		e.metrics.RecordCheckError("evaluator_panic")
	}

	if err := e.persistResult(ctx, result, start); err != nil {
		e.metrics.RecordCheckError("persist_failure")
		return nil, err
	}

	e.metrics.RecordCheck(checkType, result.Passed, result.Duration)
	for _, v := range result.Violations {
		e.metrics.RecordViolation(string(v.Severity))
	}

	e.logger.Info("Compliance check completed",
		zap.String("check_type", checkType),
		zap.String("resource", resourceType+"/"+resourceID),
		zap.Bool("passed", result.Passed),
		zap.Int("violations", len(result.Violations)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// safeEval runs the evaluator, converting a panic into an inconclusive
// marker.
func (e *Engine) safeEval(checkType, resourceID string, eval func() []types.Violation) (violations []types.Violation, inconclusive []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Evaluator panicked; marking check inconclusive",
				zap.String("check_type", checkType),
				zap.String("resource_id", resourceID),
				zap.Any("panic", r),
			)
			violations = nil
			inconclusive = []string{fmt.Sprintf("evaluator failure: %v", r)}
		}
	}()

	return eval(), nil
}

// persistResult writes the violations, the check log, and one audit entry
// per violation in a single transaction. A lost audit sequence race aborts
// the transaction; it is retried once against the new chain tail.
func (e *Engine) persistResult(ctx context.Context, result *types.CheckResult, checkedAt time.Time) error {
	detectedAt := checkedAt.UTC()

	for i := range result.Violations {
		v := &result.Violations[i]
		v.ID = uuid.New()
		v.Status = types.StatusOpen
		v.DetectedAt = detectedAt
		if v.ResourceType == "" {
			v.ResourceType = result.ResourceType
		}
		if v.ResourceID == "" {
			v.ResourceID = result.ResourceID
		}
		if !v.Severity.Valid() {
			v.Severity = e.tracker.ClassifySeverity(v)
		}
	}

	log := &types.CheckLog{
		ID:              uuid.New(),
		CheckType:       result.CheckType,
		ResourceType:    result.ResourceType,
		ResourceID:      result.ResourceID,
		CheckedAt:       detectedAt,
		Passed:          result.Passed,
		ViolationsFound: len(result.Violations),
		ExecutionTimeMs: result.Duration.Milliseconds(),
		CheckedBy:       e.config.CheckedBy,
	}
	result.CheckLogID = log.ID

	persist := func(violations tracker.Store, entries audit.Store) error {
		if err := violations.InsertCheckLog(ctx, log); err != nil {
			return err
		}
		for i := range result.Violations {
			v := &result.Violations[i]

			entry, err := e.ledger.AppendTx(ctx, entries, &types.AuditEntry{
				Action:       ActionViolationDetected,
				ResourceType: v.ResourceType,
				ResourceID:   v.ResourceID,
				Description:  fmt.Sprintf("%s: %s", v.Code, v.Description),
				NewValues: map[string]interface{}{
					"violation_id":   v.ID.String(),
					"violation_type": v.Code,
					"severity":       string(v.Severity),
					"standard":       v.Standard,
					"check_type":     result.CheckType,
				},
				CreatedAt: detectedAt,
			})
			if err != nil {
				return err
			}

			v.AuditEntryID = &entry.ID
			if err := violations.Insert(ctx, v); err != nil {
				return err
			}
			e.metrics.RecordLedgerAppend()
			e.metrics.UpdateLedgerSize(entry.Sequence)
		}
		return nil
	}

	err := e.persister.Persist(ctx, persist)
	if errors.Is(err, audit.ErrSequenceConflict) {
		e.metrics.RecordSequenceConflict()
		e.logger.Warn("Check persistence lost audit sequence race, retrying",
			zap.String("check_type", result.CheckType),
		)
		err = e.persister.Persist(ctx, persist)
	}
	if err != nil {
		return fmt.Errorf("failed to persist check result: %w", err)
	}
	return nil
}

// laborEvaluators resolves the labor evaluators for a check, overlaying any
// active labor rules that apply to the resource.
func (e *Engine) laborEvaluators(resource map[string]interface{}) (*labor.CaliforniaEvaluator, *labor.FLSAEvaluator) {
	california, flsa := e.california, e.flsa
	if e.ruleStore == nil {
		return california, flsa
	}

	caParams := e.config.California
	flsaParams := e.config.FLSA
	overridden := false

	for _, rule := range e.activeRules(types.FamilyLabor, resource) {
		cp, err := rules.CaliforniaParams(rule)
		if err != nil {
			e.logger.Warn("Skipping rule with bad parameters", zap.String("rule", rule.Code), zap.Error(err))
			continue
		}
		fp, err := rules.FLSAParams(rule)
		if err != nil {
			e.logger.Warn("Skipping rule with bad parameters", zap.String("rule", rule.Code), zap.Error(err))
			continue
		}
		caParams, flsaParams = cp, fp
		overridden = true
	}

	if !overridden {
		return california, flsa
	}

	// Parameters were validated at rule load time, so construction cannot
	// fail on them.
	if ca, err := labor.NewCaliforniaEvaluator(caParams, e.logger); err == nil {
		california = ca
	}
	if fl, err := labor.NewFLSAEvaluator(flsaParams, e.logger); err == nil {
		flsa = fl
	}
	return california, flsa
}

// financialEvaluators resolves the financial evaluators for a check,
// overlaying any active financial rules that apply to the resource.
func (e *Engine) financialEvaluators(resource map[string]interface{}) (*financial.GAAPEvaluator, *financial.IFRSEvaluator) {
	gaap, ifrs := e.gaap, e.ifrs
	if e.ruleStore == nil {
		return gaap, ifrs
	}

	gaapParams := e.config.GAAP
	ifrsParams := e.config.IFRS
	overridden := false

	for _, rule := range e.activeRules(types.FamilyFinancial, resource) {
		gp, err := rules.GAAPParams(rule)
		if err != nil {
			e.logger.Warn("Skipping rule with bad parameters", zap.String("rule", rule.Code), zap.Error(err))
			continue
		}
		ip, err := rules.IFRSParams(rule)
		if err != nil {
			e.logger.Warn("Skipping rule with bad parameters", zap.String("rule", rule.Code), zap.Error(err))
			continue
		}
		gaapParams, ifrsParams = gp, ip
		overridden = true
	}

	if !overridden {
		return gaap, ifrs
	}

	if g, err := financial.NewGAAPEvaluator(gaapParams, e.logger); err == nil {
		gaap = g
	}
	if i, err := financial.NewIFRSEvaluator(ifrsParams, e.logger); err == nil {
		ifrs = i
	}
	return gaap, ifrs
}

// activeRules returns the in-effect rules of a family whose applicability
// conditions hold for the resource.
func (e *Engine) activeRules(family types.RuleFamily, resource map[string]interface{}) []*types.Rule {
	now := e.now()
	var active []*types.Rule
	for _, rule := range e.ruleStore.FindByFamily(family) {
		if !rule.InEffect(now) {
			continue
		}
		applies, err := e.ruleLoader.Applies(rule, resource, nil)
		if err != nil {
			e.logger.Warn("Rule condition failed to evaluate",
				zap.String("rule", rule.Code),
				zap.Error(err),
			)
			continue
		}
		if applies {
			active = append(active, rule)
		}
	}
	return active
}

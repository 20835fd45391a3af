package tracker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/compliance-engine/go-core/pkg/types"
)

// ClassifierParams tune the deterministic severity classification.
type ClassifierParams struct {
	// CriticalStandards always classify as CRITICAL regardless of amount.
	CriticalStandards []string
	// Monetary ladder: impact above each bound maps to the severity.
	CriticalImpact float64
	HighImpact     float64
	MediumImpact   float64
}

// DefaultClassifierParams returns the standard classification thresholds.
func DefaultClassifierParams() ClassifierParams {
	return ClassifierParams{
		CriticalStandards: []string{
			types.StandardCALabor512,
			types.StandardFLSAMinWage,
			types.StandardFLSAChildLabor,
			types.StandardGAAPEquation,
			types.StandardIFRS15Identify,
		},
		CriticalImpact: 10000,
		HighImpact:     1000,
		MediumImpact:   100,
	}
}

// EscalationParams set how long a violation may stay unresolved, per
// severity, before it is flagged for escalation.
type EscalationParams struct {
	CriticalAfter time.Duration
	HighAfter     time.Duration
	MediumAfter   time.Duration
	LowAfter      time.Duration
	DefaultAfter  time.Duration
}

// DefaultEscalationParams returns the standard escalation ages.
func DefaultEscalationParams() EscalationParams {
	return EscalationParams{
		CriticalAfter: 24 * time.Hour,
		HighAfter:     3 * 24 * time.Hour,
		MediumAfter:   7 * 24 * time.Hour,
		LowAfter:      14 * 24 * time.Hour,
		DefaultAfter:  30 * 24 * time.Hour,
	}
}

// Escalation is a violation that has been open past its severity's deadline.
type Escalation struct {
	Violation *types.Violation `json:"violation"`
	OpenFor   time.Duration    `json:"open_for"`
	Deadline  time.Duration    `json:"deadline"`
}

// Tracker manages tracked violations.
type Tracker struct {
	store      Store
	classifier ClassifierParams
	escalation EscalationParams
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClassifierParams overrides the classification thresholds.
func WithClassifierParams(p ClassifierParams) Option {
	return func(t *Tracker) { t.classifier = p }
}

// WithEscalationParams overrides the escalation deadlines.
func WithEscalationParams(p EscalationParams) Option {
	return func(t *Tracker) { t.escalation = p }
}

// NewTracker creates a violation tracker over the given store.
func NewTracker(store Store, logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		store:      store,
		classifier: DefaultClassifierParams(),
		escalation: DefaultEscalationParams(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ClassifySeverity grades a violation deterministically: always-critical
// standards first, then the monetary impact ladder, then code heuristics.
// The same violation always classifies the same way.
func (t *Tracker) ClassifySeverity(v *types.Violation) types.Severity {
	for _, std := range t.classifier.CriticalStandards {
		if v.Standard == std {
			return types.SeverityCritical
		}
	}

	if v.FinancialImpact != nil {
		switch impact := *v.FinancialImpact; {
		case impact > t.classifier.CriticalImpact:
			return types.SeverityCritical
		case impact > t.classifier.HighImpact:
			return types.SeverityHigh
		case impact > t.classifier.MediumImpact:
			return types.SeverityMedium
		}
	}

	code := strings.ToUpper(v.Code)
	switch {
	case strings.Contains(code, "CHILD_LABOR"), strings.Contains(code, "MINIMUM_WAGE"):
		return types.SeverityCritical
	case strings.Contains(code, "OVERTIME"),
		strings.Contains(code, "MEAL_BREAK"),
		strings.Contains(code, "REST_BREAK"):
		return types.SeverityHigh
	}

	return types.SeverityMedium
}

// Record stores a newly detected violation. It assigns identity and an OPEN
// status, stamps the detection time, and classifies severity when the
// evaluator left it unset.
func (t *Tracker) Record(ctx context.Context, v *types.Violation) error {
	if v.Code == "" || v.Standard == "" {
		return fmt.Errorf("violation code and standard are required")
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.DetectedAt.IsZero() {
		v.DetectedAt = t.now().UTC()
	}
	if !v.Severity.Valid() {
		v.Severity = t.ClassifySeverity(v)
	}
	v.Status = types.StatusOpen

	if err := t.store.Insert(ctx, v); err != nil {
		return fmt.Errorf("failed to record violation: %w", err)
	}

	t.logger.Info("Violation recorded",
		zap.String("id", v.ID.String()),
		zap.String("type", v.Code),
		zap.String("severity", string(v.Severity)),
		zap.String("resource", v.ResourceType+"/"+v.ResourceID),
	)
	return nil
}

// Get retrieves a tracked violation.
func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (*types.Violation, error) {
	return t.store.Get(ctx, id)
}

// Query retrieves violations matching the filter.
func (t *Tracker) Query(ctx context.Context, filter *Filter) ([]*types.Violation, error) {
	return t.store.Query(ctx, filter)
}

// Assign moves an open violation to IN_PROGRESS under the given assignee.
func (t *Tracker) Assign(ctx context.Context, id uuid.UUID, assignee string) (*types.Violation, error) {
	v, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v.Status.Terminal() {
		return nil, fmt.Errorf("cannot assign violation %s: %w", id, ErrConflict)
	}
	if v.Status != types.StatusOpen && v.Status != types.StatusInProgress {
		return nil, fmt.Errorf("cannot assign from %s: %w", v.Status, ErrInvalidTransition)
	}

	v.Status = types.StatusInProgress
	v.AssignedTo = &assignee
	if err := t.store.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to assign violation: %w", err)
	}

	t.logger.Info("Violation assigned",
		zap.String("id", id.String()),
		zap.String("assignee", assignee),
	)
	return v, nil
}

// Resolve closes a violation with resolution notes. Resolving an already
// closed violation returns ErrConflict, distinct from ErrNotFound for a
// violation that does not exist.
func (t *Tracker) Resolve(ctx context.Context, id uuid.UUID, notes string) (*types.Violation, error) {
	return t.close(ctx, id, types.StatusResolved, notes)
}

// Dismiss closes a violation as not actionable, with a reason.
func (t *Tracker) Dismiss(ctx context.Context, id uuid.UUID, reason string) (*types.Violation, error) {
	return t.close(ctx, id, types.StatusDismissed, reason)
}

func (t *Tracker) close(ctx context.Context, id uuid.UUID, status types.ViolationStatus, notes string) (*types.Violation, error) {
	v, err := t.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if v.Status.Terminal() {
		return nil, fmt.Errorf("violation %s is already %s: %w", id, v.Status, ErrConflict)
	}

	now := t.now().UTC()
	v.Status = status
	v.ResolutionNotes = &notes
	v.ResolvedAt = &now
	if err := t.store.Update(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to close violation: %w", err)
	}

	t.logger.Info("Violation closed",
		zap.String("id", id.String()),
		zap.String("status", string(status)),
	)
	return v, nil
}

// deadline returns how long a violation of the given severity may stay open.
func (t *Tracker) deadline(severity types.Severity) time.Duration {
	switch severity {
	case types.SeverityCritical:
		return t.escalation.CriticalAfter
	case types.SeverityHigh:
		return t.escalation.HighAfter
	case types.SeverityMedium:
		return t.escalation.MediumAfter
	case types.SeverityLow:
		return t.escalation.LowAfter
	default:
		return t.escalation.DefaultAfter
	}
}

// ScanEscalations returns all non-terminal violations that have been open
// past their severity's deadline, most overdue first.
func (t *Tracker) ScanEscalations(ctx context.Context) ([]Escalation, error) {
	var escalations []Escalation
	now := t.now()

	for _, status := range []types.ViolationStatus{types.StatusOpen, types.StatusInProgress} {
		open, err := t.store.Query(ctx, &Filter{Status: status})
		if err != nil {
			return nil, fmt.Errorf("failed to scan for escalations: %w", err)
		}
		for _, v := range open {
			deadline := t.deadline(v.Severity)
			age := now.Sub(v.DetectedAt)
			if age > deadline {
				escalations = append(escalations, Escalation{
					Violation: v,
					OpenFor:   age,
					Deadline:  deadline,
				})
			}
		}
	}

	sort.Slice(escalations, func(i, j int) bool {
		return escalations[i].OpenFor-escalations[i].Deadline >
			escalations[j].OpenFor-escalations[j].Deadline
	})

	if len(escalations) > 0 {
		t.logger.Warn("Violations past escalation deadline",
			zap.Int("count", len(escalations)),
		)
	}
	return escalations, nil
}

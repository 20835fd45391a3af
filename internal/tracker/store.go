// Package tracker manages the lifecycle of detected compliance violations:
// severity classification, assignment, resolution, escalation, recurring
// pattern detection, and reporting analytics.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/compliance-engine/go-core/pkg/types"
)

var (
	// ErrNotFound is returned when a violation does not exist.
	ErrNotFound = errors.New("violation not found")
	// ErrConflict is returned when an operation targets a violation already
	// in a terminal state.
	ErrConflict = errors.New("violation already closed")
	// ErrInvalidTransition is returned for lifecycle transitions the state
	// machine does not admit.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Filter narrows violation queries.
type Filter struct {
	Status       types.ViolationStatus
	Severity     types.Severity
	Category     types.ViolationCategory
	Standard     string
	Code         string
	ResourceType string
	ResourceID   string
	DetectedFrom time.Time
	DetectedTo   time.Time
	Limit        int
	Offset       int
}

// Store persists tracked violations.
type Store interface {
	Insert(ctx context.Context, v *types.Violation) error
	Get(ctx context.Context, id uuid.UUID) (*types.Violation, error)
	Update(ctx context.Context, v *types.Violation) error
	Query(ctx context.Context, filter *Filter) ([]*types.Violation, error)
	Count(ctx context.Context, filter *Filter) (int64, error)
	InsertCheckLog(ctx context.Context, log *types.CheckLog) error
}

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/compliance-engine/go-core/pkg/types"
)

// ErrSequenceConflict is returned when an append lost the race for its
// sequence number and should be retried from the refreshed chain tail.
var ErrSequenceConflict = errors.New("audit: sequence already taken")

// Filter narrows a ledger query.
type Filter struct {
	Action       string
	ResourceType string
	ResourceID   string
	ActorID      string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

// Store persists audit entries. Implementations must reject two entries with
// the same sequence so that concurrent appenders cannot fork the chain.
type Store interface {
	// Insert persists a fully hashed entry. Returns ErrSequenceConflict when
	// the entry's sequence is already occupied.
	Insert(ctx context.Context, entry *types.AuditEntry) error

	// LastEntry returns the entry with the highest sequence, or nil when the
	// ledger is empty.
	LastEntry(ctx context.Context) (*types.AuditEntry, error)

	// Range returns entries with from <= sequence <= to in ascending
	// sequence order. A to of zero means "through the end of the ledger".
	Range(ctx context.Context, from, to int64) ([]*types.AuditEntry, error)

	// Query returns entries matching the filter, most recent first.
	Query(ctx context.Context, filter *Filter) ([]*types.AuditEntry, error)

	// Count returns the number of persisted entries.
	Count(ctx context.Context) (int64, error)
}

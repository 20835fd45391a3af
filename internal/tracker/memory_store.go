package tracker

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/compliance-engine/go-core/pkg/types"
)

// MemoryStore is an in-memory Store used in tests and single-node setups.
type MemoryStore struct {
	mu         sync.RWMutex
	violations map[uuid.UUID]*types.Violation
	checkLogs  []*types.CheckLog
}

// NewMemoryStore creates an empty in-memory violation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{violations: make(map[uuid.UUID]*types.Violation)}
}

// Insert stores a new violation.
func (s *MemoryStore) Insert(ctx context.Context, v *types.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *v
	s.violations[v.ID] = &clone
	return nil
}

// Get retrieves a violation by ID.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*types.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.violations[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *v
	return &clone, nil
}

// Update replaces a stored violation.
func (s *MemoryStore) Update(ctx context.Context, v *types.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.violations[v.ID]; !ok {
		return ErrNotFound
	}
	clone := *v
	s.violations[v.ID] = &clone
	return nil
}

// Query retrieves violations matching the filter, most recent first.
func (s *MemoryStore) Query(ctx context.Context, filter *Filter) ([]*types.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*types.Violation
	for _, v := range s.violations {
		if !matches(v, filter) {
			continue
		}
		clone := *v
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DetectedAt.After(matched[j].DetectedAt)
	})

	if filter != nil && filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter != nil && filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Count returns the number of violations matching the filter.
func (s *MemoryStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.violations {
		if matches(v, filter) {
			n++
		}
	}
	return n, nil
}

// InsertCheckLog stores a check log record.
func (s *MemoryStore) InsertCheckLog(ctx context.Context, log *types.CheckLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *log
	s.checkLogs = append(s.checkLogs, &clone)
	return nil
}

// CheckLogs returns a copy of the stored check logs, oldest first.
func (s *MemoryStore) CheckLogs() []*types.CheckLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]*types.CheckLog, len(s.checkLogs))
	copy(logs, s.checkLogs)
	return logs
}

func matches(v *types.Violation, filter *Filter) bool {
	if filter == nil {
		return true
	}
	if filter.Status != "" && v.Status != filter.Status {
		return false
	}
	if filter.Severity != "" && v.Severity != filter.Severity {
		return false
	}
	if filter.Category != "" && v.Category != filter.Category {
		return false
	}
	if filter.Standard != "" && v.Standard != filter.Standard {
		return false
	}
	if filter.Code != "" && v.Code != filter.Code {
		return false
	}
	if filter.ResourceType != "" && v.ResourceType != filter.ResourceType {
		return false
	}
	if filter.ResourceID != "" && v.ResourceID != filter.ResourceID {
		return false
	}
	if !filter.DetectedFrom.IsZero() && v.DetectedAt.Before(filter.DetectedFrom) {
		return false
	}
	if !filter.DetectedTo.IsZero() && v.DetectedAt.After(filter.DetectedTo) {
		return false
	}
	return true
}

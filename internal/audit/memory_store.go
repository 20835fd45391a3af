package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/compliance-engine/go-core/pkg/types"
)

// MemoryStore is an in-memory Store for tests and single-process use. It
// enforces the same sequence uniqueness as the PostgreSQL store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*types.AuditEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64]*types.AuditEntry)}
}

// Insert persists the entry, rejecting duplicate sequences.
func (s *MemoryStore) Insert(_ context.Context, entry *types.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Sequence]; exists {
		return ErrSequenceConflict
	}

	clone := *entry
	s.entries[entry.Sequence] = &clone
	return nil
}

// LastEntry returns the entry with the highest sequence, or nil.
func (s *MemoryStore) LastEntry(_ context.Context) (*types.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *types.AuditEntry
	for _, entry := range s.entries {
		if last == nil || entry.Sequence > last.Sequence {
			last = entry
		}
	}
	if last == nil {
		return nil, nil
	}
	clone := *last
	return &clone, nil
}

// Range returns entries in ascending sequence order.
func (s *MemoryStore) Range(_ context.Context, from, to int64) ([]*types.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []*types.AuditEntry
	for seq, entry := range s.entries {
		if seq < from {
			continue
		}
		if to > 0 && seq > to {
			continue
		}
		clone := *entry
		entries = append(entries, &clone)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})
	return entries, nil
}

// Query returns entries matching the filter, most recent first.
func (s *MemoryStore) Query(_ context.Context, filter *Filter) ([]*types.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*types.AuditEntry
	for _, entry := range s.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && entry.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && entry.ResourceID != filter.ResourceID {
			continue
		}
		if filter.ActorID != "" && (entry.ActorID == nil || *entry.ActorID != filter.ActorID) {
			continue
		}
		if !filter.StartTime.IsZero() && entry.CreatedAt.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && entry.CreatedAt.After(filter.EndTime) {
			continue
		}
		clone := *entry
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Sequence > matched[j].Sequence
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// Count returns the number of persisted entries.
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// Tamper replaces a stored entry in place. Exists so integrity tests can
// corrupt the store without going through the append path.
func (s *MemoryStore) Tamper(seq int64, mutate func(*types.AuditEntry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[seq]
	if !ok {
		return false
	}
	mutate(entry)
	return true
}

// Delete removes a stored entry. Exists for chain-break tests.
func (s *MemoryStore) Delete(seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[seq]; !ok {
		return false
	}
	delete(s.entries, seq)
	return true
}

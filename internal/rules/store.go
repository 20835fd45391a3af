// Package rules provides storage, loading, and hot-reload for configurable
// compliance rules. Rules select an evaluator strategy by code and carry the
// thresholds that strategy understands.
package rules

import (
	"fmt"
	"sync"

	"github.com/compliance-engine/go-core/pkg/types"
)

// Store is the interface rule consumers use to look up rules.
type Store interface {
	Get(code string) (*types.Rule, error)
	GetAll() []*types.Rule
	FindByFamily(family types.RuleFamily) []*types.Rule
	Add(rule *types.Rule) error
	Remove(code string) error
	Clear()
	Count() int
}

// MemoryStore implements an in-memory rule store with a family index.
type MemoryStore struct {
	rules    map[string]*types.Rule
	byFamily map[types.RuleFamily][]*types.Rule
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:    make(map[string]*types.Rule),
		byFamily: make(map[types.RuleFamily][]*types.Rule),
	}
}

// Get retrieves a rule by code.
func (s *MemoryStore) Get(code string) (*types.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[code]
	if !ok {
		return nil, fmt.Errorf("rule not found: %s", code)
	}
	return rule, nil
}

// GetAll retrieves all rules.
func (s *MemoryStore) GetAll() []*types.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]*types.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	return rules
}

// FindByFamily returns the rules evaluated by the given subsystem.
func (s *MemoryStore) FindByFamily(family types.RuleFamily) []*types.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := s.byFamily[family]
	// Return a copy to avoid race conditions
	result := make([]*types.Rule, len(rules))
	copy(result, rules)
	return result
}

// Add adds a rule to the store, replacing any rule with the same code.
func (s *MemoryStore) Add(rule *types.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.Code == "" {
		return fmt.Errorf("rule code is required")
	}
	if rule.Family != types.FamilyLabor && rule.Family != types.FamilyFinancial {
		return fmt.Errorf("unknown rule family: %s", rule.Family)
	}

	if old, ok := s.rules[rule.Code]; ok {
		s.removeFromFamily(old)
	}
	s.rules[rule.Code] = rule
	s.byFamily[rule.Family] = append(s.byFamily[rule.Family], rule)
	return nil
}

// Remove removes a rule from the store.
func (s *MemoryStore) Remove(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[code]
	if !ok {
		return fmt.Errorf("rule not found: %s", code)
	}

	delete(s.rules, code)
	s.removeFromFamily(rule)
	return nil
}

func (s *MemoryStore) removeFromFamily(rule *types.Rule) {
	family := s.byFamily[rule.Family]
	for i, r := range family {
		if r.Code == rule.Code {
			s.byFamily[rule.Family] = append(family[:i], family[i+1:]...)
			break
		}
	}
}

// Clear removes all rules.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make(map[string]*types.Rule)
	s.byFamily = make(map[types.RuleFamily][]*types.Rule)
}

// Count returns the number of rules.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rules)
}

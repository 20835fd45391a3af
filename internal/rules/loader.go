package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/compliance-engine/go-core/pkg/types"
)

// ruleFile is the on-disk shape of a rule bundle.
type ruleFile struct {
	Rules []*types.Rule `yaml:"rules"`
}

// Loader loads and parses rule files from disk.
type Loader struct {
	logger *zap.Logger
	mu     sync.RWMutex
	// celCache stores compiled CEL programs by condition string
	celCache map[string]cel.Program
}

// NewLoader creates a new rule loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		logger:   logger,
		celCache: make(map[string]cel.Program),
	}
}

// LoadFromDirectory loads all rule files from a directory. Files that fail
// to parse are logged and skipped so one bad bundle does not take down the
// rest of the rule set.
func (l *Loader) LoadFromDirectory(path string) ([]*types.Rule, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var rules []*types.Rule
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		filePath := filepath.Join(path, entry.Name())
		loaded, err := l.LoadFromFile(filePath)
		if err != nil {
			l.logger.Warn("Failed to load rule file",
				zap.String("file", filePath),
				zap.Error(err),
			)
			continue
		}

		rules = append(rules, loaded...)
	}

	return rules, nil
}

// LoadFromFile loads a single rule file. JSON files parse through the YAML
// decoder, which accepts JSON as a subset.
func (l *Loader) LoadFromFile(filePath string) ([]*types.Rule, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}

	for i, rule := range file.Rules {
		if err := l.validateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d in %s: %w", i, filepath.Base(filePath), err)
		}
	}

	return file.Rules, nil
}

// validateRule checks a rule's shape, decodes its parameters against the
// typed schema for its family, and pre-compiles its condition.
func (l *Loader) validateRule(rule *types.Rule) error {
	if rule.Code == "" {
		return fmt.Errorf("rule code is required")
	}
	if rule.Standard == "" {
		return fmt.Errorf("rule %s: standard is required", rule.Code)
	}
	if !rule.Severity.Valid() {
		return fmt.Errorf("rule %s: invalid severity %q", rule.Code, rule.Severity)
	}
	if err := ValidateParameters(rule); err != nil {
		return err
	}
	if rule.Condition != "" {
		if err := l.CompileCondition(rule.Condition); err != nil {
			return fmt.Errorf("rule %s: %w", rule.Code, err)
		}
	}
	return nil
}

// CompileCondition compiles a CEL applicability condition and caches it.
func (l *Loader) CompileCondition(expression string) error {
	l.mu.RLock()
	if _, exists := l.celCache[expression]; exists {
		l.mu.RUnlock()
		return nil
	}
	l.mu.RUnlock()

	env, err := cel.NewEnv(
		cel.Variable("resource", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return fmt.Errorf("failed to create CEL environment: %w", err)
	}

	parsed, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("failed to parse CEL expression: %w", issues.Err())
	}

	checked, issues := env.Check(parsed)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("failed to check CEL expression: %w", issues.Err())
	}

	if checked.OutputType() != cel.BoolType {
		return fmt.Errorf("CEL condition must return boolean, got %v", checked.OutputType())
	}

	program, err := env.Program(checked)
	if err != nil {
		return fmt.Errorf("failed to compile CEL program: %w", err)
	}

	l.mu.Lock()
	l.celCache[expression] = program
	l.mu.Unlock()

	return nil
}

// Applies evaluates a rule's applicability condition against the resource
// attributes and request context. Rules without a condition always apply.
func (l *Loader) Applies(rule *types.Rule, resource, context map[string]interface{}) (bool, error) {
	if rule.Condition == "" {
		return true, nil
	}

	l.mu.RLock()
	program, exists := l.celCache[rule.Condition]
	l.mu.RUnlock()

	if !exists {
		if err := l.CompileCondition(rule.Condition); err != nil {
			return false, err
		}
		l.mu.RLock()
		program = l.celCache[rule.Condition]
		l.mu.RUnlock()
	}

	if resource == nil {
		resource = map[string]interface{}{}
	}
	if context == nil {
		context = map[string]interface{}{}
	}

	result, _, err := program.Eval(map[string]interface{}{
		"resource": resource,
		"context":  context,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rule condition: %w", err)
	}

	applies, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule condition did not return a boolean, got %T", result.Value())
	}

	return applies, nil
}

// ClearCache clears the compiled condition cache.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.celCache = make(map[string]cel.Program)
}

// CacheSize returns the number of cached conditions.
func (l *Loader) CacheSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.celCache)
}

package prefs

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Observer receives every Mutation applied by a Store.
type Observer interface {
	OnMutation(Mutation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Mutation)

// OnMutation implements Observer.
func (f ObserverFunc) OnMutation(m Mutation) {
	if f != nil {
		f(m)
	}
}

type storedRecord struct {
	record SettingRecord
	rule   CompiledRule
}

// Store is the canonical, path-indexed collection of settings. Apply is the
// single serialization point: a mutation is delivered to every observer
// before the next alteration is applied, and alterations requested during a
// delivery are queued in arrival order.
type Store struct {
	mu        sync.RWMutex
	records   map[string]*storedRecord
	observers []Observer

	queueMu    sync.Mutex
	queue      []Alteration
	delivering bool

	logger     *zap.Logger
	ruleEngine string
}

// NewStore builds a Store from the initial settings. Duplicate paths,
// values that violate their schema, and rules that fail to compile are
// configuration errors.
func NewStore(records []SettingRecord, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	return newStore(records, cfg)
}

func newStore(records []SettingRecord, cfg engineConfig) (*Store, error) {
	s := &Store{
		records: make(map[string]*storedRecord, len(records)),
		logger:  cfg.logger,
	}

	evaluator, err := ruleEvaluator(records, cfg)
	if err != nil {
		return nil, err
	}
	s.ruleEngine = evaluatorEngineName(evaluator)

	for _, record := range records {
		if record.Path == "" {
			return nil, fmt.Errorf("%w: setting path is required", ErrInvalidConfig)
		}
		if _, exists := s.records[record.Path]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePath, record.Path)
		}
		stored := &storedRecord{record: record.clone()}
		stored.record.Schema = record.Schema.normalized()
		stored.record.Value = normalizeValue(record.Value)
		if stored.record.Value == nil {
			stored.record.Value = cloneValue(stored.record.Schema.Default)
		}
		if stored.record.Value != nil {
			if err := stored.record.Schema.Check(stored.record.Value); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, record.Path, err)
			}
		}
		if record.Schema.Rule != "" {
			rule, err := evaluator.Compile(record.Schema.Rule)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, record.Path, err)
			}
			stored.rule = rule
		}
		s.records[record.Path] = stored
	}
	return s, nil
}

func ruleEvaluator(records []SettingRecord, cfg engineConfig) (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	needed := false
	for _, record := range records {
		if record.Schema.Rule != "" {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	evaluator, err := NewNamedEvaluator(cfg.evaluatorName, cfg.programCache, cfg.functions)
	if err != nil {
		return nil, fmt.Errorf("%w: evaluator %q: %w", ErrInvalidConfig, cfg.evaluatorName, err)
	}
	return evaluator, nil
}

// Observe registers an observer. Observers are notified in registration
// order.
func (s *Store) Observe(observer Observer) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, observer)
	s.mu.Unlock()
}

// Find returns a copy of the record stored under path.
func (s *Store) Find(path string) (SettingRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.records[path]
	if !ok {
		return SettingRecord{}, false
	}
	return stored.record.clone(), true
}

// Records returns copies of every record sorted by path.
func (s *Store) Records() []SettingRecord {
	s.mu.RLock()
	out := make([]SettingRecord, 0, len(s.records))
	for _, stored := range s.records {
		out = append(out, stored.record.clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) isDelivering() bool {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.delivering
}

// Apply sets path to value on behalf of origin. It reports true when this
// call produced a Mutation, which has then already been delivered to every
// observer. Unknown paths, equal values, and rejected values are no-ops.
//
// A call made while another mutation is being delivered, from an observer or
// from another goroutine, is queued and applied after that delivery
// finishes; such a call returns false.
func (s *Store) Apply(path string, value any, origin Origin) (Mutation, bool) {
	s.queueMu.Lock()
	if s.delivering {
		s.queue = append(s.queue, Alteration{Path: path, Value: value, Origin: origin})
		s.queueMu.Unlock()
		s.logger.Debug("alteration queued behind delivery",
			zap.String("path", path),
			zap.Stringer("origin", origin),
		)
		return Mutation{}, false
	}
	s.delivering = true
	s.queueMu.Unlock()

	mutation, applied := s.applyOne(path, value, origin)
	s.drain()
	return mutation, applied
}

func (s *Store) drain() {
	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.delivering = false
			s.queueMu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = Alteration{}
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		s.applyOne(next.Path, next.Value, next.Origin)
	}
}

func (s *Store) applyOne(path string, value any, origin Origin) (Mutation, bool) {
	if path == "" {
		s.logger.Warn("alteration rejected: missing path", zap.Stringer("origin", origin))
		return Mutation{}, false
	}
	value = normalizeValue(value)

	s.mu.RLock()
	stored, ok := s.records[path]
	var (
		current any
		schema  Schema
		rule    CompiledRule
	)
	if ok {
		current = stored.record.Value
		schema = stored.record.Schema
		rule = stored.rule
	}
	s.mu.RUnlock()

	if !ok {
		s.logger.Debug("alteration ignored: unknown path",
			zap.String("path", path),
			zap.Stringer("origin", origin),
		)
		return Mutation{}, false
	}
	if valuesEqual(current, value) {
		s.logger.Debug("alteration ignored: value unchanged",
			zap.String("path", path),
			zap.Stringer("origin", origin),
		)
		return Mutation{}, false
	}
	if err := s.validate(path, schema, rule, current, value, origin); err != nil {
		s.logger.Warn("alteration rejected",
			zap.String("path", path),
			zap.Stringer("origin", origin),
			zap.Error(err),
		)
		return Mutation{}, false
	}

	s.mu.Lock()
	stored.record.Value = value
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	mutation := Mutation{
		Path:     path,
		OldValue: current,
		NewValue: cloneValue(value),
		Origin:   origin,
	}
	for _, observer := range observers {
		s.notify(observer, mutation)
	}
	return mutation, true
}

func (s *Store) validate(path string, schema Schema, rule CompiledRule, current, value any, origin Origin) error {
	if err := schema.Check(value); err != nil {
		return err
	}
	if rule == nil {
		return nil
	}
	result, err := rule.Evaluate(RuleContext{
		Path:     path,
		Value:    value,
		OldValue: current,
		Origin:   origin,
	})
	if err != nil {
		return wrapRuleError(s.ruleEngine, schema.Rule, path, err)
	}
	allowed, ok := result.(bool)
	if !ok {
		return wrapRuleError(s.ruleEngine, schema.Rule, path, fmt.Errorf("rule returned %T, want bool", result))
	}
	if !allowed {
		return fmt.Errorf("%w: rule %q rejected %v", ErrSchemaViolation, schema.Rule, value)
	}
	return nil
}

// notify recovers observer panics; delivery continues with the next observer.
func (s *Store) notify(observer Observer, mutation Mutation) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("observer panicked",
				zap.String("path", mutation.Path),
				zap.Any("panic", r),
			)
		}
	}()
	observer.OnMutation(mutation)
}

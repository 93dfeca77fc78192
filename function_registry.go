package prefs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper that schema rules reach through call(name, [args]).
type Function func(args ...any) (any, error)

// FunctionRegistry holds the helpers shared by every rule evaluator of an
// engine. Lookups ignore case so "withinStep" and "WithinStep" name the
// same helper.
type FunctionRegistry struct {
	mu    sync.RWMutex
	byKey map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{byKey: map[string]Function{}}
}

func functionKey(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", fmt.Errorf("prefs: rule helper name is required")
	}
	for _, r := range key {
		if r != '_' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("prefs: rule helper %q: only letters, digits and '_' are allowed", name)
		}
	}
	return key, nil
}

// Call runs the helper registered as name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("prefs: rule helper %q: no helpers registered", name)
	}
	r.mu.RLock()
	fn, ok := r.byKey[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("prefs: rule helper %q is not registered", name)
	}
	return fn(args...)
}

// Register adds fn. Registering the same name twice is an error.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key, err := functionKey(name)
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("prefs: rule helper %q has no implementation", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byKey == nil {
		r.byKey = map[string]Function{}
	}
	if _, taken := r.byKey[key]; taken {
		return fmt.Errorf("prefs: rule helper %q registered twice", name)
	}
	r.byKey[key] = fn
	return nil
}

// Names lists the registered keys in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.byKey))
	for key := range r.byKey {
		names = append(names, key)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Clone snapshots the registry so later registrations do not leak into
// evaluators that were already built.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{byKey: make(map[string]Function, len(r.byKey))}
	for key, fn := range r.byKey {
		out.byKey[key] = fn
	}
	return out
}

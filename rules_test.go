package prefs

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry))
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
		},
	},
}

func TestEvaluatorsSeeRuleVariables(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := RuleContext{
		Path:     "volume",
		Value:    7.0,
		OldValue: 5.0,
		Origin:   OriginQuickStrip,
		Now:      &now,
		Args:     map[string]any{"limit": 8.0},
	}
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			for _, expression := range []string{
				"value > old",
				"path == 'volume' && origin == 'qss'",
				"value <= args.limit",
			} {
				result, err := evaluator.Evaluate(ctx, expression)
				if err != nil {
					t.Fatalf("%s: %v", expression, err)
				}
				if result != true {
					t.Fatalf("%s: expected true, got %v", expression, result)
				}
			}
		})
	}
}

func TestEvaluatorsCallRegisteredFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("isEven", func(args ...any) (any, error) {
		n, ok := args[0].(float64)
		if !ok {
			return nil, errors.New("want number")
		}
		return int64(n)%2 == 0, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("ISEVEN", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected case-insensitive duplicate to be rejected")
	}

	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			rule, err := factory.new(nil, registry).Compile("call('isEven', [value])")
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			result, err := rule.Evaluate(RuleContext{Value: 4.0})
			if err != nil || result != true {
				t.Fatalf("expected true, got %v (%v)", result, err)
			}
			result, err = rule.Evaluate(RuleContext{Value: 3.0})
			if err != nil || result != false {
				t.Fatalf("expected false, got %v (%v)", result, err)
			}
		})
	}
}

func TestEvaluatorsShareProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			cache := NewMemoryProgramCache()
			evaluator := factory.new(cache, nil)
			if _, err := evaluator.Compile("value == 1"); err != nil {
				t.Fatalf("compile: %v", err)
			}
			if _, err := evaluator.Evaluate(RuleContext{Value: 1.0}, "value == 1"); err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if cache.Len() != 1 {
				t.Fatalf("expected one cached program, got %d", cache.Len())
			}
		})
	}
}

func TestEvaluatorsReportCompileErrors(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			_, err := evaluator.Compile("value >")
			var ruleErr *RuleError
			if !errors.As(err, &ruleErr) || ruleErr.Engine != factory.name {
				t.Fatalf("expected RuleError from %s, got %v", factory.name, err)
			}
			if _, err := evaluator.Compile(""); err == nil || !strings.HasPrefix(err.Error(), "prefs: "+factory.name) {
				t.Fatalf("expected empty expression error, got %v", err)
			}
		})
	}
}

func TestNewNamedEvaluator(t *testing.T) {
	for name, want := range map[string]string{"": "expr", "expr": "expr", "cel": "cel"} {
		evaluator, err := NewNamedEvaluator(name, nil, nil)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		if got := evaluatorEngineName(evaluator); got != want {
			t.Fatalf("%q: expected %s, got %s", name, want, got)
		}
	}
	if _, err := NewNamedEvaluator("lua", nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestStoreRulesWithCustomFunction(t *testing.T) {
	records := []SettingRecord{{
		Path:   "speech.rate",
		Value:  180,
		Schema: Schema{Type: TypeInteger, Rule: "withinStep(old, value)"},
	}}
	store, err := NewStore(records, WithCustomFunction("withinStep", func(args ...any) (any, error) {
		old, _ := args[0].(float64)
		next, _ := args[1].(float64)
		return next-old <= 50 && old-next <= 50, nil
	}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok := store.Apply("speech.rate", 300, OriginWidget); ok {
		t.Fatalf("expected large jump rejected by rule")
	}
	if _, ok := store.Apply("speech.rate", 200, OriginWidget); !ok {
		t.Fatalf("expected small step applied")
	}
	if _, ok := store.Apply("speech.rate", 210.5, OriginWidget); ok {
		t.Fatalf("expected fractional value rejected by integer schema")
	}
}

func TestStoreRuleMustReturnBool(t *testing.T) {
	store, err := NewStore([]SettingRecord{{Path: "x", Value: 1, Schema: Schema{Rule: "value + 1"}}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok := store.Apply("x", 2, OriginMenu); ok {
		t.Fatalf("expected non-bool rule result to reject the alteration")
	}
}

func TestFunctionRegistryNames(t *testing.T) {
	registry := NewFunctionRegistry()
	noop := func(...any) (any, error) { return true, nil }
	for _, name := range []string{"", "  ", "with space", "dash-ed"} {
		if err := registry.Register(name, noop); err == nil {
			t.Fatalf("expected %q rejected", name)
		}
	}
	if err := registry.Register("within_Step2", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("nilHelper", nil); err == nil {
		t.Fatalf("expected nil helper rejected")
	}
	if got, err := registry.Call("WITHIN_STEP2"); err != nil || got != true {
		t.Fatalf("expected case-insensitive call, got %v (%v)", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unknown helper to fail")
	}
	if diff := cmp.Diff([]string{"within_step2"}, registry.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	var empty *FunctionRegistry
	if _, err := empty.Call("x"); err == nil || empty.Clone() != nil || empty.Names() != nil {
		t.Fatalf("expected nil registry to be inert")
	}
}

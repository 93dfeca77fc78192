package prefs

import "time"

// RuleContext carries the inputs a schema rule is evaluated against.
type RuleContext struct {
	Path     string
	Value    any
	OldValue any
	Origin   Origin
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

// variables is the binding shared by every evaluator engine.
func (ctx RuleContext) variables() map[string]any {
	return map[string]any{
		"value":    ctx.Value,
		"old":      ctx.OldValue,
		"path":     ctx.Path,
		"origin":   ctx.Origin.String(),
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
}

// ruleVariables lists the names bound by RuleContext.variables.
var ruleVariables = []string{"value", "old", "path", "origin", "now", "args", "metadata"}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// NewNamedEvaluator resolves the configured evaluator engine name to an
// Evaluator. An empty name selects expr.
func NewNamedEvaluator(name string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch name {
	case "", "expr":
		opts := []ExprEvaluatorOption{ExprWithProgramCache(cache)}
		if registry != nil {
			opts = append(opts, ExprWithFunctionRegistry(registry))
		}
		return NewExprEvaluator(opts...), nil
	case "cel":
		opts := []CELEvaluatorOption{CELWithProgramCache(cache)}
		if registry != nil {
			opts = append(opts, CELWithFunctionRegistry(registry))
		}
		return NewCELEvaluator(opts...), nil
	case "js":
		evaluator := NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry))
		if evaluator == nil {
			return nil, ErrNoEvaluator
		}
		return evaluator, nil
	default:
		return nil, ErrNoEvaluator
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}

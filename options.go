package prefs

import (
	"time"

	"github.com/goliatone/go-prefs/pkg/activity"
	"go.uber.org/zap"
)

// Option configures a Store or Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger          *zap.Logger
	evaluator       Evaluator
	evaluatorName   string
	programCache    ProgramCache
	functions       *FunctionRegistry
	activityHooks   activity.Hooks
	activityChannel string
	observers       []Observer
	reconcileHooks  []func(ReconcileReport)
	now             func() time.Time
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

// WithLogger sets the structured logger. A nil logger keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithEvaluator configures the evaluator used for schema rules, taking
// precedence over WithEvaluatorName.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.evaluator = e
	}
}

// WithEvaluatorName selects a built-in evaluator: "expr" (default), "cel",
// or "js" (requires the js_eval build tag).
func WithEvaluatorName(name string) Option {
	return func(cfg *engineConfig) {
		cfg.evaluatorName = name
	}
}

// WithProgramCache shares compiled rule programs across evaluators.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *engineConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to schema rules.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for schema rules.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *engineConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithActivityHooks attaches activity hooks notified of every mutation and
// profile delivery. Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *engineConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on activity events.
func WithActivityChannel(channel string) Option {
	return func(cfg *engineConfig) {
		cfg.activityChannel = channel
	}
}

// WithObserver registers an additional store observer. Observers run after
// the undo stack and the surface broadcaster, in the order given.
func WithObserver(observer Observer) Option {
	return func(cfg *engineConfig) {
		if observer != nil {
			cfg.observers = append(cfg.observers, observer)
		}
	}
}

// WithReconcileHook registers fn to receive a report after each profile
// delivery has been applied.
func WithReconcileHook(fn func(ReconcileReport)) Option {
	return func(cfg *engineConfig) {
		if fn != nil {
			cfg.reconcileHooks = append(cfg.reconcileHooks, fn)
		}
	}
}

// WithClock overrides the time source used for activity timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *engineConfig) {
		cfg.now = now
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

package prefs

import (
	"fmt"

	"go.uber.org/zap"
)

// Engine wires the store, undo stack, broadcaster, and reconciler into one
// explicitly constructed instance shared by every surface.
//
// Store observers run in this order for every mutation: the undo stack, the
// surface broadcaster, the activity emitter, then observers added with
// WithObserver.
type Engine struct {
	store       *Store
	undo        *UndoStack
	broadcaster *Broadcaster
	reconciler  *Reconciler
	activity    *activityObserver
	hooks       []func(ReconcileReport)
	logger      *zap.Logger
}

// New validates cfg and builds an Engine. Baseline values are applied once
// with OriginInitialization, after every observer is registered, so they
// never enter undo history.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Evaluator != "" {
		opts = append([]Option{WithEvaluatorName(cfg.Evaluator)}, opts...)
	}
	ecfg := applyOptions(opts)

	store, err := newStore(cfg.Settings, ecfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:       store,
		undo:        NewUndoStack(store, cfg.MaxUndoEntries, cfg.UnwatchedSettings, ecfg.logger),
		broadcaster: NewBroadcaster(ecfg.logger),
		hooks:       ecfg.reconcileHooks,
		logger:      ecfg.logger,
	}
	e.reconciler = NewReconciler(store, e.undo, cfg.Baseline, ecfg.logger)

	store.Observe(e.undo)
	store.Observe(e.broadcaster)
	if observer := newActivityObserver(ecfg, e.reconciler.Identity); observer != nil {
		e.activity = observer
		store.Observe(observer)
	}
	for _, observer := range ecfg.observers {
		store.Observe(observer)
	}

	initialized := 0
	for _, pair := range cfg.Baseline {
		if _, ok := store.Apply(pair.Path, pair.Value, OriginInitialization); ok {
			initialized++
		}
	}
	e.logger.Info("settings engine ready",
		zap.Int("settings", store.Len()),
		zap.Int("baseline", len(cfg.Baseline)),
		zap.Int("initialized", initialized),
		zap.Int("max_undo_entries", e.undo.max),
	)
	return e, nil
}

// MustNew is New for static configuration; it panics on error.
func MustNew(cfg Config, opts ...Option) *Engine {
	e, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("prefs: %v", err))
	}
	return e
}

// Alter requests path be set to value on behalf of origin.
func (e *Engine) Alter(path string, value any, origin Origin) (Mutation, bool) {
	return e.store.Apply(path, value, origin)
}

// Submit applies a decoded surface request. A request without a path is
// logged and dropped.
func (e *Engine) Submit(a Alteration) (Mutation, bool) {
	if a.Path == "" {
		e.logger.Warn("alteration dropped",
			zap.Stringer("origin", a.Origin),
			zap.Error(ErrMissingPath),
		)
		return Mutation{}, false
	}
	return e.store.Apply(a.Path, a.Value, a.Origin)
}

// Undo reverts the most recent undoable mutation.
func (e *Engine) Undo() (UndoEntry, bool) {
	return e.undo.Undo()
}

// Clear drops undo history without touching settings.
func (e *Engine) Clear() {
	e.undo.Clear()
}

// UndoAvailable reports whether Undo would do anything.
func (e *Engine) UndoAvailable() bool {
	return e.undo.HasPendingEntries()
}

// OnUndoAvailability registers fn for undo availability transitions.
func (e *Engine) OnUndoAvailability(fn func(available bool)) *Subscription {
	return e.undo.OnAvailabilityChange(fn)
}

// Find returns a copy of the setting stored under path.
func (e *Engine) Find(path string) (SettingRecord, bool) {
	return e.store.Find(path)
}

// Settings returns copies of all settings sorted by path.
func (e *Engine) Settings() []SettingRecord {
	return e.store.Records()
}

// Identity returns the profile identity recorded by the last delivery.
func (e *Engine) Identity() Identity {
	return e.reconciler.Identity()
}

// Subscribe registers handler for mutations not originated by surface.
func (e *Engine) Subscribe(surface Origin, handler Handler, opts ...SubscribeOption) *Subscription {
	return e.broadcaster.Subscribe(surface, handler, opts...)
}

// DeliverProfile reconciles profile into the store. A nil profile keys the
// current user out.
func (e *Engine) DeliverProfile(profile *Profile) ReconcileReport {
	report := e.reconciler.OnProfileDelivered(profile)
	e.logger.Debug("profile delivered",
		zap.String("user_key", report.Identity.UserKey),
		zap.String("active_set", report.Identity.ActiveSetID),
		zap.Bool("identity_changed", report.IdentityChanged),
		zap.Int("pairs", len(report.Pairs)),
		zap.Int("applied", report.Applied),
	)
	if e.activity != nil {
		e.activity.profileDelivered(report)
	}
	for _, hook := range e.hooks {
		hook(report)
	}
	return report
}

// Store exposes the underlying store.
func (e *Engine) Store() *Store {
	return e.store
}

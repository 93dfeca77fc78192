package prefs

import (
	"sync"

	"go.uber.org/zap"
)

// Flatten walks groups depth-first and returns their (path, value) pairs. An
// entry precedes its nested settings and siblings keep their given order.
// Entries without a path contribute nothing themselves but their children are
// still visited.
func Flatten(groups []SettingGroup) []Pair {
	var pairs []Pair
	for _, group := range groups {
		pairs = flattenEntries(pairs, group.Settings)
	}
	return pairs
}

func flattenEntries(pairs []Pair, entries []SettingEntry) []Pair {
	for _, entry := range entries {
		if entry.Path != "" {
			pairs = append(pairs, Pair{Path: entry.Path, Value: cloneValue(entry.Value)})
		}
		if len(entry.Settings) > 0 {
			pairs = flattenEntries(pairs, entry.Settings)
		}
	}
	return pairs
}

// ReconcileReport summarizes one profile delivery.
type ReconcileReport struct {
	Identity        Identity
	IdentityChanged bool
	// Pairs is the batch handed to the store, baseline merge included.
	Pairs []Pair
	// Applied counts pairs that produced a mutation before OnProfileDelivered
	// returned.
	Applied int
	// Deferred counts pairs queued behind a mutation delivery that was in
	// flight, as when a profile is delivered from a mutation handler. They
	// are applied once that delivery finishes.
	Deferred int
}

// Clearer drops undo history.
type Clearer interface {
	Clear()
}

// Reconciler merges delivered profiles into the store. A change of identity
// fills in every baseline path the profile leaves out and resets undo
// history; a delivery for the current identity only applies the profile.
type Reconciler struct {
	mu       sync.Mutex
	previous Identity
	baseline []Pair
	applier  Applier
	history  Clearer
	logger   *zap.Logger
}

// NewReconciler constructs a reconciler. history may be nil.
func NewReconciler(applier Applier, history Clearer, baseline []Pair, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	copied := make([]Pair, len(baseline))
	for i, pair := range baseline {
		copied[i] = Pair{Path: pair.Path, Value: normalizeValue(pair.Value)}
	}
	return &Reconciler{
		baseline: copied,
		applier:  applier,
		history:  history,
		logger:   logger,
	}
}

// Identity returns the identity recorded by the last delivery.
func (r *Reconciler) Identity() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previous
}

// OnProfileDelivered applies profile. A nil profile is a key-out: the zero
// identity with no settings, which still restores the baseline when someone
// was keyed in before.
func (r *Reconciler) OnProfileDelivered(profile *Profile) ReconcileReport {
	var (
		identity Identity
		pairs    []Pair
	)
	if profile != nil {
		identity = profile.Identity
		pairs = Flatten(profile.Groups)
	}

	r.mu.Lock()
	changed := identity != r.previous
	if changed {
		r.previous = identity
	}
	r.mu.Unlock()

	if changed {
		pairs = r.mergeBaseline(pairs)
		if r.history != nil {
			r.history.Clear()
		}
		r.logger.Info("profile identity changed",
			zap.String("user_key", identity.UserKey),
			zap.String("active_set", identity.ActiveSetID),
			zap.Int("pairs", len(pairs)),
		)
	}

	report := ReconcileReport{
		Identity:        identity,
		IdentityChanged: changed,
		Pairs:           pairs,
	}
	if r.applier == nil {
		return report
	}
	for _, pair := range pairs {
		busy := applierBusy(r.applier)
		if _, ok := r.applier.Apply(pair.Path, pair.Value, OriginNotUndoable); ok {
			report.Applied++
		} else if busy {
			report.Deferred++
		}
	}
	return report
}

func (r *Reconciler) mergeBaseline(pairs []Pair) []Pair {
	present := make(map[string]struct{}, len(pairs))
	for _, pair := range pairs {
		present[pair.Path] = struct{}{}
	}
	for _, pair := range r.baseline {
		if _, ok := present[pair.Path]; ok {
			continue
		}
		pairs = append(pairs, Pair{Path: pair.Path, Value: cloneValue(pair.Value)})
	}
	return pairs
}

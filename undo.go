package prefs

import (
	"sync"

	"go.uber.org/zap"
)

// DefaultMaxUndoEntries bounds the undo history when no limit is configured.
const DefaultMaxUndoEntries = 100

// Applier is the subset of Store the undo stack replays entries through.
type Applier interface {
	Apply(path string, value any, origin Origin) (Mutation, bool)
}

// deliveryTracker is implemented by *Store. An Apply that returns false
// while a delivery is in flight was queued, not dropped.
type deliveryTracker interface {
	isDelivering() bool
}

func applierBusy(applier Applier) bool {
	tracker, ok := applier.(deliveryTracker)
	return ok && tracker.isDelivering()
}

// finder is implemented by *Store.
type finder interface {
	Find(path string) (SettingRecord, bool)
}

// UndoStack keeps a bounded LIFO history of reversible mutations. When the
// bound is exceeded the oldest entry is dropped. Popped entries are never
// pushed back: there is no redo.
type UndoStack struct {
	mu        sync.Mutex
	entries   []UndoEntry
	max       int
	unwatched map[string]struct{}
	applier   Applier
	logger    *zap.Logger

	available bool
	listeners *listenerSet[bool]
}

// NewUndoStack constructs a stack that replays entries through applier.
// A non-positive max selects DefaultMaxUndoEntries. Mutations of paths in
// unwatched are never recorded.
func NewUndoStack(applier Applier, max int, unwatched []string, logger *zap.Logger) *UndoStack {
	if max <= 0 {
		max = DefaultMaxUndoEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(unwatched))
	for _, path := range unwatched {
		set[path] = struct{}{}
	}
	return &UndoStack{
		max:       max,
		unwatched: set,
		applier:   applier,
		logger:    logger,
		listeners: newListenerSet[bool](),
	}
}

// OnMutation implements Observer.
func (s *UndoStack) OnMutation(m Mutation) {
	s.RegisterIfUndoable(m)
}

// Undoable reports whether m would be recorded.
func (s *UndoStack) Undoable(m Mutation) bool {
	if _, excluded := s.unwatched[m.Path]; excluded {
		return false
	}
	return !m.Origin.reserved()
}

// RegisterIfUndoable pushes an entry for m unless its path is unwatched or
// its origin is one of the reserved non-undoable tags. It reports whether an
// entry was pushed.
func (s *UndoStack) RegisterIfUndoable(m Mutation) bool {
	if !s.Undoable(m) {
		return false
	}
	s.mu.Lock()
	s.entries = append(s.entries, UndoEntry{Path: m.Path, OldValue: cloneValue(m.OldValue)})
	if len(s.entries) > s.max {
		evicted := s.entries[0]
		copy(s.entries, s.entries[1:])
		s.entries[len(s.entries)-1] = UndoEntry{}
		s.entries = s.entries[:len(s.entries)-1]
		s.logger.Debug("undo entry evicted", zap.String("path", evicted.Path), zap.Int("max", s.max))
	}
	changed, available := s.updateAvailabilityLocked()
	s.mu.Unlock()

	s.signal(changed, available)
	return true
}

// Undo pops the newest entry and re-applies its old value tagged
// OriginFromUndo. An empty stack is a no-op.
func (s *UndoStack) Undo() (UndoEntry, bool) {
	s.mu.Lock()
	if len(s.entries) == 0 {
		s.mu.Unlock()
		s.logger.Info("undo requested with empty history")
		return UndoEntry{}, false
	}
	last := len(s.entries) - 1
	entry := s.entries[last]
	s.entries[last] = UndoEntry{}
	s.entries = s.entries[:last]
	changed, available := s.updateAvailabilityLocked()
	s.mu.Unlock()

	s.signal(changed, available)
	if s.applier != nil {
		busy := applierBusy(s.applier)
		if _, ok := s.applier.Apply(entry.Path, cloneValue(entry.OldValue), OriginFromUndo); !ok && !busy {
			s.warnIfNotRestored(entry)
		}
	}
	return entry, true
}

// warnIfNotRestored logs an entry whose value the applier refused. An entry
// whose value is already current is silent.
func (s *UndoStack) warnIfNotRestored(entry UndoEntry) {
	if f, ok := s.applier.(finder); ok {
		if record, found := f.Find(entry.Path); found && valuesEqual(record.Value, normalizeValue(entry.OldValue)) {
			return
		}
	}
	s.logger.Warn("undo entry discarded: value not restored",
		zap.String("path", entry.Path),
		zap.Any("value", entry.OldValue),
	)
}

// Clear drops all history without applying anything.
func (s *UndoStack) Clear() {
	s.mu.Lock()
	s.entries = nil
	changed, available := s.updateAvailabilityLocked()
	s.mu.Unlock()

	s.signal(changed, available)
}

// HasPendingEntries reports whether Undo would do anything.
func (s *UndoStack) HasPendingEntries() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) > 0
}

// Len returns the number of retained entries.
func (s *UndoStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// OnAvailabilityChange registers fn to be called whenever the stack goes
// from empty to non-empty or back.
func (s *UndoStack) OnAvailabilityChange(fn func(available bool)) *Subscription {
	return s.listeners.add(fn)
}

func (s *UndoStack) updateAvailabilityLocked() (changed, available bool) {
	available = len(s.entries) > 0
	if available == s.available {
		return false, available
	}
	s.available = available
	return true, available
}

func (s *UndoStack) signal(changed, available bool) {
	if changed {
		s.listeners.emit(available)
	}
}

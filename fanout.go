package prefs

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subscription is a handle to a registered callback. Close is idempotent and
// safe to call from inside the callback itself.
type Subscription struct {
	ID     uuid.UUID
	once   sync.Once
	cancel func()
}

// Close stops further deliveries to the subscription.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

type listener[T any] struct {
	id     uuid.UUID
	fn     func(T)
	closed atomic.Bool
}

// listenerSet is an ordered set of callbacks. Emission iterates a snapshot,
// so callbacks may subscribe or unsubscribe while being notified.
type listenerSet[T any] struct {
	mu      sync.RWMutex
	entries []*listener[T]
	onPanic func(any)
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{}
}

func (l *listenerSet[T]) add(fn func(T)) *Subscription {
	entry := &listener[T]{id: uuid.New(), fn: fn}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return &Subscription{
		ID: entry.id,
		cancel: func() {
			entry.closed.Store(true)
			l.remove(entry.id)
		},
	}
}

func (l *listenerSet[T]) remove(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if entry.id == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

func (l *listenerSet[T]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *listenerSet[T]) emit(value T) {
	l.mu.RLock()
	snapshot := append([]*listener[T](nil), l.entries...)
	l.mu.RUnlock()
	for _, entry := range snapshot {
		if entry.closed.Load() || entry.fn == nil {
			continue
		}
		l.call(entry, value)
	}
}

func (l *listenerSet[T]) call(entry *listener[T], value T) {
	defer func() {
		if r := recover(); r != nil && l.onPanic != nil {
			l.onPanic(r)
		}
	}()
	entry.fn(value)
}

// Handler receives mutations delivered to a surface subscription.
type Handler func(Mutation)

// SubscribeOption narrows what a subscription receives.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	path string
}

// ForPath restricts a subscription to mutations of a single setting, as used
// by tooltips and value-editing popups bound to one path.
func ForPath(path string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.path = path
	}
}

// Unconditional clears any path binding so every mutation not originated by
// the subscribing surface is delivered.
func Unconditional() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.path = ""
	}
}

// Broadcaster fans mutations out to subscribed surfaces. A surface never
// receives a mutation it originated itself; subscribers registered with a
// non-surface origin (e.g. OriginUnspecified) receive everything.
type Broadcaster struct {
	listeners *listenerSet[Mutation]
	logger    *zap.Logger
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	listeners := newListenerSet[Mutation]()
	listeners.onPanic = func(r any) {
		logger.Error("surface handler panicked", zap.Any("panic", r))
	}
	return &Broadcaster{listeners: listeners, logger: logger}
}

// Subscribe registers handler on behalf of surface.
func (b *Broadcaster) Subscribe(surface Origin, handler Handler, opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return b.listeners.add(func(m Mutation) {
		if handler == nil {
			return
		}
		if surface.IsSurface() && m.Origin == surface {
			return
		}
		if cfg.path != "" && m.Path != cfg.path {
			return
		}
		handler(m)
	})
}

// OnMutation implements Observer.
func (b *Broadcaster) OnMutation(m Mutation) {
	b.listeners.emit(m)
}

// Len returns the number of live subscriptions.
func (b *Broadcaster) Len() int {
	return b.listeners.len()
}

package profile

import (
	"context"
	"fmt"
	"sync"

	prefs "github.com/goliatone/go-prefs"
	"go.uber.org/zap"
)

// Session tracks the keyed-in user and pushes their profile to a Deliverer.
type Session struct {
	store  Store
	target Deliverer
	logger *zap.Logger

	mu      sync.Mutex
	current *Ref
}

// NewSession constructs a session. A nil logger is replaced by a no-op one.
func NewSession(store Store, target Deliverer, logger *zap.Logger) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("profile: store is required")
	}
	if target == nil {
		return nil, fmt.Errorf("profile: deliverer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{store: store, target: target, logger: logger}, nil
}

// Current returns the keyed-in ref.
func (s *Session) Current() (Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Ref{}, false
	}
	return *s.current, true
}

// KeyIn loads the profile for (userKey, setID) and delivers it. A user with
// no stored profile is delivered an empty one so the baseline still applies.
func (s *Session) KeyIn(ctx context.Context, userKey, setID string) (prefs.ReconcileReport, error) {
	ref := Ref{UserKey: userKey, SetID: setID}
	report, err := s.deliver(ctx, ref)
	if err != nil {
		return report, err
	}
	s.logger.Info("user keyed in", zap.String("user_key", userKey), zap.String("active_set", setID))
	return report, nil
}

// KeyOut delivers a nil profile and forgets the current user.
func (s *Session) KeyOut() prefs.ReconcileReport {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.logger.Info("user keyed out")
	return s.target.DeliverProfile(nil)
}

// SwitchSet changes the active set of the keyed-in user.
func (s *Session) SwitchSet(ctx context.Context, setID string) (prefs.ReconcileReport, error) {
	ref, ok := s.Current()
	if !ok {
		return prefs.ReconcileReport{}, ErrNotKeyedIn
	}
	ref.SetID = setID
	return s.deliver(ctx, ref)
}

// Refresh re-delivers the current profile, e.g. after it was edited
// remotely. The identity is unchanged so in-session edits survive.
func (s *Session) Refresh(ctx context.Context) (prefs.ReconcileReport, error) {
	ref, ok := s.Current()
	if !ok {
		return prefs.ReconcileReport{}, ErrNotKeyedIn
	}
	return s.deliver(ctx, ref)
}

// Update loads the current profile, applies fn, saves it, and re-delivers
// the result.
func (s *Session) Update(ctx context.Context, meta Meta, fn Mutator) (prefs.ReconcileReport, Meta, error) {
	if fn == nil {
		return prefs.ReconcileReport{}, Meta{}, fmt.Errorf("profile: mutator is required")
	}
	ref, ok := s.Current()
	if !ok {
		return prefs.ReconcileReport{}, Meta{}, ErrNotKeyedIn
	}
	profile, loaded, _, err := s.store.Load(ctx, ref)
	if err != nil {
		return prefs.ReconcileReport{}, Meta{}, fmt.Errorf("profile: load %s: %w", ref.UserKey, err)
	}
	if err := fn(&profile); err != nil {
		return prefs.ReconcileReport{}, loaded, err
	}
	if meta.ETag == "" {
		meta.ETag = loaded.ETag
	}
	saved, err := s.store.Save(ctx, ref, profile, meta)
	if err != nil {
		return prefs.ReconcileReport{}, loaded, fmt.Errorf("profile: save %s: %w", ref.UserKey, err)
	}
	profile.Identity = ref.Identity()
	return s.target.DeliverProfile(&profile), saved, nil
}

func (s *Session) deliver(ctx context.Context, ref Ref) (prefs.ReconcileReport, error) {
	if _, err := ref.Identifier(); err != nil {
		return prefs.ReconcileReport{}, err
	}
	profile, _, ok, err := s.store.Load(ctx, ref)
	if err != nil {
		return prefs.ReconcileReport{}, fmt.Errorf("profile: load %s: %w", ref.UserKey, err)
	}
	if !ok {
		s.logger.Debug("no stored profile", zap.String("user_key", ref.UserKey), zap.String("active_set", ref.SetID))
	}
	profile.Identity = ref.Identity()

	s.mu.Lock()
	s.current = &ref
	s.mu.Unlock()
	return s.target.DeliverProfile(&profile), nil
}

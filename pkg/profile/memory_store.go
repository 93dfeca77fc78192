package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	prefs "github.com/goliatone/go-prefs"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store keyed by Ref.Identifier(). Saves assign
// a fresh ETag; a save carrying a stale ETag fails with ErrETagMismatch.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	profile prefs.Profile
	meta    Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (prefs.Profile, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return prefs.Profile{}, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return prefs.Profile{}, Meta{}, false, nil
	}
	return copyProfile(record.profile), record.meta, true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, profile prefs.Profile, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok && meta.ETag != "" && existing.meta.ETag != meta.ETag {
		return existing.meta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, existing.meta.ETag)
	}
	profile.Identity = ref.Identity()
	saved := Meta{ETag: uuid.NewString(), UpdatedAt: s.now()}
	s.records[key] = memoryRecord{profile: copyProfile(profile), meta: saved}
	return saved, nil
}

// Len reports how many profiles are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func copyProfile(p prefs.Profile) prefs.Profile {
	out := p
	if p.Groups == nil {
		return out
	}
	out.Groups = make([]prefs.SettingGroup, len(p.Groups))
	for i, group := range p.Groups {
		out.Groups[i] = prefs.SettingGroup{Name: group.Name, Settings: copyEntries(group.Settings)}
	}
	return out
}

func copyEntries(entries []prefs.SettingEntry) []prefs.SettingEntry {
	if entries == nil {
		return nil
	}
	out := make([]prefs.SettingEntry, len(entries))
	for i, entry := range entries {
		out[i] = prefs.SettingEntry{Path: entry.Path, Value: entry.Value, Settings: copyEntries(entry.Settings)}
	}
	return out
}

package prefs

// Liveness classifies how disruptive applying a setting value is. The engine
// carries it on records but never acts on it.
type Liveness string

const (
	LivenessLive          Liveness = "live"
	LivenessLiveRestart   Liveness = "liveRestart"
	LivenessManualRestart Liveness = "manualRestart"
	LivenessOSRestart     Liveness = "OSRestart"
)

// RequiresRestart reports whether the new value only takes effect after an
// application or system restart. An empty liveness means live.
func (l Liveness) RequiresRestart() bool {
	switch l {
	case LivenessManualRestart, LivenessOSRestart:
		return true
	default:
		return false
	}
}

// SettingRecord is one entry of the store, keyed by Path.
type SettingRecord struct {
	Path     string   `json:"path" yaml:"path" validate:"required"`
	Value    any      `json:"value" yaml:"value"`
	Schema   Schema   `json:"schema,omitempty" yaml:"schema"`
	Liveness Liveness `json:"liveness,omitempty" yaml:"liveness" validate:"omitempty,oneof=live liveRestart manualRestart OSRestart"`
}

func (r SettingRecord) clone() SettingRecord {
	out := r
	out.Value = cloneValue(r.Value)
	out.Schema = r.Schema.clone()
	return out
}

// Mutation describes one applied change. It is handed to every observer and
// then discarded.
type Mutation struct {
	Path     string `json:"path"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
	Origin   Origin `json:"origin"`
}

// UndoEntry is the reversible half of a Mutation retained by the UndoStack.
type UndoEntry struct {
	Path     string
	OldValue any
}

// Pair is a flattened (path, value) tuple.
type Pair struct {
	Path  string `json:"path" yaml:"path" validate:"required"`
	Value any    `json:"value" yaml:"value"`
}

// Identity distinguishes one reconciliation target from another. The zero
// Identity means no user is keyed in.
type Identity struct {
	UserKey     string `json:"userKey" yaml:"userKey"`
	ActiveSetID string `json:"activeSetId" yaml:"activeSetId"`
}

// IsZero reports whether no user is keyed in.
func (i Identity) IsZero() bool {
	return i.UserKey == "" && i.ActiveSetID == ""
}

// Profile is an externally delivered preference profile.
type Profile struct {
	Identity `yaml:",inline"`
	Groups   []SettingGroup `json:"settingGroups" yaml:"settingGroups"`
}

// SettingGroup is a named collection of entries inside a Profile.
type SettingGroup struct {
	Name     string         `json:"name,omitempty" yaml:"name"`
	Settings []SettingEntry `json:"settings" yaml:"settings"`
}

// SettingEntry is a profile value with optional nested sub-settings. Entries
// without a Path act as headings: they contribute no pair of their own.
type SettingEntry struct {
	Path     string         `json:"path,omitempty" yaml:"path"`
	Value    any            `json:"value,omitempty" yaml:"value"`
	Settings []SettingEntry `json:"settings,omitempty" yaml:"settings"`
}

// Alteration is a surface request to change one setting.
type Alteration struct {
	Path   string `json:"path"`
	Value  any    `json:"value"`
	Origin Origin `json:"origin"`
}

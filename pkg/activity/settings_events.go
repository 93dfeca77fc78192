package activity

import (
	"strings"
	"time"
)

// Verbs emitted for settings activity.
const (
	VerbSettingChanged     = "settings.changed"
	VerbSettingUndone      = "settings.undone"
	VerbSettingReconciled  = "settings.reconciled"
	VerbSettingInitialized = "settings.initialized"
	VerbProfileDelivered   = "settings.profile.delivered"
)

// Object types attached to settings events.
const (
	ObjectSetting = "setting"
	ObjectProfile = "profile"
)

// SettingEventInput describes one applied setting mutation.
type SettingEventInput struct {
	UserKey     string
	ActiveSetID string
	Path        string
	OldValue    any
	NewValue    any
	Origin      string
	Channel     string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ProfileEventInput describes one profile delivery.
type ProfileEventInput struct {
	UserKey         string
	ActiveSetID     string
	IdentityChanged bool
	Pairs           int
	Applied         int
	Channel         string
	OccurredAt      time.Time
}

// BuildSettingChangedEvent records a surface edit.
func BuildSettingChangedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingChanged, input)
}

// BuildSettingUndoneEvent records a value restored by undo.
func BuildSettingUndoneEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingUndone, input)
}

// BuildSettingReconciledEvent records a value applied from a profile.
func BuildSettingReconciledEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingReconciled, input)
}

// BuildSettingInitializedEvent records a value applied at startup.
func BuildSettingInitializedEvent(input SettingEventInput) Event {
	return buildSettingEvent(VerbSettingInitialized, input)
}

// BuildProfileDeliveredEvent summarizes a reconciliation. The object id is
// the identity, or "anonymous" after a key-out.
func BuildProfileDeliveredEvent(input ProfileEventInput) Event {
	metadata := map[string]any{
		"identity_changed": input.IdentityChanged,
		"pairs":            input.Pairs,
		"applied":          input.Applied,
	}
	if input.ActiveSetID != "" {
		metadata["active_set"] = input.ActiveSetID
	}
	return Event{
		Verb:       VerbProfileDelivered,
		UserID:     strings.TrimSpace(input.UserKey),
		ObjectType: ObjectProfile,
		ObjectID:   profileObjectID(input.UserKey, input.ActiveSetID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func buildSettingEvent(verb string, input SettingEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["path"] = input.Path
	if input.Origin != "" {
		metadata["origin"] = input.Origin
	}
	if input.OldValue != nil {
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata["new_value"] = input.NewValue
	}
	if input.ActiveSetID != "" {
		metadata["active_set"] = input.ActiveSetID
	}

	objectID := strings.TrimSpace(input.Path)
	if objectID == "" {
		objectID = ObjectSetting
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.Origin),
		UserID:     strings.TrimSpace(input.UserKey),
		ObjectType: ObjectSetting,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func profileObjectID(userKey, setID string) string {
	userKey = strings.TrimSpace(userKey)
	setID = strings.TrimSpace(setID)
	switch {
	case userKey == "" && setID == "":
		return "anonymous"
	case setID == "":
		return userKey
	default:
		return userKey + "/" + setID
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

package prefs

import "fmt"

// Origin identifies which surface or internal process caused a mutation. The
// set is closed; surfaces must pick one of the declared constants.
type Origin int

const (
	// OriginUnspecified is the zero value. It is treated as undoable and is
	// broadcast to every surface, the sender included.
	OriginUnspecified Origin = iota
	// OriginQuickStrip is the persistent quick-access strip.
	OriginQuickStrip
	// OriginWidget is a transient value-editing popup.
	OriginWidget
	// OriginTooltip is a tooltip bound to a single setting.
	OriginTooltip
	// OriginSettingsPanel is the full settings panel.
	OriginSettingsPanel
	// OriginMenu is the tray menu.
	OriginMenu
	// OriginFromUndo tags mutations replayed by the undo stack.
	OriginFromUndo
	// OriginNotUndoable tags mutations that must never enter undo history,
	// e.g. profile reconciliation.
	OriginNotUndoable
	// OriginInitialization tags mutations issued while a session starts up.
	OriginInitialization
)

var originNames = [...]string{
	OriginUnspecified:    "",
	OriginQuickStrip:     "qss",
	OriginWidget:         "qssWidget",
	OriginTooltip:        "qssTooltip",
	OriginSettingsPanel:  "psp",
	OriginMenu:           "menu",
	OriginFromUndo:       "fromUndo",
	OriginNotUndoable:    "notUndoable",
	OriginInitialization: "initialization",
}

func (o Origin) String() string {
	if o < 0 || int(o) >= len(originNames) {
		return fmt.Sprintf("origin(%d)", int(o))
	}
	if o == OriginUnspecified {
		return "unspecified"
	}
	return originNames[o]
}

// IsSurface reports whether the origin names a presentation surface, as
// opposed to the unspecified tag or an internal process.
func (o Origin) IsSurface() bool {
	switch o {
	case OriginQuickStrip, OriginWidget, OriginTooltip, OriginSettingsPanel, OriginMenu:
		return true
	default:
		return false
	}
}

// reserved reports whether mutations carrying o are excluded from undo.
func (o Origin) reserved() bool {
	switch o {
	case OriginFromUndo, OriginNotUndoable, OriginInitialization:
		return true
	default:
		return false
	}
}

// ParseOrigin converts the wire name of an origin back into an Origin. The
// empty string and "unspecified" both map to OriginUnspecified.
func ParseOrigin(value string) (Origin, error) {
	if value == "unspecified" {
		return OriginUnspecified, nil
	}
	for i, name := range originNames {
		if name == value {
			return Origin(i), nil
		}
	}
	return OriginUnspecified, fmt.Errorf("%w: %q", ErrUnknownOrigin, value)
}

// MarshalText implements encoding.TextMarshaler using the wire name.
func (o Origin) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(originNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrigin, int(o))
	}
	return []byte(originNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(text []byte) error {
	parsed, err := ParseOrigin(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

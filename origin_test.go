package prefs

import (
	"errors"
	"testing"
)

func TestOriginRoundTripsThroughWireNames(t *testing.T) {
	for o := OriginUnspecified; o <= OriginInitialization; o++ {
		text, err := o.MarshalText()
		if err != nil {
			t.Fatalf("%d: marshal: %v", o, err)
		}
		var parsed Origin
		if err := parsed.UnmarshalText(text); err != nil {
			t.Fatalf("%s: unmarshal: %v", o, err)
		}
		if parsed != o {
			t.Fatalf("expected %s, got %s", o, parsed)
		}
	}
}

func TestParseOrigin(t *testing.T) {
	cases := map[string]Origin{
		"":            OriginUnspecified,
		"unspecified": OriginUnspecified,
		"qss":         OriginQuickStrip,
		"qssWidget":   OriginWidget,
		"psp":         OriginSettingsPanel,
		"fromUndo":    OriginFromUndo,
	}
	for name, want := range cases {
		got, err := ParseOrigin(name)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", name, want, got, err)
		}
	}
	if _, err := ParseOrigin("QSS"); !errors.Is(err, ErrUnknownOrigin) {
		t.Fatalf("expected ErrUnknownOrigin, got %v", err)
	}
	if _, err := Origin(42).MarshalText(); !errors.Is(err, ErrUnknownOrigin) {
		t.Fatalf("expected out of range origin to fail, got %v", err)
	}
	if Origin(42).String() != "origin(42)" {
		t.Fatalf("unexpected string %q", Origin(42).String())
	}
}

func TestOriginClassification(t *testing.T) {
	surfaces := []Origin{OriginQuickStrip, OriginWidget, OriginTooltip, OriginSettingsPanel, OriginMenu}
	for _, o := range surfaces {
		if !o.IsSurface() || o.reserved() {
			t.Fatalf("expected %s to be an undoable surface", o)
		}
	}
	for _, o := range []Origin{OriginFromUndo, OriginNotUndoable, OriginInitialization} {
		if o.IsSurface() || !o.reserved() {
			t.Fatalf("expected %s to be a reserved internal origin", o)
		}
	}
	if OriginUnspecified.IsSurface() || OriginUnspecified.reserved() {
		t.Fatalf("expected unspecified to be neither surface nor reserved")
	}
}

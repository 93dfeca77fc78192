package prefs

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeMutation(t *testing.T) {
	raw, err := EncodeMutation(Mutation{Path: "volume", OldValue: 5.0, NewValue: 6.0, Origin: OriginQuickStrip})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"kind": MessageSettingChanged,
		"mutation": map[string]any{
			"path":     "volume",
			"oldValue": 5.0,
			"newValue": 6.0,
			"origin":   "qss",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeUndoAvailability(t *testing.T) {
	raw, err := EncodeUndoAvailability(false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != `{"kind":"undoAvailable","undoAvailable":false}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestDecodeAlteration(t *testing.T) {
	got, err := DecodeAlteration([]byte(`{"path":"contrast","value":"high","origin":"psp"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(Alteration{Path: "contrast", Value: "high", Origin: OriginSettingsPanel}, got); diff != "" {
		t.Fatalf("alteration mismatch (-want +got):\n%s", diff)
	}

	got, err = DecodeAlteration([]byte(`{"path":"volume","value":3}`))
	if err != nil || got.Origin != OriginUnspecified || got.Value != 3.0 {
		t.Fatalf("expected unspecified origin and float value, got %+v (%v)", got, err)
	}
}

func TestDecodeAlterationErrors(t *testing.T) {
	if _, err := DecodeAlteration([]byte(`{"path":"volume","origin":"toaster"}`)); !errors.Is(err, ErrUnknownOrigin) {
		t.Fatalf("expected ErrUnknownOrigin, got %v", err)
	}
	if _, err := DecodeAlteration([]byte(`{"value":1,"origin":"qss"}`)); !errors.Is(err, ErrMissingPath) {
		t.Fatalf("expected ErrMissingPath, got %v", err)
	}
	if _, err := DecodeAlteration([]byte(`{"path":"volume","extra":1}`)); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := DecodeAlteration([]byte(`not json`)); err == nil {
		t.Fatalf("expected syntax error")
	}
}

package jsonschema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	prefs "github.com/goliatone/go-prefs"
)

func floatPtr(v float64) *float64 { return &v }

func TestGenerateDeclaredAndInferredProperties(t *testing.T) {
	records := []prefs.SettingRecord{
		{
			Path:     "volume",
			Value:    5,
			Liveness: prefs.LivenessLive,
			Schema: prefs.Schema{
				Type:    prefs.TypeInteger,
				Minimum: floatPtr(0),
				Maximum: floatPtr(10),
				Rule:    "value % 1 == 0",
			},
		},
		{
			Path:     "contrast",
			Value:    "default",
			Liveness: prefs.LivenessLiveRestart,
			Schema:   prefs.Schema{Type: prefs.TypeString, Enum: []any{"default", "high"}},
		},
		{Path: "speechRate", Value: 1.5},
		{Path: "highlight", Value: []any{"word"}},
		{Path: "", Value: true},
	}

	doc := Generate(records)
	properties, ok := doc["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", doc["properties"])
	}
	if len(properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(properties))
	}

	want := map[string]any{
		"type":          "integer",
		"default":       5,
		"minimum":       float64(0),
		"maximum":       float64(10),
		RuleKeyword:     "value % 1 == 0",
		LivenessKeyword: "live",
	}
	if diff := cmp.Diff(want, properties["volume"]); diff != "" {
		t.Fatalf("volume property mismatch (-want +got):\n%s", diff)
	}

	contrast := properties["contrast"].(map[string]any)
	if diff := cmp.Diff([]any{"default", "high"}, contrast["enum"]); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
	if contrast[LivenessKeyword] != "liveRestart" {
		t.Fatalf("expected liveness keyword, got %v", contrast[LivenessKeyword])
	}

	if got := properties["speechRate"].(map[string]any)["type"]; got != "number" {
		t.Fatalf("expected inferred number, got %v", got)
	}
	highlight := properties["highlight"].(map[string]any)
	if highlight["type"] != "array" {
		t.Fatalf("expected inferred array, got %v", highlight["type"])
	}
	if diff := cmp.Diff(map[string]any{"type": "string"}, highlight["items"]); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if _, ok := properties["highlight"].(map[string]any)[LivenessKeyword]; ok {
		t.Fatalf("expected no liveness keyword when unset")
	}
}

func TestGenerateProducesJSON(t *testing.T) {
	doc := Generate([]prefs.SettingRecord{{Path: "b", Value: true}, {Path: "a", Value: 1}})
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	names := decoded["propertyNames"].(map[string]any)["enum"]
	if diff := cmp.Diff([]any{"a", "b"}, names); diff != "" {
		t.Fatalf("property names mismatch (-want +got):\n%s", diff)
	}
	if decoded["additionalProperties"] != false || decoded["$schema"] != Draft {
		t.Fatalf("unexpected document header %v", decoded)
	}
}

// Package jsonschema renders setting records as a JSON Schema document so
// surfaces and editors can validate profiles offline.
package jsonschema

import (
	"math"
	"reflect"
	"sort"

	prefs "github.com/goliatone/go-prefs"
)

// Draft is the meta-schema the generated documents declare.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// LivenessKeyword carries a setting's liveness on its property.
const LivenessKeyword = "x-liveness"

// RuleKeyword carries the setting's rule expression when one is declared.
const RuleKeyword = "x-rule"

// Generate produces an object schema with one property per setting path.
// Declared schema constraints are copied as is; settings without a declared
// type get one inferred from their current value.
func Generate(records []prefs.SettingRecord) map[string]any {
	properties := make(map[string]any, len(records))
	paths := make([]string, 0, len(records))
	for _, record := range records {
		if record.Path == "" {
			continue
		}
		properties[record.Path] = property(record)
		paths = append(paths, record.Path)
	}
	sort.Strings(paths)

	return map[string]any{
		"$schema":              Draft,
		"type":                 "object",
		"properties":           properties,
		"propertyNames":        map[string]any{"enum": stringsToAny(paths)},
		"additionalProperties": false,
	}
}

func property(record prefs.SettingRecord) map[string]any {
	declared := record.Schema
	out := map[string]any{}
	if declared.Type != "" {
		out["type"] = string(declared.Type)
	} else {
		for key, value := range infer(record.Value) {
			out[key] = value
		}
	}

	if declared.Default != nil {
		out["default"] = declared.Default
	} else if record.Value != nil {
		out["default"] = record.Value
	}
	if declared.Minimum != nil {
		out["minimum"] = *declared.Minimum
	}
	if declared.Maximum != nil {
		out["maximum"] = *declared.Maximum
	}
	if len(declared.Enum) > 0 {
		enum := make([]any, len(declared.Enum))
		copy(enum, declared.Enum)
		out["enum"] = enum
	}
	if declared.Rule != "" {
		out[RuleKeyword] = declared.Rule
	}
	if record.Liveness != "" {
		out[LivenessKeyword] = string(record.Liveness)
	}
	return out
}

// infer walks a normalized value. Maps become objects with sorted
// properties, lists take their item schema from the first element.
func infer(value any) map[string]any {
	switch v := value.(type) {
	case nil:
		return map[string]any{}
	case bool:
		return map[string]any{"type": "boolean"}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return map[string]any{"type": "integer"}
		}
		return map[string]any{"type": "number"}
	case string:
		return map[string]any{"type": "string"}
	case []any:
		items := map[string]any{}
		if len(v) > 0 {
			items = infer(v[0])
		}
		return map[string]any{"type": "array", "items": items}
	case map[string]any:
		properties := make(map[string]any, len(v))
		for key, item := range v {
			properties[key] = infer(item)
		}
		return map[string]any{"type": "object", "properties": properties}
	default:
		return inferKind(reflect.ValueOf(value))
	}
}

// inferKind covers values that were never normalized, such as records read
// straight from a Config.
func inferKind(rv reflect.Value) map[string]any {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32:
		return infer(rv.Float())
	case reflect.Slice, reflect.Array:
		items := map[string]any{}
		if rv.Len() > 0 {
			items = infer(rv.Index(0).Interface())
		}
		return map[string]any{"type": "array", "items": items}
	default:
		return map[string]any{}
	}
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

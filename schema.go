package prefs

import (
	"fmt"
	"math"
)

// SchemaType names the JSON-like kind a setting value must have.
type SchemaType string

const (
	TypeBoolean SchemaType = "boolean"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeString  SchemaType = "string"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
)

// Schema declares the shape of a setting value. The zero Schema accepts any
// value.
type Schema struct {
	Type    SchemaType `json:"type,omitempty" yaml:"type" validate:"omitempty,oneof=boolean number integer string array object"`
	Default any        `json:"default,omitempty" yaml:"default"`
	Minimum *float64   `json:"minimum,omitempty" yaml:"minimum"`
	Maximum *float64   `json:"maximum,omitempty" yaml:"maximum"`
	Enum    []any      `json:"enum,omitempty" yaml:"enum"`
	// Rule is an optional boolean expression evaluated by the configured
	// Evaluator before a value is applied.
	Rule string `json:"rule,omitempty" yaml:"rule"`
}

func (s Schema) clone() Schema {
	out := s
	out.Default = cloneValue(s.Default)
	if s.Minimum != nil {
		v := *s.Minimum
		out.Minimum = &v
	}
	if s.Maximum != nil {
		v := *s.Maximum
		out.Maximum = &v
	}
	if s.Enum != nil {
		out.Enum = make([]any, len(s.Enum))
		for i, item := range s.Enum {
			out.Enum[i] = cloneValue(item)
		}
	}
	return out
}

func (s Schema) normalized() Schema {
	out := s.clone()
	out.Default = normalizeValue(out.Default)
	for i, item := range out.Enum {
		out.Enum[i] = normalizeValue(item)
	}
	return out
}

// Check validates a normalized value against the type, bounds, and enum
// constraints. Rules are evaluated separately by the store.
func (s Schema) Check(value any) error {
	value = normalizeValue(value)
	if s.Type != "" {
		if err := s.checkType(value); err != nil {
			return err
		}
	}
	if s.Minimum != nil || s.Maximum != nil {
		number, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%w: bounds require a number, got %T", ErrSchemaViolation, value)
		}
		if s.Minimum != nil && number < *s.Minimum {
			return fmt.Errorf("%w: %v is below minimum %v", ErrSchemaViolation, number, *s.Minimum)
		}
		if s.Maximum != nil && number > *s.Maximum {
			return fmt.Errorf("%w: %v is above maximum %v", ErrSchemaViolation, number, *s.Maximum)
		}
	}
	if len(s.Enum) > 0 {
		for _, allowed := range s.Enum {
			if valuesEqual(normalizeValue(allowed), value) {
				return nil
			}
		}
		return fmt.Errorf("%w: %v is not one of %v", ErrSchemaViolation, value, s.Enum)
	}
	return nil
}

func (s Schema) checkType(value any) error {
	ok := false
	switch s.Type {
	case TypeBoolean:
		_, ok = value.(bool)
	case TypeNumber:
		_, ok = value.(float64)
	case TypeInteger:
		var number float64
		number, ok = value.(float64)
		ok = ok && number == math.Trunc(number)
	case TypeString:
		_, ok = value.(string)
	case TypeArray:
		_, ok = value.([]any)
	case TypeObject:
		_, ok = value.(map[string]any)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrSchemaViolation, s.Type)
	}
	if !ok {
		return fmt.Errorf("%w: expected %s, got %T", ErrSchemaViolation, s.Type, value)
	}
	return nil
}

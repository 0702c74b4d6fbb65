package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldType is the coercion target for an interpolated configuration field.
type FieldType int

const (
	// FieldString leaves the resolved string as-is.
	FieldString FieldType = iota
	// FieldInt parses the resolved string as an integer; empty becomes 0.
	FieldInt
	// FieldFloat parses the resolved string as a float; empty becomes 0.0.
	FieldFloat
	// FieldBool is true iff the lowercased string is "true", "1" or "yes".
	FieldBool
	// FieldMap JSON-parses the resolved string; empty becomes an empty map.
	FieldMap
	// FieldList JSON-parses the resolved string; empty becomes an empty list.
	FieldList
)

// FieldSpec describes one configuration field for resolution purposes.
//
// Interpolated marks the field as accepting {{path}} references; Type is the
// scalar the resolved string is coerced to. Fields, when set, declares the
// field as a nested configuration (or a list of nested configurations) that
// is resolved recursively with the full rules.
type FieldSpec struct {
	Name         string
	Type         FieldType
	Interpolated bool
	Fields       Schema
}

// Schema is the resolution schema for one step configuration.
type Schema []FieldSpec

// spec returns the FieldSpec for a name, if declared.
func (s Schema) spec(name string) (FieldSpec, bool) {
	for _, fs := range s {
		if fs.Name == name {
			return fs, true
		}
	}
	return FieldSpec{}, false
}

// Config is a step configuration value. Steps receive a resolved copy with
// all {{path}} references already substituted; the copy stored on the step
// itself is never mutated during a run.
type Config map[string]any

// StringOr returns a string field or def when missing or not a string.
func (c Config) StringOr(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// IntOr returns an integer field or def. JSON and YAML decoding produce a
// spread of numeric types, all of which are accepted.
func (c Config) IntOr(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// FloatOr returns a float field or def.
func (c Config) FloatOr(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// BoolOr returns a bool field or def.
func (c Config) BoolOr(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// MapOr returns a map field or def.
func (c Config) MapOr(key string, def map[string]any) map[string]any {
	if v, ok := c[key].(map[string]any); ok {
		return v
	}
	return def
}

// ListOr returns a list field or def.
func (c Config) ListOr(key string, def []any) []any {
	if v, ok := c[key].([]any); ok {
		return v
	}
	return def
}

// clone returns a shallow copy of the config.
func (c Config) clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// CastString coerces a resolved template string to the target field type.
func CastString(value string, target FieldType) (any, error) {
	switch target {
	case FieldString:
		return value, nil
	case FieldInt:
		if value == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("parse int %q: %w", value, err)
		}
		return i, nil
	case FieldFloat:
		if value == "" {
			return 0.0, nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", value, err)
		}
		return f, nil
	case FieldBool:
		return truthyString(value), nil
	case FieldMap:
		if value == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(value), &m); err != nil {
			return nil, fmt.Errorf("parse object %q: %w", value, err)
		}
		return m, nil
	case FieldList:
		if value == "" {
			return []any{}, nil
		}
		var l []any
		if err := json.Unmarshal([]byte(value), &l); err != nil {
			return nil, fmt.Errorf("parse array %q: %w", value, err)
		}
		return l, nil
	}
	return value, nil
}

// hasRef reports whether a value is a string carrying a {{path}} reference.
func hasRef(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, "{{") {
		return "", false
	}
	return s, true
}

// ResolveConfig returns a new Config with every interpolated field resolved
// against st and coerced to its declared type.
//
// The walk follows the schema: interpolated fields go through
// ResolveTemplate and CastString; plain map fields have their string leaves
// resolved without coercion; list fields resolve string elements and, when
// the field declares nested Fields, resolve map elements as nested configs;
// everything else passes through untouched. The input config is not
// modified.
func ResolveConfig(cfg Config, schema Schema, st *State) (Config, error) {
	resolved := make(Config, len(cfg))

	for name, value := range cfg {
		fs, declared := schema.spec(name)

		switch {
		case declared && fs.Interpolated:
			tmpl, ok := hasRef(value)
			if !ok {
				// Non-string values and reference-free strings pass through.
				resolved[name] = value
				continue
			}
			cast, err := CastString(ResolveTemplate(tmpl, st), fs.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			resolved[name] = cast

		case declared && fs.Fields != nil:
			nested, err := resolveNested(value, fs.Fields, st)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			resolved[name] = nested

		default:
			switch v := value.(type) {
			case map[string]any:
				resolved[name] = resolveMapValues(v, st)
			case []any:
				resolved[name] = resolveListValues(v, st)
			default:
				resolved[name] = value
			}
		}
	}

	return resolved, nil
}

// resolveNested resolves a nested config or a list of nested configs.
func resolveNested(value any, schema Schema, st *State) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return ResolveConfig(Config(v), schema, st)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			if m, ok := item.(map[string]any); ok {
				sub, err := ResolveConfig(Config(m), schema, st)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				out[i] = map[string]any(sub)
				continue
			}
			if tmpl, ok := hasRef(item); ok {
				out[i] = ResolveTemplate(tmpl, st)
				continue
			}
			out[i] = item
		}
		return out, nil
	default:
		return value, nil
	}
}

// resolveMapValues resolves string leaves of a plain mapping, recursing into
// nested maps. No type coercion: resolved values stay strings.
func resolveMapValues(m map[string]any, st *State) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if tmpl, ok := hasRef(v); ok {
			out[k] = ResolveTemplate(tmpl, st)
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = resolveMapValues(nested, st)
			continue
		}
		out[k] = v
	}
	return out
}

// resolveListValues resolves string elements of a plain list. Non-string
// elements pass through.
func resolveListValues(l []any, st *State) []any {
	out := make([]any, len(l))
	for i, v := range l {
		if tmpl, ok := hasRef(v); ok {
			out[i] = ResolveTemplate(tmpl, st)
			continue
		}
		out[i] = v
	}
	return out
}

// Ref is a {{path}} occurrence found in a configuration, reported with the
// top-level field it was found under.
type Ref struct {
	Field string
	Path  string
}

// ExtractRefs collects every {{path}} reference in cfg using the same walk
// as ResolveConfig, without substituting anything. Used by the validator.
func ExtractRefs(cfg Config, schema Schema) []Ref {
	var refs []Ref
	for name, value := range cfg {
		fs, declared := schema.spec(name)

		switch {
		case declared && fs.Interpolated:
			refs = append(refs, stringRefs(name, value)...)

		case declared && fs.Fields != nil:
			switch v := value.(type) {
			case map[string]any:
				refs = append(refs, ExtractRefs(Config(v), fs.Fields)...)
			case []any:
				for _, item := range v {
					if m, ok := item.(map[string]any); ok {
						refs = append(refs, ExtractRefs(Config(m), fs.Fields)...)
					} else {
						refs = append(refs, stringRefs(name, item)...)
					}
				}
			}

		default:
			switch v := value.(type) {
			case map[string]any:
				refs = append(refs, mapRefs(name, v)...)
			case []any:
				for _, item := range v {
					refs = append(refs, stringRefs(name, item)...)
				}
			}
		}
	}
	return refs
}

// stringRefs extracts refs from a single string value.
func stringRefs(field string, value any) []Ref {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	var refs []Ref
	for _, path := range ExtractTemplateRefs(s) {
		refs = append(refs, Ref{Field: field, Path: path})
	}
	return refs
}

// mapRefs extracts refs from the string leaves of a plain mapping.
func mapRefs(field string, m map[string]any) []Ref {
	var refs []Ref
	for _, v := range m {
		if nested, ok := v.(map[string]any); ok {
			refs = append(refs, mapRefs(field, nested)...)
			continue
		}
		refs = append(refs, stringRefs(field, v)...)
	}
	return refs
}

package flow

import (
	"reflect"
	"sort"
	"testing"
)

func TestCastString(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		target FieldType
		want   any
	}{
		{"string", "hello", FieldString, "hello"},
		{"int", "42", FieldInt, 42},
		{"int empty", "", FieldInt, 0},
		{"float", "2.5", FieldFloat, 2.5},
		{"float empty", "", FieldFloat, 0.0},
		{"bool true", "true", FieldBool, true},
		{"bool yes", "yes", FieldBool, true},
		{"bool other", "maybe", FieldBool, false},
		{"map", `{"k":"v"}`, FieldMap, map[string]any{"k": "v"}},
		{"map empty", "", FieldMap, map[string]any{}},
		{"list", `[1]`, FieldList, []any{float64(1)}},
		{"list empty", "", FieldList, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CastString(tt.value, tt.target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CastString(%q) = %v (%T), want %v", tt.value, got, got, tt.want)
			}
		})
	}
}

func TestCastString_Errors(t *testing.T) {
	if _, err := CastString("nope", FieldInt); err == nil {
		t.Error("expected int parse error")
	}
	if _, err := CastString("nope", FieldFloat); err == nil {
		t.Error("expected float parse error")
	}
	if _, err := CastString("nope", FieldMap); err == nil {
		t.Error("expected map parse error")
	}
	if _, err := CastString("nope", FieldList); err == nil {
		t.Error("expected list parse error")
	}
}

func TestResolveConfig_Interpolated(t *testing.T) {
	st := NewState()
	st.Set("count", 3)
	st.Set("name", "ada")

	schema := Schema{
		{Name: "n", Type: FieldInt, Interpolated: true},
		{Name: "greeting", Type: FieldString, Interpolated: true},
	}
	cfg := Config{
		"n":        "{{count}}",
		"greeting": "hi {{name}}",
		"plain":    "untouched",
	}

	resolved, err := ResolveConfig(cfg, schema, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["n"] != 3 {
		t.Errorf("expected coerced int 3, got %v (%T)", resolved["n"], resolved["n"])
	}
	if resolved["greeting"] != "hi ada" {
		t.Errorf("got %v", resolved["greeting"])
	}
	if resolved["plain"] != "untouched" {
		t.Errorf("undeclared scalar should pass through, got %v", resolved["plain"])
	}
	// Input must not be mutated.
	if cfg["n"] != "{{count}}" {
		t.Errorf("input config was mutated: %v", cfg["n"])
	}
}

func TestResolveConfig_ReferenceFreeValuesPassThrough(t *testing.T) {
	st := NewState()
	schema := Schema{{Name: "n", Type: FieldInt, Interpolated: true}}

	resolved, err := ResolveConfig(Config{"n": 7}, schema, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["n"] != 7 {
		t.Errorf("non-string value should pass through, got %v", resolved["n"])
	}

	resolved, _ = ResolveConfig(Config{"n": "12"}, schema, st)
	if resolved["n"] != "12" {
		t.Errorf("reference-free string should pass through uncoerced, got %v (%T)", resolved["n"], resolved["n"])
	}
}

func TestResolveConfig_CoercionError(t *testing.T) {
	st := NewState()
	st.Set("v", "not a number")
	schema := Schema{{Name: "n", Type: FieldInt, Interpolated: true}}

	if _, err := ResolveConfig(Config{"n": "{{v}}"}, schema, st); err == nil {
		t.Error("expected coercion error")
	}
}

func TestResolveConfig_PlainMap(t *testing.T) {
	st := NewState()
	st.Set("token", "abc")

	cfg := Config{
		"headers": map[string]any{
			"Authorization": "Bearer {{token}}",
			"Static":        "s",
			"Nested":        map[string]any{"X": "{{token}}"},
			"Count":         float64(1),
		},
	}

	resolved, err := ResolveConfig(cfg, nil, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	headers := resolved["headers"].(map[string]any)
	if headers["Authorization"] != "Bearer abc" {
		t.Errorf("got %v", headers["Authorization"])
	}
	if headers["Static"] != "s" || headers["Count"] != float64(1) {
		t.Errorf("non-ref leaves should pass through: %v", headers)
	}
	nested := headers["Nested"].(map[string]any)
	if nested["X"] != "abc" {
		t.Errorf("nested map leaves should resolve, got %v", nested["X"])
	}
}

func TestResolveConfig_NestedSchema(t *testing.T) {
	st := NewState()
	st.Set("tier", "pro")

	schema := Schema{
		{Name: "value", Type: FieldString, Interpolated: true},
		{Name: "cases", Fields: Schema{
			{Name: "value", Type: FieldString, Interpolated: true},
		}},
	}
	cfg := Config{
		"value": "{{tier}}",
		"cases": []any{
			map[string]any{"name": "pro", "value": "{{tier}}"},
			map[string]any{"name": "free", "value": "free"},
		},
	}

	resolved, err := ResolveConfig(cfg, schema, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved["value"] != "pro" {
		t.Errorf("got %v", resolved["value"])
	}
	cases := resolved["cases"].([]any)
	first := cases[0].(map[string]any)
	if first["value"] != "pro" || first["name"] != "pro" {
		t.Errorf("nested config should resolve, got %v", first)
	}
}

func TestResolveConfig_PlainList(t *testing.T) {
	st := NewState()
	st.Set("x", "resolved")

	resolved, err := ResolveConfig(Config{"items": []any{"{{x}}", "plain", float64(2)}}, nil, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := resolved["items"].([]any)
	want := []any{"resolved", "plain", float64(2)}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("expected %v, got %v", want, items)
	}
}

func TestExtractRefs(t *testing.T) {
	schema := Schema{
		{Name: "url", Type: FieldString, Interpolated: true},
		{Name: "cases", Fields: Schema{
			{Name: "value", Type: FieldString, Interpolated: true},
		}},
	}
	cfg := Config{
		"url": "https://{{host}}/{{path}}",
		"headers": map[string]any{
			"Auth": "Bearer {{token}}",
		},
		"cases": []any{
			map[string]any{"name": "a", "value": "{{tier}}"},
		},
	}

	refs := ExtractRefs(cfg, schema)
	var paths []string
	for _, r := range refs {
		paths = append(paths, r.Path)
	}
	sort.Strings(paths)
	want := []string{"host", "path", "tier", "token"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("expected %v, got %v", want, paths)
	}
}

func TestConfigAccessors(t *testing.T) {
	cfg := Config{
		"s": "str",
		"i": float64(5),
		"f": "2.5",
		"b": true,
		"m": map[string]any{"k": "v"},
		"l": []any{"a"},
	}

	if cfg.StringOr("s", "") != "str" || cfg.StringOr("missing", "d") != "d" {
		t.Error("StringOr mismatch")
	}
	if cfg.IntOr("i", 0) != 5 || cfg.IntOr("missing", 9) != 9 {
		t.Error("IntOr mismatch")
	}
	if cfg.FloatOr("f", 0) != 2.5 {
		t.Error("FloatOr should parse numeric strings")
	}
	if cfg.BoolOr("b", false) != true {
		t.Error("BoolOr mismatch")
	}
	if cfg.MapOr("m", nil)["k"] != "v" {
		t.Error("MapOr mismatch")
	}
	if len(cfg.ListOr("l", nil)) != 1 {
		t.Error("ListOr mismatch")
	}
}

package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Slot declares a typed entry in the state container. Writing through a
// declared slot coerces the value to the slot's type.
type Slot struct {
	Name        string    `json:"name" yaml:"name"`
	Type        StateType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// Cast coerces value to the slot's type. Nil passes through untouched.
func (s Slot) Cast(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch s.Type {
	case TypeText:
		return Stringify(value), nil
	case TypeNumber:
		return castNumber(value)
	case TypeBoolean:
		if str, ok := value.(string); ok {
			return truthyString(str), nil
		}
		return truthy(value), nil
	case TypeObject:
		if str, ok := value.(string); ok {
			var m map[string]any
			if err := json.Unmarshal([]byte(str), &m); err != nil {
				return nil, fmt.Errorf("cast %q to object: %w", s.Name, err)
			}
			return m, nil
		}
		return value, nil
	case TypeArray:
		if str, ok := value.(string); ok {
			var l []any
			if err := json.Unmarshal([]byte(str), &l); err != nil {
				return nil, fmt.Errorf("cast %q to array: %w", s.Name, err)
			}
			return l, nil
		}
		return value, nil
	}
	// TypeAny and unknown types pass through.
	return value, nil
}

// castNumber converts to int64 or float64. Strings are parsed as an integer
// first, falling back to float.
func castNumber(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("cast %q to number: %w", v, err)
		}
		return f, nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	default:
		return nil, fmt.Errorf("cannot cast %T to number", value)
	}
}

// truthyString implements the boolean coercion table for strings.
func truthyString(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// truthy reports the truthiness of a non-string value.
func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	case nil:
		return false
	default:
		return true
	}
}

// Stringify renders a value in its canonical string form. Containers are
// JSON-encoded; nil becomes the empty string.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// State is the runtime key/value container shared by all steps in a run.
//
// Writes through a declared slot coerce to the slot's type; undeclared keys
// store verbatim. Concurrent steps share one State; writes to the same key
// race with last-writer-wins semantics. Callers needing determinism must
// serialize through the flow's edges.
type State struct {
	mu    sync.RWMutex
	slots map[string]Slot
	vals  map[string]any
}

// NewState creates an empty state container.
func NewState() *State {
	return &State{
		slots: make(map[string]Slot),
		vals:  make(map[string]any),
	}
}

// Define declares a typed slot for a key and returns it.
func (s *State) Define(name string, typ StateType, description string) Slot {
	slot := Slot{Name: name, Type: typ, Description: description}
	s.mu.Lock()
	s.slots[name] = slot
	s.mu.Unlock()
	return slot
}

// Set stores a value, coercing it through the key's slot when one is
// declared.
func (s *State) Set(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[name]; ok {
		cast, err := slot.Cast(value)
		if err != nil {
			return err
		}
		value = cast
	}
	s.vals[name] = value
	return nil
}

// Get returns the raw value for a key, or def when absent.
func (s *State) Get(name string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.vals[name]; ok {
		return v
	}
	return def
}

// GetNested resolves a dotted path against the value map.
//
// Each segment traverses a map by key or a list by integer index. A missing
// key, a non-numeric or out-of-range index, or a nil intermediate value
// yields def. Note that a present key holding nil is indistinguishable from
// an absent key.
func (s *State) GetNested(path string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current any = s.vals
	for _, part := range strings.Split(path, ".") {
		switch c := current.(type) {
		case nil:
			return def
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(c) {
				return def
			}
			current = c[index]
		case map[string]any:
			v, ok := c[part]
			if !ok || v == nil {
				return def
			}
			current = v
		default:
			return def
		}
	}
	return current
}

// GetString returns the value in string form: "" for missing or nil,
// JSON for containers, the canonical string otherwise.
func (s *State) GetString(name string) string {
	s.mu.RLock()
	v := s.vals[name]
	s.mu.RUnlock()
	return Stringify(v)
}

// Snapshot returns a shallow copy of the value map. Nested containers are
// shared with the live state.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]any, len(s.vals))
	for k, v := range s.vals {
		snap[k] = v
	}
	return snap
}

// Clone returns a shallow copy of the container, slots included.
func (s *State) Clone() *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := NewState()
	for k, v := range s.slots {
		clone.slots[k] = v
	}
	for k, v := range s.vals {
		clone.vals[k] = v
	}
	return clone
}

// Seed stores a batch of values, coercing through declared slots. Used by
// embedders to inject trigger inputs before a run starts.
func (s *State) Seed(values map[string]any) error {
	for k, v := range values {
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

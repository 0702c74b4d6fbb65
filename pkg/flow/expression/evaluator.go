// Package expression evaluates boolean condition expressions against flow
// state using expr-lang.
package expression

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/flowrun/flowrun/pkg/errors"
)

// Evaluator evaluates condition expressions against a state value map.
// It caches compiled expressions for repeated evaluations.
type Evaluator struct {
	cache map[string]*vm.Program
	mu    sync.RWMutex
}

// New creates a new expression evaluator.
func New() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Evaluate evaluates an expression against the given environment and
// returns the boolean result.
//
// The environment is typically the flow state's value map, so state keys
// are referenced directly:
//
//	result, err := eval.Evaluate(`status_code == 200 && has(tags, "beta")`, st.Snapshot())
func (e *Evaluator) Evaluate(expression string, env map[string]any) (bool, error) {
	if expression == "" {
		return true, nil // Empty expression defaults to true
	}

	program, err := e.compile(expression)
	if err != nil {
		return false, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("failed to compile expression: %s", err.Error()),
			Suggestion: "check expression syntax and ensure all referenced variables exist",
		}
	}

	evalEnv := make(map[string]any, len(env)+2)
	for k, v := range env {
		evalEnv[k] = v
	}
	evalEnv["has"] = containsFunc
	evalEnv["length"] = lenFunc

	result, err := expr.Run(program, evalEnv)
	if err != nil {
		return false, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("expression evaluation failed: %s", err.Error()),
			Suggestion: "verify that all referenced variables exist in the flow state",
		}
	}

	boolResult, ok := result.(bool)
	if !ok {
		return false, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("expression must return boolean, got %T (%v)", result, result),
			Suggestion: "use comparison operators (==, !=, <, >, etc.) or boolean functions",
		}
	}

	return boolResult, nil
}

// compile compiles an expression and caches the result.
func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	// Note: "contains" is a reserved string operator in expr, so the
	// collection membership helper is named "has".
	env := map[string]any{
		"has":    containsFunc,
		"length": lenFunc,
	}

	prog, err := expr.Compile(expression,
		expr.Env(env),
		// The state map is supplied at runtime.
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = prog
	e.mu.Unlock()

	return prog, nil
}

// containsFunc reports membership in a collection or substring presence.
func containsFunc(collection, item any) bool {
	switch c := collection.(type) {
	case string:
		if s, ok := item.(string); ok {
			return strings.Contains(c, s)
		}
		return false
	case []any:
		for _, v := range c {
			if reflect.DeepEqual(v, item) {
				return true
			}
		}
		return false
	case map[string]any:
		if s, ok := item.(string); ok {
			_, found := c[s]
			return found
		}
		return false
	default:
		return false
	}
}

// lenFunc returns the length of a string, slice, or map; 0 otherwise.
func lenFunc(value any) int {
	switch v := value.(type) {
	case string:
		return len(v)
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	default:
		return 0
	}
}

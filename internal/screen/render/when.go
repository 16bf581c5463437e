package render

import (
	"encoding/json"
	"log"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/tidwall/gjson"

	"github.com/billy1976-servant/screenloom/internal/screen/node"
)

// whenPasses evaluates a node's when clause against the serialized state
// snapshot. A nil clause always passes. Broken expressions fail closed with
// a logged warning so an authoring typo hides one node instead of crashing
// the render.
func whenPasses(w *node.When, snapshotJSON []byte, env map[string]any) bool {
	if w == nil {
		return true
	}
	if w.Expr != "" {
		program, err := expr.Compile(w.Expr, expr.Env(env), expr.AllowUndefinedVariables())
		if err != nil {
			log.Printf("render: compile when.expr %q: %v", w.Expr, err)
			return false
		}
		result, err := expr.Run(program, env)
		if err != nil {
			log.Printf("render: run when.expr %q: %v", w.Expr, err)
			return false
		}
		return truthy(result)
	}
	if w.State != "" {
		value := gjson.GetBytes(snapshotJSON, w.State)
		if w.Equals != nil {
			return looseEqual(value.Value(), w.Equals)
		}
		return value.Exists() && truthy(value.Value())
	}
	return true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

// looseEqual compares across the numeric representations JSON decoding
// produces, so when.equals matches whether the author wrote 1 or 1.0.
func looseEqual(got, want any) bool {
	if gotNum, ok := asFloat(got); ok {
		if wantNum, ok := asFloat(want); ok {
			return gotNum == wantNum
		}
	}
	return reflect.DeepEqual(got, want)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

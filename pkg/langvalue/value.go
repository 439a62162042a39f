// Package langvalue holds the runtime value representation shared by
// pkg/interp, pkg/transform and pkg/query: the dynamically-typed values a
// traced program manipulates (int, float, bool, string, nil, list, dict),
// plus the insertion-ordered argument/dict backing needed so that
// FunctionCall.arguments preserves call-site order.
//
// Grounded on original_source/src/models/tracer_models.py's safe_deepcopy
// contract: variable snapshots and function arguments are recorded as
// independent copies, not references, so later mutation of a list or dict
// doesn't retroactively corrupt an already-recorded trace row.
package langvalue

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is any runtime value: nil, bool, int64, float64, string,
// []Value, *Dict, or *Instance.
type Value = any

// Dict is the language's insertion-ordered mapping type, and also backs
// FunctionCall.Arguments in pkg/tracemodel.
type Dict = orderedmap.OrderedMap[string, Value]

func NewDict() *Dict { return orderedmap.New[string, Value]() }

// DeepCopy returns an independent copy of v. Scalars are returned as-is
// (Go values of those kinds are already immutable); lists and dicts are
// recursively copied.
func DeepCopy(v Value) Value {
	switch t := v.(type) {
	case []Value:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = DeepCopy(e)
		}
		return out
	case *Dict:
		out := NewDict()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, DeepCopy(pair.Value))
		}
		return out
	case *Instance:
		return &Instance{ClassName: t.ClassName, Fields: DeepCopy(t.Fields).(*Dict)}
	default:
		return v
	}
}

// Instance is a traced-program object: a class name (resolved against the
// interpreter's class registry for method dispatch) plus its own
// insertion-ordered field dict.
type Instance struct {
	ClassName string
	Fields    *Dict
}

// Truthy implements the language's boolean-coercion rules (Python-like):
// nil, zero numbers, empty strings/lists/dicts are false.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return t != ""
	case []Value:
		return len(t) > 0
	case *Dict:
		return t.Len() > 0
	default:
		return true
	}
}

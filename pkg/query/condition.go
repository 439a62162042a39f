package query

import (
	"reflect"
	"strings"
)

// Condition is a single WHERE condition, grounded on
// pipeline_steps.py::QueryCondition. Unlike Python, Go has no polymorphic
// comparison operators, so Evaluate dispatches through compare/contains
// below instead of an operator.eq-style table of closures — same
// contract, idiomatic Go shape.
type Condition struct {
	Field string
	Op    string
	Value any
}

// Evaluate reports whether obj satisfies the condition. A field that
// fails to resolve, or a type mismatch during comparison, makes the
// condition false rather than erroring — matching the original's
// `except (TypeError, KeyError): return False`. An unknown operator still
// surfaces as InvalidOperatorError, matching the original raising inside
// the try that swallows only TypeError/KeyError.
func (c Condition) Evaluate(obj any) (bool, error) {
	fieldValue, err := getFieldValue(obj, c.Field)
	if err != nil {
		if _, ok := err.(*InvalidFieldError); ok {
			return false, nil
		}
		return false, err
	}

	switch c.Op {
	case "==":
		return equal(fieldValue, c.Value), nil
	case "!=":
		return !equal(fieldValue, c.Value), nil
	case "<":
		r, ok := compare(fieldValue, c.Value)
		return ok && r < 0, nil
	case "<=":
		r, ok := compare(fieldValue, c.Value)
		return ok && r <= 0, nil
	case ">":
		r, ok := compare(fieldValue, c.Value)
		return ok && r > 0, nil
	case ">=":
		r, ok := compare(fieldValue, c.Value)
		return ok && r >= 0, nil
	case "in":
		return contains(c.Value, fieldValue), nil
	case "not_in":
		return !contains(c.Value, fieldValue), nil
	default:
		return false, &InvalidOperatorError{Op: c.Op}
	}
}

func equal(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

// compare returns (-1|0|1, true) for ordered numeric or string operands,
// (_, false) when the pair can't be ordered — the Go analogue of Python
// raising TypeError on e.g. int < str, swallowed into "condition is false"
// by the caller.
func compare(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// contains implements `in`/`not_in`: value membership in a slice or
// array, or a substring check for strings. Any other container (a
// *langvalue.Dict included) never contains the value.
func contains(container, value any) bool {
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equal(rv.Index(i).Interface(), value) {
				return true
			}
		}
		return false
	case reflect.String:
		s, ok := value.(string)
		return ok && strings.Contains(rv.String(), s)
	default:
		return false
	}
}

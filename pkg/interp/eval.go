package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/algotrace/tracequery/pkg/lang/ast"
	"github.com/algotrace/tracequery/pkg/langvalue"
)

// evalExpr evaluates e in env, recursing into subexpressions left to
// right (left-to-right matters for TrackCall: each nested call's frame
// opens and closes at the point its value is actually needed).
func (it *Interp) evalExpr(env *Env, e ast.Expr) (langvalue.Value, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return n.Value, nil
	case *ast.FloatLit:
		return n.Value, nil
	case *ast.StringLit:
		return n.Value, nil
	case *ast.BoolLit:
		return n.Value, nil
	case *ast.NilLit:
		return nil, nil
	case *ast.Ident:
		if v, ok := env.get(n.Name); ok {
			return v, nil
		}
		return nil, fmt.Errorf("line %d: undefined name %q", n.Line, n.Name)
	case *ast.ListLit:
		out := make([]langvalue.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := it.evalExpr(env, el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *ast.Tuple:
		out := make([]langvalue.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := it.evalExpr(env, el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *ast.DictLit:
		d := langvalue.NewDict()
		for _, ent := range n.Entries {
			k, err := it.evalExpr(env, ent.Key)
			if err != nil {
				return nil, err
			}
			v, err := it.evalExpr(env, ent.Value)
			if err != nil {
				return nil, err
			}
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("line %d: dict keys must be strings", n.Line)
			}
			d.Set(key, v)
		}
		return d, nil
	case *ast.Attr:
		recv, err := it.evalExpr(env, n.Value)
		if err != nil {
			return nil, err
		}
		return it.getAttr(recv, n.Name, n.Line)
	case *ast.Subscript:
		recv, err := it.evalExpr(env, n.Value)
		if err != nil {
			return nil, err
		}
		idx, err := it.evalExpr(env, n.Index)
		if err != nil {
			return nil, err
		}
		return getSubscript(recv, idx, n.Line)
	case *ast.Unary:
		x, err := it.evalExpr(env, n.X)
		if err != nil {
			return nil, err
		}
		return applyUnary(n.Op, x, n.Line)
	case *ast.Binary:
		return it.evalBinary(env, n)
	case *ast.TrackCall:
		return it.evalTrackCall(env, n)
	case *ast.Call:
		// Only reachable if something constructs a Call without routing it
		// through pkg/transform first; treat it like an un-instrumented call.
		return it.evalCall(env, n)
	default:
		return nil, fmt.Errorf("line %d: unsupported expression %T", e.Pos(), e)
	}
}

// evalBinary implements "and"/"or" short-circuiting directly (their
// right-hand side must not be evaluated eagerly) and defers everything
// else to applyBinary.
func (it *Interp) evalBinary(env *Env, n *ast.Binary) (langvalue.Value, error) {
	if n.Op == "and" || n.Op == "or" {
		x, err := it.evalExpr(env, n.X)
		if err != nil {
			return nil, err
		}
		truthy := langvalue.Truthy(x)
		if n.Op == "and" && !truthy {
			return x, nil
		}
		if n.Op == "or" && truthy {
			return x, nil
		}
		return it.evalExpr(env, n.Y)
	}
	x, err := it.evalExpr(env, n.X)
	if err != nil {
		return nil, err
	}
	y, err := it.evalExpr(env, n.Y)
	if err != nil {
		return nil, err
	}
	return applyBinary(n.Op, x, y, n.Line)
}

func (it *Interp) getAttr(recv langvalue.Value, name string, line int) (langvalue.Value, error) {
	inst, ok := recv.(*langvalue.Instance)
	if !ok {
		return nil, fmt.Errorf("line %d: cannot access attribute %q on non-instance value", line, name)
	}
	if v, ok := inst.Fields.Get(name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("line %d: instance of %q has no attribute %q", line, inst.ClassName, name)
}

func getSubscript(recv, idx langvalue.Value, line int) (langvalue.Value, error) {
	switch r := recv.(type) {
	case []langvalue.Value:
		i, ok := asIndex(idx)
		if !ok {
			return nil, fmt.Errorf("line %d: list index must be an integer", line)
		}
		if i < 0 {
			i += len(r)
		}
		if i < 0 || i >= len(r) {
			return nil, fmt.Errorf("line %d: list index out of range", line)
		}
		return r[i], nil
	case *langvalue.Dict:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("line %d: dict keys must be strings", line)
		}
		v, ok := r.Get(key)
		if !ok {
			return nil, fmt.Errorf("line %d: key %q not found", line, key)
		}
		return v, nil
	case string:
		i, ok := asIndex(idx)
		runes := []rune(r)
		if !ok || i < 0 || i >= len(runes) {
			return nil, fmt.Errorf("line %d: string index out of range", line)
		}
		return string(runes[i]), nil
	default:
		return nil, fmt.Errorf("line %d: value of type %T is not subscriptable", line, recv)
	}
}

func applyUnary(op string, x langvalue.Value, line int) (langvalue.Value, error) {
	switch op {
	case "-":
		switch v := x.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}
		return nil, fmt.Errorf("line %d: unary - requires a number", line)
	case "not":
		return !langvalue.Truthy(x), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported unary operator %q", line, op)
	}
}

func applyBinary(op string, x, y langvalue.Value, line int) (langvalue.Value, error) {
	switch op {
	case "+":
		return addValues(x, y, line)
	case "-", "*", "/", "%":
		return arith(op, x, y, line)
	case "==":
		return valuesEqual(x, y), nil
	case "!=":
		return !valuesEqual(x, y), nil
	case "<", "<=", ">", ">=":
		return compareValues(op, x, y, line)
	case "in":
		return containsValue(y, x, line)
	case "not in":
		ok, err := containsValue(y, x, line)
		if err != nil {
			return nil, err
		}
		return !ok.(bool), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported binary operator %q", line, op)
	}
}

func addValues(x, y langvalue.Value, line int) (langvalue.Value, error) {
	if xs, ok := x.(string); ok {
		ys, ok := y.(string)
		if !ok {
			return nil, fmt.Errorf("line %d: cannot concatenate string with %T", line, y)
		}
		return xs + ys, nil
	}
	if xl, ok := x.([]langvalue.Value); ok {
		yl, ok := y.([]langvalue.Value)
		if !ok {
			return nil, fmt.Errorf("line %d: cannot concatenate list with %T", line, y)
		}
		out := make([]langvalue.Value, 0, len(xl)+len(yl))
		out = append(out, xl...)
		out = append(out, yl...)
		return out, nil
	}
	return arith("+", x, y, line)
}

func arith(op string, x, y langvalue.Value, line int) (langvalue.Value, error) {
	xf, xIsFloat, xok := numeric(x)
	yf, yIsFloat, yok := numeric(y)
	if !xok || !yok {
		return nil, fmt.Errorf("line %d: operator %q requires numbers, got %T and %T", line, op, x, y)
	}
	if !xIsFloat && !yIsFloat {
		xi, yi := x.(int64), y.(int64)
		switch op {
		case "+":
			return xi + yi, nil
		case "-":
			return xi - yi, nil
		case "*":
			return xi * yi, nil
		case "/":
			if yi == 0 {
				return nil, fmt.Errorf("line %d: division by zero", line)
			}
			return xi / yi, nil
		case "%":
			if yi == 0 {
				return nil, fmt.Errorf("line %d: division by zero", line)
			}
			return xi % yi, nil
		}
	}
	switch op {
	case "+":
		return xf + yf, nil
	case "-":
		return xf - yf, nil
	case "*":
		return xf * yf, nil
	case "/":
		if yf == 0 {
			return nil, fmt.Errorf("line %d: division by zero", line)
		}
		return xf / yf, nil
	case "%":
		return nil, fmt.Errorf("line %d: %% requires integer operands", line)
	}
	return nil, fmt.Errorf("line %d: unreachable arith operator %q", line, op)
}

func numeric(v langvalue.Value) (f float64, isFloat, ok bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), false, true
	case float64:
		return t, true, true
	default:
		return 0, false, false
	}
}

func valuesEqual(x, y langvalue.Value) bool {
	xf, xIsFloat, xok := numeric(x)
	yf, yIsFloat, yok := numeric(y)
	if xok && yok {
		_ = xIsFloat
		_ = yIsFloat
		return xf == yf
	}
	switch xt := x.(type) {
	case string:
		yt, ok := y.(string)
		return ok && xt == yt
	case bool:
		yt, ok := y.(bool)
		return ok && xt == yt
	case nil:
		return y == nil
	case []langvalue.Value:
		yt, ok := y.([]langvalue.Value)
		if !ok || len(xt) != len(yt) {
			return false
		}
		for i := range xt {
			if !valuesEqual(xt[i], yt[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func compareValues(op string, x, y langvalue.Value, line int) (langvalue.Value, error) {
	xf, _, xok := numeric(x)
	yf, _, yok := numeric(y)
	if xok && yok {
		return compareFloats(op, xf, yf), nil
	}
	xs, xok2 := x.(string)
	ys, yok2 := y.(string)
	if xok2 && yok2 {
		return compareStrings(op, xs, ys), nil
	}
	return nil, fmt.Errorf("line %d: cannot compare %T with %T", line, x, y)
}

func compareFloats(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func compareStrings(op, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func containsValue(container, item langvalue.Value, line int) (langvalue.Value, error) {
	switch c := container.(type) {
	case []langvalue.Value:
		for _, e := range c {
			if valuesEqual(e, item) {
				return true, nil
			}
		}
		return false, nil
	case *langvalue.Dict:
		key, ok := item.(string)
		if !ok {
			return false, nil
		}
		_, present := c.Get(key)
		return present, nil
	case string:
		sub, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("line %d: 'in' on a string requires a string operand", line)
		}
		return strings.Contains(c, sub), nil
	default:
		return nil, fmt.Errorf("line %d: value of type %T does not support 'in'", line, container)
	}
}

// stringify renders v the way the language's builtin str() and
// string-interpolation contexts do: plain for scalars, Python-ish
// literal form for compound values.
func stringify(v langvalue.Value) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	case []langvalue.Value:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = stringify(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *langvalue.Dict:
		var parts []string
		for p := t.Oldest(); p != nil; p = p.Next() {
			parts = append(parts, fmt.Sprintf("%s: %s", p.Key, stringify(p.Value)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *langvalue.Instance:
		return t.ClassName + "{}"
	default:
		return fmt.Sprintf("%v", t)
	}
}

package interp

import (
	"fmt"

	"github.com/algotrace/tracequery/pkg/execctx"
	"github.com/algotrace/tracequery/pkg/lang/ast"
	"github.com/algotrace/tracequery/pkg/langvalue"
	"github.com/algotrace/tracequery/pkg/tracemodel"
)

// evalTrackCall evaluates the wrapped call's arguments, opens a
// FunctionCall frame over the call-site argument dict (rule 4), invokes
// the callee, then records the per-parameter snapshots rule 5 calls for
// before closing the frame with the return value.
func (it *Interp) evalTrackCall(env *Env, n *ast.TrackCall) (langvalue.Value, error) {
	c := n.Inner
	positional := make([]langvalue.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := it.evalExpr(env, a)
		if err != nil {
			return nil, err
		}
		positional[i] = v
	}
	kwargs := langvalue.NewDict()
	kwNames := make([]string, len(c.Kwargs))
	kwValues := make([]langvalue.Value, len(c.Kwargs))
	for i, kw := range c.Kwargs {
		v, err := it.evalExpr(env, kw.Value)
		if err != nil {
			return nil, err
		}
		kwNames[i], kwValues[i] = kw.Name, v
		kwargs.Set(kw.Name, v)
	}

	callArgs := langvalue.NewDict()
	for i, v := range positional {
		callArgs.Set(fmt.Sprintf("_arg%d", i), langvalue.DeepCopy(v))
	}
	for i, name := range kwNames {
		callArgs.Set(name, langvalue.DeepCopy(kwValues[i]))
	}

	calleeName, recv, err := it.resolveCallee(env, c.Func)
	if err != nil {
		return nil, err
	}

	frame := it.ctx.BeginFunctionCall(n.Line, n.FuncName, n.FuncFullName, callArgs)
	closed := false
	defer func() {
		// A panic during body execution (e.g. a runtime type error promoted
		// to panic somewhere below) must still close the frame so the
		// execution stack stays balanced for whatever recovers it upstream.
		if r := recover(); r != nil {
			if !closed {
				it.ctx.EndFunctionCall(frame, nil, false)
			}
			panic(r)
		}
	}()

	retVal, err := it.invoke(frame, calleeName, recv, positional, kwargs, n.Line)
	closed = true
	return retVal, err
}

// resolveCallee figures out what's being called: a bound method (recv !=
// nil), a free function, a class constructor, or a builtin — all
// identified by name, since the language has no first-class function
// values beyond what's needed here.
func (it *Interp) resolveCallee(env *Env, fn ast.Expr) (name string, recv langvalue.Value, err error) {
	switch f := fn.(type) {
	case *ast.Ident:
		return f.Name, nil, nil
	case *ast.Attr:
		r, err := it.evalExpr(env, f.Value)
		if err != nil {
			return "", nil, err
		}
		return f.Name, r, nil
	default:
		return "<lambda_or_unknown>", nil, fmt.Errorf("line %d: unsupported call target", fn.Pos())
	}
}

// invoke dispatches a resolved callee to a class constructor, a bound
// method, a free function, or a builtin, in that priority order, and
// closes frame with the result via EndFunctionCall exactly once.
func (it *Interp) invoke(frame *execctx.Frame, name string, recv langvalue.Value, positional []langvalue.Value, kwargs *langvalue.Dict, line int) (langvalue.Value, error) {
	if recv == nil {
		if class, ok := it.classes[name]; ok {
			inst, err := it.instantiate(frame, class, positional, kwargs, line)
			it.ctx.EndFunctionCall(frame, inst, true)
			return inst, err
		}
		if fn, ok := it.functions[name]; ok {
			retVal, returned, err := it.runBody(frame, fn, positional, kwargs)
			it.ctx.EndFunctionCall(frame, retVal, returned)
			return retVal, err
		}
		v, err := it.callBuiltin(name, positional, line)
		it.ctx.EndFunctionCall(frame, v, err == nil)
		return v, err
	}

	inst, ok := recv.(*langvalue.Instance)
	if !ok {
		it.ctx.EndFunctionCall(frame, nil, false)
		return nil, fmt.Errorf("line %d: cannot call method %q on non-instance value", line, name)
	}
	method, ok := it.findMethod(inst.ClassName, name)
	if !ok {
		it.ctx.EndFunctionCall(frame, nil, false)
		return nil, fmt.Errorf("line %d: %q has no method %q", line, inst.ClassName, name)
	}
	retVal, returned, err := it.runBody(frame, method, append([]langvalue.Value{inst}, positional...), kwargs)
	it.ctx.EndFunctionCall(frame, retVal, returned)
	return retVal, err
}

// runBody binds fn's parameters in a fresh environment, records their
// per-parameter snapshots (rule 5), and executes the body. It does not
// open or close frame — the caller (invoke, or instantiate for "init")
// owns that, since a constructor's init call shares the constructor's own
// FunctionCall frame rather than opening a nested one.
func (it *Interp) runBody(frame *execctx.Frame, fn *ast.FuncDef, positional []langvalue.Value, kwargs *langvalue.Dict) (langvalue.Value, bool, error) {
	it.setFuncDefLine(frame, fn.Line)

	callEnv := newEnv(it.global)
	for i, p := range fn.Params {
		var v langvalue.Value
		switch {
		case i < len(positional):
			v = positional[i]
		default:
			if kv, ok := kwargs.Get(p.Name); ok {
				v = kv
			} else if p.Default != nil {
				dv, err := it.evalExpr(it.global, p.Default)
				if err != nil {
					return nil, false, err
				}
				v = dv
			}
		}
		callEnv.set(p.Name, v)
		it.ctx.RecordVariable(fn.Line, p.Name, p.Name, v)
	}

	return it.execBlock(callEnv, fn.Body)
}

func (it *Interp) instantiate(frame *execctx.Frame, class *ast.ClassDef, positional []langvalue.Value, kwargs *langvalue.Dict, line int) (langvalue.Value, error) {
	it.setFuncDefLine(frame, class.Line)
	inst := &langvalue.Instance{ClassName: class.Name, Fields: langvalue.NewDict()}
	if init, ok := it.findMethod(class.Name, "init"); ok {
		if _, _, err := it.runBody(frame, init, append([]langvalue.Value{inst}, positional...), kwargs); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (it *Interp) findMethod(className, methodName string) (*ast.FuncDef, bool) {
	class, ok := it.classes[className]
	if !ok {
		return nil, false
	}
	for _, m := range class.Methods {
		if m.Name == methodName {
			return m, true
		}
	}
	return nil, false
}

func (it *Interp) setFuncDefLine(frame *execctx.Frame, line int) {
	if fc, ok := frame.Row().(*tracemodel.FunctionCall); ok {
		fc.FuncDefLineNumber = line
	}
}

// callBuiltin implements the handful of builtins the traced language
// exposes without a user-visible definition: range/len/str.
func (it *Interp) callBuiltin(name string, args []langvalue.Value, line int) (langvalue.Value, error) {
	switch name {
	case "range":
		return builtinRange(args, line)
	case "len":
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: len() takes exactly one argument", line)
		}
		return builtinLen(args[0], line)
	case "str":
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: str() takes exactly one argument", line)
		}
		return stringify(args[0]), nil
	default:
		return nil, fmt.Errorf("line %d: undefined function %q", line, name)
	}
}

func builtinRange(args []langvalue.Value, line int) (langvalue.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	ints := make([]int64, len(args))
	for i, a := range args {
		v, ok := a.(int64)
		if !ok {
			return nil, fmt.Errorf("line %d: range() arguments must be integers", line)
		}
		ints[i] = v
	}
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	default:
		return nil, fmt.Errorf("line %d: range() takes 1 to 3 arguments", line)
	}
	if step == 0 {
		return nil, fmt.Errorf("line %d: range() step must not be zero", line)
	}
	var out []langvalue.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}

func builtinLen(v langvalue.Value, line int) (langvalue.Value, error) {
	switch t := v.(type) {
	case string:
		return int64(len([]rune(t))), nil
	case []langvalue.Value:
		return int64(len(t)), nil
	case *langvalue.Dict:
		return int64(t.Len()), nil
	default:
		return nil, fmt.Errorf("line %d: object of type %T has no len()", line, v)
	}
}

// evalCall handles a raw, un-instrumented *ast.Call (never produced by
// pkg/transform's own output, but kept so the interpreter stays usable
// directly against an untransformed tree in tests).
func (it *Interp) evalCall(env *Env, c *ast.Call) (langvalue.Value, error) {
	positional := make([]langvalue.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := it.evalExpr(env, a)
		if err != nil {
			return nil, err
		}
		positional[i] = v
	}
	kwargs := langvalue.NewDict()
	for _, kw := range c.Kwargs {
		v, err := it.evalExpr(env, kw.Value)
		if err != nil {
			return nil, err
		}
		kwargs.Set(kw.Name, v)
	}
	name, recv, err := it.resolveCallee(env, c.Func)
	if err != nil {
		return nil, err
	}
	callArgs := langvalue.NewDict()
	for i, v := range positional {
		callArgs.Set(fmt.Sprintf("_arg%d", i), v)
	}
	for p := kwargs.Oldest(); p != nil; p = p.Next() {
		callArgs.Set(p.Key, p.Value)
	}
	frame := it.ctx.BeginFunctionCall(c.Line, name, name, callArgs)
	return it.invoke(frame, name, recv, positional, kwargs, c.Line)
}

package colloml

import (
	"fmt"
	"strings"

	"github.com/collomatique/colloml/pkg/ast"
	"github.com/collomatique/colloml/pkg/linexpr"
)

// Evaluator runs function calls against a checked program, a live host
// environment and an external-variable resolver. Results are memoized in a
// session-scoped history; reified variable uses are recorded there too and
// resolved into VariableDefinitions when the session ends.
//
// Failures split in two: an *EvalError is bad input (an invalid host value,
// a division by zero), while a shape the type checker should have made
// impossible panics, because it signals a defect, not a user mistake.
type Evaluator struct {
	program   *Program
	env       Environment
	externals ExternalVarResolver
	history   *EvalHistory
}

// NewEvaluator starts an evaluation session. env may be nil when the
// program never enumerates host objects; externals and history default to a
// schema-backed resolver and a fresh history.
func NewEvaluator(program *Program, env Environment, externals ExternalVarResolver, history *EvalHistory) *Evaluator {
	if externals == nil {
		externals = SchemaExternalVars{Schema: program.Schema()}
	}
	if history == nil {
		history = NewEvalHistory()
	}
	return &Evaluator{program: program, env: env, externals: externals, history: history}
}

func (ev *Evaluator) History() *EvalHistory { return ev.history }

// Call evaluates a public function. Arguments are validated recursively
// against the program's type universe before anything runs.
func (ev *Evaluator) Call(module, function string, args []Value) (Value, Origin, error) {
	return ev.call(module, function, args, false)
}

func (ev *Evaluator) call(module, function string, args []Value, allowPrivate bool) (Value, Origin, error) {
	fn, ok := ev.program.Function(module, function)
	if !ok {
		return Value{}, Origin{}, evalErrorf(ast.Span{}, "unknown function %s::%s", module, function)
	}
	if !allowPrivate && !fn.Public {
		return Value{}, Origin{}, evalErrorf(fn.NameSpan, "function %s::%s is private", module, function)
	}
	if len(args) != len(fn.Params) {
		return Value{}, Origin{}, evalErrorf(fn.NameSpan, "%s::%s expects %d arguments, got %d", module, function, len(fn.Params), len(args))
	}
	for i, arg := range args {
		if err := arg.Validate(ev.program.env); err != nil {
			return Value{}, Origin{}, evalErrorf(fn.NameSpan, "argument %d of %s::%s: %s", i+1, module, function, err)
		}
		if !arg.FitsType(fn.Params[i]) {
			return Value{}, Origin{}, evalErrorf(fn.NameSpan, "argument %d of %s::%s: expected %s, got %s", i+1, module, function, fn.Params[i], arg)
		}
	}

	key := callKey(module, function, args)
	if rec, hit := ev.history.lookup(key); hit {
		return rec.value, rec.origin, nil
	}

	fr := &frames{module: module}
	frame := make(map[string]Value, len(args))
	for i, name := range fn.ParamNames {
		frame[name] = args[i]
	}
	fr.push(frame)
	result, err := ev.evalExpr(fr, fn.Body)
	if err != nil {
		return Value{}, Origin{}, err
	}
	// Docstring expressions may reference the parameters, so they render
	// before the call frame goes away.
	description, err := ev.renderDocstring(fr, fn.Docstring)
	fr.pop()
	if err != nil {
		return Value{}, Origin{}, err
	}

	origin := Origin{Module: module, Function: function, Args: args, Description: description}
	ev.history.record(key, result, origin)
	return result, origin, nil
}

func (ev *Evaluator) renderDocstring(fr *frames, lines []ast.DocstringLine) ([]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		var sb strings.Builder
		for _, part := range line {
			sb.WriteString(part.Prefix)
			if part.Expr != nil {
				v, err := ev.evalExpr(fr, part.Expr)
				if err != nil {
					return nil, err
				}
				sb.WriteString(v.StringVal)
			}
		}
		out = append(out, sb.String())
	}
	return out, nil
}

// frames is the lexical scope stack of one call.
type frames struct {
	module string
	stack  []map[string]Value
}

func (f *frames) push(frame map[string]Value) { f.stack = append(f.stack, frame) }

func (f *frames) pop() { f.stack = f.stack[:len(f.stack)-1] }

func (f *frames) lookup(name string) (Value, bool) {
	for i := len(f.stack) - 1; i >= 0; i-- {
		if v, ok := f.stack[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

func (ev *Evaluator) evalExpr(fr *frames, e ast.Expr) (Value, error) {
	switch n := e.(type) {
	case *ast.NoneLit:
		return NoneValue(), nil
	case *ast.IntLit:
		return IntValue(n.Value), nil
	case *ast.BoolLit:
		return BoolValue(n.Value), nil
	case *ast.StringLit:
		return StringValue(n.Value), nil

	case *ast.PathRef:
		return ev.evalPathRef(fr, n)
	case *ast.FieldPath:
		return ev.evalFieldPath(fr, n)
	case *ast.Call:
		return ev.evalCall(fr, n)
	case *ast.VarCall:
		return ev.evalVarCall(fr, n)

	case *ast.Binary:
		return ev.evalBinary(fr, n)
	case *ast.Unary:
		return ev.evalUnary(fr, n)

	case *ast.If:
		cond, err := ev.evalExpr(fr, n.Cond)
		if err != nil {
			return Value{}, err
		}
		if cond.BoolVal {
			return ev.evalExpr(fr, n.Then)
		}
		return ev.evalExpr(fr, n.Else)

	case *ast.LetIn:
		value, err := ev.evalExpr(fr, n.Value)
		if err != nil {
			return Value{}, err
		}
		fr.push(map[string]Value{n.Var.Name: value})
		defer fr.pop()
		return ev.evalExpr(fr, n.Body)

	case *ast.ListLit:
		items, err := ev.evalAll(fr, n.Elems)
		if err != nil {
			return Value{}, err
		}
		return ListValue(items...), nil
	case *ast.TupleLit:
		items, err := ev.evalAll(fr, n.Elems)
		if err != nil {
			return Value{}, err
		}
		return TupleValue(items...), nil
	case *ast.StructLit:
		fields := make([]FieldValue, 0, len(n.Fields))
		for _, f := range n.Fields {
			v, err := ev.evalExpr(fr, f.Value)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, FieldValue{Name: f.Name.Name, Value: v})
		}
		return StructValue(fields...), nil

	case *ast.Comprehension:
		var items []Value
		err := ev.evalBindings(fr, n.Bindings, func() error {
			if n.Where != nil {
				keep, err := ev.evalExpr(fr, n.Where)
				if err != nil {
					return err
				}
				if !keep.BoolVal {
					return nil
				}
			}
			v, err := ev.evalExpr(fr, n.Body)
			if err != nil {
				return err
			}
			items = append(items, v)
			return nil
		})
		if err != nil {
			return Value{}, err
		}
		return ListValue(items...), nil

	case *ast.Quantifier:
		return ev.evalQuantifier(fr, n)

	case *ast.GlobalList:
		return ev.evalGlobalList(fr, n)

	case *ast.Cardinality:
		coll, err := ev.evalExpr(fr, n.Collection)
		if err != nil {
			return Value{}, err
		}
		return IntValue(len(coll.Items)), nil

	case *ast.AsType:
		// Annotations are checked statically and cost nothing at runtime.
		return ev.evalExpr(fr, n.Expr)

	case *ast.StringCast:
		v, err := ev.evalExpr(fr, n.Expr)
		if err != nil {
			return Value{}, err
		}
		return StringValue(v.String()), nil

	default:
		panic("unknown expression node")
	}
}

func (ev *Evaluator) evalAll(fr *frames, exprs []ast.Expr) ([]Value, error) {
	items := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := ev.evalExpr(fr, e)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

// evalBindings runs the cartesian iteration of comprehension bindings,
// pushing one frame per binding level and calling inner at the deepest
// level.
func (ev *Evaluator) evalBindings(fr *frames, bindings []ast.CompBinding, inner func() error) error {
	if len(bindings) == 0 {
		return inner()
	}
	b := bindings[0]
	coll, err := ev.evalExpr(fr, b.Collection)
	if err != nil {
		return err
	}
	for _, item := range coll.Items {
		fr.push(map[string]Value{b.Var.Name: item})
		err := ev.evalBindings(fr, bindings[1:], inner)
		fr.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) evalPathRef(fr *frames, n *ast.PathRef) (Value, error) {
	resolved, err := ev.program.env.resolvePath(n.Path, fr.module, nil)
	if err != nil {
		if len(n.Path.Segments) == 1 {
			if v, ok := fr.lookup(n.Path.Segments[0].Name); ok {
				return v, nil
			}
		}
		panic(fmt.Sprintf("unresolvable path %q survived the checker", n.Path.String()))
	}
	if resolved.kind != resolvedType {
		panic(fmt.Sprintf("non-value path %q survived the checker", n.Path.String()))
	}
	t := resolved.simple
	if t.Kind == KindNone {
		return NoneValue(), nil
	}
	return CustomValue(t.Module, t.Name, t.Variant, NoneValue()), nil
}

func (ev *Evaluator) evalFieldPath(fr *frames, n *ast.FieldPath) (Value, error) {
	current, err := ev.evalExpr(fr, n.Object)
	if err != nil {
		return Value{}, err
	}
	for _, seg := range n.Segments {
		for current.Kind == ValCustom {
			current = *current.Inner
		}
		if seg.Field != "" {
			switch current.Kind {
			case ValObject:
				v, err := current.Obj.Field(seg.Field)
				if err != nil {
					return Value{}, evalErrorf(seg.Span, "reading field %q of %s: %s", seg.Field, current.Obj.TypeName(), err)
				}
				current = v
			case ValStruct:
				found := false
				for _, f := range current.Fields {
					if f.Name == seg.Field {
						current = f.Value
						found = true
						break
					}
				}
				if !found {
					panic(fmt.Sprintf("struct field %q survived the checker but is absent", seg.Field))
				}
			default:
				panic("field access on non-object value survived the checker")
			}
		} else {
			if current.Kind != ValTuple || seg.TupleIndex >= len(current.Items) {
				panic("tuple access survived the checker but does not fit the value")
			}
			current = current.Items[seg.TupleIndex]
		}
	}
	return current, nil
}

func (ev *Evaluator) evalCall(fr *frames, n *ast.Call) (Value, error) {
	resolved, err := ev.program.env.resolvePath(n.Path, fr.module, nil)
	if err != nil {
		panic(fmt.Sprintf("unresolvable call path %q survived the checker", n.Path.String()))
	}
	switch resolved.kind {
	case resolvedFunction:
		args, err := ev.evalAll(fr, n.Args)
		if err != nil {
			return Value{}, err
		}
		result, _, err := ev.call(resolved.fn.Module, resolved.fn.Name, args, true)
		return result, err
	case resolvedType:
		return ev.evalCast(fr, n, resolved.simple)
	default:
		panic(fmt.Sprintf("non-callable path %q survived the checker", n.Path.String()))
	}
}

func (ev *Evaluator) evalCast(fr *frames, n *ast.Call, target SimpleType) (Value, error) {
	if target.Kind == KindCustom {
		name := target.Name
		if target.Variant != "" {
			name += "::" + target.Variant
		}
		underlying, ok := ev.program.env.customUnderlying(target.Module, name)
		if !ok {
			panic(fmt.Sprintf("cast to unknown type %q survived the checker", name))
		}
		args, err := ev.evalAll(fr, n.Args)
		if err != nil {
			return Value{}, err
		}
		if underlying.IsNone() {
			return CustomValue(target.Module, target.Name, target.Variant, NoneValue()), nil
		}
		var payload Value
		if len(args) == 1 {
			payload = args[0]
			if !payload.FitsType(underlying) {
				concrete, isConcrete := underlying.AsConcrete()
				if !isConcrete {
					return Value{}, evalErrorf(n.Span, "value %s does not fit %s", payload, underlying)
				}
				payload, err = ev.convert(payload, concrete.Inner(), n.Span)
				if err != nil {
					return Value{}, err
				}
			}
		} else {
			payload = TupleValue(args...)
		}
		return CustomValue(target.Module, target.Name, target.Variant, payload), nil
	}

	arg, err := ev.evalExpr(fr, n.Args[0])
	if err != nil {
		return Value{}, err
	}
	return ev.convert(arg, target, n.Span)
}

// convert applies the runtime conversion rules: identity, anything to
// String, Int to LinExpr, elementwise lists, and one level of custom-type
// unwrapping.
func (ev *Evaluator) convert(v Value, target SimpleType, span ast.Span) (Value, error) {
	for v.Kind == ValCustom && !v.fitsSimple(target) {
		v = *v.Inner
	}
	switch target.Kind {
	case KindString:
		return StringValue(v.String()), nil
	case KindLinExpr:
		switch v.Kind {
		case ValInt:
			return LinExprValue(linexpr.Constant[IlpVar](v.IntVal)), nil
		case ValLinExpr:
			return v, nil
		}
	case KindList:
		if v.Kind == ValList {
			elemConcrete, ok := target.Elem.AsConcrete()
			if !ok {
				// A sum-typed element target admits no conversion beyond
				// identity.
				if v.fitsSimple(target) {
					return v, nil
				}
				return Value{}, evalErrorf(span, "value %s does not fit %s", v, target)
			}
			items := make([]Value, 0, len(v.Items))
			for _, item := range v.Items {
				converted, err := ev.convert(item, elemConcrete.Inner(), span)
				if err != nil {
					return Value{}, err
				}
				items = append(items, converted)
			}
			return ListValue(items...), nil
		}
	default:
		if v.fitsSimple(target) {
			return v, nil
		}
	}
	return Value{}, evalErrorf(span, "cannot convert %s to %s", v, target)
}

func (ev *Evaluator) evalVarCall(fr *frames, n *ast.VarCall) (Value, error) {
	external, desc, err := ev.program.env.resolveVariable(fr.module, n.Module, n.Name.Name, n.List)
	if err != nil {
		panic(fmt.Sprintf("unresolvable variable $%s survived the checker", n.Name.Name))
	}
	args, err := ev.evalAll(fr, n.Args)
	if err != nil {
		return Value{}, err
	}

	if external {
		v, err := ev.externals.ResolveVar(n.Name.Name, args)
		if err != nil {
			return Value{}, evalErrorf(n.Span, "%s", err)
		}
		return LinExprValue(linexpr.Var(v)), nil
	}

	// The defining call runs now so the definition lands in the history and,
	// for lists, so the list length is known. Calls always resolve against
	// the variable's declaring module, never the caller's.
	result, _, err := ev.call(desc.Target.Module, desc.Target.Name, args, true)
	if err != nil {
		return Value{}, err
	}
	ev.history.recordVarDef(desc, args)

	if !n.List {
		return LinExprValue(linexpr.Var(ReifiedVar(desc.Module, desc.Name, args))), nil
	}
	if result.Kind != ValList {
		panic(fmt.Sprintf("reified list $[%s] target returned a non-list", desc.Name))
	}
	items := make([]Value, len(result.Items))
	for i := range result.Items {
		items[i] = LinExprValue(linexpr.Var(ReifiedListVar(desc.Module, desc.Name, args, i)))
	}
	return ListValue(items...), nil
}

func (ev *Evaluator) evalQuantifier(fr *frames, n *ast.Quantifier) (Value, error) {
	coll, err := ev.evalExpr(fr, n.Collection)
	if err != nil {
		return Value{}, err
	}

	bodyType, _ := ev.program.TypeOfExpr(fr.module, n.Body.GetSpan())
	var acc Value
	started := false
	if n.Kind == ast.QuantForall {
		if bodyType.IsBool() {
			acc = BoolValue(true)
		} else {
			acc = ConstraintValue()
		}
		started = true
	} else {
		// A sum over nothing is the neutral element of the body's type.
		switch {
		case bodyType.IsString():
			acc = StringValue("")
		case bodyType.HasList():
			acc = ListValue()
		default:
			acc = IntValue(0)
		}
	}

	for _, item := range coll.Items {
		fr.push(map[string]Value{n.Var.Name: item})
		if n.Where != nil {
			keep, err := ev.evalExpr(fr, n.Where)
			if err != nil {
				fr.pop()
				return Value{}, err
			}
			if !keep.BoolVal {
				fr.pop()
				continue
			}
		}
		v, err := ev.evalExpr(fr, n.Body)
		fr.pop()
		if err != nil {
			return Value{}, err
		}

		if n.Kind == ast.QuantForall {
			if acc.Kind == ValBool {
				acc = BoolValue(acc.BoolVal && v.BoolVal)
			} else {
				acc = ConstraintValue(append(append([]LinConstraint{}, acc.Cons...), v.Cons...)...)
			}
			continue
		}
		if !started {
			acc, started = v, true
			continue
		}
		acc, err = addValues(acc, v, n.Span)
		if err != nil {
			return Value{}, err
		}
	}
	return acc, nil
}

func (ev *Evaluator) evalGlobalList(fr *frames, n *ast.GlobalList) (Value, error) {
	resolved, ok := ev.program.resolvedType(fr.module, n.Type.Span)
	if !ok {
		panic("global list type annotation was never resolved")
	}
	if ev.env == nil {
		return Value{}, evalErrorf(n.Span, "no host environment to enumerate @[%s]", resolved)
	}
	var items []Value
	for _, variant := range resolved.Variants() {
		objects, err := ev.env.ObjectsOf(variant.Name)
		if err != nil {
			return Value{}, evalErrorf(n.Span, "enumerating %s objects: %s", variant.Name, err)
		}
		for _, obj := range objects {
			if obj.TypeName() != variant.Name {
				return Value{}, evalErrorf(n.Span, "host returned a %q while enumerating %q objects", obj.TypeName(), variant.Name)
			}
			items = append(items, ObjectValue(obj))
		}
	}
	return ListValue(items...), nil
}

func (ev *Evaluator) evalUnary(fr *frames, n *ast.Unary) (Value, error) {
	v, err := ev.evalExpr(fr, n.Operand)
	if err != nil {
		return Value{}, err
	}
	if n.Op == ast.OpNot {
		return BoolValue(!v.BoolVal), nil
	}
	switch v.Kind {
	case ValInt:
		return IntValue(-v.IntVal), nil
	case ValLinExpr:
		return LinExprValue(v.Lin.Neg()), nil
	default:
		panic("negation of non-arithmetic value survived the checker")
	}
}

func (ev *Evaluator) evalBinary(fr *frames, n *ast.Binary) (Value, error) {
	// `and` over booleans short-circuits; everything else needs both sides.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		return ev.evalLogic(fr, n)
	}
	left, err := ev.evalExpr(fr, n.Left)
	if err != nil {
		return Value{}, err
	}
	right, err := ev.evalExpr(fr, n.Right)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case ast.OpAdd:
		return addValues(left, right, n.Span)
	case ast.OpSub:
		return subValues(left, right, n.Span)
	case ast.OpMul:
		switch {
		case left.Kind == ValInt && right.Kind == ValInt:
			return IntValue(left.IntVal * right.IntVal), nil
		case left.Kind == ValLinExpr && right.Kind == ValInt:
			return LinExprValue(left.Lin.Mul(right.IntVal)), nil
		case left.Kind == ValInt && right.Kind == ValLinExpr:
			return LinExprValue(right.Lin.Mul(left.IntVal)), nil
		default:
			panic("non-linear multiplication survived the checker")
		}
	case ast.OpDiv:
		if right.IntVal == 0 {
			return Value{}, evalErrorf(n.Span, "division by zero")
		}
		return IntValue(left.IntVal / right.IntVal), nil
	case ast.OpMod:
		if right.IntVal == 0 {
			return Value{}, evalErrorf(n.Span, "modulo by zero")
		}
		return IntValue(left.IntVal % right.IntVal), nil

	case ast.OpEq:
		return BoolValue(left.Equal(right)), nil
	case ast.OpNe:
		return BoolValue(!left.Equal(right)), nil
	case ast.OpLt:
		return BoolValue(left.IntVal < right.IntVal), nil
	case ast.OpLe:
		return BoolValue(left.IntVal <= right.IntVal), nil
	case ast.OpGt:
		return BoolValue(left.IntVal > right.IntVal), nil
	case ast.OpGe:
		return BoolValue(left.IntVal >= right.IntVal), nil
	case ast.OpIn:
		for _, item := range right.Items {
			if item.Equal(left) {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil

	case ast.OpConstraintEq, ast.OpConstraintLe, ast.OpConstraintGe:
		l := toLin(left)
		r := toLin(right)
		var c LinConstraint
		switch n.Op {
		case ast.OpConstraintEq:
			c = l.Eq(r)
		case ast.OpConstraintLe:
			c = l.Leq(r)
		default:
			c = l.Geq(r)
		}
		return ConstraintValue(c), nil

	case ast.OpUnion:
		out := append([]Value{}, left.Items...)
		for _, item := range right.Items {
			if !containsValue(out, item) {
				out = append(out, item)
			}
		}
		return ListValue(out...), nil
	case ast.OpInter:
		var out []Value
		for _, item := range left.Items {
			if containsValue(right.Items, item) && !containsValue(out, item) {
				out = append(out, item)
			}
		}
		return ListValue(out...), nil
	case ast.OpDiff:
		var out []Value
		for _, item := range left.Items {
			if !containsValue(right.Items, item) {
				out = append(out, item)
			}
		}
		return ListValue(out...), nil

	default:
		panic("unknown binary operator")
	}
}

func (ev *Evaluator) evalLogic(fr *frames, n *ast.Binary) (Value, error) {
	left, err := ev.evalExpr(fr, n.Left)
	if err != nil {
		return Value{}, err
	}
	if left.Kind == ValBool {
		if n.Op == ast.OpAnd && !left.BoolVal {
			return BoolValue(false), nil
		}
		if n.Op == ast.OpOr && left.BoolVal {
			return BoolValue(true), nil
		}
		right, err := ev.evalExpr(fr, n.Right)
		if err != nil {
			return Value{}, err
		}
		return right, nil
	}
	// Constraint conjunction merges the two constraint sets.
	right, err := ev.evalExpr(fr, n.Right)
	if err != nil {
		return Value{}, err
	}
	merged := append(append([]LinConstraint{}, left.Cons...), right.Cons...)
	return ConstraintValue(merged...), nil
}

func toLin(v Value) LinExpr {
	switch v.Kind {
	case ValInt:
		return linexpr.Constant[IlpVar](v.IntVal)
	case ValLinExpr:
		return v.Lin
	default:
		panic("non-linear operand survived the checker")
	}
}

func addValues(a, b Value, span ast.Span) (Value, error) {
	switch {
	case a.Kind == ValInt && b.Kind == ValInt:
		return IntValue(a.IntVal + b.IntVal), nil
	case (a.Kind == ValInt || a.Kind == ValLinExpr) && (b.Kind == ValInt || b.Kind == ValLinExpr):
		return LinExprValue(toLin(a).Add(toLin(b))), nil
	case a.Kind == ValString && b.Kind == ValString:
		return StringValue(a.StringVal + b.StringVal), nil
	case a.Kind == ValList && b.Kind == ValList:
		return ListValue(append(append([]Value{}, a.Items...), b.Items...)...), nil
	default:
		panic("invalid addition survived the checker")
	}
}

func subValues(a, b Value, span ast.Span) (Value, error) {
	switch {
	case a.Kind == ValInt && b.Kind == ValInt:
		return IntValue(a.IntVal - b.IntVal), nil
	case (a.Kind == ValInt || a.Kind == ValLinExpr) && (b.Kind == ValInt || b.Kind == ValLinExpr):
		return LinExprValue(toLin(a).Sub(toLin(b))), nil
	case a.Kind == ValList && b.Kind == ValList:
		var out []Value
		for _, item := range a.Items {
			if !containsValue(b.Items, item) {
				out = append(out, item)
			}
		}
		return ListValue(out...), nil
	default:
		panic("invalid subtraction survived the checker")
	}
}

func containsValue(items []Value, v Value) bool {
	for _, item := range items {
		if item.Equal(v) {
			return true
		}
	}
	return false
}

package colloml

import (
	"github.com/collomatique/colloml/pkg/ast"
)

func some(t ExprType) *ExprType { return &t }

// checkExpr infers the type of an expression, appending diagnostics to the
// environment. A nil result means the expression failed to check; the error
// has already been reported, so callers must not report it again.
func (c *checkEnv) checkExpr(e ast.Expr) *ExprType {
	t := c.checkExprInner(e)
	if t != nil {
		c.typeOf[e.GetSpan()] = *t
	}
	return t
}

func (c *checkEnv) checkExprInner(e ast.Expr) *ExprType {
	switch n := e.(type) {
	case *ast.NoneLit:
		return some(Simple(NoneType()))
	case *ast.IntLit:
		return some(Simple(IntType()))
	case *ast.BoolLit:
		return some(Simple(BoolType()))
	case *ast.StringLit:
		return some(Simple(StringType()))

	case *ast.PathRef:
		return c.checkPathRef(n)
	case *ast.FieldPath:
		return c.checkFieldPath(n)
	case *ast.Call:
		return c.checkCall(n)
	case *ast.VarCall:
		return c.checkVarCall(n)

	case *ast.Binary:
		return c.checkBinary(n)
	case *ast.Unary:
		return c.checkUnary(n)

	case *ast.If:
		return c.checkIf(n)
	case *ast.LetIn:
		return c.checkLetIn(n)

	case *ast.ListLit:
		return c.checkListLit(n)
	case *ast.TupleLit:
		return c.checkTupleLit(n)
	case *ast.StructLit:
		return c.checkStructLit(n)
	case *ast.Comprehension:
		return c.checkComprehension(n)
	case *ast.Quantifier:
		return c.checkQuantifier(n)

	case *ast.GlobalList:
		return c.checkGlobalList(n)
	case *ast.Cardinality:
		return c.checkCardinality(n)
	case *ast.AsType:
		return c.checkAsType(n)
	case *ast.StringCast:
		if c.checkExpr(n.Expr) == nil {
			return nil
		}
		return some(Simple(StringType()))
	default:
		panic("unknown expression node")
	}
}

func (c *checkEnv) checkPathRef(n *ast.PathRef) *ExprType {
	resolved, err := c.env.resolvePath(n.Path, c.module, c)
	if err != nil {
		c.errorf(n.Path.Span, "%s", err.Error())
		return nil
	}
	switch resolved.kind {
	case resolvedLocal:
		b, _ := c.lookup(resolved.local)
		b.used = true
		return some(b.typ)
	case resolvedFunction:
		c.errorf(n.Path.Span, "function %q must be called", n.Path.String())
		return nil
	case resolvedModule:
		c.errorf(n.Path.Span, "module %q cannot be used as a value", resolved.module)
		return nil
	case resolvedType:
		t := resolved.simple
		switch {
		case t.Kind == KindNone:
			return some(Simple(NoneType()))
		case t.Kind == KindCustom && t.Variant != "":
			underlying, ok := c.env.customUnderlying(t.Module, t.Name+"::"+t.Variant)
			if ok && underlying.IsNone() {
				return some(Simple(t))
			}
			c.errorf(n.Path.Span, "variant %q carries a payload and must be called", n.Path.String())
			return nil
		default:
			c.errorf(n.Path.Span, "type %s cannot be used as a value", t)
			return nil
		}
	}
	return nil
}

func (c *checkEnv) checkFieldPath(n *ast.FieldPath) *ExprType {
	currentPtr := c.checkExpr(n.Object)
	if currentPtr == nil {
		return nil
	}
	current := *currentPtr

	for _, seg := range n.Segments {
		leaves := c.env.resolveForAccess(current)
		if len(leaves) == 0 {
			c.errorf(seg.Span, "cannot access into value of type %s", current)
			return nil
		}
		var variants []SimpleType
		if seg.Field != "" {
			for _, leaf := range leaves {
				switch leaf.Kind {
				case KindObject:
					fieldType, ok := c.env.lookupField(leaf.Name, seg.Field)
					if !ok {
						c.errorf(seg.Span, "object type %q has no field %q", leaf.Name, seg.Field)
						return nil
					}
					variants = append(variants, fieldType.Variants()...)
				case KindStruct:
					found := false
					for _, f := range leaf.Fields {
						if f.Name == seg.Field {
							variants = append(variants, f.Type.Variants()...)
							found = true
							break
						}
					}
					if !found {
						c.errorf(seg.Span, "struct %s has no field %q", leaf, seg.Field)
						return nil
					}
				default:
					c.errorf(seg.Span, "cannot access field %q on value of type %s", seg.Field, current)
					return nil
				}
			}
		} else {
			for _, leaf := range leaves {
				if leaf.Kind != KindTuple {
					c.errorf(seg.Span, "cannot index into value of type %s", current)
					return nil
				}
				if seg.TupleIndex >= len(leaf.Elems) {
					c.errorf(seg.Span, "tuple index %d out of bounds for %s", seg.TupleIndex, leaf)
					return nil
				}
				variants = append(variants, leaf.Elems[seg.TupleIndex].Variants()...)
			}
		}
		next, ok := Sum(variants...)
		if !ok {
			c.errorf(seg.Span, "cannot access into value of type %s", current)
			return nil
		}
		current = next
	}
	return some(current)
}

func (c *checkEnv) checkCall(n *ast.Call) *ExprType {
	resolved, err := c.env.resolvePath(n.Path, c.module, c)
	if err != nil {
		c.errorf(n.Path.Span, "%s", err.Error())
		return nil
	}
	switch resolved.kind {
	case resolvedFunction:
		return c.checkFunctionCall(n, resolved.fn)
	case resolvedType:
		return c.checkCast(n, resolved.simple)
	case resolvedLocal:
		c.errorf(n.Path.Span, "%q is a local binding, not a function", n.Path.String())
		return nil
	case resolvedModule:
		c.errorf(n.Path.Span, "module %q is not a function", resolved.module)
		return nil
	}
	return nil
}

func (c *checkEnv) checkFunctionCall(n *ast.Call, key symKey) *ExprType {
	fn := c.env.functions[key]
	fn.used = true
	if len(n.Args) != len(fn.Params) {
		c.errorf(n.Span, "%q expects %d arguments, got %d", fn.Name, len(fn.Params), len(n.Args))
		return some(fn.Output)
	}
	for i, arg := range n.Args {
		argType := c.checkExpr(arg)
		if argType == nil {
			continue
		}
		if !argType.IsSubtypeOf(fn.Params[i]) {
			c.errorf(arg.GetSpan(), "argument %d of %q: expected %s, got %s", i+1, fn.Name, fn.Params[i], argType)
		}
	}
	return some(fn.Output)
}

// checkCast handles calls whose path resolves to a type: Int(x), MyType(x),
// Result::Ok(x).
func (c *checkEnv) checkCast(n *ast.Call, target SimpleType) *ExprType {
	switch target.Kind {
	case KindInt, KindBool, KindString, KindLinExpr, KindConstraint, KindNone, KindNever:
		if len(n.Args) != 1 {
			c.errorf(n.Span, "cast to %s expects 1 argument, got %d", target, len(n.Args))
			return some(Simple(target))
		}
		argType := c.checkExpr(n.Args[0])
		if argType != nil {
			concrete := ConcreteType{inner: target}
			if !argType.CanConvertTo(concrete) && !c.env.canConvertWithCustomTypes(*argType, concrete) {
				c.errorf(n.Args[0].GetSpan(), "cannot convert %s to %s", argType, target)
			}
		}
		return some(Simple(target))

	case KindCustom:
		name := target.Name
		if target.Variant != "" {
			name += "::" + target.Variant
		}
		underlying, ok := c.env.customUnderlying(target.Module, name)
		if !ok {
			c.errorf(n.Span, "unknown type %q", name)
			return nil
		}
		return c.checkCustomCast(n, target, underlying)

	default:
		c.errorf(n.Span, "cannot cast to %s", target)
		return nil
	}
}

func (c *checkEnv) checkCustomCast(n *ast.Call, target SimpleType, underlying ExprType) *ExprType {
	// Unit variants take no payload. A single explicit None is tolerated.
	if underlying.IsNone() {
		if len(n.Args) > 1 {
			c.errorf(n.Span, "%s takes no arguments, got %d", target, len(n.Args))
		} else if len(n.Args) == 1 {
			argType := c.checkExpr(n.Args[0])
			if argType != nil && !argType.IsNone() {
				c.errorf(n.Args[0].GetSpan(), "%s takes no payload, got %s", target, argType)
			}
		}
		return some(Simple(target))
	}

	// A tuple-backed type accepts its components spread as arguments.
	if tupleSimple, ok := underlying.AsSimple(); ok && tupleSimple.Kind == KindTuple && len(n.Args) == len(tupleSimple.Elems) && len(n.Args) > 1 {
		for i, arg := range n.Args {
			argType := c.checkExpr(arg)
			if argType == nil {
				continue
			}
			if !argType.IsSubtypeOf(tupleSimple.Elems[i]) {
				c.errorf(arg.GetSpan(), "component %d of %s: expected %s, got %s", i+1, target, tupleSimple.Elems[i], argType)
			}
		}
		return some(Simple(target))
	}

	if len(n.Args) != 1 {
		c.errorf(n.Span, "%s expects 1 argument, got %d", target, len(n.Args))
		return some(Simple(target))
	}
	argType := c.checkExpr(n.Args[0])
	if argType != nil {
		fits := argType.IsSubtypeOf(underlying)
		if !fits {
			if concrete, isConcrete := underlying.AsConcrete(); isConcrete {
				fits = argType.CanConvertTo(concrete) || c.env.canConvertWithCustomTypes(*argType, concrete)
			}
		}
		if !fits {
			c.errorf(n.Args[0].GetSpan(), "cannot convert %s to %s (underlying type %s)", argType, target, underlying)
		}
	}
	return some(Simple(target))
}

func (c *checkEnv) checkVarCall(n *ast.VarCall) *ExprType {
	external, desc, err := c.env.resolveVariable(c.module, n.Module, n.Name.Name, n.List)
	if err != nil {
		c.errorf(n.Span, "%s", err.Error())
		return nil
	}
	var params []ExprType
	display := "$" + variableDisplay(n.Name.Name, n.List)
	if external {
		params = c.env.schema.Externals[n.Name.Name]
	} else {
		desc.used = true
		params = desc.Params
	}
	if len(n.Args) != len(params) {
		c.errorf(n.Span, "%s expects %d arguments, got %d", display, len(params), len(n.Args))
	} else {
		for i, arg := range n.Args {
			argType := c.checkExpr(arg)
			if argType == nil {
				continue
			}
			if !argType.IsSubtypeOf(params[i]) {
				c.errorf(arg.GetSpan(), "argument %d of %s: expected %s, got %s", i+1, display, params[i], argType)
			}
		}
	}
	if n.List {
		return some(Simple(ListOf(Simple(LinExprType()))))
	}
	return some(Simple(LinExprType()))
}

var linExprTarget = ConcreteType{inner: SimpleType{Kind: KindLinExpr}}
var intTarget = ConcreteType{inner: SimpleType{Kind: KindInt}}

func (c *checkEnv) checkBinary(n *ast.Binary) *ExprType {
	switch n.Op {
	case ast.OpAdd:
		return c.checkAdd(n)
	case ast.OpSub:
		return c.checkSub(n)
	case ast.OpMul:
		return c.checkMul(n)
	case ast.OpDiv, ast.OpMod:
		return c.checkIntOp(n)
	case ast.OpConstraintEq, ast.OpConstraintLe, ast.OpConstraintGe:
		return c.checkConstraintOp(n)
	case ast.OpEq, ast.OpNe:
		return c.checkEquality(n)
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return c.checkComparison(n)
	case ast.OpIn:
		return c.checkMembership(n)
	case ast.OpAnd, ast.OpOr:
		return c.checkLogic(n)
	case ast.OpUnion, ast.OpInter, ast.OpDiff:
		return c.checkSetOp(n)
	default:
		panic("unknown binary operator")
	}
}

func (c *checkEnv) checkAdd(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left == nil || right == nil {
		if t := firstOf(left, right); t != nil {
			if t.IsArithmetic() || t.IsString() || t.HasList() {
				return t
			}
		}
		return nil
	}
	result, err := left.CrossCheck(*right, func(a, b SimpleType) (SimpleType, error) {
		switch {
		case a.Kind == KindInt && b.Kind == KindInt:
			return IntType(), nil
		case a.IsArithmetic() && b.IsArithmetic():
			return LinExprType(), nil
		case a.Kind == KindString && b.Kind == KindString:
			return StringType(), nil
		case a.Kind == KindEmptyList && b.Kind == KindEmptyList:
			return EmptyListType(), nil
		case a.Kind == KindEmptyList && b.Kind == KindList:
			return b, nil
		case a.Kind == KindList && b.Kind == KindEmptyList:
			return a, nil
		case a.Kind == KindList && b.Kind == KindList:
			return ListOf(a.Elem.Unify(*b.Elem)), nil
		default:
			return SimpleType{}, binOpError("addition requires Int, LinExpr, String or List operands", a, b)
		}
	})
	if err != nil {
		c.errorf(n.Span, "%s", err.Error())
		return nil
	}
	return some(result)
}

func (c *checkEnv) checkSub(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left == nil || right == nil {
		if t := firstOf(left, right); t != nil {
			if t.IsArithmetic() || t.HasList() {
				return t
			}
		}
		return nil
	}
	result, err := left.CrossCheck(*right, func(a, b SimpleType) (SimpleType, error) {
		switch {
		case a.Kind == KindInt && b.Kind == KindInt:
			return IntType(), nil
		case a.IsArithmetic() && b.IsArithmetic():
			return LinExprType(), nil
		case a.Kind == KindEmptyList:
			return SimpleType{}, binOpError("cannot remove elements from an empty list", a, b)
		case a.Kind == KindList && b.Kind == KindEmptyList:
			return SimpleType{}, binOpError("removing an empty list is a no-op", a, b)
		case a.Kind == KindList && b.Kind == KindList:
			if !a.Elem.Overlaps(*b.Elem) {
				return SimpleType{}, binOpError("element types must overlap in a list difference", a, b)
			}
			return a, nil
		default:
			return SimpleType{}, binOpError("subtraction requires Int, LinExpr or List operands", a, b)
		}
	})
	if err != nil {
		c.errorf(n.Span, "%s", err.Error())
		return nil
	}
	return some(result)
}

func (c *checkEnv) checkMul(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left == nil || right == nil {
		if t := firstOf(left, right); t != nil && t.IsArithmetic() {
			return t
		}
		return nil
	}
	result, err := left.CrossCheck(*right, func(a, b SimpleType) (SimpleType, error) {
		switch {
		case a.Kind == KindInt && b.Kind == KindInt:
			return IntType(), nil
		case a.Kind == KindLinExpr && b.Kind == KindLinExpr:
			return SimpleType{}, binOpError("cannot multiply two linear expressions", a, b)
		case a.IsArithmetic() && b.IsArithmetic():
			return LinExprType(), nil
		default:
			return SimpleType{}, binOpError("multiplication requires Int or LinExpr operands", a, b)
		}
	})
	if err != nil {
		c.errorf(n.Span, "%s", err.Error())
		return nil
	}
	return some(result)
}

// checkIntOp types integer division and modulo. Linear expressions are not
// allowed: dividing a decision variable is not a linear operation.
func (c *checkEnv) checkIntOp(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	leftOK := left != nil && left.IsInt()
	rightOK := right != nil && right.IsInt()
	if left != nil && !leftOK {
		c.errorf(n.Left.GetSpan(), "%s requires Int operands, got %s", n.Op, left)
	}
	if right != nil && !rightOK {
		c.errorf(n.Right.GetSpan(), "%s requires Int operands, got %s", n.Op, right)
	}
	if !leftOK && !rightOK {
		return nil
	}
	return some(Simple(IntType()))
}

// checkConstraintOp types ===, <== and >==. Both sides must convert to a
// linear expression; the result is always a Constraint so that later errors
// do not cascade.
func (c *checkEnv) checkConstraintOp(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left != nil && !left.CanConvertTo(linExprTarget) {
		c.errorf(n.Left.GetSpan(), "%s requires a linear expression, got %s", n.Op, left)
	}
	if right != nil && !right.CanConvertTo(linExprTarget) {
		c.errorf(n.Right.GetSpan(), "%s requires a linear expression, got %s", n.Op, right)
	}
	return some(Simple(ConstraintType()))
}

func (c *checkEnv) checkEquality(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left != nil && right != nil && !left.Overlaps(*right) {
		c.errorf(n.Span, "cannot compare unrelated types %s and %s", left, right)
	}
	return some(Simple(BoolType()))
}

func (c *checkEnv) checkComparison(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left != nil && !left.CanConvertTo(intTarget) {
		c.errorf(n.Left.GetSpan(), "%s requires Int operands, got %s", n.Op, left)
	}
	if right != nil && !right.CanConvertTo(intTarget) {
		c.errorf(n.Right.GetSpan(), "%s requires Int operands, got %s", n.Op, right)
	}
	return some(Simple(BoolType()))
}

func (c *checkEnv) checkMembership(n *ast.Binary) *ExprType {
	itemType := c.checkExpr(n.Left)
	collType := c.checkExpr(n.Right)
	if collType != nil {
		simple, _ := collType.AsSimple()
		switch {
		case !collType.IsList():
			c.errorf(n.Right.GetSpan(), "membership test requires a list, got %s", collType)
		case simple.Kind == KindList && itemType != nil:
			if !itemType.Overlaps(*simple.Elem) {
				c.errorf(n.Left.GetSpan(), "item type %s never occurs in %s", itemType, collType)
			}
		}
	}
	return some(Simple(BoolType()))
}

// checkLogic types `and` and `or`. Booleans combine freely; constraints may
// only be conjoined, since a disjunction of linear constraints has no linear
// encoding.
func (c *checkEnv) checkLogic(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left == nil || right == nil {
		if t := firstOf(left, right); t != nil && (t.IsBool() || t.IsConstraint()) {
			return t
		}
		return nil
	}
	switch {
	case left.IsBool() && right.IsBool():
		return some(Simple(BoolType()))
	case left.IsConstraint() && right.IsConstraint():
		if n.Op == ast.OpOr {
			c.errorf(n.Span, "constraints cannot be combined with `or`")
			return nil
		}
		return some(Simple(ConstraintType()))
	default:
		span := n.Left.GetSpan()
		offender := left
		if left.IsBool() || left.IsConstraint() {
			span = n.Right.GetSpan()
			offender = right
		}
		c.errorf(span, "%s requires Bool or Constraint operands, got %s", n.Op, offender)
		return nil
	}
}

func (c *checkEnv) checkSetOp(n *ast.Binary) *ExprType {
	left := c.checkExpr(n.Left)
	right := c.checkExpr(n.Right)
	if left == nil || right == nil {
		return nil
	}
	if !left.IsList() {
		c.errorf(n.Left.GetSpan(), "%s requires list operands, got %s", n.Op, left)
		return nil
	}
	if !right.IsList() {
		c.errorf(n.Right.GetSpan(), "%s requires list operands, got %s", n.Op, right)
		return nil
	}
	leftSimple, _ := left.AsSimple()
	rightSimple, _ := right.AsSimple()

	switch n.Op {
	case ast.OpUnion:
		switch {
		case leftSimple.Kind == KindEmptyList && rightSimple.Kind == KindEmptyList:
			return some(Simple(EmptyListType()))
		case leftSimple.Kind == KindEmptyList:
			return right
		case rightSimple.Kind == KindEmptyList:
			return left
		default:
			return some(Simple(ListOf(leftSimple.Elem.Unify(*rightSimple.Elem))))
		}
	case ast.OpInter:
		if leftSimple.Kind == KindEmptyList || rightSimple.Kind == KindEmptyList {
			return some(Simple(EmptyListType()))
		}
		if !leftSimple.Elem.Overlaps(*rightSimple.Elem) {
			c.errorf(n.Span, "element types %s and %s never overlap", leftSimple.Elem, rightSimple.Elem)
			return nil
		}
		return left
	default: // OpDiff
		if leftSimple.Kind == KindEmptyList {
			c.errorf(n.Left.GetSpan(), "cannot remove elements from an empty list")
			return nil
		}
		if rightSimple.Kind == KindEmptyList {
			c.errorf(n.Right.GetSpan(), "removing an empty list is a no-op")
			return nil
		}
		if !leftSimple.Elem.Overlaps(*rightSimple.Elem) {
			c.errorf(n.Span, "element types %s and %s never overlap", leftSimple.Elem, rightSimple.Elem)
			return nil
		}
		return left
	}
}

func (c *checkEnv) checkUnary(n *ast.Unary) *ExprType {
	operand := c.checkExpr(n.Operand)
	if operand == nil {
		return nil
	}
	if n.Op == ast.OpNeg {
		if !operand.IsArithmetic() {
			c.errorf(n.Operand.GetSpan(), "negation requires Int or LinExpr, got %s", operand)
			return nil
		}
		return operand
	}
	if !operand.IsBool() {
		c.errorf(n.Operand.GetSpan(), "`not` requires Bool, got %s", operand)
		return nil
	}
	return some(Simple(BoolType()))
}

func (c *checkEnv) checkIf(n *ast.If) *ExprType {
	cond := c.checkExpr(n.Cond)
	if cond != nil && !cond.IsBool() {
		c.errorf(n.Cond.GetSpan(), "if condition must be Bool, got %s", cond)
	}
	thenType := c.checkExpr(n.Then)
	elseType := c.checkExpr(n.Else)
	switch {
	case thenType != nil && elseType != nil:
		return some(thenType.Unify(*elseType))
	case thenType != nil:
		return thenType
	case elseType != nil:
		return elseType
	default:
		return nil
	}
}

func (c *checkEnv) checkLetIn(n *ast.LetIn) *ExprType {
	valueType := c.checkExpr(n.Value)
	warnSnakeCase(c, n.Var, "binding")

	registered := false
	if valueType != nil {
		registered = c.register(n.Var.Name, n.Var.Span, *valueType)
	}
	c.pushScope()
	bodyType := c.checkExpr(n.Body)
	c.popScope()

	if !registered {
		return nil
	}
	return bodyType
}

func (c *checkEnv) checkListLit(n *ast.ListLit) *ExprType {
	if len(n.Elems) == 0 {
		return some(Simple(EmptyListType()))
	}
	var elemType *ExprType
	ok := true
	for _, elem := range n.Elems {
		t := c.checkExpr(elem)
		if t == nil {
			ok = false
			continue
		}
		if elemType == nil {
			elemType = t
		} else {
			elemType = some(elemType.Unify(*t))
		}
	}
	if !ok || elemType == nil {
		return nil
	}
	return some(Simple(ListOf(*elemType)))
}

func (c *checkEnv) checkTupleTypes(elems []ast.Expr) ([]ExprType, bool) {
	types := make([]ExprType, 0, len(elems))
	ok := true
	for _, elem := range elems {
		t := c.checkExpr(elem)
		if t == nil {
			ok = false
			continue
		}
		types = append(types, *t)
	}
	return types, ok
}

func (c *checkEnv) checkTupleLit(n *ast.TupleLit) *ExprType {
	types, ok := c.checkTupleTypes(n.Elems)
	if !ok {
		return nil
	}
	return some(Simple(TupleOf(types...)))
}

func (c *checkEnv) checkStructLit(n *ast.StructLit) *ExprType {
	seen := make(map[string]ast.Span, len(n.Fields))
	fields := make([]FieldType, 0, len(n.Fields))
	ok := true
	for _, f := range n.Fields {
		if prev, dup := seen[f.Name.Name]; dup {
			c.errorf(f.Name.Span, "duplicate field %q (previous at %s)", f.Name.Name, prev)
			ok = false
			continue
		}
		seen[f.Name.Name] = f.Name.Span
		t := c.checkExpr(f.Value)
		if t == nil {
			ok = false
			continue
		}
		fields = append(fields, FieldType{Name: f.Name.Name, Type: *t})
	}
	if !ok {
		return nil
	}
	return some(Simple(StructOf(fields)))
}

// bindLoopVar types a quantifier or comprehension binding. The bound
// variable lands in the pending scope; the caller decides when to push.
func (c *checkEnv) bindLoopVar(varIdent ast.Ident, collection ast.Expr, construct string) bool {
	collType := c.checkExpr(collection)
	warnSnakeCase(c, varIdent, "binding")
	if collType == nil {
		return false
	}
	simple, isSimple := collType.AsSimple()
	if isSimple && simple.Kind == KindEmptyList {
		c.errorf(collection.GetSpan(), "%s collection element type is unknown, annotate it with `as`", construct)
		return false
	}
	if !collType.IsList() {
		c.errorf(collection.GetSpan(), "%s collection must be a list, got %s", construct, collType)
		return false
	}
	elem, _ := collType.InnerListType()
	return c.register(varIdent.Name, varIdent.Span, elem)
}

func (c *checkEnv) checkComprehension(n *ast.Comprehension) *ExprType {
	pushed := 0
	for _, binding := range n.Bindings {
		if !c.bindLoopVar(binding.Var, binding.Collection, "list comprehension") {
			for ; pushed > 0; pushed-- {
				c.discardScope()
			}
			c.pending = make(localScope)
			return nil
		}
		c.pushScope()
		pushed++
	}

	if n.Where != nil {
		whereType := c.checkExpr(n.Where)
		if whereType != nil && !whereType.IsBool() {
			c.errorf(n.Where.GetSpan(), "list comprehension filter must be Bool, got %s", whereType)
		}
	}
	bodyType := c.checkExpr(n.Body)
	for ; pushed > 0; pushed-- {
		c.popScope()
	}
	if bodyType == nil {
		return nil
	}
	return some(Simple(ListOf(*bodyType)))
}

func (c *checkEnv) checkQuantifier(n *ast.Quantifier) *ExprType {
	if !c.bindLoopVar(n.Var, n.Collection, n.Kind.String()) {
		c.pending = make(localScope)
		return nil
	}
	c.pushScope()
	if n.Where != nil {
		whereType := c.checkExpr(n.Where)
		if whereType != nil && !whereType.IsBool() {
			c.errorf(n.Where.GetSpan(), "%s filter must be Bool, got %s", n.Kind, whereType)
		}
	}
	bodyType := c.checkExpr(n.Body)
	c.popScope()
	if bodyType == nil {
		return nil
	}

	if n.Kind == ast.QuantForall {
		switch {
		case bodyType.IsConstraint():
			return some(Simple(ConstraintType()))
		case bodyType.IsBool():
			return some(Simple(BoolType()))
		default:
			c.errorf(n.Body.GetSpan(), "forall body must be Constraint or Bool, got %s", bodyType)
			return nil
		}
	}
	if bodyType.IsArithmetic() || bodyType.IsString() || bodyType.HasList() {
		return bodyType
	}
	c.errorf(n.Body.GetSpan(), "sum body must be Int, LinExpr, String or List, got %s", bodyType)
	return nil
}

func (c *checkEnv) checkGlobalList(n *ast.GlobalList) *ExprType {
	resolved, ok := c.env.resolveTypeName(n.Type, c)
	if !ok {
		return nil
	}
	for _, v := range resolved.Variants() {
		if v.Kind != KindObject {
			c.errorf(n.Type.Span, "global lists enumerate host objects, %s is not an object type", v)
			return nil
		}
	}
	return some(Simple(ListOf(resolved)))
}

func (c *checkEnv) checkCardinality(n *ast.Cardinality) *ExprType {
	collType := c.checkExpr(n.Collection)
	if collType != nil && !collType.IsList() {
		c.errorf(n.Collection.GetSpan(), "cardinality requires a list, got %s", collType)
	}
	return some(Simple(IntType()))
}

// checkAsType types the `as` annotation. It only widens: the inferred type
// must be a subtype of the annotation, which mainly serves to give empty
// lists a concrete element type.
func (c *checkEnv) checkAsType(n *ast.AsType) *ExprType {
	exprType := c.checkExpr(n.Expr)
	target, ok := c.env.resolveTypeName(n.Type, c)
	if !ok {
		return exprType
	}
	if exprType != nil && !exprType.IsSubtypeOf(target) {
		c.errorf(n.Expr.GetSpan(), "expression of type %s cannot be annotated as %s", exprType, target)
	}
	return some(target)
}

func firstOf(a, b *ExprType) *ExprType {
	if a != nil {
		return a
	}
	return b
}

type binaryOpTypeError struct {
	msg  string
	a, b SimpleType
}

func (e *binaryOpTypeError) Error() string {
	return e.msg + " (got " + e.a.String() + " and " + e.b.String() + ")"
}

func binOpError(msg string, a, b SimpleType) error {
	return &binaryOpTypeError{msg: msg, a: a, b: b}
}

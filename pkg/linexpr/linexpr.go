// Package linexpr provides integer linear expressions and the two-sided
// constraints built from them. Expressions are generic over the variable
// type so the same arithmetic serves both script-level and solver-level
// variables.
package linexpr

import (
	"fmt"
	"sort"
	"strings"
)

// Variable is implemented by anything usable as a variable inside a linear
// expression. Key returns a canonical encoding, unique per variable, which
// defines the deterministic ordering of terms.
type Variable interface {
	Key() string
	String() string
}

type term[V Variable] struct {
	v    V
	coef int
}

// Expr is a linear expression: a sum of integer-weighted variables plus a
// constant. The zero value is the expression 0. Operations return new
// expressions; an Expr is never mutated after construction.
type Expr[V Variable] struct {
	coefs    map[string]term[V]
	constant int
}

// Var returns the expression consisting of the single variable v.
func Var[V Variable](v V) Expr[V] {
	return Expr[V]{coefs: map[string]term[V]{v.Key(): {v: v, coef: 1}}}
}

// Constant returns the constant expression n.
func Constant[V Variable](n int) Expr[V] {
	return Expr[V]{constant: n}
}

func (e Expr[V]) clone() Expr[V] {
	out := Expr[V]{coefs: make(map[string]term[V], len(e.coefs)), constant: e.constant}
	for k, t := range e.coefs {
		out.coefs[k] = t
	}
	return out
}

// Constant returns the constant part of the expression.
func (e Expr[V]) Constant() int {
	return e.constant
}

// Coef returns the coefficient of v, or zero if v does not occur.
func (e Expr[V]) Coef(v V) int {
	return e.coefs[v.Key()].coef
}

// Variables returns the variables with non-zero coefficients, ordered by
// their canonical keys.
func (e Expr[V]) Variables() []V {
	keys := make([]string, 0, len(e.coefs))
	for k, t := range e.coefs {
		if t.coef != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	vars := make([]V, len(keys))
	for i, k := range keys {
		vars[i] = e.coefs[k].v
	}
	return vars
}

// Add returns e + rhs.
func (e Expr[V]) Add(rhs Expr[V]) Expr[V] {
	out := e.clone()
	out.constant += rhs.constant
	for k, t := range rhs.coefs {
		prev := out.coefs[k]
		out.coefs[k] = term[V]{v: t.v, coef: prev.coef + t.coef}
	}
	return out
}

// Sub returns e - rhs.
func (e Expr[V]) Sub(rhs Expr[V]) Expr[V] {
	return e.Add(rhs.Neg())
}

// Neg returns -e.
func (e Expr[V]) Neg() Expr[V] {
	return e.Mul(-1)
}

// Mul returns e scaled by the integer n.
func (e Expr[V]) Mul(n int) Expr[V] {
	out := Expr[V]{coefs: make(map[string]term[V], len(e.coefs)), constant: e.constant * n}
	for k, t := range e.coefs {
		out.coefs[k] = term[V]{v: t.v, coef: t.coef * n}
	}
	return out
}

// AddConst returns e + n.
func (e Expr[V]) AddConst(n int) Expr[V] {
	out := e.clone()
	out.constant += n
	return out
}

// Cleaned returns e with zero-coefficient terms removed.
func (e Expr[V]) Cleaned() Expr[V] {
	out := Expr[V]{coefs: make(map[string]term[V]), constant: e.constant}
	for k, t := range e.coefs {
		if t.coef != 0 {
			out.coefs[k] = t
		}
	}
	return out
}

// Eval computes the value of the expression under an assignment keyed by
// canonical variable keys. Unassigned variables count as zero.
func (e Expr[V]) Eval(values map[string]int) int {
	total := e.constant
	for k, t := range e.coefs {
		total += t.coef * values[k]
	}
	return total
}

// Key returns a canonical encoding of the expression: terms sorted by
// variable key, followed by the constant. Equal expressions have equal keys.
func (e Expr[V]) Key() string {
	var sb strings.Builder
	for _, v := range e.Variables() {
		fmt.Fprintf(&sb, "%+d*%s ", e.Coef(v), v.Key())
	}
	fmt.Fprintf(&sb, "%+d", e.constant)
	return sb.String()
}

func (e Expr[V]) String() string {
	var sb strings.Builder
	for i, v := range e.Variables() {
		coef := e.Coef(v)
		switch {
		case i == 0 && coef == 1:
			sb.WriteString(v.String())
		case i == 0:
			fmt.Fprintf(&sb, "%d*%s", coef, v.String())
		case coef == 1:
			fmt.Fprintf(&sb, " + %s", v.String())
		case coef == -1:
			fmt.Fprintf(&sb, " - %s", v.String())
		case coef < 0:
			fmt.Fprintf(&sb, " - %d*%s", -coef, v.String())
		default:
			fmt.Fprintf(&sb, " + %d*%s", coef, v.String())
		}
	}
	if sb.Len() == 0 {
		return fmt.Sprintf("%d", e.constant)
	}
	if e.constant > 0 {
		fmt.Fprintf(&sb, " + %d", e.constant)
	} else if e.constant < 0 {
		fmt.Fprintf(&sb, " - %d", -e.constant)
	}
	return sb.String()
}

// Sign discriminates the two normalized constraint forms.
type Sign int

const (
	// LessThan is `expr <= 0`.
	LessThan Sign = iota
	// Equals is `expr = 0`.
	Equals
)

func (s Sign) String() string {
	if s == Equals {
		return "="
	}
	return "<="
}

// Constraint is a linear constraint in normalized form: an expression
// compared against zero.
type Constraint[V Variable] struct {
	expr Expr[V]
	sign Sign
}

// Leq returns the constraint e <= rhs.
func (e Expr[V]) Leq(rhs Expr[V]) Constraint[V] {
	return Constraint[V]{expr: e.Sub(rhs), sign: LessThan}
}

// Geq returns the constraint e >= rhs.
func (e Expr[V]) Geq(rhs Expr[V]) Constraint[V] {
	return Constraint[V]{expr: rhs.Sub(e), sign: LessThan}
}

// Eq returns the constraint e = rhs.
func (e Expr[V]) Eq(rhs Expr[V]) Constraint[V] {
	return Constraint[V]{expr: e.Sub(rhs), sign: Equals}
}

// LHS returns the normalized left-hand side, compared against zero.
func (c Constraint[V]) LHS() Expr[V] {
	return c.expr
}

func (c Constraint[V]) Sign() Sign {
	return c.sign
}

func (c Constraint[V]) Variables() []V {
	return c.expr.Variables()
}

// Satisfied reports whether the constraint holds under an assignment keyed
// by canonical variable keys.
func (c Constraint[V]) Satisfied(values map[string]int) bool {
	lhs := c.expr.Eval(values)
	if c.sign == Equals {
		return lhs == 0
	}
	return lhs <= 0
}

// Key returns a canonical encoding of the constraint. Equal constraints
// have equal keys.
func (c Constraint[V]) Key() string {
	return c.expr.Key() + " " + c.sign.String() + " 0"
}

func (c Constraint[V]) String() string {
	return fmt.Sprintf("%s %s 0", c.expr.String(), c.sign)
}

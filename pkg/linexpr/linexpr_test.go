package linexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVar string

func (v testVar) Key() string    { return string(v) }
func (v testVar) String() string { return string(v) }

func TestExprArithmetic(t *testing.T) {
	a := Var(testVar("a"))
	b := Var(testVar("b"))

	t.Run("var and constant", func(t *testing.T) {
		assert.Equal(t, 1, a.Coef(testVar("a")))
		assert.Equal(t, 0, a.Coef(testVar("b")))
		assert.Equal(t, 5, Constant[testVar](5).Constant())
	})

	t.Run("add merges terms", func(t *testing.T) {
		e := a.Mul(2).Add(b).Add(a)
		assert.Equal(t, 3, e.Coef(testVar("a")))
		assert.Equal(t, 1, e.Coef(testVar("b")))
	})

	t.Run("sub cancels", func(t *testing.T) {
		e := a.Add(b).Sub(a)
		assert.Equal(t, 0, e.Coef(testVar("a")))
		assert.Equal(t, []testVar{"b"}, e.Variables())
	})

	t.Run("operations do not mutate", func(t *testing.T) {
		e := a.Add(b)
		_ = e.Add(a).Mul(10)
		assert.Equal(t, 1, e.Coef(testVar("a")))
	})

	t.Run("eval", func(t *testing.T) {
		e := a.Mul(2).Add(b.Mul(3)).AddConst(1)
		got := e.Eval(map[string]int{"a": 10, "b": 100})
		assert.Equal(t, 321, got)
	})

	t.Run("variables are ordered by key", func(t *testing.T) {
		e := Var(testVar("z")).Add(Var(testVar("a"))).Add(Var(testVar("m")))
		assert.Equal(t, []testVar{"a", "m", "z"}, e.Variables())
	})

	t.Run("string rendering", func(t *testing.T) {
		e := a.Mul(2).Sub(b).AddConst(-3)
		assert.Equal(t, "2*a - b - 3", e.String())
		assert.Equal(t, "0", Expr[testVar]{}.String())
	})

	t.Run("equal expressions share keys", func(t *testing.T) {
		x := a.Add(b).Mul(2)
		y := b.Mul(2).Add(a).Add(a)
		assert.Equal(t, x.Key(), y.Key())
	})
}

func TestConstraints(t *testing.T) {
	a := Var(testVar("a"))
	b := Var(testVar("b"))

	t.Run("leq normalizes to lhs minus rhs", func(t *testing.T) {
		c := a.Leq(b)
		assert.Equal(t, LessThan, c.Sign())
		assert.Equal(t, 1, c.LHS().Coef(testVar("a")))
		assert.Equal(t, -1, c.LHS().Coef(testVar("b")))
	})

	t.Run("geq flips sides", func(t *testing.T) {
		c := a.Geq(b)
		assert.Equal(t, LessThan, c.Sign())
		assert.Equal(t, -1, c.LHS().Coef(testVar("a")))
		assert.Equal(t, 1, c.LHS().Coef(testVar("b")))
	})

	t.Run("eq", func(t *testing.T) {
		c := a.Eq(Constant[testVar](3))
		assert.Equal(t, Equals, c.Sign())
		assert.True(t, c.Satisfied(map[string]int{"a": 3}))
		assert.False(t, c.Satisfied(map[string]int{"a": 4}))
	})

	t.Run("satisfied", func(t *testing.T) {
		c := a.Add(b).Leq(Constant[testVar](1))
		assert.True(t, c.Satisfied(map[string]int{"a": 1, "b": 0}))
		assert.True(t, c.Satisfied(map[string]int{}))
		assert.False(t, c.Satisfied(map[string]int{"a": 1, "b": 1}))
	})

	t.Run("canonical keys", func(t *testing.T) {
		c1 := a.Leq(b)
		c2 := a.Sub(b).Leq(Constant[testVar](0))
		require.Equal(t, c1.Key(), c2.Key())
	})
}

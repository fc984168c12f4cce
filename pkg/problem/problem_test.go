package problem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collomatique/colloml/pkg/colloml"
	"github.com/collomatique/colloml/pkg/linexpr"
	"github.com/collomatique/colloml/pkg/problem"
)

func baseExpr(name string) colloml.LinExpr {
	return linexpr.Var(colloml.BaseVar(name, nil))
}

func TestBuilder(t *testing.T) {
	t.Run("declaring twice is harmless", func(t *testing.T) {
		b := problem.NewBuilder()
		b.DeclareVar(colloml.BaseVar("x", nil))
		b.DeclareVar(colloml.BaseVar("x", nil))
		p, err := b.Build()
		require.NoError(t, err)
		assert.Len(t, p.Variables(), 1)
	})

	t.Run("undeclared variables fail the build", func(t *testing.T) {
		b := problem.NewBuilder()
		b.AddConstraint(baseExpr("x").Eq(linexpr.Constant[colloml.IlpVar](1)), colloml.Origin{})
		_, err := b.Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared variable")
	})

	t.Run("variables come out sorted", func(t *testing.T) {
		b := problem.NewBuilder()
		b.DeclareVar(colloml.BaseVar("y", nil))
		b.DeclareVar(colloml.BaseVar("x", nil))
		p, err := b.Build()
		require.NoError(t, err)
		vars := p.Variables()
		require.Len(t, vars, 2)
		assert.Equal(t, "x", vars[0].Name)
		assert.Equal(t, "y", vars[1].Name)
	})
}

func TestSolveBinary(t *testing.T) {
	t.Run("finds a satisfying assignment", func(t *testing.T) {
		b := problem.NewBuilder()
		b.DeclareVar(colloml.BaseVar("x", nil))
		b.DeclareVar(colloml.BaseVar("y", nil))
		b.AddConstraint(baseExpr("x").Eq(linexpr.Constant[colloml.IlpVar](1)), colloml.Origin{})
		b.AddConstraint(baseExpr("x").Add(baseExpr("y")).Leq(linexpr.Constant[colloml.IlpVar](1)), colloml.Origin{})
		p, err := b.Build()
		require.NoError(t, err)

		assignment, ok := p.SolveBinary(4)
		require.True(t, ok)
		assert.Equal(t, 1, assignment[colloml.BaseVar("x", nil).Key()])
		assert.Equal(t, 0, assignment[colloml.BaseVar("y", nil).Key()])
	})

	t.Run("reports unsatisfiable problems", func(t *testing.T) {
		b := problem.NewBuilder()
		b.DeclareVar(colloml.BaseVar("x", nil))
		b.AddConstraint(baseExpr("x").Eq(linexpr.Constant[colloml.IlpVar](0)), colloml.Origin{})
		b.AddConstraint(baseExpr("x").Eq(linexpr.Constant[colloml.IlpVar](1)), colloml.Origin{})
		p, err := b.Build()
		require.NoError(t, err)

		_, ok := p.SolveBinary(4)
		assert.False(t, ok)
	})
}

// Two modules may each reify a private function under the same variable
// name. The definitions must stay independent all the way into the solver.
func TestCrossModuleReifiedIndependence(t *testing.T) {
	schema := colloml.HostSchema{
		Externals: map[string][]colloml.ExprType{
			"x": nil,
			"y": nil,
		},
	}
	program, warnings, err := colloml.Compile([]colloml.Source{
		{Module: "a", Text: `
let pin() -> Constraint = $x() === 1;
reify pin as $Pin;
pub let apply() -> LinExpr = $Pin();
`},
		{Module: "b", Text: `
let pin() -> Constraint = $y() === 0;
reify pin as $Pin;
pub let apply() -> LinExpr = $Pin();
`},
	}, schema)
	require.NoError(t, err)
	require.Empty(t, warnings)

	ev := colloml.NewEvaluator(program, nil, nil, nil)
	_, _, err = ev.Call("a", "apply", nil)
	require.NoError(t, err)
	_, _, err = ev.Call("b", "apply", nil)
	require.NoError(t, err)

	defs := ev.History().IntoVariableDefinitions()
	require.Len(t, defs.Defs, 2)
	assert.NotEqual(t, defs.Defs[0].Var().Key(), defs.Defs[1].Var().Key())

	b := problem.NewBuilder()
	b.DeclareVar(colloml.BaseVar("x", nil))
	b.DeclareVar(colloml.BaseVar("y", nil))
	b.AddDefinitions(defs)
	p, err := b.Build()
	require.NoError(t, err)

	assignment, ok := p.SolveBinary(8)
	require.True(t, ok)
	assert.Equal(t, 1, assignment[colloml.BaseVar("x", nil).Key()])
	assert.Equal(t, 0, assignment[colloml.BaseVar("y", nil).Key()])
}

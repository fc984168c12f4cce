package colloml

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	typeName string
	key      string
	fields   map[string]Value
}

func (o testObject) TypeName() string { return o.typeName }
func (o testObject) Key() string      { return o.key }

func (o testObject) Field(name string) (Value, error) {
	v, ok := o.fields[name]
	if !ok {
		return Value{}, errors.Errorf("no field %q", name)
	}
	return v, nil
}

type testEnv map[string][]Object

func (e testEnv) ObjectsOf(typeName string) ([]Object, error) {
	return e[typeName], nil
}

func student(key string, age int) Object {
	return testObject{
		typeName: "Student",
		key:      key,
		fields: map[string]Value{
			"age":  IntValue(age),
			"name": StringValue(key),
		},
	}
}

func evalSingle(t *testing.T, schema HostSchema, env Environment, src string) *Evaluator {
	t.Helper()
	program, _ := compileSingle(t, schema, src)
	return NewEvaluator(program, env, nil, nil)
}

func TestEvalBasics(t *testing.T) {
	t.Run("if else branches", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(x: Int) -> Int = if x > 10 { 100 } else { 0 };
`)
		v, _, err := ev.Call("main", "f", []Value{IntValue(15)})
		require.NoError(t, err)
		assert.Equal(t, IntValue(100), v)

		v, _, err = ev.Call("main", "f", []Value{IntValue(5)})
		require.NoError(t, err)
		assert.Equal(t, IntValue(0), v)
	})

	t.Run("arithmetic", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(a: Int, b: Int) -> Int = (a + b) * 2 - a // b + a % b;
`)
		v, _, err := ev.Call("main", "f", []Value{IntValue(7), IntValue(3)})
		require.NoError(t, err)
		assert.Equal(t, IntValue((7+3)*2-7/3+7%3), v)
	})

	t.Run("division by zero", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(a: Int) -> Int = 1 // a;
`)
		_, _, err := ev.Call("main", "f", []Value{IntValue(0)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "division by zero")
	})

	t.Run("let binding and membership", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(x: Int) -> Bool = let candidates = [1, 2, 3] { x in candidates };
`)
		v, _, err := ev.Call("main", "f", []Value{IntValue(2)})
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), v)

		v, _, err = ev.Call("main", "f", []Value{IntValue(9)})
		require.NoError(t, err)
		assert.Equal(t, BoolValue(false), v)
	})

	t.Run("comprehension with filter", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f() -> [Int] = [n * n for n in [1, 2, 3, 4] where n % 2 == 0];
`)
		v, _, err := ev.Call("main", "f", nil)
		require.NoError(t, err)
		assert.Equal(t, ListValue(IntValue(4), IntValue(16)), v)
	})

	t.Run("sum quantifier", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f() -> Int = sum n in [1, 2, 3] { n * 10 };
`)
		v, _, err := ev.Call("main", "f", nil)
		require.NoError(t, err)
		assert.Equal(t, IntValue(60), v)
	})

	t.Run("forall over booleans", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(limit: Int) -> Bool = forall n in [1, 2, 3] { n < limit };
`)
		v, _, err := ev.Call("main", "f", []Value{IntValue(4)})
		require.NoError(t, err)
		assert.Equal(t, BoolValue(true), v)

		v, _, err = ev.Call("main", "f", []Value{IntValue(3)})
		require.NoError(t, err)
		assert.Equal(t, BoolValue(false), v)
	})

	t.Run("set operations", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f() -> [Int] = ([1, 2, 3] union [3, 4]) \ [2];
`)
		v, _, err := ev.Call("main", "f", nil)
		require.NoError(t, err)
		assert.Equal(t, ListValue(IntValue(1), IntValue(3), IntValue(4)), v)
	})

	t.Run("string cast", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(n: Int) -> String = "n = " + String(n);
`)
		v, _, err := ev.Call("main", "f", []Value{IntValue(42)})
		require.NoError(t, err)
		assert.Equal(t, StringValue("n = 42"), v)
	})
}

func TestEvalCallBoundary(t *testing.T) {
	t.Run("private function is rejected at the boundary", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
let secret() -> Int = 1;
pub let f() -> Int = secret();
`)
		_, _, err := ev.Call("main", "secret", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "private")

		// Internal calls through public entry points still reach it.
		v, _, err := ev.Call("main", "f", nil)
		require.NoError(t, err)
		assert.Equal(t, IntValue(1), v)
	})

	t.Run("argument count and type are checked", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(n: Int) -> Int = n;
`)
		_, _, err := ev.Call("main", "f", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expects 1 arguments")

		_, _, err = ev.Call("main", "f", []Value{BoolValue(true)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected Int")
	})

	t.Run("foreign values are rejected", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(n: Int) -> Int = n;
`)
		foreign := CustomValue("nowhere", "Ghost", "", IntValue(1))
		_, _, err := ev.Call("main", "f", []Value{foreign})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared type")
	})
}

func TestEvalMemoization(t *testing.T) {
	t.Run("identical calls evaluate once", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(n: Int) -> Int = n * 2;
`)
		_, _, err := ev.Call("main", "f", []Value{IntValue(3)})
		require.NoError(t, err)
		_, _, err = ev.Call("main", "f", []Value{IntValue(3)})
		require.NoError(t, err)
		assert.Equal(t, 1, ev.History().Calls())

		_, _, err = ev.Call("main", "f", []Value{IntValue(4)})
		require.NoError(t, err)
		assert.Equal(t, 2, ev.History().Calls())
	})

	t.Run("memoized origins are stable", func(t *testing.T) {
		ev := evalSingle(t, HostSchema{}, nil, `
pub let f(n: Int) -> Int = n;
`)
		_, o1, err := ev.Call("main", "f", []Value{IntValue(1)})
		require.NoError(t, err)
		_, o2, err := ev.Call("main", "f", []Value{IntValue(1)})
		require.NoError(t, err)
		assert.Equal(t, o1, o2)
	})
}

func TestEvalDocstrings(t *testing.T) {
	ev := evalSingle(t, HostSchema{}, nil, `
/// doubles `+"`n`"+` giving `+"`n * 2`"+`
pub let double(n: Int) -> Int = n * 2;
`)
	_, origin, err := ev.Call("main", "double", []Value{IntValue(21)})
	require.NoError(t, err)
	require.Len(t, origin.Description, 1)
	assert.Equal(t, " doubles 21 giving 42", origin.Description[0])
}

func TestEvalHostObjects(t *testing.T) {
	env := testEnv{"Student": {student("ada", 12), student("bob", 13)}}

	t.Run("global list and field access", func(t *testing.T) {
		ev := evalSingle(t, studentSchema(), env, `
pub let total_age() -> Int = sum s in @[Student] { s.age };
`)
		v, _, err := ev.Call("main", "total_age", nil)
		require.NoError(t, err)
		assert.Equal(t, IntValue(25), v)
	})

	t.Run("host type drift is detected", func(t *testing.T) {
		drifted := testEnv{"Student": {testObject{typeName: "Teacher", key: "t"}}}
		ev := evalSingle(t, studentSchema(), drifted, `
pub let all() -> [Student] = @[Student];
`)
		_, _, err := ev.Call("main", "all", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `host returned a "Teacher"`)
	})

	t.Run("objects pass through calls", func(t *testing.T) {
		ev := evalSingle(t, studentSchema(), env, `
let age_of(s: Student) -> Int = s.age;
pub let ages() -> [Int] = [age_of(s) for s in @[Student]];
`)
		v, _, err := ev.Call("main", "ages", nil)
		require.NoError(t, err)
		assert.Equal(t, ListValue(IntValue(12), IntValue(13)), v)
	})
}

func TestExternalVariables(t *testing.T) {
	t.Run("schema externals resolve to base variables", func(t *testing.T) {
		ev := evalSingle(t, studentSchema(), nil, `
pub let cap() -> Constraint = $y(7) <== 3;
`)
		v, _, err := ev.Call("main", "cap", nil)
		require.NoError(t, err)
		require.Equal(t, ValConstraint, v.Kind)
		require.Len(t, v.Cons, 1)

		vars := v.Cons[0].Variables()
		require.Len(t, vars, 1)
		assert.Equal(t, BaseVar("y", []Value{IntValue(7)}).Key(), vars[0].Key())
	})

	t.Run("argument mismatch is a runtime error", func(t *testing.T) {
		schema := HostSchema{Externals: map[string][]ExprType{"y": {Simple(IntType())}}}
		resolver := SchemaExternalVars{Schema: schema}
		_, err := resolver.ResolveVar("y", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expects 1 arguments")

		_, err = resolver.ResolveVar("y", []Value{StringValue("no")})
		require.Error(t, err)
	})
}

func TestEvalReification(t *testing.T) {
	t.Run("scalar reification records one definition per argument list", func(t *testing.T) {
		ev := evalSingle(t, studentSchema(), nil, `
let pin(n: Int) -> Constraint = $y(n) === 1;
reify pin as $Pin;
pub let use_pins() -> LinExpr = $Pin(1) + $Pin(2) + $Pin(1);
`)
		_, _, err := ev.Call("main", "use_pins", nil)
		require.NoError(t, err)

		defs := ev.History().IntoVariableDefinitions()
		require.Len(t, defs.Defs, 2)
		assert.Equal(t, "Pin", defs.Defs[0].Name)
		assert.Len(t, defs.Defs[0].Constraints, 1)
	})

	t.Run("list reification exposes one variable per constraint", func(t *testing.T) {
		ev := evalSingle(t, studentSchema(), nil, `
let pins() -> [Constraint] = [$x() === 1, $y(1) === 0, $y(2) === 1];
reify pins as $[Pins];
pub let count() -> Int = |$[Pins]()|;
`)
		v, _, err := ev.Call("main", "count", nil)
		require.NoError(t, err)
		assert.Equal(t, IntValue(3), v)

		defs := ev.History().IntoVariableDefinitions()
		require.Len(t, defs.Defs, 1)
		def := defs.Defs[0]
		assert.True(t, def.List)
		require.Len(t, def.ListConstraints, 3)
		assert.Len(t, def.ListVars(), 3)
	})

	t.Run("definitions resolve against the memo table", func(t *testing.T) {
		ev := evalSingle(t, studentSchema(), nil, `
let pin() -> Constraint = $x() === 1;
reify pin as $Pin;
pub let use_pin() -> LinExpr = $Pin();
`)
		_, _, err := ev.Call("main", "use_pin", nil)
		require.NoError(t, err)

		defs := ev.History().IntoVariableDefinitions()
		require.Len(t, defs.Defs, 1)
		origin := defs.Defs[0].Origin
		assert.Equal(t, "main", origin.Module)
		assert.Equal(t, "pin", origin.Function)
	})
}

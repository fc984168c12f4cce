package colloml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileModules(t *testing.T, schema HostSchema, sources ...Source) (*Program, []*Warning) {
	t.Helper()
	program, warnings, err := Compile(sources, schema)
	require.NoError(t, err)
	return program, warnings
}

func compileSingle(t *testing.T, schema HostSchema, src string) (*Program, []*Warning) {
	t.Helper()
	return compileModules(t, schema, Source{Module: "main", Text: src})
}

func compileError(t *testing.T, schema HostSchema, src string) error {
	t.Helper()
	_, _, err := Compile([]Source{{Module: "main", Text: src}}, schema)
	require.Error(t, err)
	return err
}

func hasWarning(warnings []*Warning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Msg, substr) {
			return true
		}
	}
	return false
}

func studentSchema() HostSchema {
	return HostSchema{
		Objects: map[string]ObjectSchema{
			"Student": {
				"age":  Simple(IntType()),
				"name": Simple(StringType()),
			},
		},
		Externals: map[string][]ExprType{
			"x": {},
			"y": {Simple(IntType())},
		},
	}
}

func TestCompileBasics(t *testing.T) {
	t.Run("empty module", func(t *testing.T) {
		program, warnings := compileSingle(t, HostSchema{}, "")
		assert.Equal(t, []string{"main"}, program.Modules())
		assert.Empty(t, warnings)
	})

	t.Run("simple function", func(t *testing.T) {
		program, _ := compileSingle(t, HostSchema{}, `
pub let double(n: Int) -> Int = n * 2;
`)
		fn, ok := program.Function("main", "double")
		require.True(t, ok)
		assert.True(t, fn.Public)
		assert.Equal(t, []string{"n"}, fn.ParamNames)
		assert.Equal(t, "Int", fn.Output.String())
	})

	t.Run("body must fit declared output", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> Bool = 3;
`)
		assert.Contains(t, err.Error(), "declared output")
	})

	t.Run("constraint function", func(t *testing.T) {
		program, warnings := compileSingle(t, studentSchema(), `
pub let pinned() -> Constraint = $x() === 1 and $y(3) <== 2;
`)
		require.NotNil(t, program)
		assert.Empty(t, warnings)
	})
}

func TestDeclarationOrder(t *testing.T) {
	t.Run("forward reference is rejected", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let first() -> Int = second();
let second() -> Int = 1;
`)
		assert.Contains(t, err.Error(), `unknown identifier "second"`)
	})

	t.Run("self recursion is rejected", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let loop_forever(n: Int) -> Int = loop_forever(n);
`)
		assert.Contains(t, err.Error(), `unknown identifier "loop_forever"`)
	})

	t.Run("backward reference works", func(t *testing.T) {
		compileSingle(t, HostSchema{}, `
let one() -> Int = 1;
pub let two() -> Int = one() + one();
`)
	})

	t.Run("duplicate declaration", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> Int = 1;
pub let f() -> Int = 2;
`)
		assert.Contains(t, err.Error(), "already declared")
	})
}

func TestScoping(t *testing.T) {
	t.Run("let binding shadows parameter with warning", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
pub let f(x: Int) -> Int = x + let x = 3 { x };
`)
		assert.True(t, hasWarning(warnings, "shadows an outer binding"))
	})

	t.Run("underscore prefix silences shadow warning", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
pub let f(_x: Int) -> Int = let _x = 3 { _x };
`)
		assert.False(t, hasWarning(warnings, "shadows"))
	})

	t.Run("binding shadowing a function is an error", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
let helper() -> Int = 1;
pub let f() -> Int = let helper = 2 { helper };
`)
		assert.Contains(t, err.Error(), "shadows a function")
	})

	t.Run("comprehension variable does not leak", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> [Int] = [y for y in [1, 2]] + [y];
`)
		assert.Contains(t, err.Error(), `unknown identifier "y"`)
	})

	t.Run("quantifier variable does not leak", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> Int = sum k in [1, 2] { k } + k;
`)
		assert.Contains(t, err.Error(), `unknown identifier "k"`)
	})

	t.Run("unused binding warns", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
pub let f() -> Int = let unused = 3 { 1 };
`)
		assert.True(t, hasWarning(warnings, `"unused" is never used`))
	})
}

func TestNamingConventions(t *testing.T) {
	t.Run("function names are snake_case", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
pub let BadName() -> Int = 1;
`)
		assert.True(t, hasWarning(warnings, "should be snake_case"))
	})

	t.Run("type names are PascalCase", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
pub type bad_name = Int;
`)
		assert.True(t, hasWarning(warnings, "should be PascalCase"))
	})
}

func TestTypeDeclarations(t *testing.T) {
	t.Run("alias and cast", func(t *testing.T) {
		compileSingle(t, HostSchema{}, `
type Score = Int;
pub let wrap(n: Int) -> Score = Score(n);
`)
	})

	t.Run("enum with payload and unit variants", func(t *testing.T) {
		compileSingle(t, HostSchema{}, `
pub enum Slot = Taken(Int) | Free;
pub let taken(n: Int) -> Slot = Slot::Taken(n);
pub let free() -> Slot = Slot::Free;
`)
	})

	t.Run("unit variant cannot take a payload", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
enum Slot = Taken(Int) | Free;
pub let f() -> Slot = Slot::Free(3);
`)
		assert.Contains(t, err.Error(), "takes no payload")
	})

	t.Run("builtin type name is reserved", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
type Int = Bool;
`)
		assert.Contains(t, err.Error(), "builtin type name")
	})

	t.Run("option marker", func(t *testing.T) {
		compileSingle(t, HostSchema{}, `
pub let pick(x: Int?) -> Int = if x == none { 0 } else { 1 };
`)
	})

	t.Run("overlapping sum alternatives are rejected", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f(x: Int | Int) -> Int = 1;
`)
		assert.Contains(t, err.Error(), "duplicate alternative")
	})
}

func TestImports(t *testing.T) {
	util := Source{Module: "util", Text: `
pub let one() -> Int = 1;
let hidden() -> Int = 2;
`}

	t.Run("alias import", func(t *testing.T) {
		compileModules(t, HostSchema{}, util, Source{Module: "main", Text: `
import "util" as u;
pub let two() -> Int = u::one() + 1;
`})
	})

	t.Run("wildcard import", func(t *testing.T) {
		compileModules(t, HostSchema{}, util, Source{Module: "main", Text: `
import "util" as *;
pub let two() -> Int = one() + 1;
`})
	})

	t.Run("private function is not visible", func(t *testing.T) {
		_, _, err := Compile([]Source{util, {Module: "main", Text: `
import "util" as u;
pub let f() -> Int = u::hidden();
`}}, HostSchema{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "private")
	})

	t.Run("import must precede use", func(t *testing.T) {
		_, _, err := Compile([]Source{util, {Module: "main", Text: `
pub let f() -> Int = u::one();
import "util" as u;
`}}, HostSchema{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown identifier "u"`)
	})

	t.Run("import cycle", func(t *testing.T) {
		_, _, err := Compile([]Source{
			{Module: "a", Text: `import "b" as b;`},
			{Module: "b", Text: `import "a" as a;`},
		}, HostSchema{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import cycle")
	})

	t.Run("unknown module", func(t *testing.T) {
		_, _, err := Compile([]Source{{Module: "main", Text: `import "nope" as n;`}}, HostSchema{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown module")
	})
}

func TestReify(t *testing.T) {
	t.Run("constraint function reifies", func(t *testing.T) {
		program, _ := compileSingle(t, studentSchema(), `
let pin() -> Constraint = $x() === 1;
reify pin as $Pin;
pub let use_pin() -> LinExpr = $Pin();
`)
		v, ok := program.Variable("main", "Pin")
		require.True(t, ok)
		assert.False(t, v.List)
	})

	t.Run("list reification needs a constraint list", func(t *testing.T) {
		compileSingle(t, studentSchema(), `
let pins() -> [Constraint] = [$x() === 1, $y(2) === 0];
reify pins as $[Pins];
pub let use_pins() -> [LinExpr] = $[Pins]();
`)
	})

	t.Run("non-constraint function cannot reify", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
let score() -> Int = 3;
reify score as $S;
`)
		assert.Contains(t, err.Error(), "requires a Constraint function")
	})

	t.Run("scalar reify rejects a constraint list", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
let pins() -> [Constraint] = [$x() === 1];
reify pins as $Pins;
`)
		assert.Contains(t, err.Error(), "requires a Constraint function")
	})

	t.Run("reified names are module local", func(t *testing.T) {
		a := Source{Module: "a", Text: `
let pin() -> Constraint = $x() === 1;
reify pin as $R;
pub let use_r() -> LinExpr = $R();
`}
		b := Source{Module: "b", Text: `
let pin() -> Constraint = $y(1) === 0;
reify pin as $R;
pub let use_r() -> LinExpr = $R();
`}
		program, _ := compileModules(t, studentSchema(), a, b)
		va, ok := program.Variable("a", "R")
		require.True(t, ok)
		vb, ok := program.Variable("b", "R")
		require.True(t, ok)
		assert.NotEqual(t, va.Target, vb.Target)
	})

	t.Run("private reified variable is not visible elsewhere", func(t *testing.T) {
		a := Source{Module: "a", Text: `
let pin() -> Constraint = $x() === 1;
reify pin as $R;
pub let use_r() -> LinExpr = $R();
`}
		_, _, err := Compile([]Source{a, {Module: "main", Text: `
import "a" as a;
pub let f() -> LinExpr = a::$R();
`}}, studentSchema())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "private")
	})
}

func TestExpressionTyping(t *testing.T) {
	t.Run("division needs integers", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
pub let f() -> Int = $x() // 2;
`)
		assert.Contains(t, err.Error(), "requires Int operands")
	})

	t.Run("two linear expressions cannot multiply", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
pub let f() -> LinExpr = $x() * $x();
`)
		assert.Contains(t, err.Error(), "cannot multiply two linear expressions")
	})

	t.Run("constraints cannot be disjoined", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
pub let f() -> Constraint = ($x() === 1) or ($y(1) === 0);
`)
		assert.Contains(t, err.Error(), "cannot be combined with `or`")
	})

	t.Run("constraints conjoin", func(t *testing.T) {
		compileSingle(t, studentSchema(), `
pub let f() -> Constraint = ($x() === 1) and ($y(1) === 0);
`)
	})

	t.Run("equality needs overlapping types", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> Bool = 1 == "one";
`)
		assert.Contains(t, err.Error(), "cannot compare unrelated types")
	})

	t.Run("empty list needs an annotation in a quantifier", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> Int = sum v in [] { v };
`)
		assert.Contains(t, err.Error(), "annotate it with `as`")
	})

	t.Run("annotated empty list works", func(t *testing.T) {
		compileSingle(t, HostSchema{}, `
pub let f() -> Int = sum v in [] as [Int] { v };
`)
	})

	t.Run("global list needs an object type", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
pub let f() -> [Int] = @[Int];
`)
		assert.Contains(t, err.Error(), "not an object type")
	})

	t.Run("global list over objects", func(t *testing.T) {
		compileSingle(t, studentSchema(), `
pub let ages() -> [Int] = [s.age for s in @[Student]];
`)
	})

	t.Run("unknown object field", func(t *testing.T) {
		err := compileError(t, studentSchema(), `
pub let f() -> [Int] = [s.height for s in @[Student]];
`)
		assert.Contains(t, err.Error(), `no field "height"`)
	})

	t.Run("membership is boolean", func(t *testing.T) {
		compileSingle(t, HostSchema{}, `
pub let has(x: Int) -> Bool = x in [1, 2, 3];
`)
	})

	t.Run("membership item must overlap element type", func(t *testing.T) {
		err := compileError(t, HostSchema{}, `
pub let f() -> Bool = "a" in [1, 2];
`)
		assert.Contains(t, err.Error(), "never occurs in")
	})
}

func TestUnusedDeclarations(t *testing.T) {
	t.Run("private unused function warns", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
let helper() -> Int = 1;
pub let f() -> Int = 2;
`)
		assert.True(t, hasWarning(warnings, `function "helper" is never used`))
	})

	t.Run("public functions are exempt", func(t *testing.T) {
		_, warnings := compileSingle(t, HostSchema{}, `
pub let f() -> Int = 1;
`)
		assert.False(t, hasWarning(warnings, "never used"))
	})
}

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collomatique/colloml/pkg/ast"
)

func TestParseStatements(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		file, err := Parse("")
		require.NoError(t, err)
		assert.Empty(t, file.Statements)
	})

	t.Run("let statement", func(t *testing.T) {
		file, err := Parse("let f(x: Int) -> Int = x + 1;")
		require.NoError(t, err)
		require.Len(t, file.Statements, 1)
		let, ok := file.Statements[0].(*ast.LetStmt)
		require.True(t, ok)
		assert.Equal(t, "f", let.Name.Name)
		assert.False(t, let.Public)
		require.Len(t, let.Params, 1)
		assert.Equal(t, "x", let.Params[0].Name.Name)
		assert.Equal(t, "Int", let.Output.String())
	})

	t.Run("pub let", func(t *testing.T) {
		file, err := Parse("pub let f() -> Constraint = $V(1) === 1;")
		require.NoError(t, err)
		let := file.Statements[0].(*ast.LetStmt)
		assert.True(t, let.Public)
	})

	t.Run("reify statement", func(t *testing.T) {
		file, err := Parse("reify my_constraint as $MyVar;")
		require.NoError(t, err)
		reify := file.Statements[0].(*ast.ReifyStmt)
		assert.Equal(t, "my_constraint", reify.Target.String())
		assert.Equal(t, "MyVar", reify.Name.Name)
		assert.False(t, reify.List)
	})

	t.Run("reify list statement", func(t *testing.T) {
		file, err := Parse("pub reify all_rules as $[Rules];")
		require.NoError(t, err)
		reify := file.Statements[0].(*ast.ReifyStmt)
		assert.True(t, reify.Public)
		assert.True(t, reify.List)
		assert.Equal(t, "Rules", reify.Name.Name)
	})

	t.Run("type declaration", func(t *testing.T) {
		file, err := Parse("type Score = Int;")
		require.NoError(t, err)
		decl := file.Statements[0].(*ast.TypeDeclStmt)
		assert.Equal(t, "Score", decl.Name.Name)
		assert.Equal(t, "Int", decl.Underlying.String())
	})

	t.Run("enum declaration", func(t *testing.T) {
		file, err := Parse("pub enum Result = Ok(Int) | Err(String) | Unknown;")
		require.NoError(t, err)
		decl := file.Statements[0].(*ast.EnumDeclStmt)
		require.Len(t, decl.Variants, 3)
		assert.Equal(t, "Ok", decl.Variants[0].Name.Name)
		require.NotNil(t, decl.Variants[0].Payload)
		assert.Equal(t, "Int", decl.Variants[0].Payload.String())
		assert.Nil(t, decl.Variants[2].Payload)
	})

	t.Run("import with alias", func(t *testing.T) {
		file, err := Parse(`import "rules" as r;`)
		require.NoError(t, err)
		imp := file.Statements[0].(*ast.ImportStmt)
		assert.Equal(t, "rules", imp.Module.Name)
		require.NotNil(t, imp.Alias)
		assert.Equal(t, "r", imp.Alias.Name)
		assert.False(t, imp.Wildcard)
	})

	t.Run("wildcard import", func(t *testing.T) {
		file, err := Parse(`import "rules" as *;`)
		require.NoError(t, err)
		imp := file.Statements[0].(*ast.ImportStmt)
		assert.True(t, imp.Wildcard)
		assert.Nil(t, imp.Alias)
	})

	t.Run("incomplete let rejected", func(t *testing.T) {
		_, err := Parse("let a() -> LinExpr = 5;\nlet b() -> LinExpr =")
		require.Error(t, err)
	})

	t.Run("recovery reports multiple errors", func(t *testing.T) {
		_, err := Parse("let = 1;\nlet b() -> Int = ;\nlet c() -> Int = 3;")
		require.Error(t, err)
		merr := err.(interface{ WrappedErrors() []error })
		assert.GreaterOrEqual(t, len(merr.WrappedErrors()), 2)
	})
}

func TestParseComments(t *testing.T) {
	t.Run("line comments at line start", func(t *testing.T) {
		file, err := Parse("// comment\n// another comment\n// more comments")
		require.NoError(t, err)
		assert.Empty(t, file.Statements)
	})

	t.Run("block comments anywhere", func(t *testing.T) {
		file, err := Parse("/* before */ let f() -> Int = /* mid */ 5; /* after\nlines */")
		require.NoError(t, err)
		assert.Len(t, file.Statements, 1)
	})

	t.Run("double slash mid-expression is division", func(t *testing.T) {
		expr, err := ParseExpr("10 // 3")
		require.NoError(t, err)
		bin := expr.(*ast.Binary)
		assert.Equal(t, ast.OpDiv, bin.Op)
	})

	t.Run("dangling division rejected", func(t *testing.T) {
		_, err := ParseExpr("10 //")
		require.Error(t, err)
	})

	t.Run("trailing comments after statements", func(t *testing.T) {
		file, err := Parse(`
// This is a regular comment
let a() -> LinExpr = 5;

// Another comment
let b() -> LinExpr = 10; // trailing comment

// Comment before reify
reify constraint as $Var; // trailing comment
`)
		require.NoError(t, err)
		assert.Len(t, file.Statements, 3)
	})

	t.Run("comment after opening delimiter", func(t *testing.T) {
		file, err := Parse("let f() -> Int = // the answer\n  42;")
		require.NoError(t, err)
		assert.Len(t, file.Statements, 1)
	})

	t.Run("division straddling a newline is still division", func(t *testing.T) {
		expr, err := ParseExpr("10 //\n3")
		require.NoError(t, err)
		bin := expr.(*ast.Binary)
		assert.Equal(t, ast.OpDiv, bin.Op)
	})
}

func TestParseExpressions(t *testing.T) {
	parse := func(t *testing.T, src string) ast.Expr {
		t.Helper()
		expr, err := ParseExpr(src)
		require.NoError(t, err, "parse %q", src)
		return expr
	}

	t.Run("precedence of arithmetic", func(t *testing.T) {
		expr := parse(t, "1 + 2 * 3")
		bin := expr.(*ast.Binary)
		assert.Equal(t, ast.OpAdd, bin.Op)
		right := bin.Right.(*ast.Binary)
		assert.Equal(t, ast.OpMul, right.Op)
	})

	t.Run("comparison does not chain", func(t *testing.T) {
		_, err := ParseExpr("1 < 2 < 3")
		require.Error(t, err)
	})

	t.Run("constraint operators", func(t *testing.T) {
		for src, op := range map[string]ast.BinaryOp{
			"$V(x) === 1":        ast.OpConstraintEq,
			"$V(x) <== 10":       ast.OpConstraintLe,
			"$V(x) + $W(y) >== 2": ast.OpConstraintGe,
		} {
			bin := parse(t, src).(*ast.Binary)
			assert.Equal(t, op, bin.Op, src)
		}
	})

	t.Run("boolean operators", func(t *testing.T) {
		expr := parse(t, "a and b or not c")
		or := expr.(*ast.Binary)
		assert.Equal(t, ast.OpOr, or.Op)
		and := or.Left.(*ast.Binary)
		assert.Equal(t, ast.OpAnd, and.Op)
		not := or.Right.(*ast.Unary)
		assert.Equal(t, ast.OpNot, not.Op)
	})

	t.Run("if with mandatory else", func(t *testing.T) {
		expr := parse(t, "if x > 10 { 100 } else { 0 }")
		ifx := expr.(*ast.If)
		assert.NotNil(t, ifx.Cond)
		assert.NotNil(t, ifx.Then)
		assert.NotNil(t, ifx.Else)

		_, err := ParseExpr("if x > 10 { 100 }")
		require.Error(t, err)
	})

	t.Run("else if chains", func(t *testing.T) {
		expr := parse(t, "if a { 1 } else if b { 2 } else { 3 }")
		outer := expr.(*ast.If)
		_, ok := outer.Else.(*ast.If)
		assert.True(t, ok)
	})

	t.Run("let expression", func(t *testing.T) {
		expr := parse(t, "let n = 10 { n * 2 }")
		let := expr.(*ast.LetIn)
		assert.Equal(t, "n", let.Var.Name)
	})

	t.Run("membership", func(t *testing.T) {
		expr := parse(t, "x in list")
		bin := expr.(*ast.Binary)
		assert.Equal(t, ast.OpIn, bin.Op)
	})

	t.Run("field paths", func(t *testing.T) {
		expr := parse(t, "student.group.name")
		fp := expr.(*ast.FieldPath)
		require.Len(t, fp.Segments, 2)
		assert.Equal(t, "group", fp.Segments[0].Field)
		assert.Equal(t, "name", fp.Segments[1].Field)
	})

	t.Run("tuple index access", func(t *testing.T) {
		expr := parse(t, "pair.0")
		fp := expr.(*ast.FieldPath)
		require.Len(t, fp.Segments, 1)
		assert.Equal(t, "", fp.Segments[0].Field)
		assert.Equal(t, 0, fp.Segments[0].TupleIndex)
	})

	t.Run("calls and casts", func(t *testing.T) {
		call := parse(t, "mod::f(x, 1 + 2)").(*ast.Call)
		assert.Equal(t, "mod::f", call.Path.String())
		assert.Len(t, call.Args, 2)

		cast := parse(t, "Int(flag)").(*ast.Call)
		assert.Equal(t, "Int", cast.Path.String())
	})

	t.Run("variable calls", func(t *testing.T) {
		vc := parse(t, "$Assigned(s, w)").(*ast.VarCall)
		assert.Nil(t, vc.Module)
		assert.Equal(t, "Assigned", vc.Name.Name)
		assert.False(t, vc.List)
		assert.Len(t, vc.Args, 2)

		qual := parse(t, "mod::$[VarList](x)").(*ast.VarCall)
		require.NotNil(t, qual.Module)
		assert.Equal(t, "mod", qual.Module.Name)
		assert.True(t, qual.List)
	})

	t.Run("global lists", func(t *testing.T) {
		gl := parse(t, "@[Student]").(*ast.GlobalList)
		assert.Equal(t, "Student", gl.Type.String())

		_, err := ParseExpr("@Student")
		require.Error(t, err)
		_, err = ParseExpr("@[[Student]]")
		require.Error(t, err)
	})

	t.Run("set operations", func(t *testing.T) {
		expr := parse(t, "@[Student] union @[Teacher] inter active")
		bin := expr.(*ast.Binary)
		assert.Equal(t, ast.OpInter, bin.Op)

		diff := parse(t, "@[Subject] \\ pairing").(*ast.Binary)
		assert.Equal(t, ast.OpDiff, diff.Op)
	})

	t.Run("difference does not chain", func(t *testing.T) {
		_, err := ParseExpr("@[Subject] \\ pairing1 \\ pairing2")
		require.Error(t, err)

		_, err = ParseExpr("(@[Subject] \\ pairing1) \\ pairing2")
		require.NoError(t, err)
	})

	t.Run("cardinality", func(t *testing.T) {
		card := parse(t, "|@[Student] \\ excluded|").(*ast.Cardinality)
		bin := card.Collection.(*ast.Binary)
		assert.Equal(t, ast.OpDiff, bin.Op)

		sum := parse(t, "|collection| + $V(x)").(*ast.Binary)
		assert.Equal(t, ast.OpAdd, sum.Op)
	})

	t.Run("list literals", func(t *testing.T) {
		list := parse(t, "[1, 2, 3]").(*ast.ListLit)
		assert.Len(t, list.Elems, 3)

		empty := parse(t, "[]").(*ast.ListLit)
		assert.Empty(t, empty.Elems)

		trailing := parse(t, "[1, 2,]").(*ast.ListLit)
		assert.Len(t, trailing.Elems, 2)
	})

	t.Run("comprehensions", func(t *testing.T) {
		comp := parse(t, "[s.age for s in @[Student] where s.is_active]").(*ast.Comprehension)
		require.Len(t, comp.Bindings, 1)
		assert.Equal(t, "s", comp.Bindings[0].Var.Name)
		assert.NotNil(t, comp.Where)

		multi := parse(t, "[(x, y) for x in xs, y in ys]").(*ast.Comprehension)
		require.Len(t, multi.Bindings, 2)
		assert.Nil(t, multi.Where)
	})

	t.Run("quantifiers", func(t *testing.T) {
		q := parse(t, "forall x in @[Student] where x.is_active { $Assigned(x) === 1 }").(*ast.Quantifier)
		assert.Equal(t, ast.QuantForall, q.Kind)
		assert.Equal(t, "x", q.Var.Name)
		assert.NotNil(t, q.Where)

		nested := parse(t, "forall w in @[Week] { sum s in slots { $Used(s, w) } <== 10 }").(*ast.Quantifier)
		body := nested.Body.(*ast.Binary)
		assert.Equal(t, ast.OpConstraintLe, body.Op)
		_, ok := body.Left.(*ast.Quantifier)
		assert.True(t, ok)
	})

	t.Run("tuples", func(t *testing.T) {
		tup := parse(t, "(1, 2)").(*ast.TupleLit)
		assert.Len(t, tup.Elems, 2)

		trailing := parse(t, "(true, false, 42,)").(*ast.TupleLit)
		assert.Len(t, trailing.Elems, 3)

		grouped := parse(t, "(1 + 2)")
		_, ok := grouped.(*ast.TupleLit)
		assert.False(t, ok)
	})

	t.Run("struct literals", func(t *testing.T) {
		lit := parse(t, "{name: \"a\", age: 3}").(*ast.StructLit)
		require.Len(t, lit.Fields, 2)
		assert.Equal(t, "name", lit.Fields[0].Name.Name)
	})

	t.Run("as annotations", func(t *testing.T) {
		anno := parse(t, "x as Int | Bool").(*ast.AsType)
		assert.Len(t, anno.Type.Alternatives, 2)

		maybe := parse(t, "y as Int?").(*ast.AsType)
		assert.Equal(t, 1, maybe.Type.Alternatives[0].MaybeCount)
	})

	t.Run("string literals with escapes", func(t *testing.T) {
		lit := parse(t, `"a\n\"b\""`).(*ast.StringLit)
		assert.Equal(t, "a\n\"b\"", lit.Value)
	})

	t.Run("none literal", func(t *testing.T) {
		_, ok := parse(t, "none").(*ast.NoneLit)
		assert.True(t, ok)
	})

	t.Run("unary minus", func(t *testing.T) {
		neg := parse(t, "-x * 3").(*ast.Binary)
		assert.Equal(t, ast.OpMul, neg.Op)
		_, ok := neg.Left.(*ast.Unary)
		assert.True(t, ok)
	})

	t.Run("plain slash rejected", func(t *testing.T) {
		_, err := ParseExpr("10 / 3")
		require.Error(t, err)
	})
}

func TestParseDocstrings(t *testing.T) {
	t.Run("attached to let", func(t *testing.T) {
		src := "/// Max load is `max_load()` per week.\nlet f() -> Int = 5;"
		file, err := Parse(src)
		require.NoError(t, err)
		let := file.Statements[0].(*ast.LetStmt)
		require.Len(t, let.Docstring, 1)
		line := let.Docstring[0]
		require.Len(t, line, 3)
		assert.Equal(t, " Max load is ", line[0].Prefix)
		require.NotNil(t, line[1].Expr)
		_, ok := line[1].Expr.(*ast.StringCast)
		assert.True(t, ok)
		assert.Equal(t, " per week.", line[2].Prefix)
	})

	t.Run("multiple lines", func(t *testing.T) {
		src := "/// first\n/// second `1 + 2`\nreify f as $V;"
		file, err := Parse(src)
		require.NoError(t, err)
		reify := file.Statements[0].(*ast.ReifyStmt)
		assert.Len(t, reify.Docstring, 2)
	})

	t.Run("escalated backticks escape", func(t *testing.T) {
		line, errs := parseDocstringLine(" uses ``f("+"\"`\""+")`` here", 0)
		require.Empty(t, errs)
		require.Len(t, line, 3)
		require.NotNil(t, line[1].Expr)
	})

	t.Run("unmatched backticks", func(t *testing.T) {
		_, errs := parseDocstringLine("broken `expr", 0)
		require.NotEmpty(t, errs)
	})

	t.Run("embedded spans point into file", func(t *testing.T) {
		src := "/// cap `max` here\nlet max() -> Int = 3;"
		file, err := Parse(src)
		require.NoError(t, err)
		let := file.Statements[0].(*ast.LetStmt)
		cast := let.Docstring[0][1].Expr.(*ast.StringCast)
		span := cast.Expr.GetSpan()
		assert.Equal(t, "max", src[span.Start:span.End])
	})
}

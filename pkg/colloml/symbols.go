package colloml

import (
	"github.com/collomatique/colloml/pkg/ast"
)

// symbolKind classifies what a name in a module's symbol table refers to.
type symbolKind int

const (
	symModule symbolKind = iota
	symFunction
	symCustomType
	symVariable
	symVariableList
)

func (k symbolKind) String() string {
	switch k {
	case symModule:
		return "module"
	case symFunction:
		return "function"
	case symCustomType:
		return "type"
	case symVariable:
		return "variable"
	case symVariableList:
		return "variable list"
	default:
		return "symbol"
	}
}

// symKey identifies a declaration by its declaring module and name. Enum
// variants use the qualified "Enum::Variant" name.
type symKey struct {
	Module string
	Name   string
}

// symbol is one entry of a module's symbol table. Module and Name point at
// the declaring module, which for imported entries differs from the table's
// module.
type symbol struct {
	kind   symbolKind
	module string
	name   string
}

// FunctionDesc is the checked signature and body of a `let` declaration.
type FunctionDesc struct {
	Module     string
	Name       string
	NameSpan   ast.Span
	Params     []ExprType
	ParamNames []string
	Output     ExprType
	Public     bool
	Body       ast.Expr
	Docstring  []ast.DocstringLine

	used bool
}

// VariableDesc is a reified variable or variable list declared with `reify`.
// Target names the Constraint-returning function whose calls define it.
type VariableDesc struct {
	Module string
	Name   string
	Span   ast.Span
	Public bool
	List   bool
	Target symKey
	Params []ExprType

	used bool
}

// TypeDesc is a declared custom type or enum variant. For an enum root the
// underlying type is the sum of its variants; for a variant it is the payload
// type, or None for unit variants.
type TypeDesc struct {
	Module     string
	Name       string
	Underlying ExprType
	Public     bool
}

package ast

// File is the parsed form of one module's source text. A zero-statement file
// is a valid empty module.
type File struct {
	Statements []Statement
}

// Statement is implemented by every top-level statement.
type Statement interface {
	GetSpan() Span
	stmtNode()
}

// LetStmt declares a function: `let f(a: T) -> R = expr;` with optional
// `pub` and a preceding docstring.
type LetStmt struct {
	Spanned
	Docstring []DocstringLine
	Public    bool
	Name      Ident
	Params    []Param
	Output    TypeName
	Body      Expr
}

type Param struct {
	Name Ident
	Type TypeName
}

// ReifyStmt promotes a Constraint-returning function into an opaque
// variable: `reify f as $Name;` or, with List, `reify f as $[Name];`.
type ReifyStmt struct {
	Spanned
	Docstring []DocstringLine
	Public    bool
	Target    NamespacePath
	List      bool
	Name      Ident
}

// TypeDeclStmt declares a named custom type: `type Name = T;`.
type TypeDeclStmt struct {
	Spanned
	Public     bool
	Name       Ident
	Underlying TypeName
}

// EnumDeclStmt declares an enum: `enum Name = A(Int) | B;`. Variants carry
// at most a single payload type.
type EnumDeclStmt struct {
	Spanned
	Public   bool
	Name     Ident
	Variants []EnumVariant
}

type EnumVariant struct {
	Name    Ident
	Payload *TypeName // nil for unit variants
}

// ImportStmt is `import "mod" as alias;` or `import "mod" as *;`.
type ImportStmt struct {
	Spanned
	Module   Ident  // the quoted module name
	Alias    *Ident // nil for wildcard imports
	Wildcard bool
}

func (LetStmt) stmtNode()      {}
func (ReifyStmt) stmtNode()    {}
func (TypeDeclStmt) stmtNode() {}
func (EnumDeclStmt) stmtNode() {}
func (ImportStmt) stmtNode()   {}

// DocstringLine is one `///` line split into literal and embedded-expression
// parts.
type DocstringLine []DocstringPart

// DocstringPart is literal text optionally followed by an embedded
// expression. The expression, when present, is already wrapped in an
// implicit cast-to-string node.
type DocstringPart struct {
	Prefix string
	Expr   Expr // nil for pure text parts
}

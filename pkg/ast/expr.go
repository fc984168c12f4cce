package ast

// Expr is implemented by every expression node. Nodes are immutable once
// built and owned by their containing module.
type Expr interface {
	GetSpan() Span
	exprNode()
}

// BinaryOp enumerates the binary operators of the language.
type BinaryOp int

const (
	// arithmetic
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv // `//`, integer division
	OpMod
	// comparisons (Bool-valued)
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIn // collection membership
	// constraint builders (Constraint-valued)
	OpConstraintEq // ===
	OpConstraintLe // <==
	OpConstraintGe // >==
	// logic
	OpAnd
	OpOr
	// set operations over collections
	OpUnion
	OpInter
	OpDiff // `\`
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "//", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=", OpIn: "in",
	OpConstraintEq: "===", OpConstraintLe: "<==", OpConstraintGe: ">==",
	OpAnd: "and", OpOr: "or",
	OpUnion: "union", OpInter: "inter", OpDiff: "\\",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	if op == OpNeg {
		return "-"
	}
	return "not"
}

// QuantKind distinguishes the two quantifier forms.
type QuantKind int

const (
	QuantForall QuantKind = iota
	QuantSum
)

func (k QuantKind) String() string {
	if k == QuantForall {
		return "forall"
	}
	return "sum"
}

// NoneLit is the literal `none`.
type NoneLit struct {
	Spanned
}

// IntLit is an integer literal.
type IntLit struct {
	Spanned
	Value int
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Spanned
	Value bool
}

// StringLit is a double-quoted string literal, already unescaped.
type StringLit struct {
	Spanned
	Value string
}

// PathRef is a bare identifier path used as a value: a local variable, or a
// unit enum variant like `Option::None`. What it means is decided during
// resolution.
type PathRef struct {
	Spanned
	Path NamespacePath
}

// FieldPath is field or tuple-index access on a computed object:
// `student.group.name`, `pair.0`.
type FieldPath struct {
	Spanned
	Object   Expr
	Segments []PathSegment
}

// PathSegment is one step of a FieldPath.
type PathSegment struct {
	Field      string // non-empty for field access
	TupleIndex int    // valid when Field == ""
	Span       Span
}

// Call is a generic call through a path: a function call `f(x)`,
// `mod::f(x)`, or a cast `Int(x)`, `MyType(x)`, `Result::Ok(x)`.
type Call struct {
	Spanned
	Path NamespacePath
	Args []Expr
}

// VarCall is `$Name(args)` or `mod::$Name(args)`; with List set it is the
// variable-list form `$[Name](args)`.
type VarCall struct {
	Spanned
	Module *Ident // nil when unqualified
	Name   Ident
	List   bool
	Args   []Expr
}

type Binary struct {
	Spanned
	Op    BinaryOp
	Left  Expr
	Right Expr
}

type Unary struct {
	Spanned
	Op      UnaryOp
	Operand Expr
}

// If is `if cond { then } else { else }`; both branches are mandatory.
type If struct {
	Spanned
	Cond Expr
	Then Expr
	Else Expr
}

// LetIn is the expression-level binding `let x = value { body }`.
type LetIn struct {
	Spanned
	Var   Ident
	Value Expr
	Body  Expr
}

// ListLit is `[a, b, c]`.
type ListLit struct {
	Spanned
	Elems []Expr
}

// TupleLit is `(a, b)` with at least two elements.
type TupleLit struct {
	Spanned
	Elems []Expr
}

// StructLit is `{f1: e1, f2: e2}`.
type StructLit struct {
	Spanned
	Fields []StructLitField
}

type StructLitField struct {
	Name  Ident
	Value Expr
}

// Comprehension is `[body for x in coll, y in coll2 where p]`. Bindings are
// evaluated left to right, each opening a fresh scope visible to the ones
// after it, the filter, and the body.
type Comprehension struct {
	Spanned
	Body     Expr
	Bindings []CompBinding
	Where    Expr // may be nil
}

type CompBinding struct {
	Var        Ident
	Collection Expr
}

// Quantifier is `forall x in coll where p: body` or the `sum` form.
type Quantifier struct {
	Spanned
	Kind       QuantKind
	Var        Ident
	Collection Expr
	Where      Expr // may be nil
	Body       Expr
}

// GlobalList is `@[Type]`: all host objects of the named type. The grammar
// only admits a single identifier path between the brackets.
type GlobalList struct {
	Spanned
	Type TypeName
}

// Cardinality is `|coll|`.
type Cardinality struct {
	Spanned
	Collection Expr
}

// AsType is the annotation `expr as Type`. It constrains the checked type
// and is a no-op at runtime.
type AsType struct {
	Spanned
	Expr Expr
	Type TypeName
}

// StringCast wraps a docstring-embedded expression in an implicit
// cast-to-string; it never appears in ordinary source.
type StringCast struct {
	Spanned
	Expr Expr
}

func (NoneLit) exprNode()       {}
func (IntLit) exprNode()        {}
func (BoolLit) exprNode()       {}
func (StringLit) exprNode()     {}
func (PathRef) exprNode()       {}
func (FieldPath) exprNode()     {}
func (Call) exprNode()          {}
func (VarCall) exprNode()       {}
func (Binary) exprNode()        {}
func (Unary) exprNode()         {}
func (If) exprNode()            {}
func (LetIn) exprNode()         {}
func (ListLit) exprNode()       {}
func (TupleLit) exprNode()      {}
func (StructLit) exprNode()     {}
func (Comprehension) exprNode() {}
func (Quantifier) exprNode()    {}
func (GlobalList) exprNode()    {}
func (Cardinality) exprNode()   {}
func (AsType) exprNode()        {}
func (StringCast) exprNode()    {}

package parser

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/collomatique/colloml/pkg/ast"
)

// Error is a syntax error with the source region it applies to.
type Error struct {
	Span ast.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// Parse parses a full module source into a File. On failure the returned
// error wraps one *Error per syntax problem found; parsing resynchronizes at
// statement boundaries so several errors can be reported in one pass.
func Parse(src string) (*ast.File, error) {
	p := newParser(NewLexer(src))
	file := p.parseFile()
	return file, p.err()
}

// ParseExpr parses a standalone expression, requiring it to span the whole
// input.
func ParseExpr(src string) (ast.Expr, error) {
	return parseExprAt(src, 0)
}

func parseExprAt(src string, base int) (ast.Expr, error) {
	p := newParser(NewLexerAt(src, base))
	expr := p.parseExpr()
	if expr != nil && !p.curIs(EOF) {
		p.errorHere("unexpected %s after expression", p.cur.Type)
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	return expr, nil
}

// Parser is a recursive-descent parser over the token stream. Every parse
// method is entered with the current token at the first token of its
// construct and leaves it at the first token after it.
type Parser struct {
	l       *Lexer
	cur     Token
	peek    Token
	prevEnd int // end offset of the last consumed token
	errors  []error
}

func newParser(l *Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.prevEnd = p.cur.End
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) curIs(t TokenType) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t TokenType) bool { return p.peek.Type == t }

func (p *Parser) curSpan() ast.Span { return ast.NewSpan(p.cur.Start, p.cur.End) }

// spanFrom builds the span from a start offset to the end of the last
// consumed token.
func (p *Parser) spanFrom(start int) ast.Spanned {
	return ast.Spanned{Span: ast.NewSpan(start, p.prevEnd)}
}

func (p *Parser) errorAt(span ast.Span, format string, args ...any) {
	p.errors = append(p.errors, &Error{Span: span, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) errorHere(format string, args ...any) {
	p.errorAt(p.curSpan(), format, args...)
}

// expect consumes the current token if it has the wanted type; otherwise it
// records an error and leaves the token in place.
func (p *Parser) expect(t TokenType) bool {
	if p.cur.Type == t {
		p.nextToken()
		return true
	}
	if p.cur.Type == ILLEGAL {
		p.errorHere("invalid character %q", p.cur.Literal)
	} else {
		p.errorHere("expected %s, found %s", t, p.cur.Type)
	}
	return false
}

func (p *Parser) expectIdent() (ast.Ident, bool) {
	if !p.curIs(IDENT) {
		p.errorHere("expected %s, found %s", IDENT, p.cur.Type)
		return ast.Ident{}, false
	}
	id := ast.Ident{Name: p.cur.Literal, Span: p.curSpan()}
	p.nextToken()
	return id, true
}

func (p *Parser) err() error {
	var result *multierror.Error
	for _, e := range p.errors {
		result = multierror.Append(result, e)
	}
	return result.ErrorOrNil()
}

// synchronize skips tokens until just past the next semicolon, or to EOF.
func (p *Parser) synchronize() {
	for !p.curIs(EOF) {
		if p.curIs(SEMICOLON) {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseFile() *ast.File {
	file := &ast.File{}
	for !p.curIs(EOF) {
		stmt := p.parseStatement()
		if stmt == nil {
			p.synchronize()
			continue
		}
		file.Statements = append(file.Statements, stmt)
	}
	return file
}

func (p *Parser) parseStatement() ast.Statement {
	start := p.cur.Start
	docstring := p.parseDocstring()

	public := false
	if p.curIs(PUB) {
		public = true
		p.nextToken()
	}

	switch p.cur.Type {
	case LET:
		return p.parseLetStmt(start, public, docstring)
	case REIFY:
		return p.parseReifyStmt(start, public, docstring)
	case TYPE:
		if docstring != nil {
			p.errorHere("docstrings may only precede 'let' and 'reify' statements")
		}
		return p.parseTypeDeclStmt(start, public)
	case ENUM:
		if docstring != nil {
			p.errorHere("docstrings may only precede 'let' and 'reify' statements")
		}
		return p.parseEnumDeclStmt(start, public)
	case IMPORT:
		if public {
			p.errorHere("'import' cannot be declared 'pub'")
		}
		if docstring != nil {
			p.errorHere("docstrings may only precede 'let' and 'reify' statements")
		}
		return p.parseImportStmt(start)
	default:
		p.errorHere("expected a statement, found %s", p.cur.Type)
		return nil
	}
}

func (p *Parser) parseDocstring() []ast.DocstringLine {
	var lines []ast.DocstringLine
	for p.curIs(DOCSTRING) {
		line, errs := parseDocstringLine(p.cur.Literal, p.cur.Start+3)
		p.errors = append(p.errors, errs...)
		lines = append(lines, line)
		p.nextToken()
	}
	return lines
}

// parseLetStmt parses `let name(params) -> Type = expr;` after any leading
// docstring and `pub` have been consumed.
func (p *Parser) parseLetStmt(start int, public bool, docstring []ast.DocstringLine) ast.Statement {
	p.nextToken() // consume 'let'
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expect(LPAREN) {
		return nil
	}
	var params []ast.Param
	for !p.curIs(RPAREN) && !p.curIs(EOF) {
		pname, ok := p.expectIdent()
		if !ok {
			return nil
		}
		if !p.expect(COLON) {
			return nil
		}
		ptype, ok := p.parseTypeName()
		if !ok {
			return nil
		}
		params = append(params, ast.Param{Name: pname, Type: ptype})
		if p.curIs(COMMA) {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expect(RPAREN) {
		return nil
	}
	if !p.expect(ARROW) {
		return nil
	}
	output, ok := p.parseTypeName()
	if !ok {
		return nil
	}
	if !p.expect(ASSIGN) {
		return nil
	}
	body := p.parseExpr()
	if body == nil {
		return nil
	}
	if !p.expect(SEMICOLON) {
		return nil
	}
	return &ast.LetStmt{
		Spanned:   p.spanFrom(start),
		Docstring: docstring,
		Public:    public,
		Name:      name,
		Params:    params,
		Output:    output,
		Body:      body,
	}
}

// parseReifyStmt parses `reify target as $Name;` and the list form
// `reify target as $[Name];`.
func (p *Parser) parseReifyStmt(start int, public bool, docstring []ast.DocstringLine) ast.Statement {
	p.nextToken() // consume 'reify'
	target, ok := p.parsePath()
	if !ok {
		return nil
	}
	if !p.expect(AS) {
		return nil
	}
	if !p.expect(DOLLAR) {
		return nil
	}
	list := false
	if p.curIs(LBRACKET) {
		list = true
		p.nextToken()
	}
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if list && !p.expect(RBRACKET) {
		return nil
	}
	if !p.expect(SEMICOLON) {
		return nil
	}
	return &ast.ReifyStmt{
		Spanned:   p.spanFrom(start),
		Docstring: docstring,
		Public:    public,
		Target:    target,
		List:      list,
		Name:      name,
	}
}

func (p *Parser) parseTypeDeclStmt(start int, public bool) ast.Statement {
	p.nextToken() // consume 'type'
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expect(ASSIGN) {
		return nil
	}
	underlying, ok := p.parseTypeName()
	if !ok {
		return nil
	}
	if !p.expect(SEMICOLON) {
		return nil
	}
	return &ast.TypeDeclStmt{
		Spanned:    p.spanFrom(start),
		Public:     public,
		Name:       name,
		Underlying: underlying,
	}
}

func (p *Parser) parseEnumDeclStmt(start int, public bool) ast.Statement {
	p.nextToken() // consume 'enum'
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expect(ASSIGN) {
		return nil
	}
	var variants []ast.EnumVariant
	for {
		vname, ok := p.expectIdent()
		if !ok {
			return nil
		}
		variant := ast.EnumVariant{Name: vname}
		if p.curIs(LPAREN) {
			p.nextToken()
			payload, ok := p.parseTypeName()
			if !ok {
				return nil
			}
			if !p.expect(RPAREN) {
				return nil
			}
			variant.Payload = &payload
		}
		variants = append(variants, variant)
		if !p.curIs(PIPE) {
			break
		}
		p.nextToken()
	}
	if !p.expect(SEMICOLON) {
		return nil
	}
	return &ast.EnumDeclStmt{
		Spanned:  p.spanFrom(start),
		Public:   public,
		Name:     name,
		Variants: variants,
	}
}

func (p *Parser) parseImportStmt(start int) ast.Statement {
	p.nextToken() // consume 'import'
	if !p.curIs(STRING_LIT) {
		p.errorHere("expected a quoted module name, found %s", p.cur.Type)
		return nil
	}
	module := ast.Ident{Name: p.cur.Literal, Span: p.curSpan()}
	p.nextToken()
	if !p.expect(AS) {
		return nil
	}
	stmt := &ast.ImportStmt{Module: module}
	if p.curIs(STAR) {
		stmt.Wildcard = true
		p.nextToken()
	} else {
		alias, ok := p.expectIdent()
		if !ok {
			return nil
		}
		stmt.Alias = &alias
	}
	if !p.expect(SEMICOLON) {
		return nil
	}
	stmt.Spanned = p.spanFrom(start)
	return stmt
}

// parsePath parses `ident('::' ident)*`. It stops before a `::` that is
// followed by `$`, which belongs to a qualified variable call.
func (p *Parser) parsePath() (ast.NamespacePath, bool) {
	start := p.cur.Start
	first, ok := p.expectIdent()
	if !ok {
		return ast.NamespacePath{}, false
	}
	path := ast.NamespacePath{Segments: []ast.Ident{first}}
	for p.curIs(COLONCOLON) && !p.peekIs(DOLLAR) {
		p.nextToken()
		seg, ok := p.expectIdent()
		if !ok {
			return ast.NamespacePath{}, false
		}
		path.Segments = append(path.Segments, seg)
	}
	path.Span = ast.NewSpan(start, p.prevEnd)
	return path, true
}

// --- Type names ---

func (p *Parser) parseTypeName() (ast.TypeName, bool) {
	start := p.cur.Start
	var alts []ast.MaybeTypeName
	for {
		alt, ok := p.parseMaybeTypeName()
		if !ok {
			return ast.TypeName{}, false
		}
		alts = append(alts, alt)
		if !p.curIs(PIPE) {
			break
		}
		p.nextToken()
	}
	return ast.TypeName{Alternatives: alts, Span: ast.NewSpan(start, p.prevEnd)}, true
}

func (p *Parser) parseMaybeTypeName() (ast.MaybeTypeName, bool) {
	start := p.cur.Start
	inner, ok := p.parseSimpleTypeName()
	if !ok {
		return ast.MaybeTypeName{}, false
	}
	count := 0
	for p.curIs(QUESTION) {
		count++
		p.nextToken()
	}
	return ast.MaybeTypeName{
		MaybeCount: count,
		Inner:      inner,
		Span:       ast.NewSpan(start, p.prevEnd),
	}, true
}

func (p *Parser) parseSimpleTypeName() (ast.SimpleTypeName, bool) {
	switch p.cur.Type {
	case IDENT:
		path, ok := p.parsePath()
		if !ok {
			return nil, false
		}
		return ast.TypePath{Path: path}, true
	case LBRACKET:
		p.nextToken()
		if p.curIs(RBRACKET) {
			p.nextToken()
			return ast.TypeEmptyList{}, true
		}
		elem, ok := p.parseTypeName()
		if !ok {
			return nil, false
		}
		if !p.expect(RBRACKET) {
			return nil, false
		}
		return ast.TypeList{Elem: elem}, true
	case LPAREN:
		p.nextToken()
		var elems []ast.TypeName
		for !p.curIs(RPAREN) && !p.curIs(EOF) {
			elem, ok := p.parseTypeName()
			if !ok {
				return nil, false
			}
			elems = append(elems, elem)
			if p.curIs(COMMA) {
				p.nextToken()
			} else {
				break
			}
		}
		if !p.expect(RPAREN) {
			return nil, false
		}
		if len(elems) < 2 {
			p.errorAt(p.curSpan(), "tuple types need at least two elements")
			return nil, false
		}
		return ast.TypeTuple{Elems: elems}, true
	case LBRACE:
		p.nextToken()
		var fields []ast.StructFieldType
		for !p.curIs(RBRACE) && !p.curIs(EOF) {
			name, ok := p.expectIdent()
			if !ok {
				return nil, false
			}
			if !p.expect(COLON) {
				return nil, false
			}
			ftype, ok := p.parseTypeName()
			if !ok {
				return nil, false
			}
			fields = append(fields, ast.StructFieldType{Name: name, Type: ftype})
			if p.curIs(COMMA) {
				p.nextToken()
			} else {
				break
			}
		}
		if !p.expect(RBRACE) {
			return nil, false
		}
		if len(fields) == 0 {
			p.errorHere("struct types need at least one field")
			return nil, false
		}
		return ast.TypeStruct{Fields: fields}, true
	default:
		p.errorHere("expected a type, found %s", p.cur.Type)
		return nil, false
	}
}

// --- Expressions ---

// parseExpr parses a full expression. The grammar is unified: sub-grammar
// restrictions the language imposes (for example that `union` only applies
// to collections) are enforced by the type checker, except the ban on
// chaining `\` which is syntactic.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	start := p.cur.Start
	left := p.parseAnd()
	for left != nil && p.curIs(OR) {
		p.nextToken()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Spanned: p.spanFrom(start), Op: ast.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	start := p.cur.Start
	left := p.parseNot()
	for left != nil && p.curIs(AND) {
		p.nextToken()
		right := p.parseNot()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Spanned: p.spanFrom(start), Op: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.curIs(NOT) {
		start := p.cur.Start
		p.nextToken()
		operand := p.parseNot()
		if operand == nil {
			return nil
		}
		return &ast.Unary{Spanned: p.spanFrom(start), Op: ast.OpNot, Operand: operand}
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]ast.BinaryOp{
	EQ:        ast.OpEq,
	NEQ:       ast.OpNe,
	LT:        ast.OpLt,
	LE:        ast.OpLe,
	GT:        ast.OpGt,
	GE:        ast.OpGe,
	IN:        ast.OpIn,
	CONSTR_EQ: ast.OpConstraintEq,
	CONSTR_LE: ast.OpConstraintLe,
	CONSTR_GE: ast.OpConstraintGe,
}

// parseComparison parses at most one comparison or constraint operator;
// they do not chain.
func (p *Parser) parseComparison() ast.Expr {
	start := p.cur.Start
	left := p.parseSetOps()
	if left == nil {
		return nil
	}
	op, ok := comparisonOps[p.cur.Type]
	if !ok {
		return left
	}
	p.nextToken()
	right := p.parseSetOps()
	if right == nil {
		return nil
	}
	if _, chained := comparisonOps[p.cur.Type]; chained {
		p.errorHere("comparison operators cannot be chained")
		return nil
	}
	return &ast.Binary{Spanned: p.spanFrom(start), Op: op, Left: left, Right: right}
}

// parseSetOps parses `union`, `inter` and `\` chains. At most one `\` is
// allowed per parenthesization level.
func (p *Parser) parseSetOps() ast.Expr {
	start := p.cur.Start
	left := p.parseAdditive()
	diffs := 0
	for left != nil {
		var op ast.BinaryOp
		switch p.cur.Type {
		case UNION:
			op = ast.OpUnion
		case INTER:
			op = ast.OpInter
		case BACKSLASH:
			op = ast.OpDiff
			diffs++
			if diffs > 1 {
				p.errorHere("'\\' cannot be chained; parenthesize the intended grouping")
				return nil
			}
		default:
			return left
		}
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Spanned: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	start := p.cur.Start
	left := p.parseMultiplicative()
	for left != nil && (p.curIs(PLUS) || p.curIs(MINUS)) {
		op := ast.OpAdd
		if p.curIs(MINUS) {
			op = ast.OpSub
		}
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Spanned: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	start := p.cur.Start
	left := p.parseUnary()
	for left != nil {
		var op ast.BinaryOp
		switch p.cur.Type {
		case STAR:
			op = ast.OpMul
		case INTDIV:
			op = ast.OpDiv
		case PERCENT:
			op = ast.OpMod
		default:
			return left
		}
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Spanned: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.curIs(MINUS) {
		start := p.cur.Start
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.Unary{Spanned: p.spanFrom(start), Op: ast.OpNeg, Operand: operand}
	}
	return p.parsePostfix()
}

// parsePostfix parses field access `.name`, tuple access `.0` and the type
// annotation `as Type` on a primary expression.
func (p *Parser) parsePostfix() ast.Expr {
	start := p.cur.Start
	expr := p.parsePrimary()
	for expr != nil {
		switch p.cur.Type {
		case DOT:
			p.nextToken()
			var segments []ast.PathSegment
			for {
				switch p.cur.Type {
				case IDENT:
					segments = append(segments, ast.PathSegment{Field: p.cur.Literal, Span: p.curSpan()})
				case INT_LIT:
					idx, err := strconv.Atoi(p.cur.Literal)
					if err != nil {
						p.errorHere("tuple index out of range")
						return nil
					}
					segments = append(segments, ast.PathSegment{TupleIndex: idx, Span: p.curSpan()})
				default:
					p.errorHere("expected a field name or tuple index, found %s", p.cur.Type)
					return nil
				}
				p.nextToken()
				if !p.curIs(DOT) {
					break
				}
				p.nextToken()
			}
			expr = &ast.FieldPath{Spanned: p.spanFrom(start), Object: expr, Segments: segments}
		case AS:
			p.nextToken()
			typ, ok := p.parseTypeName()
			if !ok {
				return nil
			}
			expr = &ast.AsType{Spanned: p.spanFrom(start), Expr: expr, Type: typ}
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Type {
	case INT_LIT:
		value, err := strconv.Atoi(p.cur.Literal)
		if err != nil {
			p.errorHere("integer literal out of range")
			return nil
		}
		lit := &ast.IntLit{Spanned: ast.Spanned{Span: p.curSpan()}, Value: value}
		p.nextToken()
		return lit
	case STRING_LIT:
		lit := &ast.StringLit{Spanned: ast.Spanned{Span: p.curSpan()}, Value: p.cur.Literal}
		p.nextToken()
		return lit
	case TRUE, FALSE:
		lit := &ast.BoolLit{Spanned: ast.Spanned{Span: p.curSpan()}, Value: p.curIs(TRUE)}
		p.nextToken()
		return lit
	case NONE:
		lit := &ast.NoneLit{Spanned: ast.Spanned{Span: p.curSpan()}}
		p.nextToken()
		return lit
	case IF:
		return p.parseIf()
	case LET:
		return p.parseLetExpr()
	case FORALL, SUM:
		return p.parseQuantifier()
	case LPAREN:
		return p.parseParenOrTuple()
	case LBRACKET:
		return p.parseListOrComprehension()
	case LBRACE:
		return p.parseStructLit()
	case PIPE:
		return p.parseCardinality()
	case AT:
		return p.parseGlobalList()
	case DOLLAR:
		return p.parseVarCall(nil)
	case IDENT:
		return p.parsePathExpr()
	case ILLEGAL:
		p.errorHere("invalid character %q", p.cur.Literal)
		return nil
	default:
		p.errorHere("expected an expression, found %s", p.cur.Type)
		return nil
	}
}

// parseIf parses `if cond { a } else { b }` and `else if` chains. Both
// branches are mandatory.
func (p *Parser) parseIf() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume 'if'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if !p.expect(LBRACE) {
		return nil
	}
	then := p.parseExpr()
	if then == nil {
		return nil
	}
	if !p.expect(RBRACE) {
		return nil
	}
	if !p.expect(ELSE) {
		return nil
	}
	var els ast.Expr
	if p.curIs(IF) {
		els = p.parseIf()
	} else {
		if !p.expect(LBRACE) {
			return nil
		}
		els = p.parseExpr()
		if els == nil {
			return nil
		}
		if !p.expect(RBRACE) {
			return nil
		}
	}
	if els == nil {
		return nil
	}
	return &ast.If{Spanned: p.spanFrom(start), Cond: cond, Then: then, Else: els}
}

// parseLetExpr parses the binding expression `let x = value { body }`.
func (p *Parser) parseLetExpr() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume 'let'
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expect(ASSIGN) {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if !p.expect(LBRACE) {
		return nil
	}
	body := p.parseExpr()
	if body == nil {
		return nil
	}
	if !p.expect(RBRACE) {
		return nil
	}
	return &ast.LetIn{Spanned: p.spanFrom(start), Var: name, Value: value, Body: body}
}

// parseQuantifier parses `forall x in coll where pred { body }` and the
// `sum` form; `where` is optional.
func (p *Parser) parseQuantifier() ast.Expr {
	start := p.cur.Start
	kind := ast.QuantForall
	if p.curIs(SUM) {
		kind = ast.QuantSum
	}
	p.nextToken()
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if !p.expect(IN) {
		return nil
	}
	collection := p.parseExpr()
	if collection == nil {
		return nil
	}
	var where ast.Expr
	if p.curIs(WHERE) {
		p.nextToken()
		where = p.parseExpr()
		if where == nil {
			return nil
		}
	}
	if !p.expect(LBRACE) {
		return nil
	}
	body := p.parseExpr()
	if body == nil {
		return nil
	}
	if !p.expect(RBRACE) {
		return nil
	}
	return &ast.Quantifier{
		Spanned:    p.spanFrom(start),
		Kind:       kind,
		Var:        name,
		Collection: collection,
		Where:      where,
		Body:       body,
	}
}

func (p *Parser) parseParenOrTuple() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume '('
	first := p.parseExpr()
	if first == nil {
		return nil
	}
	if !p.curIs(COMMA) {
		if !p.expect(RPAREN) {
			return nil
		}
		return first
	}
	elems := []ast.Expr{first}
	for p.curIs(COMMA) {
		p.nextToken()
		if p.curIs(RPAREN) {
			break // trailing comma
		}
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
	}
	if !p.expect(RPAREN) {
		return nil
	}
	return &ast.TupleLit{Spanned: p.spanFrom(start), Elems: elems}
}

func (p *Parser) parseListOrComprehension() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume '['
	if p.curIs(RBRACKET) {
		p.nextToken()
		return &ast.ListLit{Spanned: p.spanFrom(start)}
	}
	first := p.parseExpr()
	if first == nil {
		return nil
	}
	if p.curIs(FOR) {
		p.nextToken()
		return p.parseComprehensionTail(start, first)
	}
	elems := []ast.Expr{first}
	for p.curIs(COMMA) {
		p.nextToken()
		if p.curIs(RBRACKET) {
			break // trailing comma
		}
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		elems = append(elems, elem)
	}
	if !p.expect(RBRACKET) {
		return nil
	}
	return &ast.ListLit{Spanned: p.spanFrom(start), Elems: elems}
}

// parseComprehensionTail parses the bindings, optional filter and closing
// bracket of `[body for x in coll, y in coll2 where pred]`. The leading
// `for` has been consumed.
func (p *Parser) parseComprehensionTail(start int, body ast.Expr) ast.Expr {
	var bindings []ast.CompBinding
	for {
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		if !p.expect(IN) {
			return nil
		}
		collection := p.parseExpr()
		if collection == nil {
			return nil
		}
		bindings = append(bindings, ast.CompBinding{Var: name, Collection: collection})
		if !p.curIs(COMMA) {
			break
		}
		p.nextToken()
	}
	var where ast.Expr
	if p.curIs(WHERE) {
		p.nextToken()
		where = p.parseExpr()
		if where == nil {
			return nil
		}
	}
	if !p.expect(RBRACKET) {
		return nil
	}
	return &ast.Comprehension{
		Spanned:  p.spanFrom(start),
		Body:     body,
		Bindings: bindings,
		Where:    where,
	}
}

func (p *Parser) parseStructLit() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume '{'
	var fields []ast.StructLitField
	for !p.curIs(RBRACE) && !p.curIs(EOF) {
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		if !p.expect(COLON) {
			return nil
		}
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		fields = append(fields, ast.StructLitField{Name: name, Value: value})
		if p.curIs(COMMA) {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expect(RBRACE) {
		return nil
	}
	if len(fields) == 0 {
		p.errorAt(p.spanFrom(start).Span, "struct literals need at least one field")
		return nil
	}
	return &ast.StructLit{Spanned: p.spanFrom(start), Fields: fields}
}

func (p *Parser) parseCardinality() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume '|'
	collection := p.parseExpr()
	if collection == nil {
		return nil
	}
	if !p.expect(PIPE) {
		return nil
	}
	return &ast.Cardinality{Spanned: p.spanFrom(start), Collection: collection}
}

// parseGlobalList parses `@[Type]`. Only a plain type path is admitted
// between the brackets.
func (p *Parser) parseGlobalList() ast.Expr {
	start := p.cur.Start
	p.nextToken() // consume '@'
	if !p.expect(LBRACKET) {
		return nil
	}
	path, ok := p.parsePath()
	if !ok {
		return nil
	}
	if !p.expect(RBRACKET) {
		return nil
	}
	typ := ast.TypeName{
		Alternatives: []ast.MaybeTypeName{{
			Inner: ast.TypePath{Path: path},
			Span:  path.Span,
		}},
		Span: path.Span,
	}
	return &ast.GlobalList{Spanned: p.spanFrom(start), Type: typ}
}

// parseVarCall parses `$Name(args)` and `$[Name](args)`; module is non-nil
// when the call was qualified with `mod::`.
func (p *Parser) parseVarCall(module *ast.Ident) ast.Expr {
	start := p.cur.Start
	if module != nil {
		start = module.Span.Start
	}
	p.nextToken() // consume '$'
	list := false
	if p.curIs(LBRACKET) {
		list = true
		p.nextToken()
	}
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	if list && !p.expect(RBRACKET) {
		return nil
	}
	args, ok := p.parseArgs()
	if !ok {
		return nil
	}
	return &ast.VarCall{
		Spanned: p.spanFrom(start),
		Module:  module,
		Name:    name,
		List:    list,
		Args:    args,
	}
}

// parsePathExpr parses expressions that start with an identifier: variable
// and enum-variant references, function calls and casts, and qualified
// variable calls `mod::$Name(args)`.
func (p *Parser) parsePathExpr() ast.Expr {
	start := p.cur.Start
	path, ok := p.parsePath()
	if !ok {
		return nil
	}
	if p.curIs(COLONCOLON) && p.peekIs(DOLLAR) {
		if len(path.Segments) > 1 {
			p.errorAt(path.Span, "variable calls take a single module qualifier")
			return nil
		}
		p.nextToken() // consume '::'
		return p.parseVarCall(&path.Segments[0])
	}
	if p.curIs(LPAREN) {
		args, ok := p.parseArgs()
		if !ok {
			return nil
		}
		return &ast.Call{Spanned: p.spanFrom(start), Path: path, Args: args}
	}
	return &ast.PathRef{Spanned: p.spanFrom(start), Path: path}
}

// parseArgs parses a parenthesized, comma-separated argument list with an
// optional trailing comma.
func (p *Parser) parseArgs() ([]ast.Expr, bool) {
	if !p.expect(LPAREN) {
		return nil, false
	}
	var args []ast.Expr
	for !p.curIs(RPAREN) && !p.curIs(EOF) {
		arg := p.parseExpr()
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
		if p.curIs(COMMA) {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expect(RPAREN) {
		return nil, false
	}
	return args, true
}

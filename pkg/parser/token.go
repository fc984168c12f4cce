package parser

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF
	DOCSTRING // a full `///` line, literal holds the raw text after the marker

	// Literals
	IDENT
	INT_LIT
	STRING_LIT

	// Keywords
	LET
	PUB
	REIFY
	AS
	TYPE
	ENUM
	IMPORT
	IF
	ELSE
	IN
	FOR
	WHERE
	FORALL
	SUM
	UNION
	INTER
	AND
	OR
	NOT
	TRUE
	FALSE
	NONE

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	INTDIV    // //
	PERCENT   // %
	BACKSLASH // \
	ASSIGN    // =
	EQ        // ==
	NEQ       // !=
	LT        // <
	LE        // <=
	GT        // >
	GE        // >=
	CONSTR_EQ // ===
	CONSTR_LE // <==
	CONSTR_GE // >==
	ARROW     // ->
	PIPE      // |
	DOLLAR    // $
	AT        // @
	QUESTION  // ?
	DOT       // .

	// Delimiters
	LPAREN     // (
	RPAREN     // )
	LBRACKET   // [
	RBRACKET   // ]
	LBRACE     // {
	RBRACE     // }
	COMMA      // ,
	SEMICOLON  // ;
	COLON      // :
	COLONCOLON // ::
)

var tokenNames = map[TokenType]string{
	ILLEGAL:    "ILLEGAL",
	EOF:        "end of file",
	DOCSTRING:  "docstring",
	IDENT:      "identifier",
	INT_LIT:    "integer literal",
	STRING_LIT: "string literal",
	LET:        "'let'",
	PUB:        "'pub'",
	REIFY:      "'reify'",
	AS:         "'as'",
	TYPE:       "'type'",
	ENUM:       "'enum'",
	IMPORT:     "'import'",
	IF:         "'if'",
	ELSE:       "'else'",
	IN:         "'in'",
	FOR:        "'for'",
	WHERE:      "'where'",
	FORALL:     "'forall'",
	SUM:        "'sum'",
	UNION:      "'union'",
	INTER:      "'inter'",
	AND:        "'and'",
	OR:         "'or'",
	NOT:        "'not'",
	TRUE:       "'true'",
	FALSE:      "'false'",
	NONE:       "'none'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	STAR:       "'*'",
	INTDIV:     "'//'",
	PERCENT:    "'%'",
	BACKSLASH:  "'\\'",
	ASSIGN:     "'='",
	EQ:         "'=='",
	NEQ:        "'!='",
	LT:         "'<'",
	LE:         "'<='",
	GT:         "'>'",
	GE:         "'>='",
	CONSTR_EQ:  "'==='",
	CONSTR_LE:  "'<=='",
	CONSTR_GE:  "'>=='",
	ARROW:      "'->'",
	PIPE:       "'|'",
	DOLLAR:     "'$'",
	AT:         "'@'",
	QUESTION:   "'?'",
	DOT:        "'.'",
	LPAREN:     "'('",
	RPAREN:     "')'",
	LBRACKET:   "'['",
	RBRACKET:   "']'",
	LBRACE:     "'{'",
	RBRACE:     "'}'",
	COMMA:      "','",
	SEMICOLON:  "';'",
	COLON:      "':'",
	COLONCOLON: "'::'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"let":    LET,
	"pub":    PUB,
	"reify":  REIFY,
	"as":     AS,
	"type":   TYPE,
	"enum":   ENUM,
	"import": IMPORT,
	"if":     IF,
	"else":   ELSE,
	"in":     IN,
	"for":    FOR,
	"where":  WHERE,
	"forall": FORALL,
	"sum":    SUM,
	"union":  UNION,
	"inter":  INTER,
	"and":    AND,
	"or":     OR,
	"not":    NOT,
	"true":   TRUE,
	"false":  FALSE,
	"none":   NONE,
}

// LookupIdent returns the keyword token type for an identifier, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Token is a single lexeme with its byte range in the source.
type Token struct {
	Type    TokenType
	Literal string
	Start   int
	End     int
}

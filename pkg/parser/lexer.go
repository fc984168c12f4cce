package parser

import "strings"

// Lexer scans ColloML source and produces tokens.
//
// Comment handling mirrors the language's somewhat unusual rules: `//` is the
// integer-division operator only where an infix operator can appear, that is
// mid-line and directly after a token that can end an operand (`10 // 3`).
// Everywhere else, at line start or after `;`, `=`, an opening delimiter and
// so on, `//` opens a line comment, so trailing comments after a statement
// stay comments. `///` at the beginning of a line is a docstring line and is
// emitted as a token rather than skipped, since docstrings attach to the next
// statement.
type Lexer struct {
	input        string
	base         int  // offset added to token spans
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	lineStart    int  // offset of the first char of the current line
	prev         TokenType
}

// NewLexer creates a Lexer over a full source file.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NewLexerAt creates a Lexer whose token spans are shifted by base. It is
// used for expressions embedded in docstrings, so their spans point into the
// enclosing file.
func NewLexerAt(input string, base int) *Lexer {
	l := NewLexer(input)
	l.base = base
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.lineStart = l.readPosition
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekChar2() byte {
	if l.readPosition+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition+1]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// atLineStart reports whether only indentation precedes the current position
// on its line.
func (l *Lexer) atLineStart() bool {
	for i := l.lineStart; i < l.position; i++ {
		if l.input[i] != ' ' && l.input[i] != '\t' {
			return false
		}
	}
	return true
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment() {
	l.readChar() // consume '*'
	for {
		if l.ch == 0 {
			return
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		l.readChar()
	}
}

// canEndOperand reports whether a token can be the last token of an
// expression operand. A `//` directly after one of these is integer division;
// anywhere else it opens a comment.
func canEndOperand(t TokenType) bool {
	switch t {
	case IDENT, INT_LIT, STRING_LIT, TRUE, FALSE, NONE, RPAREN, RBRACKET, RBRACE:
		return true
	}
	return false
}

// NextToken returns the next token in the input.
func (l *Lexer) NextToken() Token {
	tok := l.next()
	tok.Start += l.base
	tok.End += l.base
	l.prev = tok.Type
	return tok
}

func (l *Lexer) next() Token {
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.skipBlockComment()
			continue
		}
		if l.ch == '/' && l.peekChar() == '/' && (l.atLineStart() || !canEndOperand(l.prev)) {
			if l.peekChar2() == '/' && l.atLineStart() {
				return l.readDocstring()
			}
			l.skipLineComment()
			continue
		}
		break
	}

	start := l.position
	var tok Token

	switch l.ch {
	case 0:
		return Token{Type: EOF, Start: start, End: start}
	case '+':
		tok = Token{Type: PLUS}
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: ARROW}
		} else {
			tok = Token{Type: MINUS}
		}
	case '*':
		tok = Token{Type: STAR}
	case '/':
		if l.peekChar() == '/' {
			l.readChar()
			tok = Token{Type: INTDIV}
		} else {
			tok = Token{Type: ILLEGAL, Literal: "/"}
		}
	case '%':
		tok = Token{Type: PERCENT}
	case '\\':
		tok = Token{Type: BACKSLASH}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				tok = Token{Type: CONSTR_EQ}
			} else {
				tok = Token{Type: EQ}
			}
		} else {
			tok = Token{Type: ASSIGN}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: NEQ}
		} else {
			tok = Token{Type: ILLEGAL, Literal: "!"}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				tok = Token{Type: CONSTR_LE}
			} else {
				tok = Token{Type: LE}
			}
		} else {
			tok = Token{Type: LT}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			if l.peekChar() == '=' {
				l.readChar()
				tok = Token{Type: CONSTR_GE}
			} else {
				tok = Token{Type: GE}
			}
		} else {
			tok = Token{Type: GT}
		}
	case '|':
		tok = Token{Type: PIPE}
	case '$':
		tok = Token{Type: DOLLAR}
	case '@':
		tok = Token{Type: AT}
	case '?':
		tok = Token{Type: QUESTION}
	case '.':
		tok = Token{Type: DOT}
	case '(':
		tok = Token{Type: LPAREN}
	case ')':
		tok = Token{Type: RPAREN}
	case '[':
		tok = Token{Type: LBRACKET}
	case ']':
		tok = Token{Type: RBRACKET}
	case '{':
		tok = Token{Type: LBRACE}
	case '}':
		tok = Token{Type: RBRACE}
	case ',':
		tok = Token{Type: COMMA}
	case ';':
		tok = Token{Type: SEMICOLON}
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			tok = Token{Type: COLONCOLON}
		} else {
			tok = Token{Type: COLON}
		}
	case '"':
		return l.readString()
	default:
		if isLetter(l.ch) {
			return l.readIdentifier()
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = Token{Type: ILLEGAL, Literal: string(l.ch)}
	}

	l.readChar()
	tok.Start = start
	tok.End = l.position
	if tok.Literal == "" {
		tok.Literal = l.input[start:l.position]
	}
	return tok
}

func (l *Lexer) readIdentifier() Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.position]
	return Token{Type: LookupIdent(lit), Literal: lit, Start: start, End: l.position}
}

func (l *Lexer) readNumber() Token {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return Token{Type: INT_LIT, Literal: l.input[start:l.position], Start: start, End: l.position}
}

// readString scans a double-quoted string literal and resolves escapes. The
// token literal holds the decoded value; the span covers the quotes.
func (l *Lexer) readString() Token {
	start := l.position
	l.readChar() // consume opening quote
	var sb strings.Builder
	for {
		switch l.ch {
		case '"':
			l.readChar()
			return Token{Type: STRING_LIT, Literal: sb.String(), Start: start, End: l.position}
		case 0, '\n':
			return Token{Type: ILLEGAL, Literal: "unterminated string", Start: start, End: l.position}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				return Token{Type: ILLEGAL, Literal: "invalid escape sequence", Start: start, End: l.position + 1}
			}
			l.readChar()
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readDocstring consumes a `///` line. The literal is the raw text after the
// marker; the span starts at the marker, so byte i of the literal sits at
// source offset Start+3+i. Embedded expressions rely on that mapping for
// their spans.
func (l *Lexer) readDocstring() Token {
	start := l.position
	l.readChar()
	l.readChar()
	l.readChar() // consume "///"
	textStart := l.position
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
	return Token{Type: DOCSTRING, Literal: l.input[textStart:l.position], Start: start, End: l.position}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

package ast

import "fmt"

// Span is a half-open byte-offset range [Start, End) into a module's source
// text. Every AST node carries one so that later stages can point diagnostics
// back at the exact source region.
type Span struct {
	Start int
	End   int
}

func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// Join returns the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	joined := s
	if other.Start < joined.Start {
		joined.Start = other.Start
	}
	if other.End > joined.End {
		joined.End = other.End
	}
	return joined
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d..%d", s.Start, s.End)
}

// Spanned is embedded in every AST node to carry its source span.
type Spanned struct {
	Span Span
}

func (s Spanned) GetSpan() Span { return s.Span }

// Ident is an identifier together with its span.
type Ident struct {
	Name string
	Span Span
}

func (i Ident) String() string { return i.Name }

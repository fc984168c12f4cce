package ast

import "strings"

// TypeName is the syntactic form of a type: one or more alternatives joined
// with `|`, each optionally carrying `?` markers. Resolution to an actual
// type happens in the semantics layer.
type TypeName struct {
	Alternatives []MaybeTypeName
	Span         Span
}

func (t TypeName) GetSpan() Span { return t.Span }

func (t TypeName) String() string {
	parts := make([]string, len(t.Alternatives))
	for i, alt := range t.Alternatives {
		parts[i] = alt.String()
	}
	return strings.Join(parts, " | ")
}

// MaybeTypeName is a single alternative with its count of `?` option markers.
// `Int?` desugars to `None | Int` during resolution; more than one marker is
// a semantic error.
type MaybeTypeName struct {
	MaybeCount int
	Inner      SimpleTypeName
	Span       Span
}

func (m MaybeTypeName) String() string {
	return m.Inner.String() + strings.Repeat("?", m.MaybeCount)
}

// SimpleTypeName is one syntactic type form.
type SimpleTypeName interface {
	String() string
	simpleTypeName()
}

// TypePath names a type by path: `Int`, `Student`, `MyType`, `Result::Ok`,
// `mod::Type`.
type TypePath struct {
	Path NamespacePath
}

func (TypePath) simpleTypeName() {}

func (t TypePath) String() string { return t.Path.String() }

// TypeEmptyList is the written `[]` type.
type TypeEmptyList struct{}

func (TypeEmptyList) simpleTypeName() {}

func (TypeEmptyList) String() string { return "[]" }

// TypeList is `[T]`.
type TypeList struct {
	Elem TypeName
}

func (TypeList) simpleTypeName() {}

func (t TypeList) String() string { return "[" + t.Elem.String() + "]" }

// TypeTuple is `(T, U, ...)` with at least two elements.
type TypeTuple struct {
	Elems []TypeName
}

func (TypeTuple) simpleTypeName() {}

func (t TypeTuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// TypeStruct is `{field: T, ...}`.
type TypeStruct struct {
	Fields []StructFieldType
}

type StructFieldType struct {
	Name Ident
	Type TypeName
}

func (TypeStruct) simpleTypeName() {}

func (t TypeStruct) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Name.Name + ": " + f.Type.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// NamespacePath is one or more `::`-separated identifier segments.
type NamespacePath struct {
	Segments []Ident
	Span     Span
}

func (p NamespacePath) GetSpan() Span { return p.Span }

func (p NamespacePath) String() string {
	parts := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		parts[i] = s.Name
	}
	return strings.Join(parts, "::")
}

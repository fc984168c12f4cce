package colloml

import (
	"fmt"
	"sort"
	"strings"
)

// TypeKind discriminates the simple type forms.
type TypeKind int

const (
	// KindNever is the subtype of every type; no value has it.
	KindNever TypeKind = iota
	KindNone
	KindInt
	KindBool
	KindString
	KindLinExpr
	KindConstraint
	// KindEmptyList is the type of `[]`, a subtype of every list type.
	KindEmptyList
	KindList
	// KindObject is a host-provided object type, identified by name.
	KindObject
	KindTuple
	KindStruct
	// KindCustom is a script-declared named type or enum, identified by its
	// declaring module and name; Variant narrows it to a single enum
	// variant.
	KindCustom
)

// SimpleType is one member of a sum type. Only the fields relevant to Kind
// are set. SimpleTypes are immutable; identity and ordering are defined by
// Key.
type SimpleType struct {
	Kind    TypeKind
	Name    string      // object name, or custom type name
	Module  string      // declaring module for custom types
	Variant string      // enum variant, empty for the whole type
	Elem    *ExprType   // list element type
	Elems   []ExprType  // tuple elements
	Fields  []FieldType // struct fields, sorted by name
}

// FieldType is one field of a struct type.
type FieldType struct {
	Name string
	Type ExprType
}

func NeverType() SimpleType      { return SimpleType{Kind: KindNever} }
func NoneType() SimpleType       { return SimpleType{Kind: KindNone} }
func IntType() SimpleType        { return SimpleType{Kind: KindInt} }
func BoolType() SimpleType       { return SimpleType{Kind: KindBool} }
func StringType() SimpleType     { return SimpleType{Kind: KindString} }
func LinExprType() SimpleType    { return SimpleType{Kind: KindLinExpr} }
func ConstraintType() SimpleType { return SimpleType{Kind: KindConstraint} }
func EmptyListType() SimpleType  { return SimpleType{Kind: KindEmptyList} }

func ListOf(elem ExprType) SimpleType {
	return SimpleType{Kind: KindList, Elem: &elem}
}

func ObjectType(name string) SimpleType {
	return SimpleType{Kind: KindObject, Name: name}
}

func TupleOf(elems ...ExprType) SimpleType {
	return SimpleType{Kind: KindTuple, Elems: elems}
}

// StructOf builds a struct type; fields are sorted by name so field order in
// the source never affects identity.
func StructOf(fields []FieldType) SimpleType {
	sorted := make([]FieldType, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return SimpleType{Kind: KindStruct, Fields: sorted}
}

func CustomType(module, name string) SimpleType {
	return SimpleType{Kind: KindCustom, Module: module, Name: name}
}

func CustomVariantType(module, name, variant string) SimpleType {
	return SimpleType{Kind: KindCustom, Module: module, Name: name, Variant: variant}
}

// Key returns a canonical encoding of the type. Equal types have equal keys
// and keys define the ordering of variants inside a sum.
func (t SimpleType) Key() string {
	switch t.Kind {
	case KindNever:
		return "!never"
	case KindNone:
		return "!none"
	case KindInt:
		return "!int"
	case KindBool:
		return "!bool"
	case KindString:
		return "!string"
	case KindLinExpr:
		return "!linexpr"
	case KindConstraint:
		return "!constraint"
	case KindEmptyList:
		return "!emptylist"
	case KindList:
		return "[" + t.Elem.Key() + "]"
	case KindObject:
		return "obj:" + t.Name
	case KindTuple:
		keys := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			keys[i] = e.Key()
		}
		return "(" + strings.Join(keys, ",") + ")"
	case KindStruct:
		keys := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			keys[i] = f.Name + ":" + f.Type.Key()
		}
		return "{" + strings.Join(keys, ",") + "}"
	case KindCustom:
		key := "custom:" + t.Module + "::" + t.Name
		if t.Variant != "" {
			key += "::" + t.Variant
		}
		return key
	default:
		panic(fmt.Sprintf("unknown type kind %d", t.Kind))
	}
}

func (t SimpleType) Equal(other SimpleType) bool {
	return t.Key() == other.Key()
}

func (t SimpleType) IsPrimitive() bool {
	switch t.Kind {
	case KindInt, KindBool, KindString, KindLinExpr, KindConstraint, KindNone:
		return true
	}
	return false
}

func (t SimpleType) IsArithmetic() bool {
	return t.Kind == KindInt || t.Kind == KindLinExpr
}

func (t SimpleType) IsList() bool {
	return t.Kind == KindList || t.Kind == KindEmptyList
}

// IsConcrete reports whether the type contains no sums, so a value can be
// constructed for it without further choice.
func (t SimpleType) IsConcrete() bool {
	switch t.Kind {
	case KindList:
		return t.Elem.IsConcrete()
	case KindTuple:
		for _, e := range t.Elems {
			if !e.IsConcrete() {
				return false
			}
		}
		return true
	case KindStruct:
		for _, f := range t.Fields {
			if !f.Type.IsConcrete() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsSubtypeOf reports the structural subtype relation: Never is below
// everything, the empty list below every list, lists and tuples are
// covariant, an enum variant is below its enum.
func (t SimpleType) IsSubtypeOf(other SimpleType) bool {
	if t.Equal(other) {
		return true
	}
	switch {
	case t.Kind == KindNever:
		return true
	case t.Kind == KindEmptyList && other.Kind == KindList:
		return true
	case t.Kind == KindList && other.Kind == KindList:
		return t.Elem.IsSubtypeOf(*other.Elem)
	case t.Kind == KindTuple && other.Kind == KindTuple:
		if len(t.Elems) != len(other.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].IsSubtypeOf(other.Elems[i]) {
				return false
			}
		}
		return true
	case t.Kind == KindStruct && other.Kind == KindStruct:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != other.Fields[i].Name {
				return false
			}
			if !t.Fields[i].Type.IsSubtypeOf(other.Fields[i].Type) {
				return false
			}
		}
		return true
	case t.Kind == KindCustom && other.Kind == KindCustom:
		// A single variant is a subtype of its enum.
		return t.Module == other.Module && t.Name == other.Name &&
			t.Variant != "" && other.Variant == ""
	default:
		return false
	}
}

// CanConvertTo reports whether a cast call to the target type accepts a
// value of this type: identity, Int to LinExpr, element-wise for lists,
// tuples and structs, and anything to String.
func (t SimpleType) CanConvertTo(target ConcreteType) bool {
	tgt := target.Inner()
	if t.Equal(tgt) {
		return true
	}
	switch {
	case tgt.Kind == KindString:
		return true
	case t.Kind == KindInt && tgt.Kind == KindLinExpr:
		return true
	case t.Kind == KindEmptyList && tgt.Kind == KindList:
		return true
	case t.Kind == KindList && tgt.Kind == KindList:
		inner, ok := tgt.Elem.AsConcrete()
		if !ok {
			panic("conversion target must be concrete")
		}
		return t.Elem.CanConvertTo(inner)
	case t.Kind == KindTuple && tgt.Kind == KindTuple:
		if len(t.Elems) != len(tgt.Elems) {
			return false
		}
		for i := range t.Elems {
			inner, ok := tgt.Elems[i].AsConcrete()
			if !ok {
				panic("conversion target must be concrete")
			}
			if !t.Elems[i].CanConvertTo(inner) {
				return false
			}
		}
		return true
	case t.Kind == KindStruct && tgt.Kind == KindStruct:
		if len(t.Fields) != len(tgt.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != tgt.Fields[i].Name {
				return false
			}
			inner, ok := tgt.Fields[i].Type.AsConcrete()
			if !ok {
				panic("conversion target must be concrete")
			}
			if !t.Fields[i].Type.CanConvertTo(inner) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// OverlapsWith reports whether the two types share at least one value. It
// decides whether an `as` annotation can ever hold.
func (t SimpleType) OverlapsWith(other SimpleType) bool {
	if t.Kind == KindNever || other.Kind == KindNever {
		return true
	}
	if t.IsList() && other.IsList() {
		// The empty list inhabits every list type.
		return true
	}
	switch {
	case t.Kind != other.Kind:
		return false
	case t.Kind == KindObject:
		return t.Name == other.Name
	case t.Kind == KindCustom:
		return t.Module == other.Module && t.Name == other.Name &&
			(t.Variant == "" || other.Variant == "" || t.Variant == other.Variant)
	case t.Kind == KindTuple:
		if len(t.Elems) != len(other.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Overlaps(other.Elems[i]) {
				return false
			}
		}
		return true
	case t.Kind == KindStruct:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != other.Fields[i].Name {
				return false
			}
			if !t.Fields[i].Type.Overlaps(other.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t SimpleType) String() string {
	switch t.Kind {
	case KindNever:
		return "Never"
	case KindNone:
		return "None"
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindLinExpr:
		return "LinExpr"
	case KindConstraint:
		return "Constraint"
	case KindEmptyList:
		return "[]"
	case KindList:
		return "[" + t.Elem.String() + "]"
	case KindObject:
		return t.Name
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindStruct:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindCustom:
		name := t.Name
		if t.Variant != "" {
			name += "::" + t.Variant
		}
		return name
	default:
		return "?"
	}
}

// ExprType is a non-empty sum of simple types. Variants are kept in
// canonical key order with no variant a subtype of another; construction
// enforces both invariants.
type ExprType struct {
	variants []SimpleType
}

// Simple wraps a single simple type.
func Simple(t SimpleType) ExprType {
	return ExprType{variants: []SimpleType{t}}
}

// Maybe returns `None | t`, or false if t is itself None.
func Maybe(t SimpleType) (ExprType, bool) {
	if t.Kind == KindNone {
		return ExprType{}, false
	}
	return Sum(NoneType(), t)
}

// Sum builds the canonical sum of the given types: duplicates and variants
// subsumed by another variant are removed. It returns false when no types
// are given.
func Sum(types ...SimpleType) (ExprType, bool) {
	if len(types) == 0 {
		return ExprType{}, false
	}
	seen := make(map[string]bool, len(types))
	var variants []SimpleType
	for _, t := range types {
		key := t.Key()
		if !seen[key] {
			seen[key] = true
			variants = append(variants, t)
		}
	}
	variants = cleanSubtypes(variants)
	sort.Slice(variants, func(i, j int) bool { return variants[i].Key() < variants[j].Key() })
	return ExprType{variants: variants}, true
}

// cleanSubtypes drops every variant that is a strict subtype of another.
func cleanSubtypes(variants []SimpleType) []SimpleType {
	kept := make([]SimpleType, 0, len(variants))
	for i, v := range variants {
		subsumed := false
		for j, other := range variants {
			if i != j && v.IsSubtypeOf(other) && !other.IsSubtypeOf(v) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, v)
		}
	}
	return kept
}

// Variants returns the variants in canonical order. The slice must not be
// modified.
func (e ExprType) Variants() []SimpleType {
	return e.variants
}

// IsSimple reports whether there is exactly one variant.
func (e ExprType) IsSimple() bool {
	return len(e.variants) == 1
}

// AsSimple returns the single variant when there is exactly one.
func (e ExprType) AsSimple() (SimpleType, bool) {
	if len(e.variants) != 1 {
		return SimpleType{}, false
	}
	return e.variants[0], true
}

func (e ExprType) Contains(t SimpleType) bool {
	key := t.Key()
	for _, v := range e.variants {
		if v.Key() == key {
			return true
		}
	}
	return false
}

func (e ExprType) IsInt() bool        { return e.isSimpleKind(KindInt) }
func (e ExprType) IsBool() bool       { return e.isSimpleKind(KindBool) }
func (e ExprType) IsString() bool     { return e.isSimpleKind(KindString) }
func (e ExprType) IsLinExpr() bool    { return e.isSimpleKind(KindLinExpr) }
func (e ExprType) IsConstraint() bool { return e.isSimpleKind(KindConstraint) }
func (e ExprType) IsNone() bool       { return e.isSimpleKind(KindNone) }

func (e ExprType) isSimpleKind(kind TypeKind) bool {
	s, ok := e.AsSimple()
	return ok && s.Kind == kind
}

// IsList reports whether the single variant is a list (or the empty list).
func (e ExprType) IsList() bool {
	s, ok := e.AsSimple()
	return ok && s.IsList()
}

// HasList reports whether any variant is a list.
func (e ExprType) HasList() bool {
	for _, v := range e.variants {
		if v.IsList() {
			return true
		}
	}
	return false
}

// IsListOfConstraints reports whether the type is exactly [Constraint].
func (e ExprType) IsListOfConstraints() bool {
	s, ok := e.AsSimple()
	return ok && s.Kind == KindList && s.Elem.IsConstraint()
}

// InnerListType returns the element type when the single variant is a list;
// the empty list yields Never.
func (e ExprType) InnerListType() (ExprType, bool) {
	s, ok := e.AsSimple()
	if !ok {
		return ExprType{}, false
	}
	switch s.Kind {
	case KindList:
		return *s.Elem, true
	case KindEmptyList:
		return Simple(NeverType()), true
	}
	return ExprType{}, false
}

// IsArithmetic reports whether every variant is Int or LinExpr.
func (e ExprType) IsArithmetic() bool {
	for _, v := range e.variants {
		if !v.IsArithmetic() {
			return false
		}
	}
	return true
}

func (e ExprType) IsConcrete() bool {
	s, ok := e.AsSimple()
	return ok && s.IsConcrete()
}

// AsConcrete returns the type as a conversion target when it is a single
// concrete simple type.
func (e ExprType) AsConcrete() (ConcreteType, bool) {
	s, ok := e.AsSimple()
	if !ok || !s.IsConcrete() {
		return ConcreteType{}, false
	}
	return ConcreteType{inner: s}, true
}

// IsSubtypeOf reports whether every variant is a subtype of some variant of
// other.
func (e ExprType) IsSubtypeOf(other ExprType) bool {
	for _, v := range e.variants {
		found := false
		for _, o := range other.variants {
			if v.IsSubtypeOf(o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CanConvertTo reports whether every variant converts to the target.
func (e ExprType) CanConvertTo(target ConcreteType) bool {
	for _, v := range e.variants {
		if !v.CanConvertTo(target) {
			return false
		}
	}
	return true
}

// Unify returns the sum of both types' variants.
func (e ExprType) Unify(other ExprType) ExprType {
	all := make([]SimpleType, 0, len(e.variants)+len(other.variants))
	all = append(all, e.variants...)
	all = append(all, other.variants...)
	unified, ok := Sum(all...)
	if !ok {
		panic("unify of non-empty types cannot be empty")
	}
	return unified
}

// Overlaps reports whether some variant of e shares a value with some
// variant of other.
func (e ExprType) Overlaps(other ExprType) bool {
	for _, v := range e.variants {
		for _, o := range other.variants {
			if v.OverlapsWith(o) {
				return true
			}
		}
	}
	return false
}

// Subtract removes the variants of e subsumed by other; it returns false
// when nothing remains.
func (e ExprType) Subtract(other ExprType) (ExprType, bool) {
	var remaining []SimpleType
	for _, v := range e.variants {
		subsumed := false
		for _, o := range other.variants {
			if v.IsSubtypeOf(o) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			remaining = append(remaining, v)
		}
	}
	if len(remaining) == 0 {
		return ExprType{}, false
	}
	return Sum(remaining...)
}

// CrossCheck applies f to every pair of variants and sums the results; any
// error aborts. It implements the typing of binary operators over sums.
func (e ExprType) CrossCheck(other ExprType, f func(a, b SimpleType) (SimpleType, error)) (ExprType, error) {
	var results []SimpleType
	for _, v := range e.variants {
		for _, o := range other.variants {
			t, err := f(v, o)
			if err != nil {
				return ExprType{}, err
			}
			results = append(results, t)
		}
	}
	out, ok := Sum(results...)
	if !ok {
		panic("cross-check of non-empty types cannot be empty")
	}
	return out, nil
}

// Key returns a canonical encoding; equal types have equal keys.
func (e ExprType) Key() string {
	keys := make([]string, len(e.variants))
	for i, v := range e.variants {
		keys[i] = v.Key()
	}
	return strings.Join(keys, "|")
}

func (e ExprType) Equal(other ExprType) bool {
	return e.Key() == other.Key()
}

func (e ExprType) String() string {
	parts := make([]string, len(e.variants))
	for i, v := range e.variants {
		parts[i] = v.String()
	}
	return strings.Join(parts, " | ")
}

// ConcreteType is a simple type with no sums anywhere inside it, usable as a
// conversion target.
type ConcreteType struct {
	inner SimpleType
}

func (c ConcreteType) Inner() SimpleType { return c.inner }

func (c ConcreteType) String() string { return c.inner.String() }

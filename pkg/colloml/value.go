package colloml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ValueKind enumerates the runtime value shapes.
type ValueKind int

const (
	ValNone ValueKind = iota
	ValInt
	ValBool
	ValString
	ValLinExpr
	ValConstraint
	ValList
	ValTuple
	ValStruct
	ValObject
	ValCustom
)

// Value is a runtime value. Values are immutable; the slices they carry must
// not be modified after construction. A Constraint value is a set of
// elementary linear constraints, so conjunction is concatenation.
type Value struct {
	Kind ValueKind

	IntVal    int
	BoolVal   bool
	StringVal string
	Lin       LinExpr
	Cons      []LinConstraint
	Items     []Value      // list and tuple elements
	Fields    []FieldValue // struct fields, sorted by name
	Obj       Object

	// Custom wrapper: the declaring module, type name, optional variant and
	// the wrapped payload.
	Module  string
	Name    string
	Variant string
	Inner   *Value
}

type FieldValue struct {
	Name  string
	Value Value
}

func NoneValue() Value           { return Value{Kind: ValNone} }
func IntValue(n int) Value       { return Value{Kind: ValInt, IntVal: n} }
func BoolValue(b bool) Value     { return Value{Kind: ValBool, BoolVal: b} }
func StringValue(s string) Value { return Value{Kind: ValString, StringVal: s} }

func LinExprValue(e LinExpr) Value { return Value{Kind: ValLinExpr, Lin: e} }

func ConstraintValue(cons ...LinConstraint) Value {
	return Value{Kind: ValConstraint, Cons: cons}
}

func ListValue(items ...Value) Value { return Value{Kind: ValList, Items: items} }

func TupleValue(items ...Value) Value { return Value{Kind: ValTuple, Items: items} }

// StructValue builds a struct value; fields are sorted by name so field
// order never affects identity.
func StructValue(fields ...FieldValue) Value {
	sorted := make([]FieldValue, len(fields))
	copy(sorted, fields)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Name > sorted[j].Name; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return Value{Kind: ValStruct, Fields: sorted}
}

func ObjectValue(obj Object) Value { return Value{Kind: ValObject, Obj: obj} }

// CustomValue wraps a payload in a declared custom type or enum variant.
func CustomValue(module, name, variant string, inner Value) Value {
	return Value{Kind: ValCustom, Module: module, Name: name, Variant: variant, Inner: &inner}
}

// Key returns a canonical encoding of the value. Equal values have equal
// keys; keys are used for memoization, variable identity and equality tests.
func (v Value) Key() string {
	switch v.Kind {
	case ValNone:
		return "n"
	case ValInt:
		return "i" + strconv.Itoa(v.IntVal)
	case ValBool:
		if v.BoolVal {
			return "bT"
		}
		return "bF"
	case ValString:
		return "s" + strconv.Quote(v.StringVal)
	case ValLinExpr:
		return "l{" + v.Lin.Key() + "}"
	case ValConstraint:
		keys := make([]string, len(v.Cons))
		for i, c := range v.Cons {
			keys[i] = c.Key()
		}
		return "c{" + strings.Join(keys, ";") + "}"
	case ValList, ValTuple:
		prefix := "L"
		if v.Kind == ValTuple {
			prefix = "T"
		}
		keys := make([]string, len(v.Items))
		for i, item := range v.Items {
			keys[i] = item.Key()
		}
		return prefix + "[" + strings.Join(keys, ",") + "]"
	case ValStruct:
		keys := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			keys[i] = f.Name + "=" + f.Value.Key()
		}
		return "S{" + strings.Join(keys, ",") + "}"
	case ValObject:
		return "o<" + v.Obj.TypeName() + ":" + v.Obj.Key() + ">"
	case ValCustom:
		name := v.Name
		if v.Variant != "" {
			name += "::" + v.Variant
		}
		return "C<" + v.Module + "::" + name + ">" + v.Inner.Key()
	default:
		panic(fmt.Sprintf("unknown value kind %d", v.Kind))
	}
}

func (v Value) Equal(other Value) bool { return v.Key() == other.Key() }

// String renders the value the way the String cast does.
func (v Value) String() string {
	switch v.Kind {
	case ValNone:
		return "none"
	case ValInt:
		return strconv.Itoa(v.IntVal)
	case ValBool:
		if v.BoolVal {
			return "true"
		}
		return "false"
	case ValString:
		return v.StringVal
	case ValLinExpr:
		return v.Lin.String()
	case ValConstraint:
		parts := make([]string, len(v.Cons))
		for i, c := range v.Cons {
			parts[i] = c.String()
		}
		return strings.Join(parts, "; ")
	case ValList:
		return "[" + joinValues(v.Items) + "]"
	case ValTuple:
		return "(" + joinValues(v.Items) + ")"
	case ValStruct:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.Name + ": " + f.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ValObject:
		return v.Obj.TypeName() + "<" + v.Obj.Key() + ">"
	case ValCustom:
		name := v.Name
		if v.Variant != "" {
			name += "::" + v.Variant
		}
		if v.Inner.Kind == ValNone {
			return name
		}
		return name + "(" + v.Inner.String() + ")"
	default:
		panic(fmt.Sprintf("unknown value kind %d", v.Kind))
	}
}

func joinValues(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

// FitsType reports whether the value inhabits the type: some variant of the
// sum must accept it.
func (v Value) FitsType(t ExprType) bool {
	for _, variant := range t.Variants() {
		if v.fitsSimple(variant) {
			return true
		}
	}
	return false
}

func (v Value) fitsSimple(t SimpleType) bool {
	switch t.Kind {
	case KindNever:
		return false
	case KindNone:
		return v.Kind == ValNone
	case KindInt:
		return v.Kind == ValInt
	case KindBool:
		return v.Kind == ValBool
	case KindString:
		return v.Kind == ValString
	case KindLinExpr:
		return v.Kind == ValLinExpr
	case KindConstraint:
		return v.Kind == ValConstraint
	case KindEmptyList:
		return v.Kind == ValList && len(v.Items) == 0
	case KindList:
		if v.Kind != ValList {
			return false
		}
		for _, item := range v.Items {
			if !item.FitsType(*t.Elem) {
				return false
			}
		}
		return true
	case KindObject:
		return v.Kind == ValObject && v.Obj.TypeName() == t.Name
	case KindTuple:
		if v.Kind != ValTuple || len(v.Items) != len(t.Elems) {
			return false
		}
		for i, item := range v.Items {
			if !item.FitsType(t.Elems[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if v.Kind != ValStruct || len(v.Fields) != len(t.Fields) {
			return false
		}
		for i, f := range v.Fields {
			if f.Name != t.Fields[i].Name || !f.Value.FitsType(t.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindCustom:
		if v.Kind != ValCustom || v.Module != t.Module || v.Name != t.Name {
			return false
		}
		// A type without a variant accepts any variant of the enum.
		return t.Variant == "" || v.Variant == t.Variant
	default:
		panic(fmt.Sprintf("unknown type kind %d", t.Kind))
	}
}

// Validate checks, recursively, that the value only mentions types the
// program knows about: declared host object types and declared custom types
// with a payload that fits their underlying type. Host values that fail this
// are a caller error.
func (v Value) Validate(env *GlobalEnv) error {
	switch v.Kind {
	case ValList, ValTuple:
		for _, item := range v.Items {
			if err := item.Validate(env); err != nil {
				return err
			}
		}
	case ValStruct:
		for _, f := range v.Fields {
			if err := f.Value.Validate(env); err != nil {
				return err
			}
		}
	case ValObject:
		if _, ok := env.schema.Objects[v.Obj.TypeName()]; !ok {
			return errors.Errorf("object %q has undeclared type %q", v.Obj.Key(), v.Obj.TypeName())
		}
	case ValCustom:
		name := v.Name
		if v.Variant != "" {
			name += "::" + v.Variant
		}
		underlying, ok := env.customUnderlying(v.Module, name)
		if !ok {
			return errors.Errorf("value of undeclared type %s::%s", v.Module, name)
		}
		if err := v.Inner.Validate(env); err != nil {
			return err
		}
		if !v.Inner.FitsType(underlying) {
			return errors.Errorf("payload of %s::%s does not fit its underlying type %s", v.Module, name, underlying)
		}
	}
	return nil
}

package colloml

import (
	"github.com/pkg/errors"
)

// ObjectSchema maps the field names of one host object type to their
// declared field types. Field types use the same sum representation as the
// rest of the language, so list-of-object and optional fields are allowed.
type ObjectSchema map[string]ExprType

// HostSchema is the static world a program is compiled against: the host's
// object types and the externally supplied variables with their parameter
// types.
type HostSchema struct {
	Objects   map[string]ObjectSchema
	Externals map[string][]ExprType
}

// Object is one live instance supplied by the host environment. TypeName
// must report the declared type the instance belongs to; a mismatch with the
// schema the program was compiled against is detected at evaluation time.
type Object interface {
	TypeName() string
	// Key is a stable identity used for value ordering and memo keys. Two
	// objects compare equal exactly when their keys are equal.
	Key() string
	Field(name string) (Value, error)
}

// Environment enumerates live host objects during evaluation. It is consumed
// by the evaluator, never implemented by it.
type Environment interface {
	ObjectsOf(typeName string) ([]Object, error)
}

// ExternalVarResolver turns a call on an externally declared variable into a
// concrete host variable identity, or rejects it.
type ExternalVarResolver interface {
	ResolveVar(name string, args []Value) (IlpVar, error)
}

// SchemaExternalVars resolves external variables directly against a
// HostSchema: it validates argument count and types and builds the base
// variable identity from the call itself.
type SchemaExternalVars struct {
	Schema HostSchema
}

func (s SchemaExternalVars) ResolveVar(name string, args []Value) (IlpVar, error) {
	params, ok := s.Schema.Externals[name]
	if !ok {
		return IlpVar{}, errors.Errorf("unknown external variable $%s", name)
	}
	if len(args) != len(params) {
		return IlpVar{}, errors.Errorf("$%s expects %d arguments, got %d", name, len(params), len(args))
	}
	for i, arg := range args {
		if !arg.FitsType(params[i]) {
			return IlpVar{}, errors.Errorf("$%s argument %d: expected %s, got %s", name, i+1, params[i], arg)
		}
	}
	return BaseVar(name, args), nil
}

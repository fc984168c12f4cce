package main

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/collomatique/colloml/pkg/colloml"
)

// Manifest represents a colloml.toml schema file. It declares the host
// object types a program compiles against and the external variables with
// their parameter types:
//
//	[objects.Student]
//	name = "String"
//	age = "Int"
//
//	[externals]
//	assigned = ["Student", "Int"]
//	rest_time = []
//
// Type strings are a primitive name (Int, Bool, String), a declared object
// type name, `[T]` for a list, or a trailing `?` for an optional value.
type Manifest struct {
	Objects   map[string]map[string]string `toml:"objects"`
	Externals map[string][]string          `toml:"externals"`
}

// loadManifest reads a colloml.toml file and resolves it into a host schema.
func loadManifest(path string) (colloml.HostSchema, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return colloml.HostSchema{}, errors.Wrapf(err, "reading manifest %s", path)
	}
	schema, err := m.Schema()
	if err != nil {
		return colloml.HostSchema{}, errors.Wrapf(err, "manifest %s", path)
	}
	return schema, nil
}

// Schema resolves the manifest's type strings into a host schema.
func (m Manifest) Schema() (colloml.HostSchema, error) {
	schema := colloml.HostSchema{
		Objects:   make(map[string]colloml.ObjectSchema, len(m.Objects)),
		Externals: make(map[string][]colloml.ExprType, len(m.Externals)),
	}
	for name, fields := range m.Objects {
		obj := make(colloml.ObjectSchema, len(fields))
		for field, spec := range fields {
			t, err := parseManifestType(spec)
			if err != nil {
				return colloml.HostSchema{}, errors.Wrapf(err, "object %s, field %s", name, field)
			}
			obj[field] = t
		}
		schema.Objects[name] = obj
	}
	for name, params := range m.Externals {
		types := make([]colloml.ExprType, len(params))
		for i, spec := range params {
			t, err := parseManifestType(spec)
			if err != nil {
				return colloml.HostSchema{}, errors.Wrapf(err, "external %s, parameter %d", name, i+1)
			}
			types[i] = t
		}
		schema.Externals[name] = types
	}
	return schema, nil
}

func parseManifestType(spec string) (colloml.ExprType, error) {
	spec = strings.TrimSpace(spec)
	if inner, ok := strings.CutSuffix(spec, "?"); ok {
		elem, err := parseManifestType(inner)
		if err != nil {
			return colloml.ExprType{}, err
		}
		simple, ok := elem.AsSimple()
		if !ok {
			return colloml.ExprType{}, errors.Errorf("invalid type %q: `?` cannot nest", spec)
		}
		maybe, ok := colloml.Maybe(simple)
		if !ok {
			return colloml.ExprType{}, errors.Errorf("invalid type %q", spec)
		}
		return maybe, nil
	}
	if strings.HasPrefix(spec, "[") {
		inner, ok := strings.CutSuffix(strings.TrimPrefix(spec, "["), "]")
		if !ok {
			return colloml.ExprType{}, errors.Errorf("invalid type %q: missing ']'", spec)
		}
		elem, err := parseManifestType(inner)
		if err != nil {
			return colloml.ExprType{}, err
		}
		return colloml.Simple(colloml.ListOf(elem)), nil
	}
	switch spec {
	case "Int":
		return colloml.Simple(colloml.IntType()), nil
	case "Bool":
		return colloml.Simple(colloml.BoolType()), nil
	case "String":
		return colloml.Simple(colloml.StringType()), nil
	case "None", "Never", "LinExpr", "Constraint":
		return colloml.ExprType{}, errors.Errorf("type %s is not allowed in a schema", spec)
	}
	if !isTypeName(spec) {
		return colloml.ExprType{}, errors.Errorf("invalid type %q", spec)
	}
	return colloml.Simple(colloml.ObjectType(spec)), nil
}

func isTypeName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z'
		digit := '0' <= r && r <= '9'
		if !letter && !(digit && i > 0) {
			return false
		}
	}
	return true
}

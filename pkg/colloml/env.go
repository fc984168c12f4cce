package colloml

import (
	"github.com/collomatique/colloml/pkg/ast"
	"github.com/pkg/errors"
)

// GlobalEnv holds everything declared across the whole program: host schema,
// custom types, functions, reified variables, and the per-module symbol
// tables that drive name resolution. It is built once by Compile and then
// read-only.
type GlobalEnv struct {
	schema      HostSchema
	moduleOrder []string

	customTypes map[symKey]*TypeDesc
	functions   map[symKey]*FunctionDesc
	variables   map[symKey]*VariableDesc

	// symbols maps each module to the names visible in it. Imported entries
	// point back at their declaring module.
	symbols map[string]map[string]symbol

	// resolvedTypes caches, per module, the type every syntactic type
	// annotation resolved to, keyed by the annotation's span. The evaluator
	// reads these for `as` casts and global lists.
	resolvedTypes map[string]map[ast.Span]ExprType

	// typeOf caches, per module, the checked type of every expression.
	typeOf map[string]map[ast.Span]ExprType
}

func newGlobalEnv(schema HostSchema) *GlobalEnv {
	return &GlobalEnv{
		schema:        schema,
		customTypes:   make(map[symKey]*TypeDesc),
		functions:     make(map[symKey]*FunctionDesc),
		variables:     make(map[symKey]*VariableDesc),
		symbols:       make(map[string]map[string]symbol),
		resolvedTypes: make(map[string]map[ast.Span]ExprType),
		typeOf:        make(map[string]map[ast.Span]ExprType),
	}
}

func (g *GlobalEnv) moduleSymbols(module string) map[string]symbol {
	tbl, ok := g.symbols[module]
	if !ok {
		tbl = make(map[string]symbol)
		g.symbols[module] = tbl
	}
	return tbl
}

// lookupField returns the declared type of a field of a host object type.
func (g *GlobalEnv) lookupField(typeName, field string) (ExprType, bool) {
	schema, ok := g.schema.Objects[typeName]
	if !ok {
		return ExprType{}, false
	}
	typ, ok := schema[field]
	return typ, ok
}

// customUnderlying returns the underlying type of a custom type or enum
// variant. Name may be qualified as "Enum::Variant".
func (g *GlobalEnv) customUnderlying(module, name string) (ExprType, bool) {
	desc, ok := g.customTypes[symKey{module, name}]
	if !ok {
		return ExprType{}, false
	}
	return desc.Underlying, true
}

// builtinTypeNames maps the reserved single-segment type names.
var builtinTypeNames = map[string]SimpleType{
	"Int":        IntType(),
	"Bool":       BoolType(),
	"String":     StringType(),
	"LinExpr":    LinExprType(),
	"Constraint": ConstraintType(),
	"None":       NoneType(),
	"Never":      NeverType(),
}

// resolvedKind tags what a namespace path resolved to.
type resolvedKind int

const (
	resolvedLocal resolvedKind = iota
	resolvedFunction
	resolvedType
	resolvedModule
)

type resolvedPath struct {
	kind   resolvedKind
	local  string        // resolvedLocal: the bound name
	fn     symKey        // resolvedFunction
	simple SimpleType    // resolvedType
	module string        // resolvedModule: the origin module
}

// resolvePath resolves a namespace path from inside module, consulting the
// local scope of env last. Resolution order is fixed: builtin type names
// first, then host object types, then the module symbol table, then local
// bindings. Host names can therefore never be shadowed.
func (g *GlobalEnv) resolvePath(path ast.NamespacePath, module string, local *checkEnv) (resolvedPath, error) {
	segs := path.Segments
	if len(segs) == 1 {
		name := segs[0].Name
		if t, ok := builtinTypeNames[name]; ok {
			return resolvedPath{kind: resolvedType, simple: t}, nil
		}
		if _, ok := g.schema.Objects[name]; ok {
			return resolvedPath{kind: resolvedType, simple: ObjectType(name)}, nil
		}
		if sym, ok := g.symbols[module][name]; ok {
			return g.resolveSymbol(sym)
		}
		if local != nil {
			if _, ok := local.lookup(name); ok {
				return resolvedPath{kind: resolvedLocal, local: name}, nil
			}
		}
		return resolvedPath{}, errors.Errorf("unknown identifier %q", name)
	}

	// Qualified path: the first segment must name a module alias or an enum
	// declared in (or imported into) the current module.
	first := segs[0].Name
	sym, ok := g.symbols[module][first]
	if !ok {
		return resolvedPath{}, errors.Errorf("unknown identifier %q", first)
	}
	switch sym.kind {
	case symModule:
		origin := sym.module
		rest := segs[1:]
		target, ok := g.symbols[origin][rest[0].Name]
		if !ok || target.module != origin {
			return resolvedPath{}, errors.Errorf("module %q has no symbol %q", origin, rest[0].Name)
		}
		if !g.symbolPublic(target) {
			return resolvedPath{}, errors.Errorf("%s %q of module %q is private", target.kind, rest[0].Name, origin)
		}
		if len(rest) == 1 {
			return g.resolveSymbol(target)
		}
		if len(rest) == 2 && target.kind == symCustomType {
			return g.resolveVariant(target, rest[1].Name)
		}
		return resolvedPath{}, errors.Errorf("cannot resolve path %q", path.String())
	case symCustomType:
		if len(segs) == 2 {
			return g.resolveVariant(sym, segs[1].Name)
		}
		return resolvedPath{}, errors.Errorf("cannot resolve path %q", path.String())
	default:
		return resolvedPath{}, errors.Errorf("%q is a %s, not a module or enum", first, sym.kind)
	}
}

func (g *GlobalEnv) resolveSymbol(sym symbol) (resolvedPath, error) {
	switch sym.kind {
	case symModule:
		return resolvedPath{kind: resolvedModule, module: sym.module}, nil
	case symFunction:
		return resolvedPath{kind: resolvedFunction, fn: symKey{sym.module, sym.name}}, nil
	case symCustomType:
		return resolvedPath{kind: resolvedType, simple: CustomType(sym.module, sym.name)}, nil
	default:
		return resolvedPath{}, errors.Errorf("%q is a %s and cannot appear in this position", sym.name, sym.kind)
	}
}

func (g *GlobalEnv) resolveVariant(enum symbol, variant string) (resolvedPath, error) {
	qualified := enum.name + "::" + variant
	if _, ok := g.customTypes[symKey{enum.module, qualified}]; !ok {
		return resolvedPath{}, errors.Errorf("type %q has no variant %q", enum.name, variant)
	}
	return resolvedPath{kind: resolvedType, simple: CustomVariantType(enum.module, enum.name, variant)}, nil
}

// symbolPublic reports whether a symbol may be seen from another module.
func (g *GlobalEnv) symbolPublic(sym symbol) bool {
	key := symKey{sym.module, sym.name}
	switch sym.kind {
	case symFunction:
		if fn, ok := g.functions[key]; ok {
			return fn.Public
		}
	case symCustomType:
		if t, ok := g.customTypes[key]; ok {
			return t.Public
		}
	case symVariable, symVariableList:
		if v, ok := g.variables[key]; ok {
			return v.Public
		}
	case symModule:
		return true
	}
	return false
}

// resolveVariable resolves a `$Name` or `$[Name]` call site. Unqualified
// names try the host's external variables first, then the current module's
// reified variables. Qualified names go through a module alias and require
// the target be public.
func (g *GlobalEnv) resolveVariable(module string, qualifier *ast.Ident, name string, list bool) (external bool, desc *VariableDesc, err error) {
	wantKind := symVariable
	if list {
		wantKind = symVariableList
	}
	if qualifier == nil {
		if !list {
			if _, ok := g.schema.Externals[name]; ok {
				return true, nil, nil
			}
		}
		sym, ok := g.symbols[module][name]
		if !ok || sym.kind != wantKind {
			return false, nil, errors.Errorf("unknown variable $%s", variableDisplay(name, list))
		}
		return false, g.variables[symKey{sym.module, sym.name}], nil
	}

	alias, ok := g.symbols[module][qualifier.Name]
	if !ok || alias.kind != symModule {
		return false, nil, errors.Errorf("unknown module %q", qualifier.Name)
	}
	origin := alias.module
	sym, ok := g.symbols[origin][name]
	if !ok || sym.kind != wantKind || sym.module != origin {
		return false, nil, errors.Errorf("module %q has no variable $%s", qualifier.Name, variableDisplay(name, list))
	}
	target := g.variables[symKey{origin, name}]
	if !target.Public {
		return false, nil, errors.Errorf("variable $%s of module %q is private", variableDisplay(name, list), qualifier.Name)
	}
	return false, target, nil
}

func variableDisplay(name string, list bool) string {
	if list {
		return "[" + name + "]"
	}
	return name
}

// resolveTypeName turns a syntactic type annotation into an ExprType,
// reporting every problem through ce. A nil result means resolution failed.
func (g *GlobalEnv) resolveTypeName(tn ast.TypeName, ce *checkEnv) (ExprType, bool) {
	var variants []SimpleType
	ok := true
	for _, alt := range tn.Alternatives {
		simple, altOK := g.resolveSimpleTypeName(alt.Inner, alt.Span, ce)
		if !altOK {
			ok = false
			continue
		}
		switch {
		case alt.MaybeCount > 1:
			ce.errorf(alt.Span, "multiple option markers on %q", alt.String())
			ok = false
			continue
		case alt.MaybeCount == 1 && simple.Kind == KindNone:
			ce.errorf(alt.Span, "option marker on None is meaningless")
			ok = false
			continue
		case alt.MaybeCount == 1:
			variants = append(variants, NoneType())
		}
		variants = append(variants, simple)
	}
	if !ok {
		return ExprType{}, false
	}

	// Reject redundant alternatives before canonicalization would silently
	// drop them.
	for i := 0; i < len(variants); i++ {
		for j := i + 1; j < len(variants); j++ {
			a, b := variants[i], variants[j]
			if a.Equal(b) {
				ce.errorf(tn.Span, "duplicate alternative %s in type", a)
				return ExprType{}, false
			}
			if a.IsSubtypeOf(b) || b.IsSubtypeOf(a) {
				ce.errorf(tn.Span, "alternatives %s and %s overlap in type", a, b)
				return ExprType{}, false
			}
		}
	}

	sum, nonEmpty := Sum(variants...)
	if !nonEmpty {
		ce.errorf(tn.Span, "empty type")
		return ExprType{}, false
	}
	ce.resolvedTypes[tn.Span] = sum
	return sum, true
}

func (g *GlobalEnv) resolveSimpleTypeName(stn ast.SimpleTypeName, span ast.Span, ce *checkEnv) (SimpleType, bool) {
	switch t := stn.(type) {
	case ast.TypePath:
		resolved, err := g.resolvePath(t.Path, ce.module, nil)
		if err != nil {
			ce.errorf(t.Path.Span, "%s", err.Error())
			return SimpleType{}, false
		}
		if resolved.kind != resolvedType {
			ce.errorf(t.Path.Span, "%q does not name a type", t.Path.String())
			return SimpleType{}, false
		}
		return resolved.simple, true
	case ast.TypeEmptyList:
		return EmptyListType(), true
	case ast.TypeList:
		elem, ok := g.resolveTypeName(t.Elem, ce)
		if !ok {
			return SimpleType{}, false
		}
		return ListOf(elem), true
	case ast.TypeTuple:
		elems := make([]ExprType, 0, len(t.Elems))
		allOK := true
		for _, e := range t.Elems {
			elem, ok := g.resolveTypeName(e, ce)
			if !ok {
				allOK = false
				continue
			}
			elems = append(elems, elem)
		}
		if !allOK {
			return SimpleType{}, false
		}
		return TupleOf(elems...), true
	case ast.TypeStruct:
		seen := make(map[string]ast.Span, len(t.Fields))
		fields := make([]FieldType, 0, len(t.Fields))
		allOK := true
		for _, f := range t.Fields {
			if prev, dup := seen[f.Name.Name]; dup {
				ce.errorf(f.Name.Span, "duplicate struct field %q (previous at %s)", f.Name.Name, prev)
				allOK = false
				continue
			}
			seen[f.Name.Name] = f.Name.Span
			ft, ok := g.resolveTypeName(f.Type, ce)
			if !ok {
				allOK = false
				continue
			}
			fields = append(fields, FieldType{Name: f.Name.Name, Type: ft})
		}
		if !allOK {
			return SimpleType{}, false
		}
		return StructOf(fields), true
	default:
		panic(errors.Errorf("unknown type syntax %T", stn))
	}
}

// resolveForAccess unwraps custom types down to their leaf simple types so
// field and tuple access can look through type aliases and enum variants.
func (g *GlobalEnv) resolveForAccess(typ ExprType) []SimpleType {
	visited := make(map[string]bool)
	var out []SimpleType
	var walkSimple func(t SimpleType)
	var walk func(t ExprType)
	walkSimple = func(t SimpleType) {
		if t.Kind != KindCustom {
			out = append(out, t)
			return
		}
		name := t.Name
		if t.Variant != "" {
			name += "::" + t.Variant
		}
		key := t.Module + "::" + name
		if visited[key] {
			return
		}
		visited[key] = true
		if underlying, ok := g.customUnderlying(t.Module, name); ok {
			walk(underlying)
		}
	}
	walk = func(t ExprType) {
		for _, v := range t.Variants() {
			walkSimple(v)
		}
	}
	walk(typ)
	return out
}

// canConvertWithCustomTypes extends plain conversion with one level of
// custom-type wrapping or unwrapping: a value converts into a custom type
// whose underlying type it converts to, and out of a custom type whose
// underlying type converts to the target.
func (g *GlobalEnv) canConvertWithCustomTypes(from ExprType, to ConcreteType) bool {
	target := to.Inner()
	if target.Kind == KindCustom {
		name := target.Name
		if target.Variant != "" {
			name += "::" + target.Variant
		}
		if underlying, ok := g.customUnderlying(target.Module, name); ok {
			if uc, concrete := underlying.AsConcrete(); concrete && from.CanConvertTo(uc) {
				return true
			}
		}
	}
	if src, ok := from.AsSimple(); ok && src.Kind == KindCustom {
		name := src.Name
		if src.Variant != "" {
			name += "::" + src.Variant
		}
		if underlying, ok := g.customUnderlying(src.Module, name); ok {
			if underlying.CanConvertTo(to) {
				return true
			}
		}
	}
	return false
}

package colloml

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"

	"github.com/collomatique/colloml/pkg/ast"
	"github.com/collomatique/colloml/pkg/parser"
)

// Source is one module to compile.
type Source struct {
	Module string
	Text   string
}

// Compile parses and checks an ordered set of modules against a host schema.
// Declarations are strictly ordered: a name can only be referenced after the
// statement that declares it, and a module only after an import statement
// bringing it in. Import cycles are rejected. Warnings are returned even
// when compilation fails.
func Compile(sources []Source, schema HostSchema) (*Program, []*Warning, error) {
	var result *multierror.Error
	var warnings []*Warning

	files := make(map[string]*ast.File, len(sources))
	order := make([]string, 0, len(sources))
	for _, src := range sources {
		if _, dup := files[src.Module]; dup {
			result = multierror.Append(result, errors.Errorf("duplicate module %q", src.Module))
			continue
		}
		file, err := parser.Parse(src.Text)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "module %q", src.Module))
			continue
		}
		files[src.Module] = file
		order = append(order, src.Module)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, warnings, err
	}

	topo, err := topoSortModules(order, files)
	if err != nil {
		return nil, warnings, err
	}

	env := newGlobalEnv(schema)
	env.moduleOrder = topo

	var compileErrors []*CompileError
	for _, module := range topo {
		checkModule(env, module, files[module], &compileErrors, &warnings)
	}
	reportUnused(env, &warnings)

	if len(compileErrors) > 0 {
		for _, ce := range compileErrors {
			result = multierror.Append(result, ce)
		}
		return nil, warnings, result.ErrorOrNil()
	}
	return &Program{env: env}, warnings, nil
}

// topoSortModules orders modules so every import points backwards. Ties are
// broken by declaration order so the result is deterministic.
func topoSortModules(order []string, files map[string]*ast.File) ([]string, error) {
	position := make(map[string]int, len(order))
	for i, m := range order {
		position[m] = i
	}

	deps := make(map[string][]string, len(order))
	indegree := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))
	for _, module := range order {
		seen := make(map[string]bool)
		for _, stmt := range files[module].Statements {
			imp, ok := stmt.(*ast.ImportStmt)
			if !ok {
				continue
			}
			target := imp.Module.Name
			if _, known := position[target]; !known {
				return nil, errors.Errorf("module %q imports unknown module %q", module, target)
			}
			if target == module {
				return nil, errors.Errorf("module %q imports itself", module)
			}
			if !seen[target] {
				seen[target] = true
				deps[module] = append(deps[module], target)
				dependents[target] = append(dependents[target], module)
				indegree[module]++
			}
		}
	}

	ready := make([]string, 0, len(order))
	for _, m := range order {
		if indegree[m] == 0 {
			ready = append(ready, m)
		}
	}
	sortByPosition := func(ms []string) {
		sort.Slice(ms, func(i, j int) bool { return position[ms[i]] < position[ms[j]] })
	}
	sortByPosition(ready)

	topo := make([]string, 0, len(order))
	for len(ready) > 0 {
		m := ready[0]
		ready = ready[1:]
		topo = append(topo, m)
		released := false
		for _, dep := range dependents[m] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
				released = true
			}
		}
		if released {
			sortByPosition(ready)
		}
	}
	if len(topo) != len(order) {
		var stuck []string
		for _, m := range order {
			if indegree[m] > 0 {
				stuck = append(stuck, m)
			}
		}
		return nil, errors.Errorf("import cycle between modules %v", stuck)
	}
	return topo, nil
}

// checkModule processes one module's statements in declaration order.
// Symbols become visible only once their statement has been fully checked,
// so forward references, including self-recursion, are errors.
func checkModule(env *GlobalEnv, module string, file *ast.File, ces *[]*CompileError, warnings *[]*Warning) {
	ce := newCheckEnv(module, env, ces, warnings)
	for _, stmt := range file.Statements {
		switch s := stmt.(type) {
		case *ast.ImportStmt:
			checkImport(env, module, s, ce)
		case *ast.TypeDeclStmt:
			checkTypeDecl(env, module, s, ce)
		case *ast.EnumDeclStmt:
			checkEnumDecl(env, module, s, ce)
		case *ast.LetStmt:
			checkLetStmt(env, module, s, ce)
		case *ast.ReifyStmt:
			checkReifyStmt(env, module, s, ce)
		}
	}
	env.resolvedTypes[module] = ce.resolvedTypes
	env.typeOf[module] = ce.typeOf
}

func checkImport(env *GlobalEnv, module string, s *ast.ImportStmt, ce *checkEnv) {
	origin := s.Module.Name
	tbl := env.moduleSymbols(module)
	if s.Wildcard {
		names := make([]string, 0)
		for name, sym := range env.moduleSymbols(origin) {
			if sym.module == origin && env.symbolPublic(sym) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			if _, taken := tbl[name]; taken {
				ce.errorf(s.Span, "wildcard import of %q: %q is already declared in this module", origin, name)
				continue
			}
			tbl[name] = env.symbols[origin][name]
		}
		return
	}
	alias := s.Alias.Name
	if _, taken := tbl[alias]; taken {
		ce.errorf(s.Alias.Span, "%q is already declared in this module", alias)
		return
	}
	tbl[alias] = symbol{kind: symModule, module: origin, name: origin}
}

func checkTypeDecl(env *GlobalEnv, module string, s *ast.TypeDeclStmt, ce *checkEnv) {
	warnPascalCase(ce, s.Name, "type")
	underlying, ok := env.resolveTypeName(s.Underlying, ce)
	if !ok {
		return
	}
	if !registerTypeName(env, module, s.Name, ce) {
		return
	}
	env.customTypes[symKey{module, s.Name.Name}] = &TypeDesc{
		Module:     module,
		Name:       s.Name.Name,
		Underlying: underlying,
		Public:     s.Public,
	}
	env.moduleSymbols(module)[s.Name.Name] = symbol{kind: symCustomType, module: module, name: s.Name.Name}
}

func checkEnumDecl(env *GlobalEnv, module string, s *ast.EnumDeclStmt, ce *checkEnv) {
	warnPascalCase(ce, s.Name, "type")

	seen := make(map[string]ast.Span, len(s.Variants))
	variantTypes := make([]SimpleType, 0, len(s.Variants))
	type pendingVariant struct {
		name       string
		underlying ExprType
	}
	pending := make([]pendingVariant, 0, len(s.Variants))
	ok := true
	for _, v := range s.Variants {
		warnPascalCase(ce, v.Name, "enum variant")
		if prev, dup := seen[v.Name.Name]; dup {
			ce.errorf(v.Name.Span, "duplicate variant %q (previous at %s)", v.Name.Name, prev)
			ok = false
			continue
		}
		seen[v.Name.Name] = v.Name.Span
		underlying := Simple(NoneType())
		if v.Payload != nil {
			payload, resolved := env.resolveTypeName(*v.Payload, ce)
			if !resolved {
				ok = false
				continue
			}
			underlying = payload
		}
		pending = append(pending, pendingVariant{name: v.Name.Name, underlying: underlying})
		variantTypes = append(variantTypes, CustomVariantType(module, s.Name.Name, v.Name.Name))
	}
	if !ok {
		return
	}
	if !registerTypeName(env, module, s.Name, ce) {
		return
	}

	rootUnderlying, nonEmpty := Sum(variantTypes...)
	if !nonEmpty {
		ce.errorf(s.Span, "enum %q has no variants", s.Name.Name)
		return
	}
	env.customTypes[symKey{module, s.Name.Name}] = &TypeDesc{
		Module:     module,
		Name:       s.Name.Name,
		Underlying: rootUnderlying,
		Public:     s.Public,
	}
	for _, v := range pending {
		qualified := s.Name.Name + "::" + v.name
		env.customTypes[symKey{module, qualified}] = &TypeDesc{
			Module:     module,
			Name:       qualified,
			Underlying: v.underlying,
			Public:     s.Public,
		}
	}
	env.moduleSymbols(module)[s.Name.Name] = symbol{kind: symCustomType, module: module, name: s.Name.Name}
}

// registerTypeName rejects type names that collide with builtins, host
// object types, or earlier declarations.
func registerTypeName(env *GlobalEnv, module string, name ast.Ident, ce *checkEnv) bool {
	if _, reserved := builtinTypeNames[name.Name]; reserved {
		ce.errorf(name.Span, "%q is a builtin type name", name.Name)
		return false
	}
	if _, taken := env.schema.Objects[name.Name]; taken {
		ce.errorf(name.Span, "%q is a host object type", name.Name)
		return false
	}
	if _, taken := env.moduleSymbols(module)[name.Name]; taken {
		ce.errorf(name.Span, "%q is already declared in this module", name.Name)
		return false
	}
	return true
}

func checkLetStmt(env *GlobalEnv, module string, s *ast.LetStmt, ce *checkEnv) {
	warnSnakeCase(ce, s.Name, "function")

	params := make([]ExprType, len(s.Params))
	paramNames := make([]string, len(s.Params))
	paramOK := make([]bool, len(s.Params))
	sigOK := true
	for i, p := range s.Params {
		warnSnakeCase(ce, p.Name, "parameter")
		paramNames[i] = p.Name.Name
		typ, ok := env.resolveTypeName(p.Type, ce)
		if !ok {
			sigOK = false
			continue
		}
		params[i] = typ
		paramOK[i] = true
	}
	output, outputOK := env.resolveTypeName(s.Output, ce)
	if !outputOK {
		sigOK = false
	}

	// Bind the parameters and check the body. The function itself is not
	// registered yet, so a recursive call is an unknown-identifier error.
	for i, p := range s.Params {
		if paramOK[i] {
			ce.register(p.Name.Name, p.Name.Span, params[i])
		}
	}
	ce.pushScope()
	bodyType := ce.checkExpr(s.Body)
	if bodyType != nil && sigOK && !bodyType.IsSubtypeOf(output) {
		ce.errorf(s.Body.GetSpan(), "function body has type %s, declared output is %s", bodyType, output)
	}
	checkDocstring(ce, s.Docstring)
	ce.popScope()

	if !sigOK {
		return
	}
	tbl := env.moduleSymbols(module)
	if _, taken := tbl[s.Name.Name]; taken {
		ce.errorf(s.Name.Span, "%q is already declared in this module", s.Name.Name)
		return
	}
	env.functions[symKey{module, s.Name.Name}] = &FunctionDesc{
		Module:     module,
		Name:       s.Name.Name,
		NameSpan:   s.Name.Span,
		Params:     params,
		ParamNames: paramNames,
		Output:     output,
		Public:     s.Public,
		Body:       s.Body,
		Docstring:  s.Docstring,
	}
	tbl[s.Name.Name] = symbol{kind: symFunction, module: module, name: s.Name.Name}
}

// checkDocstring type-checks embedded docstring expressions. They run in the
// scope of the declaration's parameters, so this must happen before the
// parameter scope is popped.
func checkDocstring(ce *checkEnv, lines []ast.DocstringLine) {
	for _, line := range lines {
		for _, part := range line {
			if part.Expr != nil {
				ce.checkExpr(part.Expr)
			}
		}
	}
}

func checkReifyStmt(env *GlobalEnv, module string, s *ast.ReifyStmt, ce *checkEnv) {
	warnPascalCase(ce, s.Name, "variable")

	resolved, err := env.resolvePath(s.Target, module, nil)
	if err != nil {
		ce.errorf(s.Target.Span, "%s", err.Error())
		return
	}
	if resolved.kind != resolvedFunction {
		ce.errorf(s.Target.Span, "%q does not name a function", s.Target.String())
		return
	}
	fn := env.functions[resolved.fn]

	if s.List {
		if !fn.Output.IsListOfConstraints() {
			ce.errorf(s.Target.Span, "reify as $[%s] requires a [Constraint] function, %q returns %s", s.Name.Name, fn.Name, fn.Output)
			return
		}
	} else if !fn.Output.IsConstraint() {
		ce.errorf(s.Target.Span, "reify as $%s requires a Constraint function, %q returns %s", s.Name.Name, fn.Name, fn.Output)
		return
	}
	fn.used = true

	if _, external := env.schema.Externals[s.Name.Name]; external && !s.List {
		ce.errorf(s.Name.Span, "$%s is an external variable and cannot be redeclared", s.Name.Name)
		return
	}
	tbl := env.moduleSymbols(module)
	if _, taken := tbl[s.Name.Name]; taken {
		ce.errorf(s.Name.Span, "%q is already declared in this module", s.Name.Name)
		return
	}

	kind := symVariable
	if s.List {
		kind = symVariableList
	}
	env.variables[symKey{module, s.Name.Name}] = &VariableDesc{
		Module: module,
		Name:   s.Name.Name,
		Span:   s.Name.Span,
		Public: s.Public,
		List:   s.List,
		Target: resolved.fn,
		Params: fn.Params,
	}
	tbl[s.Name.Name] = symbol{kind: kind, module: module, name: s.Name.Name}
}

// reportUnused warns about private declarations nothing ever referenced.
func reportUnused(env *GlobalEnv, warnings *[]*Warning) {
	keys := make([]symKey, 0, len(env.functions))
	for key := range env.functions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Module != keys[j].Module {
			return keys[i].Module < keys[j].Module
		}
		return keys[i].Name < keys[j].Name
	})
	for _, key := range keys {
		fn := env.functions[key]
		if !fn.Public && !fn.used {
			*warnings = append(*warnings, warningf(fn.Module, fn.NameSpan, "function %q is never used", fn.Name))
		}
	}

	vkeys := make([]symKey, 0, len(env.variables))
	for key := range env.variables {
		vkeys = append(vkeys, key)
	}
	sort.Slice(vkeys, func(i, j int) bool {
		if vkeys[i].Module != vkeys[j].Module {
			return vkeys[i].Module < vkeys[j].Module
		}
		return vkeys[i].Name < vkeys[j].Name
	})
	for _, key := range vkeys {
		v := env.variables[key]
		if !v.Public && !v.used {
			*warnings = append(*warnings, warningf(v.Module, v.Span, "variable $%s is never used", variableDisplay(v.Name, v.List)))
		}
	}
}

func warnSnakeCase(ce *checkEnv, ident ast.Ident, what string) {
	suggestion := strcase.ToSnake(ident.Name)
	if suggestion != ident.Name {
		ce.warnf(ident.Span, "%s %q should be snake_case (%q)", what, ident.Name, suggestion)
	}
}

func warnPascalCase(ce *checkEnv, ident ast.Ident, what string) {
	suggestion := strcase.ToCamel(ident.Name)
	if suggestion != ident.Name {
		ce.warnf(ident.Span, "%s %q should be PascalCase (%q)", what, ident.Name, suggestion)
	}
}

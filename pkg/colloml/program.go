package colloml

import (
	"sort"

	"github.com/collomatique/colloml/pkg/ast"
)

// Program is a fully checked set of modules. It is immutable after Compile
// and safe for concurrent evaluation sessions, each with its own history.
type Program struct {
	env *GlobalEnv
}

// Modules returns the module names in evaluation order: every import points
// at an earlier module.
func (p *Program) Modules() []string {
	out := make([]string, len(p.env.moduleOrder))
	copy(out, p.env.moduleOrder)
	return out
}

// Schema returns the host schema the program was compiled against.
func (p *Program) Schema() HostSchema {
	return p.env.schema
}

// Function returns the descriptor of a declared function.
func (p *Program) Function(module, name string) (*FunctionDesc, bool) {
	fn, ok := p.env.functions[symKey{module, name}]
	return fn, ok
}

// Functions lists a module's declared functions sorted by name.
func (p *Program) Functions(module string) []*FunctionDesc {
	var out []*FunctionDesc
	for key, fn := range p.env.functions {
		if key.Module == module {
			out = append(out, fn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Variable returns the descriptor of a reified variable or variable list.
func (p *Program) Variable(module, name string) (*VariableDesc, bool) {
	v, ok := p.env.variables[symKey{module, name}]
	return v, ok
}

// Variables lists every reified variable of the program in a stable order.
func (p *Program) Variables() []*VariableDesc {
	keys := make([]symKey, 0, len(p.env.variables))
	for key := range p.env.variables {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Module != keys[j].Module {
			return keys[i].Module < keys[j].Module
		}
		return keys[i].Name < keys[j].Name
	})
	out := make([]*VariableDesc, len(keys))
	for i, key := range keys {
		out[i] = p.env.variables[key]
	}
	return out
}

// TypeOfExpr returns the checked type of the expression at the given span of
// a module, when the checker recorded one.
func (p *Program) TypeOfExpr(module string, span ast.Span) (ExprType, bool) {
	t, ok := p.env.typeOf[module][span]
	return t, ok
}

// resolvedType returns the type a syntactic annotation resolved to.
func (p *Program) resolvedType(module string, span ast.Span) (ExprType, bool) {
	t, ok := p.env.resolvedTypes[module][span]
	return t, ok
}

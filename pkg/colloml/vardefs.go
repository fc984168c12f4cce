package colloml

import (
	"fmt"
)

// VariableDefinition is one resolved reified variable: the identity of the
// variable (or variable list), the constraint set its defining call
// produced, and the Origin of that call for diagnostics.
type VariableDefinition struct {
	Module string
	Name   string
	List   bool
	Args   []Value

	// Constraints holds the scalar definition; ListConstraints the list
	// form, indexed like the list's variables.
	Constraints     []LinConstraint
	ListConstraints [][]LinConstraint

	Origin Origin
}

// Var returns the solver variable a scalar definition stands for.
func (d VariableDefinition) Var() IlpVar {
	return ReifiedVar(d.Module, d.Name, d.Args)
}

// ListVars returns the solver variables of a list definition, one per
// element of the defining call's result.
func (d VariableDefinition) ListVars() []IlpVar {
	vars := make([]IlpVar, len(d.ListConstraints))
	for i := range d.ListConstraints {
		vars[i] = ReifiedListVar(d.Module, d.Name, d.Args, i)
	}
	return vars
}

// VariableDefinitions is the final output of an evaluation session: every
// reified variable used, in first-use order, with its defining constraints
// resolved.
type VariableDefinitions struct {
	Defs []VariableDefinition
}

// IntoVariableDefinitions resolves every recorded variable definition
// against the memoized call table. The defining call is always already in
// the table, and its cached result is always a Constraint (or list of
// Constraints): the evaluator put it there before recording the definition,
// and the checker fixed its type. A violation is a defect and panics.
func (h *EvalHistory) IntoVariableDefinitions() VariableDefinitions {
	defs := make([]VariableDefinition, 0, len(h.varDefs))
	for _, rec := range h.varDefs {
		key := callKey(rec.desc.Target.Module, rec.desc.Target.Name, rec.args)
		call, ok := h.lookup(key)
		if !ok {
			panic(fmt.Sprintf("defining call of $%s is missing from the history", variableDisplay(rec.desc.Name, rec.desc.List)))
		}
		def := VariableDefinition{
			Module: rec.desc.Module,
			Name:   rec.desc.Name,
			List:   rec.desc.List,
			Args:   rec.args,
			Origin: call.origin,
		}
		if rec.desc.List {
			if call.value.Kind != ValList {
				panic(fmt.Sprintf("cached result of $[%s] is not a list", rec.desc.Name))
			}
			def.ListConstraints = make([][]LinConstraint, len(call.value.Items))
			for i, item := range call.value.Items {
				if item.Kind != ValConstraint {
					panic(fmt.Sprintf("cached result of $[%s] holds a non-Constraint element", rec.desc.Name))
				}
				def.ListConstraints[i] = item.Cons
			}
		} else {
			if call.value.Kind != ValConstraint {
				panic(fmt.Sprintf("cached result of $%s is not a Constraint", rec.desc.Name))
			}
			def.Constraints = call.value.Cons
		}
		defs = append(defs, def)
	}
	return VariableDefinitions{Defs: defs}
}

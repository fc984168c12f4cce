// Package problem assembles evaluation results into a solver-ready set of
// variables and constraints. It merges the reified variable definitions an
// evaluation session produced with the base variables the host declares, and
// checks that every constraint only mentions declared variables.
package problem

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/collomatique/colloml/pkg/colloml"
)

// Constraint is one solver constraint with its provenance.
type Constraint struct {
	Constraint colloml.LinConstraint
	Origin     colloml.Origin
}

// Problem is the immutable solver-ready output.
type Problem struct {
	vars        []colloml.IlpVar
	constraints []Constraint
}

// Variables returns every declared variable, sorted by identity key.
func (p *Problem) Variables() []colloml.IlpVar {
	out := make([]colloml.IlpVar, len(p.vars))
	copy(out, p.vars)
	return out
}

// Constraints returns every constraint in the order it was added.
func (p *Problem) Constraints() []Constraint {
	out := make([]Constraint, len(p.constraints))
	copy(out, p.constraints)
	return out
}

// Satisfied reports whether an assignment (variable key to value) satisfies
// every constraint.
func (p *Problem) Satisfied(assignment map[string]int) bool {
	for _, c := range p.constraints {
		if !c.Constraint.Satisfied(assignment) {
			return false
		}
	}
	return true
}

// Builder accumulates variables and constraints before the final
// consistency check.
type Builder struct {
	vars        map[string]colloml.IlpVar
	constraints []Constraint
}

func NewBuilder() *Builder {
	return &Builder{vars: make(map[string]colloml.IlpVar)}
}

// DeclareVar adds one variable. Declaring the same identity twice is
// harmless.
func (b *Builder) DeclareVar(v colloml.IlpVar) *Builder {
	b.vars[v.Key()] = v
	return b
}

// AddConstraint adds a host-side constraint.
func (b *Builder) AddConstraint(c colloml.LinConstraint, origin colloml.Origin) *Builder {
	b.constraints = append(b.constraints, Constraint{Constraint: c, Origin: origin})
	return b
}

// AddDefinitions merges an evaluation session's output: every reified
// variable is declared and its defining constraints are enforced.
func (b *Builder) AddDefinitions(defs colloml.VariableDefinitions) *Builder {
	for _, def := range defs.Defs {
		if def.List {
			for _, v := range def.ListVars() {
				b.DeclareVar(v)
			}
			for _, set := range def.ListConstraints {
				for _, c := range set {
					b.AddConstraint(c, def.Origin)
				}
			}
			continue
		}
		b.DeclareVar(def.Var())
		for _, c := range def.Constraints {
			b.AddConstraint(c, def.Origin)
		}
	}
	return b
}

// Build checks that every constraint only mentions declared variables and
// freezes the problem.
func (b *Builder) Build() (*Problem, error) {
	for _, c := range b.constraints {
		for _, v := range c.Constraint.Variables() {
			if _, ok := b.vars[v.Key()]; !ok {
				return nil, errors.Errorf("constraint %s mentions undeclared variable %s", c.Constraint, v)
			}
		}
	}
	keys := make([]string, 0, len(b.vars))
	for key := range b.vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	vars := make([]colloml.IlpVar, len(keys))
	for i, key := range keys {
		vars[i] = b.vars[key]
	}
	constraints := make([]Constraint, len(b.constraints))
	copy(constraints, b.constraints)
	return &Problem{vars: vars, constraints: constraints}, nil
}

// SolveBinary exhaustively searches 0/1 assignments for one satisfying every
// constraint. It exists for small problems and tests; it is not a solver.
func (p *Problem) SolveBinary(maxVars int) (map[string]int, bool) {
	if len(p.vars) > maxVars {
		return nil, false
	}
	n := len(p.vars)
	assignment := make(map[string]int, n)
	for bits := 0; bits < 1<<n; bits++ {
		for i, v := range p.vars {
			assignment[v.Key()] = (bits >> i) & 1
		}
		if p.Satisfied(assignment) {
			out := make(map[string]int, n)
			for k, v := range assignment {
				out[k] = v
			}
			return out, true
		}
	}
	return nil, false
}

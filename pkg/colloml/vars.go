package colloml

import (
	"fmt"
	"strings"

	"github.com/collomatique/colloml/pkg/linexpr"
)

// IlpVar is the atomic unit of linear expressions handed to the solver. A
// base variable is supplied by the host and identified by its name and
// argument values. A reified variable stands for one recorded call of a
// `reify` target; it is identified by the declaring module, the reified
// name, the call arguments and, for list reifications, the index inside the
// returned list.
type IlpVar struct {
	Base      bool
	Module    string // empty for base variables
	Name      string
	Args      []Value
	FromList  bool
	ListIndex int
}

// BaseVar builds a host-defined variable identity.
func BaseVar(name string, args []Value) IlpVar {
	return IlpVar{Base: true, Name: name, Args: args}
}

// ReifiedVar builds the variable standing for one call of a reified
// constraint function.
func ReifiedVar(module, name string, args []Value) IlpVar {
	return IlpVar{Module: module, Name: name, Args: args}
}

// ReifiedListVar builds one element of a reified variable list.
func ReifiedListVar(module, name string, args []Value, index int) IlpVar {
	return IlpVar{Module: module, Name: name, Args: args, FromList: true, ListIndex: index}
}

// Key implements linexpr.Variable. Two IlpVars denote the same solver
// variable exactly when their keys are equal; reified names living in
// different modules therefore never collide.
func (v IlpVar) Key() string {
	var sb strings.Builder
	if v.Base {
		sb.WriteString("base:")
	} else {
		sb.WriteString("reified:")
		sb.WriteString(v.Module)
		sb.WriteString(":")
	}
	sb.WriteString(v.Name)
	for _, arg := range v.Args {
		sb.WriteString("\x00")
		sb.WriteString(arg.Key())
	}
	if v.FromList {
		fmt.Fprintf(&sb, "\x01%d", v.ListIndex)
	}
	return sb.String()
}

func (v IlpVar) String() string {
	var sb strings.Builder
	if !v.Base {
		sb.WriteString(v.Module)
		sb.WriteString("::")
	}
	sb.WriteString("$")
	if v.FromList {
		sb.WriteString("[")
		sb.WriteString(v.Name)
		sb.WriteString("]")
	} else {
		sb.WriteString(v.Name)
	}
	if len(v.Args) > 0 {
		parts := make([]string, len(v.Args))
		for i, arg := range v.Args {
			parts[i] = arg.String()
		}
		sb.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	if v.FromList {
		fmt.Fprintf(&sb, "[%d]", v.ListIndex)
	}
	return sb.String()
}

// LinExpr and LinConstraint fix the variable parameter of the generic
// linexpr types to IlpVar.
type LinExpr = linexpr.Expr[IlpVar]

type LinConstraint = linexpr.Constraint[IlpVar]

package colloml

import (
	"strings"
)

// Origin records where a value came from: the call that produced it and the
// rendered docstring lines of the function, with embedded expressions
// already evaluated against the call's own arguments.
type Origin struct {
	Module      string
	Function    string
	Args        []Value
	Description []string
}

func (o Origin) String() string {
	parts := make([]string, len(o.Args))
	for i, arg := range o.Args {
		parts[i] = arg.String()
	}
	return o.Module + "::" + o.Function + "(" + strings.Join(parts, ", ") + ")"
}

// callKey identifies a memoized call by module, function and the structural
// identity of its arguments.
func callKey(module, function string, args []Value) string {
	var sb strings.Builder
	sb.WriteString(module)
	sb.WriteString("\x00")
	sb.WriteString(function)
	for _, arg := range args {
		sb.WriteString("\x00")
		sb.WriteString(arg.Key())
	}
	return sb.String()
}

type callRecord struct {
	value  Value
	origin Origin
}

// varDefRecord is one recorded use of a reified variable: the variable and
// the argument values of the defining call. Resolution against the call
// table happens when the session ends.
type varDefRecord struct {
	desc *VariableDesc
	args []Value
}

// EvalHistory is the session-scoped memo of an evaluator: every function
// call evaluated so far and every reified variable definition recorded. It
// can be carried across Call invocations to share work within a session.
type EvalHistory struct {
	calls   map[string]callRecord
	varDefs []varDefRecord
	varSeen map[string]bool
}

func NewEvalHistory() *EvalHistory {
	return &EvalHistory{
		calls:   make(map[string]callRecord),
		varSeen: make(map[string]bool),
	}
}

func (h *EvalHistory) lookup(key string) (callRecord, bool) {
	rec, ok := h.calls[key]
	return rec, ok
}

func (h *EvalHistory) record(key string, value Value, origin Origin) {
	h.calls[key] = callRecord{value: value, origin: origin}
}

// recordVarDef registers a reified variable definition once per distinct
// (variable, arguments) pair, preserving first-use order.
func (h *EvalHistory) recordVarDef(desc *VariableDesc, args []Value) {
	key := callKey(desc.Module, "$"+desc.Name, args)
	if h.varSeen[key] {
		return
	}
	h.varSeen[key] = true
	h.varDefs = append(h.varDefs, varDefRecord{desc: desc, args: args})
}

// Calls returns the number of memoized calls.
func (h *EvalHistory) Calls() int {
	return len(h.calls)
}

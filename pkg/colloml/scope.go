package colloml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/collomatique/colloml/pkg/ast"
)

// localBinding is one identifier bound in a lexical scope.
type localBinding struct {
	typ  ExprType
	span ast.Span
	used bool
}

type localScope map[string]*localBinding

// checkEnv carries the mutable state of checking one function body: the
// lexical scope stack and the diagnostics sink. Bindings land in a pending
// scope first and only become visible once pushScope promotes it, so a
// binding never resolves inside its own initializer.
type checkEnv struct {
	module  string
	env     *GlobalEnv
	pending localScope
	scopes  []localScope

	typeOf        map[ast.Span]ExprType
	resolvedTypes map[ast.Span]ExprType

	errors   *[]*CompileError
	warnings *[]*Warning
}

func newCheckEnv(module string, env *GlobalEnv, errors *[]*CompileError, warnings *[]*Warning) *checkEnv {
	return &checkEnv{
		module:        module,
		env:           env,
		pending:       make(localScope),
		typeOf:        make(map[ast.Span]ExprType),
		resolvedTypes: make(map[ast.Span]ExprType),
		errors:        errors,
		warnings:      warnings,
	}
}

func (c *checkEnv) errorf(span ast.Span, format string, args ...any) {
	*c.errors = append(*c.errors, compileErrorf(c.module, span, format, args...))
}

func (c *checkEnv) warnf(span ast.Span, format string, args ...any) {
	*c.warnings = append(*c.warnings, warningf(c.module, span, format, args...))
}

// register binds name in the pending scope. Rebinding a name already pending
// in the same scope is an error, as is shadowing a function of the module.
// Shadowing an outer binding is a warning unless the name starts with an
// underscore.
func (c *checkEnv) register(name string, span ast.Span, typ ExprType) bool {
	if prev, ok := c.pending[name]; ok {
		c.errorf(span, "%q is already bound in this scope (previous binding at %s)", name, prev.span)
		return false
	}
	if _, ok := c.env.functions[symKey{c.module, name}]; ok {
		c.errorf(span, "%q shadows a function of module %q", name, c.module)
		return false
	}
	if !strings.HasPrefix(name, "_") {
		for i := len(c.scopes) - 1; i >= 0; i-- {
			if prev, ok := c.scopes[i][name]; ok {
				c.warnf(span, "%q shadows an outer binding (bound at %s)", name, prev.span)
				break
			}
		}
	}
	c.pending[name] = &localBinding{typ: typ, span: span}
	return true
}

// pushScope promotes the pending bindings into a fresh active scope.
func (c *checkEnv) pushScope() {
	c.scopes = append(c.scopes, c.pending)
	c.pending = make(localScope)
}

// popScope drops the innermost scope, warning about bindings that were never
// read. Underscore-prefixed names opt out of the warning.
func (c *checkEnv) popScope() {
	top := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]

	names := make([]string, 0, len(top))
	for name := range top {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := top[name]
		if !b.used && !strings.HasPrefix(name, "_") {
			c.warnf(b.span, "%q is never used", name)
		}
	}
}

// discardScope drops the innermost scope without unused-binding warnings.
// Used on error paths where the body was never checked.
func (c *checkEnv) discardScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// lookup finds name in the active scopes, innermost first. Pending bindings
// are not visible.
func (c *checkEnv) lookup(name string) (*localBinding, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if b, ok := c.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

func compileErrorf(module string, span ast.Span, format string, args ...any) *CompileError {
	return &CompileError{Module: module, Span: span, Msg: fmt.Sprintf(format, args...)}
}

func warningf(module string, span ast.Span, format string, args ...any) *Warning {
	return &Warning{Module: module, Span: span, Msg: fmt.Sprintf(format, args...)}
}

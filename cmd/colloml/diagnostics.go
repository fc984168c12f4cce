package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/collomatique/colloml/pkg/ast"
	"github.com/collomatique/colloml/pkg/colloml"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	locStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	caretStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// diagnostics renders compile errors and warnings against their source text.
type diagnostics struct {
	sources map[string]string
}

func newDiagnostics(sources []colloml.Source) *diagnostics {
	byModule := make(map[string]string, len(sources))
	for _, src := range sources {
		byModule[src.Module] = src.Text
	}
	return &diagnostics{sources: byModule}
}

func (d *diagnostics) printWarnings(w io.Writer, warnings []*colloml.Warning) {
	for _, warning := range warnings {
		d.printOne(w, warningStyle.Render("warning"), warning.Module, warning.Span, warning.Msg)
	}
}

func (d *diagnostics) printErrors(w io.Writer, err error) {
	var merr *multierror.Error
	errs := []error{err}
	if errors.As(err, &merr) {
		errs = merr.Errors
	}
	for _, e := range errs {
		var ce *colloml.CompileError
		if errors.As(e, &ce) {
			d.printOne(w, errorStyle.Render("error"), ce.Module, ce.Span, ce.Msg)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("error:"), e.Error())
	}
}

func (d *diagnostics) printOne(w io.Writer, label, module string, span ast.Span, msg string) {
	src, ok := d.sources[module]
	if !ok || span.Start > len(src) {
		fmt.Fprintf(w, "%s %s: %s\n", label+":", locStyle.Render(module), msg)
		return
	}
	line, col := lineCol(src, span.Start)
	loc := fmt.Sprintf("%s:%d:%d", module, line, col)
	fmt.Fprintf(w, "%s %s: %s\n", label+":", locStyle.Render(loc), msg)

	text := sourceLine(src, line)
	if text == "" {
		return
	}
	fmt.Fprintf(w, "  %s\n", text)
	width := span.Len()
	if width < 1 || col-1+width > len(text) {
		width = 1
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", col-1), caretStyle.Render(strings.Repeat("^", width)))
}

// lineCol converts a byte offset to a 1-based line and column.
func lineCol(src string, offset int) (int, int) {
	line, col := 1, 1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// sourceLine returns the 1-based line of text, without its newline.
func sourceLine(src string, line int) string {
	current := 1
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			if current == line {
				return src[start:i]
			}
			current++
			start = i + 1
		}
	}
	if current == line {
		return src[start:]
	}
	return ""
}

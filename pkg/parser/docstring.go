package parser

import (
	"github.com/collomatique/colloml/pkg/ast"
)

// parseDocstringLine splits one `///` line into literal text and embedded
// expressions. A run of N backticks opens an expression that a later run of
// exactly N backticks closes, so backticks inside an expression can be
// escaped by using a longer delimiter: `x`, ``x with `ticks` ``, and so on.
// Each embedded expression is wrapped in an implicit cast to String.
//
// base is the source offset of the first byte of text, used to give the
// embedded expressions real spans.
func parseDocstringLine(text string, base int) (ast.DocstringLine, []error) {
	var line ast.DocstringLine
	var errs []error
	pos := 0
	i := 0

	for i < len(text) {
		if text[i] != '`' {
			i++
			continue
		}

		tickStart := i
		for i < len(text) && text[i] == '`' {
			i++
		}
		count := i - tickStart

		exprStart := i
		exprEnd := -1
		for i < len(text) {
			if text[i] != '`' {
				i++
				continue
			}
			closeStart := i
			for i < len(text) && text[i] == '`' {
				i++
			}
			if i-closeStart == count {
				exprEnd = closeStart
				break
			}
		}
		if exprEnd < 0 {
			errs = append(errs, &Error{
				Span: ast.NewSpan(base+tickStart, base+len(text)),
				Msg:  "unmatched backticks in docstring",
			})
			return line, errs
		}

		exprText := text[exprStart:exprEnd]
		expr, err := parseExprAt(exprText, base+exprStart)
		if err != nil {
			errs = append(errs, &Error{
				Span: ast.NewSpan(base+exprStart, base+exprEnd),
				Msg:  "invalid expression in docstring: " + err.Error(),
			})
			pos = i
			continue
		}

		if prefix := text[pos:tickStart]; prefix != "" {
			line = append(line, ast.DocstringPart{Prefix: prefix})
		}
		line = append(line, ast.DocstringPart{
			Expr: &ast.StringCast{
				Spanned: ast.Spanned{Span: ast.NewSpan(base+exprStart, base+exprEnd)},
				Expr:    expr,
			},
		})
		pos = i
	}

	if pos < len(text) {
		line = append(line, ast.DocstringPart{Prefix: text[pos:]})
	}
	return line, errs
}

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/collomatique/colloml/pkg/colloml"
	"github.com/collomatique/colloml/pkg/ioctx"
)

func evalCmd(cfg *Config) *cobra.Command {
	var (
		call     string
		rawArgs  []string
		showDefs bool
	)

	cmd := &cobra.Command{
		Use:   "eval [flags] <file|directory>...",
		Short: "Evaluate a public function",
		Long: `Evaluate a public function of a compiled program and print its result.
Arguments are literals: integers, true/false, none, or bare strings.
Functions that reify constraints also report the variable definitions the
evaluation produced.`,
		Example: `  # Call rules::balanced(3)
  colloml eval --call rules::balanced --arg 3 ./rules

  # Show every reified variable definition the call produced
  colloml eval --call rules::all_pinned --defs ./rules`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cfg)
			stdout := ioctx.StdoutFromContext(cmd.Context())
			stderr := ioctx.StderrFromContext(cmd.Context())

			module, function, err := splitCall(call)
			if err != nil {
				return err
			}
			values, err := parseArgs(rawArgs)
			if err != nil {
				return err
			}

			sources, err := loadSources(args)
			if err != nil {
				return err
			}
			schema, err := buildSchema(cfg)
			if err != nil {
				return err
			}

			diag := newDiagnostics(sources)
			program, warnings, err := colloml.Compile(sources, schema)
			diag.printWarnings(stderr, warnings)
			if err != nil {
				diag.printErrors(stderr, err)
				return errors.New("compilation failed")
			}
			if module == "" {
				if len(program.Modules()) != 1 {
					return errors.New("several modules loaded, qualify the call as module::function")
				}
				module = program.Modules()[0]
			}

			ev := colloml.NewEvaluator(program, nil, nil, nil)
			result, origin, err := ev.Call(module, function, values)
			if err != nil {
				return err
			}
			slog.Debug("evaluated", "calls", ev.History().Calls())

			fmt.Fprintf(stdout, "%s = %s\n", origin, result)
			for _, line := range origin.Description {
				fmt.Fprintf(stdout, "  %s\n", line)
			}

			defs := ev.History().IntoVariableDefinitions()
			if showDefs && len(defs.Defs) > 0 {
				printDefinitions(stdout, defs)
			}
			if cfg.Debug {
				fmt.Fprintf(stderr, "%# v\n", pretty.Formatter(defs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&call, "call", "c", "", "Function to evaluate, as module::function or function")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "Argument literal, repeatable")
	cmd.Flags().BoolVar(&showDefs, "defs", false, "Print reified variable definitions")
	_ = cmd.MarkFlagRequired("call")
	return cmd
}

func splitCall(call string) (module, function string, err error) {
	switch parts := strings.Split(call, "::"); len(parts) {
	case 1:
		return "", parts[0], nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return "", "", errors.Errorf("invalid call %q", call)
		}
		return parts[0], parts[1], nil
	default:
		return "", "", errors.Errorf("invalid call %q", call)
	}
}

func parseArgs(raw []string) ([]colloml.Value, error) {
	values := make([]colloml.Value, len(raw))
	for i, arg := range raw {
		value, err := parseLiteral(arg)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i+1)
		}
		values[i] = value
	}
	return values, nil
}

// parseLiteral reads an argument literal: integer, boolean, none, or a
// string. A bare word is taken as a string; something that starts like a
// number or a quoted string but is not one is an error.
func parseLiteral(arg string) (colloml.Value, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		return colloml.IntValue(n), nil
	}
	switch arg {
	case "true":
		return colloml.BoolValue(true), nil
	case "false":
		return colloml.BoolValue(false), nil
	case "none":
		return colloml.NoneValue(), nil
	}
	if arg != "" && (arg[0] == '-' || '0' <= arg[0] && arg[0] <= '9') {
		return colloml.Value{}, errors.Errorf("malformed integer literal %q", arg)
	}
	if strings.HasPrefix(arg, `"`) {
		inner := strings.TrimPrefix(arg, `"`)
		body, ok := strings.CutSuffix(inner, `"`)
		if !ok {
			return colloml.Value{}, errors.Errorf("unterminated string literal %q", arg)
		}
		return colloml.StringValue(body), nil
	}
	return colloml.StringValue(arg), nil
}

func printDefinitions(w io.Writer, defs colloml.VariableDefinitions) {
	for _, def := range defs.Defs {
		if def.List {
			for i, v := range def.ListVars() {
				fmt.Fprintf(w, "%s:\n", v)
				for _, c := range def.ListConstraints[i] {
					fmt.Fprintf(w, "  %s\n", c)
				}
			}
			continue
		}
		fmt.Fprintf(w, "%s:\n", def.Var())
		for _, c := range def.Constraints {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}

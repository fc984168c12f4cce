package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/collomatique/colloml/pkg/colloml"
	"github.com/collomatique/colloml/pkg/ioctx"
)

func checkCmd(cfg *Config) *cobra.Command {
	var listSymbols bool

	cmd := &cobra.Command{
		Use:   "check [flags] <file|directory>...",
		Short: "Parse and type-check ColloML modules",
		Example: `  # Check a single script
  colloml check script.cml

  # Check a directory of modules that import each other
  colloml check ./rules

  # List the public functions and reified variables
  colloml check --symbols ./rules`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cfg)
			stdout := ioctx.StdoutFromContext(cmd.Context())
			stderr := ioctx.StderrFromContext(cmd.Context())

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

			slog.Debug("compiled", "modules", len(program.Modules()))
			fmt.Fprintf(stdout, "ok: %d module(s)\n", len(program.Modules()))
			if listSymbols {
				printSymbols(stdout, program)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&listSymbols, "symbols", false, "List public functions and reified variables")
	return cmd
}

func printSymbols(w io.Writer, program *colloml.Program) {
	modules := program.Modules()
	sorted := make([]string, len(modules))
	copy(sorted, modules)
	sort.Strings(sorted)

	for _, v := range program.Variables() {
		shape := "$" + v.Name
		if v.List {
			shape = "$[" + v.Name + "]"
		}
		fmt.Fprintf(w, "%s::%s\n", v.Module, shape)
	}
	for _, module := range sorted {
		for _, fn := range program.Functions(module) {
			if !fn.Public {
				continue
			}
			params := make([]string, len(fn.Params))
			for i, p := range fn.Params {
				params[i] = fn.ParamNames[i] + ": " + p.String()
			}
			fmt.Fprintf(w, "%s::%s(%s) -> %s\n", module, fn.Name, joinComma(params), fn.Output)
		}
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

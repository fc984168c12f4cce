package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/collomatique/colloml/pkg/ioctx"
)

// Config holds the flags shared by every subcommand.
type Config struct {
	Debug     bool
	Schema    string
	Externals []string
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "colloml",
		Short: "ColloML constraint language toolchain",
		Long: `ColloML is a declarative language for expressing scheduling constraints.
Scripts define typed functions over host-provided objects and reify
Constraint-valued functions into integer linear programming variables.`,
		Example: `  # Type-check every .cml file in a directory
  colloml check ./rules

  # Evaluate a function and print the constraints it produces
  colloml eval --call rules::balanced --arg 3 ./rules

  # Compile against the host's object types and external variables
  colloml check --schema colloml.toml ./rules

  # Declare the external variables the host would provide
  colloml check --external occupied:2 script.cml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.Schema, "schema", "",
		"Path to a colloml.toml manifest declaring object types and external variables")
	rootCmd.PersistentFlags().StringArrayVar(&cfg.Externals, "external", nil,
		"Declare an external variable as name or name:arity (Int arguments)")

	rootCmd.AddCommand(checkCmd(&cfg))
	rootCmd.AddCommand(evalCmd(&cfg))

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cfg *Config) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	slog.SetDefault(slog.New(handler))
}

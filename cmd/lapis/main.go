// Command lapis runs the Lapis annotation engine over a JSON model+spec
// fixture: a root command plus verb subcommands, colorized with
// fatih/color, backed by internal/config's environment loading.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lapis-lang/lapis/internal/config"
	"github.com/lapis-lang/lapis/internal/diagnostic"
	"github.com/lapis-lang/lapis/internal/engine"
	"github.com/lapis-lang/lapis/internal/fixture"
	"github.com/lapis-lang/lapis/internal/schema"
	"github.com/lapis-lang/lapis/model"
)

var (
	bold = color.New(color.Bold)
	red  = color.New(color.FgRed)
)

func main() {
	cfg := config.Load()
	if cfg.NoColor {
		color.NoColor = true
	}

	root := newRootCmd(cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red.Sprint(err))
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "lapis",
		Short: "Lapis annotation engine",
		Long:  "Apply a Lapis specification's rules and descriptors to a C API model.",
	}

	var fixturePath, schemaPath string
	var trace bool

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a fixture's specification against its model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixture(cmd.Context(), fixturePath, schemaPath, trace, cfg.IncludePath)
		},
	}
	run.Flags().StringVar(&fixturePath, "fixture", "", "path (or glob) to a JSON model+spec fixture (required)")
	run.Flags().StringVar(&schemaPath, "schema", cfg.SchemaPath, "path to a YAML annotation schema")
	run.Flags().BoolVar(&trace, "trace", cfg.Trace, "print a colorized trace of every rule application")
	run.MarkFlagRequired("fixture")

	trc := &cobra.Command{
		Use:   "trace",
		Short: "Alias for run --trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixture(cmd.Context(), fixturePath, schemaPath, true, cfg.IncludePath)
		},
	}
	trc.Flags().StringVar(&fixturePath, "fixture", "", "path (or glob) to a JSON model+spec fixture (required)")
	trc.Flags().StringVar(&schemaPath, "schema", cfg.SchemaPath, "path to a YAML annotation schema")
	trc.MarkFlagRequired("fixture")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "List the annotation names declared in a schema file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSchema(schemaPath, cfg.IncludePath)
		},
	}
	schemaCmd.Flags().StringVar(&schemaPath, "schema", cfg.SchemaPath, "path to a YAML annotation schema (required)")
	schemaCmd.MarkFlagRequired("schema")

	root.AddCommand(run, trc, schemaCmd)
	return root
}

// resolveOne expands pattern as a doublestar glob, first as given and then
// relative to each include-path entry, and returns its single match.
// Fixture and schema paths are resolved this way so a caller can point at
// e.g. "testdata/*.fixture.json" without shell glob expansion, or at a bare
// name found on LAPIS_INCLUDE_PATH.
func resolveOne(pattern string, includePath []string) (string, error) {
	candidates := []string{pattern}
	for _, dir := range includePath {
		candidates = append(candidates, filepath.Join(dir, pattern))
	}
	for _, c := range candidates {
		matches, err := doublestar.FilepathGlob(c)
		if err != nil {
			return "", fmt.Errorf("resolving %q: %w", c, err)
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return "", fmt.Errorf("%q matches %d files, expected exactly one", c, len(matches))
		}
	}
	return "", fmt.Errorf("no file matches %q", pattern)
}

func runFixture(ctx context.Context, fixturePath, schemaPath string, trace bool, includePath []string) error {
	path, err := resolveOne(fixturePath, includePath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	api, spec, err := fixture.Decode(data)
	if err != nil {
		return err
	}

	sch := schema.Open
	if schemaPath != "" {
		resolved, err := resolveOne(schemaPath, includePath)
		if err != nil {
			return err
		}
		loaded, err := schema.Load(resolved)
		if err != nil {
			return err
		}
		sch = loaded
	}

	opts := engine.Options{Schema: sch, Trace: trace}
	if err := engine.Run(ctx, spec, api, opts); err != nil {
		if diagErr, ok := err.(*diagnostic.Error); ok {
			return fmt.Errorf("%s", diagnostic.Render(diagErr))
		}
		return err
	}

	bold.Println("run complete")
	for _, fn := range api.Functions {
		fmt.Printf("  %s: %v\n", fn.Name, annotationSummary(fn))
	}
	return nil
}

func annotationSummary(fn interface{ Get(string) (any, bool) }) map[string]any {
	out := map[string]any{}
	for _, name := range []string{"synchrony", "transfer", "lifetime"} {
		if v, ok := fn.Get(name); ok {
			out[name] = v
		}
	}
	return out
}

func printSchema(schemaPath string, includePath []string) error {
	path, err := resolveOne(schemaPath, includePath)
	if err != nil {
		return err
	}
	sch, err := schema.Load(path)
	if err != nil {
		return err
	}
	for _, kind := range []model.EntityKind{model.KindAPI, model.KindFunction, model.KindArgument, model.KindType} {
		fmt.Printf("%s:\n", bold.Sprint(string(kind)))
		for _, name := range sch.Names(kind) {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tmplc/internal/ast"
	"github.com/conneroisu/tmplc/internal/astfile"
	"github.com/conneroisu/tmplc/internal/compiler"
	"github.com/conneroisu/tmplc/internal/emit"
)

var (
	astExpand bool
	astOps    bool
	astStats  bool
)

var astCmd = &cobra.Command{
	Use:   "ast <document>",
	Short: "Print the tree or compiled ops of a document",
	Long: `Decode a template document and print its tree. Referenced layouts and
components are loaded and can be printed inline with --expand.

With --ops the document is compiled and the emission ops are printed
instead, which shows exactly what the generated Render method does.

Examples:
  tmplc ast pages/home.yaml            # Print the tree
  tmplc ast pages/home.yaml --expand   # Include layouts and components
  tmplc ast pages/home.yaml --ops      # Print the compiled ops
  tmplc ast pages/home.yaml --stats    # Count nodes by kind`,
	Args: cobra.ExactArgs(1),
	RunE: runAstCommand,
}

func init() {
	rootCmd.AddCommand(astCmd)

	astCmd.Flags().BoolVarP(&astExpand, "expand", "e", false, "Print referenced documents inline")
	astCmd.Flags().BoolVar(&astOps, "ops", false, "Print compiled emission ops")
	astCmd.Flags().BoolVar(&astStats, "stats", false, "Print node counts by kind")
}

func runAstCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loader := astfile.NewLoader(os.DirFS(cfg.Views.Root))

	name, err := astfile.CleanPath(args[0])
	if err != nil {
		return err
	}
	tree, err := loader.Load(name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case astOps:
		prog, err := compiler.Compile(tree,
			compiler.WithFile(name),
			compiler.WithLogger(logger),
			compiler.WithMaxDepth(cfg.Generate.MaxDepth),
		)
		if err != nil {
			return err
		}
		if prog.Layout != "" {
			fmt.Fprintf(out, "# layout %s\n", prog.Layout)
		}
		if len(prog.Sections) > 0 {
			fmt.Fprintf(out, "# sections %v\n", prog.Sections)
		}
		fmt.Fprintf(out, "# size hint %d\n", prog.SizeHint())
		return emit.Fprint(out, prog.Ops)
	case astStats:
		counts := ast.Count(tree)
		for _, kind := range ast.Kinds() {
			if n := counts[kind]; n > 0 {
				fmt.Fprintf(out, "%-16s %d\n", kind, n)
			}
		}
		return nil
	default:
		return ast.Fprint(out, tree, astExpand)
	}
}

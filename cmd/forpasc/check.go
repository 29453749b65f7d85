package main

import (
	"fmt"
	"os"

	"github.com/lhaig/forpasc/internal/compiler"
	"github.com/lhaig/forpasc/internal/diagnostic"
	"github.com/spf13/cobra"
)

var checkImportsFlag string

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Compile a source file without writing output, reporting informational notices",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkImportsFlag, "imports", "", "JSON imports object (host function arities, memory presence)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	imports, err := parseImportsFlag(checkImportsFlag)
	if err != nil {
		return err
	}

	// check never persists: it exists to answer "does this compile", not
	// to warm the build cache.
	res, err := compiler.Compile(string(source), imports, nil)
	if err != nil {
		diagnostic.Render(os.Stderr, path, err)
		return errSilent
	}

	notices := diagnostic.New()
	if len(res.Layouts) == 0 {
		notices.Infof(0, 0, "no layouts declared")
	}
	if res.Table == nil {
		notices.Infof(0, 0, "no indirect calls; __table omitted")
	}
	diagnostic.RenderNotices(cmd.OutOrStdout(), path, notices)

	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/lhaig/forpasc/internal/compiler"
	"github.com/lhaig/forpasc/internal/diagnostic"
	"github.com/spf13/cobra"
)

var dumpImportsFlag string

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Compile a source file and print its hex-encoded module bytes",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpImportsFlag, "imports", "", "JSON imports object (host function arities, memory presence)")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	imports, err := parseImportsFlag(dumpImportsFlag)
	if err != nil {
		return err
	}

	cache, err := openCLICache()
	if err != nil {
		return err
	}
	defer cache.Close()

	hexStr, err := compiler.Dump(string(source), imports, cache)
	if err != nil {
		diagnostic.Render(os.Stderr, path, err)
		return errSilent
	}

	fmt.Fprintln(cmd.OutOrStdout(), hexStr)
	return nil
}

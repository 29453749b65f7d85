package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lhaig/forpasc/internal/compiler"
	"github.com/lhaig/forpasc/internal/diagnostic"
	"github.com/spf13/cobra"
)

var (
	buildImportsFlag string
	buildOutFlag     string
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a source file to a Wasm module",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildImportsFlag, "imports", "", "JSON imports object (host function arities, memory presence)")
	buildCmd.Flags().StringVarP(&buildOutFlag, "out", "o", "", "output .wasm path (default: the input path with its extension replaced)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	imports, err := parseImportsFlag(buildImportsFlag)
	if err != nil {
		return err
	}

	cache, err := openCLICache()
	if err != nil {
		return err
	}
	defer cache.Close()

	res, err := compiler.Compile(string(source), imports, cache)
	if err != nil {
		diagnostic.Render(os.Stderr, path, err)
		return errSilent
	}

	out := buildOutFlag
	if out == "" {
		out = replaceExt(path, ".wasm")
	}
	if err := os.WriteFile(out, res.Bytes, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(res.Bytes))
	return nil
}

func replaceExt(path, ext string) string {
	trimmed := strings.TrimSuffix(path, filepath.Ext(path))
	return trimmed + ext
}

package main

import (
	"fmt"
	"strings"

	"github.com/lhaig/forpasc/internal/compiler"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	featuresFlag  string
	cachePathFlag string
)

var rootCmd = &cobra.Command{
	Use:   "forpasc",
	Short: "forpasc compiles a Fortran/Pascal-flavoured language to WebAssembly",
	Long: `forpasc is a single-pass compiler -- lexer, parser, code generator, no
intermediate representation -- translating forpasc source directly into a
Wasm 1.0 module with the SIMD-128 and tail-call proposal extensions, plus
two host-visible side tables: the indirect-call table and computed record
layouts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := compiler.ValidateFeatures(featuresFlag)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&featuresFlag, "features", "",
		"comma-separated Wasm proposal features this invocation requires of the target engine (simd128,tail-call)")
	rootCmd.PersistentFlags().StringVar(&cachePathFlag, "cache", defaultCachePath(),
		"path to the JIT-stability cache database (empty disables persistence across runs)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the forpasc version, engine version, and supported features",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		features, err := compiler.ValidateFeatures("simd128,tail-call")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "forpasc %s (engine %s, features: %s)\n",
			version, compiler.EngineVersion, strings.Join(features, ","))
		return nil
	},
}

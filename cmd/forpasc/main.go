// Command forpasc is the CLI front end for the compiler: build, dump,
// check, and cache-stats subcommands over internal/compiler, matching
// spec.md §6's driver entry points and SPEC_FULL.md §4.8's CLI binding.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// errSilent marks an error whose detail was already written to stderr via
// diagnostic.Render (file:line:col, coloured); main must not print it a
// second time in its own plain "error: ..." form.
var errSilent = errors.New("")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

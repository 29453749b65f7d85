package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheStatsCmd = &cobra.Command{
	Use:   "cache-stats",
	Short: "Print the number of entries in the JIT-stability cache",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

func init() {
	rootCmd.AddCommand(cacheStatsCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cache, err := openCLICache()
	if err != nil {
		return err
	}
	defer cache.Close()

	stats, err := cache.Stats()
	if err != nil {
		return err
	}

	if cachePathFlag == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%d cached module(s) (in-memory, process-local)\n", stats.Entries)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cached module(s) at %s\n", stats.Entries, cachePathFlag)
	return nil
}

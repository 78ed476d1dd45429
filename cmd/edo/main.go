package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "edo",
	Short: "edo - a hermetic, content-addressed build orchestrator",
	Long: `edo builds projects declared as a tree of storage backends, vendors,
environments and transforms into content-addressed artifacts, resolving
declared dependencies once and replaying the result from a lockfile on
every subsequent build.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("edo version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("config", "", "Path to config file (defaults to .edo/config.yaml)")
	rootCmd.PersistentFlags().String("project", ".", "Project directory to load")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().Bool("interactive", false, "Drop into an interactive retry prompt on transform failure")
	rootCmd.PersistentFlags().StringToString("arg", nil, "key=value argument exposed to project \"wants\" resolution")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(updateCmd)
}
